package cmake

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/buildsystest"
)

func TestConfigureArgs(t *testing.T) {
	tmp := t.TempDir()
	buildDir := filepath.Join(tmp, "build-cmake")
	r := &buildsystest.Runner{}

	c := New(tmp, buildDir, r).BuildType("Release")
	c.Define("FOO", "BAR")
	c.DefineBool("ENABLE", true)
	c.DefineBool("DISABLE", false)

	if err := c.Configure(context.Background()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := os.Stat(buildDir); err != nil {
		t.Fatalf("build dir not created: %v", err)
	}

	got := strings.Join(r.Last().Args, " ")
	want := "-S " + tmp + " -B " + buildDir +
		" -DCMAKE_BUILD_TYPE:STRING=Release -DDISABLE:BOOL=OFF -DENABLE:BOOL=ON -DFOO:STRING=BAR"
	if got != want {
		t.Fatalf("configure args = %q, want %q", got, want)
	}
	if r.Last().Path != "cmake" {
		t.Fatalf("binary = %q, want cmake", r.Last().Path)
	}
}

func TestConfigureFailureIsExitError(t *testing.T) {
	r := &buildsystest.Runner{Code: 3}
	c := New(t.TempDir(), filepath.Join(t.TempDir(), "b"), r)

	err := c.Configure(context.Background())
	exitErr, ok := err.(*buildsys.ExitError)
	if !ok {
		t.Fatalf("err = %v, want *buildsys.ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("code = %d, want 3", exitErr.Code)
	}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		opts buildsys.BuildOptions
		want string
	}{
		{"release", buildsys.BuildOptions{Config: "Release", Jobs: 8}, "--build B --config Release --parallel 8"},
		{"target", buildsys.BuildOptions{Config: "Debug", Jobs: 2, Target: "SamploreTests"}, "--build B --config Debug --parallel 2 --target SamploreTests"},
		{"zero jobs", buildsys.BuildOptions{Config: "Debug"}, "--build B --config Debug --parallel 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &buildsystest.Runner{Code: 2}
			c := New("S", "B", r)
			code, err := c.Build(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if code != 2 {
				t.Fatalf("code = %d, want 2", code)
			}
			if got := strings.Join(r.Last().Args, " "); got != tt.want {
				t.Fatalf("args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreparedAndClean(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "build-cmake")
	c := New(t.TempDir(), buildDir, &buildsystest.Runner{})

	err := c.Prepared()
	if _, ok := err.(*buildsys.NotPreparedError); !ok {
		t.Fatalf("Prepared() = %v, want *NotPreparedError", err)
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, "CMakeCache.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.Prepared(); err != nil {
		t.Fatalf("Prepared() after configure = %v", err)
	}

	code, err := c.Clean(context.Background())
	if err != nil || code != 0 {
		t.Fatalf("Clean() = %d, %v", code, err)
	}
	if _, err := os.Stat(buildDir); !os.IsNotExist(err) {
		t.Fatalf("build dir still present: %v", err)
	}
	if c.OutputDir() != buildDir {
		t.Fatalf("OutputDir = %q, want %q", c.OutputDir(), buildDir)
	}
}

func TestConfigureBuildE2E(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}

	src := t.TempDir()
	lists := "cmake_minimum_required(VERSION 3.16)\n" +
		"project(marker NONE)\n" +
		"add_custom_target(marker ALL COMMAND ${CMAKE_COMMAND} -E touch ${CMAKE_BINARY_DIR}/marker)\n"
	if err := os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte(lists), 0o644); err != nil {
		t.Fatal(err)
	}
	buildDir := filepath.Join(t.TempDir(), "build")

	c := New(src, buildDir, buildsys.NewExecRunner(nil, nil)).BuildType("Release")
	c.Define("FOO", "BAR")
	if err := c.Configure(context.Background()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	code, err := c.Build(context.Background(), buildsys.BuildOptions{Config: "Release", Jobs: 2})
	if err != nil || code != 0 {
		t.Fatalf("build = %d, %v", code, err)
	}
	if _, err := os.Stat(filepath.Join(buildDir, "marker")); err != nil {
		t.Fatalf("marker missing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(buildDir, "CMakeCache.txt"))
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	for _, snippet := range []string{"FOO:STRING=BAR", "CMAKE_BUILD_TYPE:STRING=Release"} {
		if !strings.Contains(string(data), snippet) {
			t.Fatalf("cache missing %q", snippet)
		}
	}
}
