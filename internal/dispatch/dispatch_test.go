package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samplore/sbuild/internal/config"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/buildsystest"
)

func newProject(t *testing.T) projenv.Project {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, projenv.DescriptorName), []byte("<JUCERPROJECT/>"), 0o644))
	p, err := projenv.New(root)
	require.NoError(t, err)
	return p
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestBuildEndToEndLinux(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.WriteFile(p.EnvFile(), []byte("JUCE_PATH=/opt/tool\nBUILD_CONFIG=Release\n"), 0o644))
	writeFile(t, filepath.Join(p.LinuxMakefileDir(), "Makefile"))

	loaded, err := config.Load(p)
	require.NoError(t, err)
	root, err := loaded.Settings.JuceRoot()
	require.NoError(t, err)
	require.Equal(t, "/opt/tool", root)

	r := &buildsystest.Runner{Code: 2}
	d := New(p, r)
	res, err := d.Build(context.Background(), Request{
		Platform: platform.Linux,
		Config:   loaded.Settings.BuildConfig,
		Backend:  GeneratedProject,
		Jobs:     7,
	})

	var exitErr *buildsys.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, 2, res.ExitCode)

	require.Len(t, r.Calls, 1)
	args := r.Calls[0].Args
	assert.True(t, slices.ContainsFunc(args, func(a string) bool { return a == "CONFIG=Release" }), args)
	assert.Contains(t, args, "-j7")
	assert.Equal(t, filepath.Join(p.LinuxMakefileDir(), "build", "Samplore"), res.Artifact)
}

func TestBuildSuccess(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.LinuxMakefileDir(), "Makefile"))

	res, err := New(p, &buildsystest.Runner{}).Build(context.Background(), Request{
		Platform: platform.Linux, Config: config.Debug, Jobs: 1,
	})
	require.NoError(t, err)
	assert.Zero(t, res.ExitCode)
	assert.Equal(t, "make", res.Driver)
}

func TestBuildGeneratesOnceWhenNotPrepared(t *testing.T) {
	p := newProject(t)
	r := &buildsystest.Runner{}
	d := New(p, r)

	calls := 0
	d.Generate = func(context.Context) error {
		calls++
		writeFile(t, filepath.Join(p.LinuxMakefileDir(), "Makefile"))
		return nil
	}

	_, err := d.Build(context.Background(), Request{Platform: platform.Linux, Config: config.Release, Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, r.Calls, 1)

	_, err = d.Build(context.Background(), Request{Platform: platform.Linux, Config: config.Release, Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "prepared project is not regenerated")
}

func TestBuildGenerateFailureStopsBuild(t *testing.T) {
	p := newProject(t)
	r := &buildsystest.Runner{}
	d := New(p, r)
	boom := errors.New("projucer crashed")
	d.Generate = func(context.Context) error { return boom }

	res, err := d.Build(context.Background(), Request{Platform: platform.Linux, Config: config.Release})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.ExitCode)
	assert.Empty(t, r.Calls)
}

func TestBuildWithoutGeneratorReportsNotPrepared(t *testing.T) {
	p := newProject(t)
	_, err := New(p, &buildsystest.Runner{}).Build(context.Background(), Request{Platform: platform.MacOS, Config: config.Release})
	var notPrepared *buildsys.NotPreparedError
	assert.ErrorAs(t, err, &notPrepared)
}

func TestMetaBuildConfiguresThenBuilds(t *testing.T) {
	p := newProject(t)
	r := &buildsystest.Runner{}
	d := New(p, r)
	d.Generate = func(context.Context) error {
		t.Fatal("meta-build must not call the generator")
		return nil
	}

	res, err := d.Build(context.Background(), Request{
		Platform: platform.Windows,
		Config:   config.Debug,
		Backend:  MetaBuild,
		Jobs:     3,
		BuildDir: "out/cmake",
	})
	require.NoError(t, err)

	buildDir := filepath.Join(p.Root(), "out", "cmake")
	require.Len(t, r.Calls, 2)
	assert.Equal(t, []string{"-S", p.Root(), "-B", buildDir, "-DCMAKE_BUILD_TYPE:STRING=Debug"}, r.Calls[0].Args)
	assert.Equal(t, []string{"--build", buildDir, "--config", "Debug", "--parallel", "3"}, r.Calls[1].Args)
	assert.Equal(t, filepath.Join(buildDir, "Samplore_artefacts", "Debug", "Samplore.exe"), res.Artifact)
}

func TestBuildDirRejectedForGeneratedProject(t *testing.T) {
	p := newProject(t)
	r := &buildsystest.Runner{}
	_, err := New(p, r).Build(context.Background(), Request{
		Platform: platform.Linux, Config: config.Release, Backend: GeneratedProject, BuildDir: "custom",
	})
	assert.ErrorIs(t, err, ErrBuildDirUnsupported)
	assert.Empty(t, r.Calls)
}

func TestBackendsInterchangeable(t *testing.T) {
	for _, b := range []Backend{GeneratedProject, MetaBuild} {
		t.Run(b.String(), func(t *testing.T) {
			p := newProject(t)
			writeFile(t, filepath.Join(p.LinuxMakefileDir(), "Makefile"))
			writeFile(t, filepath.Join(p.MetaBuildDir(), "CMakeCache.txt"))

			res, err := New(p, &buildsystest.Runner{Code: 5}).Build(context.Background(), Request{
				Platform: platform.Linux, Config: config.Release, Backend: b, Jobs: 2,
			})
			assert.Equal(t, 5, res.ExitCode)
			var exitErr *buildsys.ExitError
			assert.ErrorAs(t, err, &exitErr)
		})
	}
}

func TestBuildTests(t *testing.T) {
	p := newProject(t)
	r := &buildsystest.Runner{}
	res, err := New(p, r).BuildTests(context.Background(), platform.Linux, 4)
	require.NoError(t, err)

	require.Len(t, r.Calls, 2)
	assert.Equal(t, "-DCMAKE_BUILD_TYPE:STRING=Debug", r.Calls[0].Args[len(r.Calls[0].Args)-1])
	assert.Equal(t, []string{"--build", p.TestsBuildDir(), "--config", "Debug", "--parallel", "4", "--target", "SamploreTests"}, r.Calls[1].Args)
	assert.Equal(t, filepath.Join(p.TestsBuildDir(), "SamploreTests_artefacts", "Debug", "SamploreTests"), res.Artifact)
}

func TestClean(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.MetaBuildDir(), "CMakeCache.txt"))
	writeFile(t, filepath.Join(p.MacOSXDir(), "build", "Release", "x"))

	d := New(p, &buildsystest.Runner{})
	code, err := d.Clean(context.Background(), platform.Linux, MetaBuild, "")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.NoDirExists(t, p.MetaBuildDir())

	code, err = d.Clean(context.Background(), platform.MacOS, GeneratedProject, "")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.NoDirExists(t, filepath.Join(p.MacOSXDir(), "build"))
}

func TestCleanAll(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.LinuxMakefileDir(), "build", "Samplore"))
	writeFile(t, filepath.Join(p.VisualStudioDirs()[1], "x64", "Release", "Samplore.exe"))
	writeFile(t, filepath.Join(p.TestsBuildDir(), "CMakeCache.txt"))

	r := &buildsystest.Runner{}
	cleaned, err := New(p, r).CleanAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.Calls, "no Makefile, so make clean is not run")
	assert.NoDirExists(t, filepath.Join(p.LinuxMakefileDir(), "build"))
	assert.NoDirExists(t, filepath.Join(p.VisualStudioDirs()[1], "x64"))
	assert.NoDirExists(t, p.TestsBuildDir())
	assert.Contains(t, cleaned, p.MetaBuildDir())
}

func TestArtifactCandidatesArePure(t *testing.T) {
	p := newProject(t)
	d := New(p, &buildsystest.Runner{})
	req := Request{Platform: platform.MacOS, Config: config.Release}
	first, err := d.ArtifactCandidates(req)
	require.NoError(t, err)
	second, err := d.ArtifactCandidates(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{filepath.Join(p.MacOSXDir(), "build", "Release", "Samplore.app")}, first)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("cmake")
	require.NoError(t, err)
	assert.Equal(t, MetaBuild, b)
	b, err = ParseBackend("make")
	require.NoError(t, err)
	assert.Equal(t, GeneratedProject, b)
	_, err = ParseBackend("bazel")
	assert.Error(t, err)
}

func noTools() toolchain.Locator {
	return toolchain.Locator{
		Stat:     func(string) (os.FileInfo, error) { return nil, os.ErrNotExist },
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
	}
}

func TestWindowsBuildWithoutMSBuild(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.VisualStudioDirs()[0], "Samplore.sln"))

	r := &buildsystest.Runner{}
	d := New(p, r)
	d.Locator = noTools()
	res, err := d.Build(context.Background(), Request{Platform: platform.Windows, Config: config.Release, Jobs: 4})

	var nf *toolchain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "MSBuild", nf.Tool)
	assert.Contains(t, toolchain.Hint(err), "Visual Studio 2022")
	assert.Equal(t, 1, res.ExitCode)
	assert.Empty(t, r.Calls)
}

func TestWindowsBuildUsesLocatedMSBuild(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.VisualStudioDirs()[0], "Samplore.sln"))

	r := &buildsystest.Runner{}
	d := New(p, r)
	d.Locator = noTools()
	d.Locator.LookPath = func(name string) (string, error) {
		if name == "msbuild" {
			return `C:\tools\msbuild.exe`, nil
		}
		return "", errors.New("not found")
	}
	_, err := d.Build(context.Background(), Request{Platform: platform.Windows, Config: config.Release, Jobs: 4})
	require.NoError(t, err)
	assert.Equal(t, `C:\tools\msbuild.exe`, r.Last().Path)
}

func TestWindowsCleanWithoutMSBuild(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(p.VisualStudioDirs()[0], "x64", "Release", "Samplore.exe")
	writeFile(t, out)

	d := New(p, &buildsystest.Runner{})
	d.Locator = noTools()
	code, err := d.Clean(context.Background(), platform.Windows, GeneratedProject, "")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestTuningReachesDrivers(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.LinuxMakefileDir(), "Makefile"))

	r := &buildsystest.Runner{}
	d := New(p, r)
	d.Tuning = Tuning{
		Generator: "Ninja",
		Defines:   map[string]string{"JUCE_BUILD_EXTRAS": "off", "FLAVOR": "studio"},
		Env:       map[string]string{"CCACHE_DIR": "/tmp/ccache"},
	}

	_, err := d.Build(context.Background(), Request{Platform: platform.Linux, Config: config.Debug, Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, "make", r.Last().Path)
	assert.Equal(t, "/tmp/ccache", r.Last().Env["CCACHE_DIR"])

	_, err = d.Build(context.Background(), Request{Platform: platform.Linux, Config: config.Debug, Backend: MetaBuild, Jobs: 2})
	require.NoError(t, err)
	configure := r.Calls[1]
	assert.Equal(t, "cmake", configure.Path)
	assert.Contains(t, configure.Args, "Ninja")
	assert.Contains(t, configure.Args, "-DJUCE_BUILD_EXTRAS:BOOL=OFF")
	assert.Contains(t, configure.Args, "-DFLAVOR:STRING=studio")
	assert.Equal(t, "/tmp/ccache", configure.Env["CCACHE_DIR"])
}
