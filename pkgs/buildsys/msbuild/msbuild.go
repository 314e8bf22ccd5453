// Package msbuild drives Projucer-generated Visual Studio solutions.
package msbuild

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/samplore/sbuild/pkgs/buildsys"
)

// MSBuild builds the first solution found across Dirs, in order.
type MSBuild struct {
	// Dirs lists the VisualStudio export dirs, newest first.
	Dirs []string
	// Tool is the resolved MSBuild.exe.
	Tool     string
	Platform string

	runner buildsys.Runner
}

var _ buildsys.NativeBuildDriver = (*MSBuild)(nil)

func New(tool string, r buildsys.Runner, dirs ...string) *MSBuild {
	return &MSBuild{Dirs: dirs, Tool: tool, Platform: "x64", runner: r}
}

func (m *MSBuild) Name() string { return "msbuild" }

// Solution returns the first *.sln, trying Dirs in order.
func (m *MSBuild) Solution() (string, error) {
	for _, dir := range m.Dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.sln"))
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	path := "<no dirs>"
	if len(m.Dirs) > 0 {
		path = filepath.Join(m.Dirs[0], "*.sln")
	}
	return "", &buildsys.NotPreparedError{
		Driver: m.Name(),
		Path:   path,
		Hint:   "regenerate the project with Projucer --resave",
	}
}

func (m *MSBuild) Prepared() error {
	_, err := m.Solution()
	return err
}

func (m *MSBuild) Configure(ctx context.Context) error { return nil }

// Build runs MSBuild <sln> /p:Configuration=<c> /p:Platform=x64 /m:<n>.
func (m *MSBuild) Build(ctx context.Context, opts buildsys.BuildOptions) (int, error) {
	sln, err := m.Solution()
	if err != nil {
		return 1, err
	}
	tool := m.Tool
	if tool == "" {
		tool = "msbuild"
	}
	args := []string{
		filepath.Base(sln),
		"/p:Configuration=" + opts.Config,
		"/p:Platform=" + m.Platform,
		"/m:" + strconv.Itoa(buildsys.Jobs(opts.Jobs)),
	}
	if opts.Target != "" {
		args = append(args, "/t:"+opts.Target)
	}
	return m.runner.Run(ctx, buildsys.Cmd{Path: tool, Args: args, Dir: filepath.Dir(sln)})
}

// Clean removes the platform output dir under every export dir.
func (m *MSBuild) Clean(ctx context.Context) (int, error) {
	for _, dir := range m.Dirs {
		out := filepath.Join(dir, m.Platform)
		if err := os.RemoveAll(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 1, err
		}
	}
	return 0, nil
}

// OutputDir returns the output dir of the solution that would be built.
func (m *MSBuild) OutputDir() string {
	if sln, err := m.Solution(); err == nil {
		return filepath.Join(filepath.Dir(sln), m.Platform)
	}
	if len(m.Dirs) == 0 {
		return ""
	}
	return filepath.Join(m.Dirs[0], m.Platform)
}
