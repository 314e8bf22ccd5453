// Package gnumake drives a Projucer-generated LinuxMakefile project.
package gnumake

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samplore/sbuild/pkgs/buildsys"
)

// Make runs make in a directory holding a generated Makefile.
type Make struct {
	Dir string
	// FellBack is set when make clean failed and only build/ was removed.
	FellBack bool
	env map[string]string

	runner buildsys.Runner
	bin    string
}

var _ buildsys.NativeBuildDriver = (*Make)(nil)

// New creates a driver for the Makefile in dir.
func New(dir string, r buildsys.Runner) *Make {
	return &Make{Dir: dir, runner: r, bin: "make", env: map[string]string{}}
}

func (m *Make) Name() string { return "make" }

func (m *Make) Env(key, value string) *Make {
	if m.env == nil {
		m.env = map[string]string{}
	}
	m.env[key] = value
	return m
}

func (m *Make) makefile() string {
	return filepath.Join(m.Dir, "Makefile")
}

func (m *Make) Prepared() error {
	if _, err := os.Stat(m.makefile()); err != nil {
		return &buildsys.NotPreparedError{
			Driver: m.Name(),
			Path:   m.makefile(),
			Hint:   "regenerate the project with Projucer --resave",
		}
	}
	return nil
}

// Configure is a no-op; the Makefile is produced by the generator.
func (m *Make) Configure(ctx context.Context) error { return nil }

// Build runs make CONFIG=<config> -j<jobs> [target].
func (m *Make) Build(ctx context.Context, opts buildsys.BuildOptions) (int, error) {
	args := []string{"CONFIG=" + opts.Config, "-j" + strconv.Itoa(buildsys.Jobs(opts.Jobs))}
	if opts.Target != "" {
		args = append(args, opts.Target)
	}
	return m.runner.Run(ctx, buildsys.Cmd{Path: m.bin, Args: args, Dir: m.Dir, Env: m.env})
}

// Clean runs make clean when a Makefile exists, then removes build/.
// A failing make clean falls back to removing build/ alone.
func (m *Make) Clean(ctx context.Context) (int, error) {
	if _, err := os.Stat(m.makefile()); err == nil {
		code, err := m.runner.Run(ctx, buildsys.Cmd{Path: m.bin, Args: []string{"clean"}, Dir: m.Dir, Env: m.env})
		if ctx.Err() != nil {
			return code, ctx.Err()
		}
		if err != nil || code != 0 {
			m.FellBack = true
		}
	}
	if err := os.RemoveAll(m.OutputDir()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 1, err
	}
	return 0, nil
}

func (m *Make) OutputDir() string {
	return filepath.Join(m.Dir, "build")
}
