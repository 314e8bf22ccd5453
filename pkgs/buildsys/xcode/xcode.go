// Package xcode drives a Projucer-generated MacOSX Xcode project.
package xcode

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

type Xcode struct {
	Dir string

	runner buildsys.Runner
	bin    string
}

var _ buildsys.NativeBuildDriver = (*Xcode)(nil)

func New(dir string, r buildsys.Runner) *Xcode {
	return &Xcode{Dir: dir, runner: r, bin: "xcodebuild"}
}

func (x *Xcode) Name() string { return "xcodebuild" }

// Project returns the first *.xcodeproj in Dir, by name.
func (x *Xcode) Project() (string, error) {
	matches, err := filepath.Glob(filepath.Join(x.Dir, "*.xcodeproj"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", &buildsys.NotPreparedError{
			Driver: x.Name(),
			Path:   filepath.Join(x.Dir, "*.xcodeproj"),
			Hint:   "regenerate the project with Projucer --resave",
		}
	}
	sort.Strings(matches)
	return matches[0], nil
}

func (x *Xcode) Prepared() error {
	_, err := x.Project()
	return err
}

func (x *Xcode) Configure(ctx context.Context) error { return nil }

// Build runs xcodebuild -project <p> -configuration <c> -jobs <n> build.
func (x *Xcode) Build(ctx context.Context, opts buildsys.BuildOptions) (int, error) {
	proj, err := x.Project()
	if err != nil {
		return 1, err
	}
	args := []string{
		"-project", filepath.Base(proj),
		"-configuration", opts.Config,
		"-jobs", strconv.Itoa(buildsys.Jobs(opts.Jobs)),
	}
	if opts.Target != "" {
		args = append(args, "-target", opts.Target)
	}
	args = append(args, "build")
	return x.runner.Run(ctx, buildsys.Cmd{Path: x.bin, Args: args, Dir: x.Dir})
}

// Clean removes build/; xcodebuild clean leaves products behind.
func (x *Xcode) Clean(ctx context.Context) (int, error) {
	if err := os.RemoveAll(x.OutputDir()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 1, err
	}
	return 0, nil
}

func (x *Xcode) OutputDir() string {
	return filepath.Join(x.Dir, "build")
}
