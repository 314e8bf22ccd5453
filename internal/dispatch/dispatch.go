// Package dispatch turns one build request into a native tool invocation.
//
// Callers pick a platform, a flavor and a Backend; the Dispatcher picks the
// driver, prepares it once when its project files are missing, runs it and
// reports the tool's exit code unchanged together with the artifact path.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samplore/sbuild/internal/artifact"
	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/ctxlog"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/cmake"
	"github.com/samplore/sbuild/pkgs/buildsys/gnumake"
	"github.com/samplore/sbuild/pkgs/buildsys/msbuild"
	"github.com/samplore/sbuild/pkgs/buildsys/xcode"
)

// ErrBuildDirUnsupported is returned when a build directory override is
// combined with the generated-project backend, whose layout is fixed by
// the generator.
var ErrBuildDirUnsupported = errors.New("--build-dir is only supported with the CMake backend")

// Request describes one build.
type Request struct {
	Platform platform.Tag
	Config   config.BuildConfig
	Backend  Backend
	Jobs     int
	// BuildDir overrides the isolated meta-build directory.
	BuildDir string
	// Target limits the build to one target.
	Target string
}

// Result is the outcome of a build that ran.
type Result struct {
	ExitCode int
	Artifact string
	Driver   string
}

// Dispatcher owns driver selection for one project.
type Dispatcher struct {
	Project projenv.Project
	Runner  buildsys.Runner
	// Generate regenerates the native project files. It is called at most
	// once per Build, only when the driver is not prepared.
	Generate func(ctx context.Context) error
	// Locator finds MSBuild on Windows. A missing MSBuild fails the
	// Windows generated-project build with a *toolchain.NotFoundError.
	Locator toolchain.Locator
	// Tuning is applied to every make and cmake driver created here.
	Tuning Tuning
}

// Tuning carries the user's driver settings.
type Tuning struct {
	Generator string
	// Defines are passed as -D cache entries. ON, OFF, TRUE and FALSE
	// become BOOL entries.
	Defines map[string]string
	Env     map[string]string
}

// New returns a dispatcher for p.
func New(p projenv.Project, r buildsys.Runner) *Dispatcher {
	return &Dispatcher{Project: p, Runner: r}
}

func (d *Dispatcher) cmake(source, buildDir string, cfg config.BuildConfig) *cmake.CMake {
	c := cmake.New(source, buildDir, d.Runner).BuildType(cfg.String())
	if d.Tuning.Generator != "" {
		c.Generator(d.Tuning.Generator)
	}
	for k, v := range d.Tuning.Defines {
		switch strings.ToUpper(v) {
		case "ON", "TRUE":
			c.DefineBool(k, true)
		case "OFF", "FALSE":
			c.DefineBool(k, false)
		default:
			c.Define(k, v)
		}
	}
	for k, v := range d.Tuning.Env {
		c.Env(k, v)
	}
	return c
}

func (d *Dispatcher) gnumake(dir string) *gnumake.Make {
	m := gnumake.New(dir, d.Runner)
	for k, v := range d.Tuning.Env {
		m.Env(k, v)
	}
	return m
}

// NativeDriver returns the generated-project driver for tag over dirs.
// Windows takes the Visual Studio export dirs newest first; other
// platforms use dirs[0].
func (d *Dispatcher) NativeDriver(tag platform.Tag, dirs ...string) (buildsys.NativeBuildDriver, error) {
	if len(dirs) == 0 {
		return nil, errors.New("no project directory")
	}
	switch tag {
	case platform.Linux:
		return d.gnumake(dirs[0]), nil
	case platform.MacOS:
		return xcode.New(dirs[0], d.Runner), nil
	case platform.Windows:
		h, err := d.Locator.LocateMSBuild()
		if err != nil {
			return nil, err
		}
		return msbuild.New(h.Path, d.Runner, dirs...), nil
	}
	return nil, fmt.Errorf("%w: %s", platform.ErrUnsupportedPlatform, tag)
}

func (d *Dispatcher) project(req Request) (projenv.Project, error) {
	if req.BuildDir == "" {
		return d.Project, nil
	}
	if req.Backend != MetaBuild {
		return projenv.Project{}, ErrBuildDirUnsupported
	}
	return d.Project.WithMetaBuildDir(req.BuildDir), nil
}

func backendOf(req Request) Backend {
	if req.Backend == nil {
		return GeneratedProject
	}
	return req.Backend
}

// Driver returns the driver Build would use.
func (d *Dispatcher) Driver(req Request) (buildsys.NativeBuildDriver, error) {
	req.Backend = backendOf(req)
	p, err := d.project(req)
	if err != nil {
		return nil, err
	}
	return req.Backend.driver(d, req.Platform, req.Config, p)
}

// Build runs one build. A tool that ran and failed yields its exit code in
// Result and a *buildsys.ExitError carrying the same code.
func (d *Dispatcher) Build(ctx context.Context, req Request) (Result, error) {
	req.Backend = backendOf(req)
	log := ctxlog.FromContext(ctx).With("backend", req.Backend.String(), "platform", req.Platform.String())

	p, err := d.project(req)
	if err != nil {
		return Result{ExitCode: 1}, err
	}
	drv, err := req.Backend.driver(d, req.Platform, req.Config, p)
	if err != nil {
		return Result{ExitCode: 1}, err
	}
	res := Result{
		Driver:   drv.Name(),
		Artifact: artifact.Primary(req.Backend.artifacts(p, req.Platform, req.Config)),
	}

	if err := drv.Prepared(); err != nil {
		log.Info("project not prepared", "reason", err)
		if err := req.Backend.prepare(ctx, d, drv); err != nil {
			res.ExitCode = 1
			return res, err
		}
	}

	opts := buildsys.BuildOptions{Config: req.Config.String(), Jobs: req.Jobs, Target: req.Target}
	log.Debug("building", "driver", drv.Name(), "config", opts.Config, "jobs", buildsys.Jobs(opts.Jobs))
	code, err := drv.Build(ctx, opts)
	res.ExitCode = code
	if err != nil {
		return res, err
	}
	if code != 0 {
		return res, &buildsys.ExitError{Tool: drv.Name(), Code: code}
	}
	return res, nil
}

// BuildTests builds the unit test runner. Tests always build Debug through
// CMake, independent of the application backend.
func (d *Dispatcher) BuildTests(ctx context.Context, tag platform.Tag, jobs int) (Result, error) {
	drv := d.cmake(d.Project.TestsSourceDir(), d.Project.TestsBuildDir(), config.Debug)
	res := Result{
		Driver:   drv.Name(),
		Artifact: artifact.Primary(artifact.Tests(d.Project, tag)),
	}
	if err := drv.Prepared(); err != nil {
		if err := drv.Configure(ctx); err != nil {
			res.ExitCode = exitCodeOf(err)
			return res, err
		}
	}
	code, err := drv.Build(ctx, buildsys.BuildOptions{
		Config: config.Debug.String(),
		Jobs:   jobs,
		Target: projenv.TestsName,
	})
	res.ExitCode = code
	if err != nil {
		return res, err
	}
	if code != 0 {
		return res, &buildsys.ExitError{Tool: drv.Name(), Code: code}
	}
	return res, nil
}

// Clean removes derived files for one platform and backend.
func (d *Dispatcher) Clean(ctx context.Context, tag platform.Tag, b Backend, buildDir string) (int, error) {
	req := Request{Platform: tag, Backend: b, BuildDir: buildDir, Config: config.DefaultBuildConfig}
	drv, err := d.Driver(req)
	var nf *toolchain.NotFoundError
	if errors.As(err, &nf) && tag == platform.Windows {
		// Cleaning removes the x64 output directories and does not need MSBuild.
		drv, err = msbuild.New("", d.Runner, d.Project.VisualStudioDirs()...), nil
	}
	if err != nil {
		return 1, err
	}
	ctxlog.FromContext(ctx).Info("cleaning", "driver", drv.Name(), "dir", drv.OutputDir())
	code, err := drv.Clean(ctx)
	if err == nil && code != 0 {
		err = &buildsys.ExitError{Tool: drv.Name(), Code: code}
	}
	return code, err
}

// CleanAll cleans every generated-project layout whose export directory
// exists, plus the meta-build and unit test build directories.
func (d *Dispatcher) CleanAll(ctx context.Context) ([]string, error) {
	var drivers []buildsys.NativeBuildDriver
	if exists(d.Project.LinuxMakefileDir()) {
		drivers = append(drivers, d.gnumake(d.Project.LinuxMakefileDir()))
	}
	if exists(d.Project.MacOSXDir()) {
		drivers = append(drivers, xcode.New(d.Project.MacOSXDir(), d.Runner))
	}
	for _, dir := range d.Project.VisualStudioDirs() {
		if exists(dir) {
			drivers = append(drivers, msbuild.New("", d.Runner, d.Project.VisualStudioDirs()...))
			break
		}
	}
	drivers = append(drivers,
		d.cmake(d.Project.Root(), d.Project.MetaBuildDir(), config.DefaultBuildConfig),
		d.cmake(d.Project.TestsSourceDir(), d.Project.TestsBuildDir(), config.Debug),
	)

	var cleaned []string
	var errs []error
	for _, drv := range drivers {
		if _, err := drv.Clean(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", drv.Name(), err))
			continue
		}
		cleaned = append(cleaned, drv.OutputDir())
	}
	ctxlog.FromContext(ctx).Debug("clean all", "dirs", cleaned)
	return cleaned, errors.Join(errs...)
}

// ArtifactCandidates returns the ordered candidates for req without
// touching the filesystem.
func (d *Dispatcher) ArtifactCandidates(req Request) ([]string, error) {
	req.Backend = backendOf(req)
	p, err := d.project(req)
	if err != nil {
		return nil, err
	}
	return req.Backend.artifacts(p, req.Platform, req.Config), nil
}

func exitCodeOf(err error) int {
	var exitErr *buildsys.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
