package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/samplore/sbuild/internal/artifact"
	"github.com/samplore/sbuild/internal/config"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// Backend selects how the application is built. The set is closed:
// GeneratedProject and MetaBuild are the only values.
type Backend interface {
	fmt.Stringer

	driver(d *Dispatcher, tag platform.Tag, cfg config.BuildConfig, p projenv.Project) (buildsys.NativeBuildDriver, error)
	prepare(ctx context.Context, d *Dispatcher, drv buildsys.NativeBuildDriver) error
	artifacts(p projenv.Project, tag platform.Tag, cfg config.BuildConfig) []string
}

var (
	// GeneratedProject builds the Projucer-generated native project.
	GeneratedProject Backend = generatedProject{}
	// MetaBuild builds the CMake project in an isolated directory.
	MetaBuild Backend = metaBuild{}
)

// ParseBackend accepts the names used on the command line.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "", "make", "native", "projucer":
		return GeneratedProject, nil
	case "cmake", "meta":
		return MetaBuild, nil
	}
	return nil, fmt.Errorf("unknown build backend %q", s)
}

type generatedProject struct{}

func (generatedProject) String() string { return "generated-project" }

func (generatedProject) driver(d *Dispatcher, tag platform.Tag, _ config.BuildConfig, p projenv.Project) (buildsys.NativeBuildDriver, error) {
	switch tag {
	case platform.Linux:
		return d.NativeDriver(tag, p.LinuxMakefileDir())
	case platform.MacOS:
		return d.NativeDriver(tag, p.MacOSXDir())
	case platform.Windows:
		return d.NativeDriver(tag, p.VisualStudioDirs()...)
	}
	return nil, fmt.Errorf("%w: %s", platform.ErrUnsupportedPlatform, tag)
}

// prepare regenerates the native project through the generator hook.
func (generatedProject) prepare(ctx context.Context, d *Dispatcher, drv buildsys.NativeBuildDriver) error {
	if d.Generate == nil {
		return drv.Prepared()
	}
	if err := d.Generate(ctx); err != nil {
		return err
	}
	return drv.Prepared()
}

func (generatedProject) artifacts(p projenv.Project, tag platform.Tag, cfg config.BuildConfig) []string {
	return artifact.Native(p, tag, cfg)
}

type metaBuild struct{}

func (metaBuild) String() string { return "meta-build" }

func (metaBuild) driver(d *Dispatcher, _ platform.Tag, cfg config.BuildConfig, p projenv.Project) (buildsys.NativeBuildDriver, error) {
	return d.cmake(p.Root(), p.MetaBuildDir(), cfg), nil
}

// prepare runs cmake configure; the meta-build needs no generator.
func (metaBuild) prepare(ctx context.Context, _ *Dispatcher, drv buildsys.NativeBuildDriver) error {
	return drv.Configure(ctx)
}

func (metaBuild) artifacts(p projenv.Project, tag platform.Tag, cfg config.BuildConfig) []string {
	return artifact.MetaBuild(p.MetaBuildDir(), tag, cfg)
}
