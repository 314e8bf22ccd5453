// Package bootstrap builds the Projucer from the JUCE source tree when no
// pre-built copy can be found.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/ctxlog"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// ErrBootstrapping is returned when the Projucer's own exporter projects
// are missing. Generating them would need a Projucer, so the builder stops.
var ErrBootstrapping = errors.New("bootstrapping problem: Projucer build files need to be generated first")

// ErrNoSource is returned when the JUCE root has no extras/Projucer.
var ErrNoSource = errors.New("Projucer source not found")

// DriverFactory returns the generated-project driver for a platform.
// dispatch.Dispatcher.NativeDriver satisfies it.
type DriverFactory interface {
	NativeDriver(tag platform.Tag, dirs ...string) (buildsys.NativeBuildDriver, error)
}

// Builder compiles the Projucer with the native tool of the host.
type Builder struct {
	Drivers DriverFactory
	Jobs    int
}

// layout is where the Projucer exporters live inside a JUCE checkout and
// where each leaves its binary.
type layout struct {
	dirs   []string
	binary func(dir string) string
}

func layoutFor(tag platform.Tag, juceRoot string) (layout, error) {
	builds := filepath.Join(juceRoot, "extras", "Projucer", "Builds")
	switch tag {
	case platform.Linux:
		return layout{
			dirs:   []string{filepath.Join(builds, "LinuxMakefile")},
			binary: func(dir string) string { return filepath.Join(dir, "build", "Projucer") },
		}, nil
	case platform.MacOS:
		return layout{
			dirs: []string{filepath.Join(builds, "MacOSX")},
			binary: func(dir string) string {
				return filepath.Join(dir, "build", "Release", "Projucer.app", "Contents", "MacOS", "Projucer")
			},
		}, nil
	case platform.Windows:
		return layout{
			dirs: []string{filepath.Join(builds, "VisualStudio2022"), filepath.Join(builds, "VisualStudio2019")},
			binary: func(dir string) string {
				return filepath.Join(dir, "x64", "Release", "App", "Projucer.exe")
			},
		}, nil
	}
	return layout{}, fmt.Errorf("%w: %s", platform.ErrUnsupportedPlatform, tag)
}

// Build compiles the Projucer in Release and returns a handle to it.
//
// If the Projucer's own generated project is absent, Build fails with
// ErrBootstrapping without attempting any generation.
func (b *Builder) Build(ctx context.Context, tag platform.Tag, juceRoot string) (toolchain.Handle, error) {
	log := ctxlog.FromContext(ctx)

	src := filepath.Join(juceRoot, "extras", "Projucer")
	if _, err := os.Stat(src); err != nil {
		return toolchain.Handle{}, fmt.Errorf("%w at %s", ErrNoSource, src)
	}
	l, err := layoutFor(tag, juceRoot)
	if err != nil {
		return toolchain.Handle{}, err
	}
	drv, err := b.Drivers.NativeDriver(tag, l.dirs...)
	if err != nil {
		return toolchain.Handle{}, err
	}
	if err := drv.Prepared(); err != nil {
		log.Debug("projucer exporter missing", "err", err)
		return toolchain.Handle{}, fmt.Errorf("%w (%v)", ErrBootstrapping, err)
	}

	log.Info("building Projucer from source", "driver", drv.Name(), "dir", src)
	code, err := drv.Build(ctx, buildsys.BuildOptions{Config: config.Release.String(), Jobs: b.Jobs})
	if err := buildsys.Succeeded(drv.Name(), code, err); err != nil {
		return toolchain.Handle{}, fmt.Errorf("Projucer build failed: %w", err)
	}

	out := l.binary(filepath.Dir(drv.OutputDir()))
	h := toolchain.Handle{Path: out}.Revalidate()
	if !h.Valid {
		return toolchain.Handle{}, fmt.Errorf("build completed but binary not found at %s", out)
	}
	return h, nil
}
