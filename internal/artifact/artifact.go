// Package artifact computes where builds leave the application binary.
//
// Every function that returns paths is pure: nothing here touches the
// filesystem except Resolve.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samplore/sbuild/internal/config"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
)

// NotFoundError reports that no candidate exists.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact not found; tried:\n  %s", strings.Join(e.Tried, "\n  "))
}

// Native returns candidates for a Projucer-generated project build, in
// priority order.
func Native(p projenv.Project, tag platform.Tag, cfg config.BuildConfig) []string {
	switch tag {
	case platform.Linux:
		return []string{filepath.Join(p.LinuxMakefileDir(), "build", projenv.AppName)}
	case platform.MacOS:
		return []string{filepath.Join(p.MacOSXDir(), "build", cfg.String(), projenv.AppName+".app")}
	case platform.Windows:
		var out []string
		for _, dir := range p.VisualStudioDirs() {
			base := filepath.Join(dir, "x64", cfg.String())
			out = append(out,
				filepath.Join(base, "App", projenv.AppName+".exe"),
				filepath.Join(base, projenv.AppName+".exe"),
			)
		}
		return out
	}
	return nil
}

// MetaBuild returns the CMake artefact location under buildDir.
func MetaBuild(buildDir string, tag platform.Tag, cfg config.BuildConfig) []string {
	name := projenv.AppName
	switch tag {
	case platform.MacOS:
		name += ".app"
	case platform.Windows:
		name += ".exe"
	}
	return []string{filepath.Join(buildDir, projenv.AppName+"_artefacts", cfg.String(), name)}
}

// Tests returns the unit test runner location. Tests are always Debug.
func Tests(p projenv.Project, tag platform.Tag) []string {
	return []string{filepath.Join(p.TestsBuildDir(), projenv.TestsName+"_artefacts",
		config.Debug.String(), projenv.TestsName+tag.ExeSuffix())}
}

// Primary returns the first candidate, or "".
func Primary(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// Resolve returns the first candidate that exists according to stat.
func Resolve(candidates []string, stat func(string) (os.FileInfo, error)) (string, error) {
	if stat == nil {
		stat = os.Stat
	}
	for _, c := range candidates {
		if _, err := stat(c); err == nil {
			return c, nil
		}
	}
	return "", &NotFoundError{Tried: candidates}
}

// Executable maps a macOS bundle to the binary inside it. Other paths are
// returned unchanged.
func Executable(path string) string {
	if !strings.HasSuffix(path, ".app") {
		return path
	}
	name := strings.TrimSuffix(filepath.Base(path), ".app")
	return filepath.Join(path, "Contents", "MacOS", name)
}

// IsBundle reports whether path is a bundle directory rather than a binary.
func IsBundle(path string) bool {
	return strings.HasSuffix(path, ".app")
}
