// Package env holds the Project value: every path the build tooling touches,
// computed once from the project root and passed to each component.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DescriptorName is the project descriptor that marks a project root.
	DescriptorName = "Samplore.jucer"
	// AppName is the product name of the built application.
	AppName = "Samplore"
	// TestsName is the CMake target of the unit test runner.
	TestsName = "SamploreTests"

	envFileName      = ".env"
	envTemplateName  = ".env.example"
	defaultMetaBuild = "build-cmake"
)

// maxUpwardSearchLevels limits how far Find climbs from the start directory.
const maxUpwardSearchLevels = 10

// ErrNoProject is returned by Find when no descriptor is found.
var ErrNoProject = errors.New("project root not found")

// Project is immutable; With* methods return modified copies.
type Project struct {
	root         string
	metaBuildDir string
}

// New returns the Project rooted at root.
func New(root string) (Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Project{}, err
	}
	return Project{root: abs, metaBuildDir: filepath.Join(abs, defaultMetaBuild)}, nil
}

// Find searches upward from start for a directory containing DescriptorName.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if _, err := os.Stat(filepath.Join(dir, DescriptorName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%w: no %s in %s or its parents", ErrNoProject, DescriptorName, start)
}

// WithMetaBuildDir returns a copy using dir as the isolated meta-build
// directory. Relative paths are taken from the project root.
func (p Project) WithMetaBuildDir(dir string) Project {
	if dir == "" {
		return p
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.root, dir)
	}
	p.metaBuildDir = filepath.Clean(dir)
	return p
}

func (p Project) Root() string        { return p.root }
func (p Project) EnvFile() string     { return filepath.Join(p.root, envFileName) }
func (p Project) EnvTemplate() string { return filepath.Join(p.root, envTemplateName) }
func (p Project) Descriptor() string  { return filepath.Join(p.root, DescriptorName) }
func (p Project) BuildsDir() string   { return filepath.Join(p.root, "Builds") }
func (p Project) DistDir() string     { return filepath.Join(p.root, "dist") }
func (p Project) VSCodeDir() string   { return filepath.Join(p.root, ".vscode") }

// SettingsFile is the optional YAML file with tool preferences.
func (p Project) SettingsFile() string { return filepath.Join(p.root, ".sbuild.yaml") }

// LLDBCommandFile is the scratch file passed to lldb -s.
func (p Project) LLDBCommandFile() string { return filepath.Join(p.root, ".lldb_init") }

// LinuxMakefileDir is the generated Makefile project.
func (p Project) LinuxMakefileDir() string { return filepath.Join(p.BuildsDir(), "LinuxMakefile") }

// MacOSXDir is the generated Xcode project.
func (p Project) MacOSXDir() string { return filepath.Join(p.BuildsDir(), "MacOSX") }

// VisualStudioDirs lists the generated solution directories, newest first.
func (p Project) VisualStudioDirs() []string {
	return []string{
		filepath.Join(p.BuildsDir(), "VisualStudio2022"),
		filepath.Join(p.BuildsDir(), "VisualStudio2019"),
	}
}

// MetaBuildDir is the isolated CMake build directory.
func (p Project) MetaBuildDir() string { return p.metaBuildDir }

// DefaultMetaBuildDir reports whether no override is in effect.
func (p Project) DefaultMetaBuildDir() bool {
	return p.metaBuildDir == filepath.Join(p.root, defaultMetaBuild)
}

// TestsSourceDir holds the CMake project for the unit tests.
func (p Project) TestsSourceDir() string { return filepath.Join(p.root, "Source", "Tests") }

// TestsBuildDir is where the unit test project is built.
func (p Project) TestsBuildDir() string { return filepath.Join(p.TestsSourceDir(), "build") }
