// Package toolchain finds the external tools the build depends on: the
// Projucer code generator and, on Windows, MSBuild.
package toolchain

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no candidate exists.
var ErrNotFound = errors.New("tool not found")

// NotFoundError lists every location that was tried.
type NotFoundError struct {
	Tool  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (tried %d locations)", e.Tool, len(e.Tried))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Handle is a resolved tool path. It is never cached across runs; call
// Revalidate before trusting a Handle obtained earlier.
type Handle struct {
	Path  string
	Valid bool
}

// Revalidate re-checks that the path still exists.
func (h Handle) Revalidate() Handle {
	_, err := os.Stat(h.Path)
	return Handle{Path: h.Path, Valid: h.Path != "" && err == nil}
}

// Locator probes candidates in order. Zero values use the real filesystem
// and PATH.
type Locator struct {
	Stat     func(string) (os.FileInfo, error)
	LookPath func(string) (string, error)
}

func (l Locator) stat(path string) bool {
	stat := l.Stat
	if stat == nil {
		stat = os.Stat
	}
	_, err := stat(path)
	return err == nil
}

func (l Locator) lookPath(name string) (string, error) {
	if l.LookPath != nil {
		return l.LookPath(name)
	}
	return exec.LookPath(name)
}

// Locate returns the first candidate that exists. When none does and
// pathName is non-empty, it falls back to a PATH lookup of pathName.
func (l Locator) Locate(tool string, candidates []string, pathName string) (Handle, error) {
	tried := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		tried = append(tried, c)
		if l.stat(c) {
			return Handle{Path: c, Valid: true}, nil
		}
	}
	if pathName != "" {
		tried = append(tried, "$PATH/"+pathName)
		if p, err := l.lookPath(pathName); err == nil {
			return Handle{Path: p, Valid: true}, nil
		}
	}
	return Handle{}, &NotFoundError{Tool: tool, Tried: tried}
}

// ProjucerCandidates returns the fixed search order inside a JUCE checkout:
// pre-built binaries, the Projucer's own exporter outputs, CMake artefacts.
func ProjucerCandidates(juceRoot string) []string {
	j := func(rel string) string { return filepath.Join(juceRoot, filepath.FromSlash(rel)) }
	return []string{
		j("Projucer.app/Contents/MacOS/Projucer"),
		j("Projucer"),
		j("Projucer.exe"),
		j("extras/Projucer/Builds/MacOSX/build/Release/Projucer.app/Contents/MacOS/Projucer"),
		j("extras/Projucer/Builds/LinuxMakefile/build/Projucer"),
		j("extras/Projucer/Builds/VisualStudio2022/x64/Release/App/Projucer.exe"),
		j("extras/Projucer/Builds/VisualStudio2019/x64/Release/App/Projucer.exe"),
		j("cmake-build/extras/Projucer/Projucer_artefacts/Projucer"),
		j("cmake-build/extras/Projucer/Projucer_artefacts/Release/Projucer.exe"),
		j("cmake-build-release/extras/Projucer/Projucer_artefacts/Projucer"),
	}
}

// LocateProjucer searches juceRoot, then PATH.
func (l Locator) LocateProjucer(juceRoot string) (Handle, error) {
	return l.Locate("Projucer", ProjucerCandidates(juceRoot), "Projucer")
}

// MSBuildCandidates lists Visual Studio 2022 then 2019 editions.
func MSBuildCandidates() []string {
	const bin = `MSBuild\Current\Bin\MSBuild.exe`
	var out []string
	for _, ed := range []string{"Community", "Professional", "Enterprise"} {
		out = append(out, `C:\Program Files\Microsoft Visual Studio\2022\`+ed+`\`+bin)
	}
	for _, ed := range []string{"Community", "Professional"} {
		out = append(out, `C:\Program Files (x86)\Microsoft Visual Studio\2019\`+ed+`\`+bin)
	}
	return out
}

// LocateMSBuild searches the Visual Studio installs, then PATH.
func (l Locator) LocateMSBuild() (Handle, error) {
	return l.Locate("MSBuild", MSBuildCandidates(), "msbuild")
}

// Hint renders the not-found remediation for a tool.
func Hint(err error) string {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return ""
	}
	switch nf.Tool {
	case "Projucer":
		return "download a pre-built Projucer from https://juce.com/ or open Samplore.jucer in Projucer and click 'Save Project'"
	case "MSBuild":
		return "install Visual Studio 2022 with the C++ workload or add MSBuild to PATH"
	}
	return "tried:\n  " + strings.Join(nf.Tried, "\n  ")
}
