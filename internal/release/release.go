// Package release packages a built application into a portable archive.
package release

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/samplore/sbuild/internal/descriptor"
	"github.com/samplore/sbuild/internal/platform"
)

// FallbackVersion is used when the descriptor carries no version.
const FallbackVersion = "0.9.0"

// ErrInvalidVersion is returned for versions that are not semantic versions.
var ErrInvalidVersion = errors.New("invalid release version")

// Version reads the release version from a descriptor document.
func Version(data []byte) (string, error) {
	info, err := descriptor.ProjectInfo(data)
	if err != nil {
		return "", err
	}
	v := strings.TrimPrefix(strings.TrimSpace(info.Version), "v")
	if v == "" {
		v = FallbackVersion
	}
	if !semver.IsValid("v" + v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, info.Version)
	}
	return v, nil
}

// Name is the archive base name without extension.
func Name(tag platform.Tag, version string) string {
	switch tag {
	case platform.Windows:
		return fmt.Sprintf("samplore-%s-windows-x64", version)
	case platform.MacOS:
		return fmt.Sprintf("samplore-%s-macos", version)
	}
	return fmt.Sprintf("samplore-%s-linux-x86_64", version)
}

// Package describes one release archive.
type Package struct {
	Tag     platform.Tag
	Version string
	// Artifact is the built binary, or the .app bundle on macOS.
	Artifact string
	// DistDir receives the archive and holds the optional desktop files.
	DistDir string
	// Icon is copied into Linux archives when present.
	Icon string
}

// entry is one file in an archive, relative to the archive's top directory.
type entry struct {
	name   string
	source string
	data   []byte
	mode   fs.FileMode
}

// Build writes the archive and returns its path.
func (pk Package) Build() (string, error) {
	if _, err := os.Stat(pk.Artifact); err != nil {
		return "", fmt.Errorf("artifact not found: %s", pk.Artifact)
	}
	if err := os.MkdirAll(pk.DistDir, 0o755); err != nil {
		return "", err
	}
	name := Name(pk.Tag, pk.Version)
	entries, err := pk.entries()
	if err != nil {
		return "", err
	}

	ext := ".zip"
	write := writeZip
	if pk.Tag == platform.Linux {
		ext = ".tar.gz"
		write = writeTarGz
	}
	dest := filepath.Join(pk.DistDir, name+ext)
	tmp := dest + ".tmp"
	if err := write(tmp, name, entries); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return dest, nil
}

func (pk Package) entries() ([]entry, error) {
	readme := entry{name: "README.txt", data: []byte(readme(pk.Tag, pk.Version)), mode: 0o644}
	switch pk.Tag {
	case platform.Linux:
		out := []entry{{name: "samplore", source: pk.Artifact, mode: 0o755}}
		if pk.Icon != "" && exists(pk.Icon) {
			out = append(out, entry{name: "samplore.png", source: pk.Icon, mode: 0o644})
		}
		for _, f := range []struct {
			name string
			mode fs.FileMode
		}{{"samplore.desktop", 0o644}, {"install.sh", 0o755}, {"uninstall.sh", 0o755}} {
			if src := filepath.Join(pk.DistDir, f.name); exists(src) {
				out = append(out, entry{name: f.name, source: src, mode: f.mode})
			}
		}
		return append(out, readme), nil
	case platform.Windows:
		return []entry{{name: filepath.Base(pk.Artifact), source: pk.Artifact, mode: 0o755}, readme}, nil
	case platform.MacOS:
		out, err := treeEntries(pk.Artifact)
		if err != nil {
			return nil, err
		}
		return append(out, readme), nil
	}
	return nil, fmt.Errorf("%w: %s", platform.ErrUnsupportedPlatform, pk.Tag)
}

// treeEntries lists every file below root, named relative to root's parent.
func treeEntries(root string) ([]entry, error) {
	var out []entry
	base := filepath.Dir(root)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		out = append(out, entry{name: filepath.ToSlash(rel), source: path, mode: info.Mode()})
		return nil
	})
	return out, err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// UploadHint is the command that publishes the archive.
func UploadHint(version, archive string) string {
	return fmt.Sprintf("gh release create v%s %s", version, filepath.ToSlash(archive))
}

func readme(tag platform.Tag, version string) string {
	switch tag {
	case platform.Windows:
		return fmt.Sprintf(`# Samplore v%s - Windows

Run Samplore.exe. No installation is required.

## Requirements
- Windows 10 or later, x64
`, version)
	case platform.MacOS:
		return fmt.Sprintf(`# Samplore v%s - macOS

Drag Samplore.app to /Applications and open it.
On first launch, right-click the app and choose Open if Gatekeeper blocks it.
`, version)
	}
	return fmt.Sprintf(`# Samplore v%s - Linux

## Quick Start

### Option 1: Run Portable
    ./samplore

### Option 2: Install System-Wide
    ./install.sh

This installs to ~/.local/bin and adds desktop integration (no sudo required).

## Uninstall
    ./uninstall.sh

## Requirements
- Linux x86_64
- ALSA/PulseAudio
- X11 or Wayland

## About Icons
Linux executables don't have embedded icons. The icon appears when you
install via ./install.sh or run from a file manager that reads .desktop files.
`, version)
}
