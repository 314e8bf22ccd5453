// Package platform classifies the host operating system.
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Tag identifies one of the supported host platforms.
type Tag string

const (
	Linux   Tag = "linux"
	MacOS   Tag = "macos"
	Windows Tag = "windows"
)

// ErrUnsupportedPlatform is returned by strict detection on an unknown host.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// All lists every supported platform in display order.
var All = []Tag{Linux, MacOS, Windows}

// Detect returns the tag for the running host or ErrUnsupportedPlatform.
func Detect() (Tag, error) {
	return FromGOOS(runtime.GOOS)
}

// Describe returns the tag for the running host, or the raw OS identifier
// when the host is not supported. It is meant for display only.
func Describe() string {
	return DescribeGOOS(runtime.GOOS)
}

// FromGOOS maps a Go OS identifier to a Tag.
func FromGOOS(goos string) (Tag, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "darwin":
		return MacOS, nil
	case "windows":
		return Windows, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
}

// DescribeGOOS is the permissive form of FromGOOS.
func DescribeGOOS(goos string) string {
	if tag, err := FromGOOS(goos); err == nil {
		return string(tag)
	}
	return goos
}

// Parse accepts a tag name as typed on the command line.
func Parse(s string) (Tag, error) {
	switch t := Tag(strings.ToLower(strings.TrimSpace(s))); t {
	case Linux, MacOS, Windows:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q (want linux, macos or windows)", ErrUnsupportedPlatform, s)
}

// DisplayName returns the human readable platform name.
func (t Tag) DisplayName() string {
	switch t {
	case Linux:
		return "Linux"
	case MacOS:
		return "macOS"
	case Windows:
		return "Windows"
	}
	return string(t)
}

// ExeSuffix is ".exe" on Windows and empty elsewhere.
func (t Tag) ExeSuffix() string {
	if t == Windows {
		return ".exe"
	}
	return ""
}

func (t Tag) String() string { return string(t) }
