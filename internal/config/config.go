// Package config loads the layered tool settings.
//
// Precedence, lowest to highest: built-in defaults, .sbuild.yaml, .env,
// SBUILD_* environment variables, explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BuildConfig selects the build flavor.
type BuildConfig string

const (
	Debug   BuildConfig = "Debug"
	Release BuildConfig = "Release"
)

// DefaultBuildConfig is used when nothing selects a flavor.
const DefaultBuildConfig = Release

var (
	// ErrInvalidBuildConfig is returned for flavors other than Debug and Release.
	ErrInvalidBuildConfig = errors.New("build config must be Debug or Release")
	// ErrJucePathUnset is returned when JUCE_PATH is missing or the placeholder.
	ErrJucePathUnset = errors.New("JUCE_PATH not configured")
)

// ParseBuildConfig accepts any casing of Debug or Release.
func ParseBuildConfig(s string) (BuildConfig, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "release":
		return Release, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidBuildConfig, s)
}

// UnmarshalText lets the settings decoder validate flavors. An empty value
// selects the default.
func (c *BuildConfig) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*c = DefaultBuildConfig
		return nil
	}
	v, err := ParseBuildConfig(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c BuildConfig) String() string { return string(c) }

// Settings is the decoded configuration for one invocation.
type Settings struct {
	JucePath     string      `koanf:"juce_path"`
	BuildConfig  BuildConfig `koanf:"build_config"`
	Jobs         int         `koanf:"jobs"`
	Debugger     string      `koanf:"debugger"`
	MetaBuildDir string      `koanf:"meta_build_dir"`
	LogLevel     string      `koanf:"log_level"`
	LogFormat    string      `koanf:"log_format"`
	// Backend is the default build backend when --build-with-cmake is absent.
	Backend string `koanf:"backend"`

	CMakeGenerator string            `koanf:"cmake_generator"`
	CMakeDefines   map[string]string `koanf:"cmake_defines"`
	// BuildEnv is added to the environment of make and cmake.
	BuildEnv map[string]string `koanf:"build_env"`
}

// Defaults returns the built-in values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"build_config":   string(DefaultBuildConfig),
		"jobs":           runtime.NumCPU(),
		"debugger":       "",
		"meta_build_dir": "",
		"log_level":      "warn",
		"log_format":     "text",
		"backend":        "",
	}
}

// Validate checks values that the decoder cannot.
func (s *Settings) Validate() error {
	if s.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", s.Jobs)
	}
	switch s.Debugger {
	case "", "cgdb", "gdb", "gdb-tui", "lldb":
	default:
		return fmt.Errorf("unknown debugger %q (want cgdb, gdb, gdb-tui or lldb)", s.Debugger)
	}
	return nil
}
