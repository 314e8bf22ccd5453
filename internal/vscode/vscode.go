// Package vscode generates the IntelliSense configuration for VS Code.
package vscode

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samplore/sbuild/internal/descriptor"
	projenv "github.com/samplore/sbuild/internal/env"
)

// FileName is the generated file under .vscode.
const FileName = "c_cpp_properties.json"

// DefaultModules is used when the descriptor lists no modules.
var DefaultModules = []string{
	"juce_audio_basics",
	"juce_audio_devices",
	"juce_audio_formats",
	"juce_audio_processors",
	"juce_audio_utils",
	"juce_core",
	"juce_data_structures",
	"juce_events",
	"juce_graphics",
	"juce_gui_basics",
	"juce_gui_extra",
}

var commonDefines = []string{
	"DEBUG=1",
	"JUCE_DISPLAY_SPLASH_SCREEN=0",
	"JUCE_USE_DARK_SPLASH_SCREEN=1",
	"JUCE_GLOBAL_MODULE_SETTINGS_INCLUDED=1",
	"JUCE_STRICT_REFCOUNTEDPOINTER=1",
}

type Configuration struct {
	Name              string   `json:"name"`
	IncludePath       []string `json:"includePath"`
	Defines           []string `json:"defines"`
	MacFrameworkPath  []string `json:"macFrameworkPath,omitempty"`
	WindowsSdkVersion string   `json:"windowsSdkVersion,omitempty"`
	CompilerPath      string   `json:"compilerPath"`
	CStandard         string   `json:"cStandard"`
	CppStandard       string   `json:"cppStandard"`
	IntelliSenseMode  string   `json:"intelliSenseMode"`
	CompileCommands   string   `json:"compileCommands,omitempty"`
}

type Properties struct {
	Configurations []Configuration `json:"configurations"`
	Version        int             `json:"version"`
}

// Input is what the generator needs from the project.
type Input struct {
	// ModulesPath is the normalized <juce>/modules directory.
	ModulesPath string
	Modules     []string
	// Defaulted is set when Modules came from DefaultModules.
	Defaulted bool
	Info      descriptor.Info
	Options   []descriptor.Option
}

// ReadInput collects the generator input from a descriptor document.
func ReadInput(data []byte, juceRoot string) (Input, error) {
	modulesPath, err := descriptor.NormalizeModulesPath(juceRoot)
	if err != nil {
		return Input{}, err
	}
	in := Input{ModulesPath: modulesPath}
	if in.Info, err = descriptor.ProjectInfo(data); err != nil {
		return Input{}, err
	}
	if in.Modules, err = descriptor.Modules(data); err != nil {
		return Input{}, err
	}
	if len(in.Modules) == 0 {
		in.Modules = append([]string(nil), DefaultModules...)
		in.Defaulted = true
	}
	if in.Options, err = descriptor.Options(data); err != nil {
		return Input{}, err
	}
	return in, nil
}

// Generate builds the Linux, Mac and Win32 configurations.
func Generate(in Input) Properties {
	includes := []string{
		"${workspaceFolder}/**",
		"${workspaceFolder}/Source",
		"${workspaceFolder}/JuceLibraryCode",
		in.ModulesPath,
	}
	for _, m := range in.Modules {
		includes = append(includes, in.ModulesPath+"/"+m)
	}

	var shared []string
	shared = append(shared, commonDefines...)
	for _, m := range in.Modules {
		shared = append(shared, "JUCE_MODULE_AVAILABLE_"+m+"=1")
	}
	if in.Info.IsGUIApp() {
		shared = append(shared, "JUCE_STANDALONE_APPLICATION=1")
	}
	for _, o := range in.Options {
		shared = append(shared, o.Name+"="+o.Value)
	}
	defines := func(platform ...string) []string {
		return append(append([]string(nil), platform...), shared...)
	}

	return Properties{
		Version: 4,
		Configurations: []Configuration{
			{
				Name:             "Linux",
				IncludePath:      includes,
				Defines:          defines("LINUX=1"),
				CompilerPath:     "/usr/bin/g++",
				CStandard:        "c17",
				CppStandard:      "c++17",
				IntelliSenseMode: "linux-gcc-x64",
				CompileCommands:  "${workspaceFolder}/Builds/LinuxMakefile/compile_commands.json",
			},
			{
				Name:             "Mac",
				IncludePath:      includes,
				Defines:          defines("MACOS=1"),
				MacFrameworkPath: []string{"/System/Library/Frameworks", "/Library/Frameworks"},
				CompilerPath:     "/usr/bin/clang++",
				CStandard:        "c17",
				CppStandard:      "c++17",
				IntelliSenseMode: "macos-clang-x64",
			},
			{
				Name:              "Win32",
				IncludePath:       includes,
				Defines:           defines("WINDOWS=1", "WIN32", "_WINDOWS", "_DEBUG"),
				WindowsSdkVersion: "10.0.22000.0",
				CompilerPath:      "cl.exe",
				CStandard:         "c17",
				CppStandard:       "c++17",
				IntelliSenseMode:  "windows-msvc-x64",
			},
		},
	}
}

// Path returns the location of the generated file.
func Path(p projenv.Project) string {
	return filepath.Join(p.VSCodeDir(), FileName)
}

// Exists reports whether the file at path is present.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write stores props at path. An existing file is kept unless force is set;
// the result reports whether the file was written.
func Write(path string, props Properties, force bool) (bool, error) {
	exists, err := Exists(path)
	if err != nil {
		return false, err
	}
	if exists && !force {
		return false, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(props); err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
