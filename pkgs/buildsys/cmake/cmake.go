package cmake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/samplore/sbuild/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives a configure-then-build CMake tree with chainable configuration.
type CMake struct {
	SourceDir string
	buildDir  string
	generator string
	buildType string
	Defines   map[string]defineValue
	env       map[string]string

	runner buildsys.Runner
	bin    string
}

var _ buildsys.NativeBuildDriver = (*CMake)(nil)

// New creates a driver configuring sourceDir into buildDir.
func New(sourceDir, buildDir string, r buildsys.Runner) *CMake {
	return &CMake{
		SourceDir: sourceDir,
		buildDir:  buildDir,
		Defines:   map[string]defineValue{},
		env:       map[string]string{},
		runner:    r,
		bin:       "cmake",
	}
}

func (c *CMake) Name() string { return "cmake" }

// Binary overrides the cmake executable.
func (c *CMake) Binary(path string) *CMake {
	c.bin = path
	return c
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	c.Defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	if value {
		c.Defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return c
	}
	c.Defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return c
}

func (c *CMake) Env(key, value string) *CMake {
	if c.env == nil {
		c.env = map[string]string{}
	}
	c.env[key] = value
	return c
}

// Prepared reports whether the build tree has been configured.
func (c *CMake) Prepared() error {
	cache := filepath.Join(c.buildDir, "CMakeCache.txt")
	if _, err := os.Stat(cache); err != nil {
		return &buildsys.NotPreparedError{
			Driver: c.Name(),
			Path:   cache,
			Hint:   fmt.Sprintf("%s -S %s -B %s", c.bin, c.SourceDir, c.buildDir),
		}
	}
	return nil
}

func (c *CMake) Configure(ctx context.Context) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	args := []string{"-S", c.SourceDir, "-B", c.buildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	args = append(args, c.definesArgs()...)

	code, err := c.runner.Run(ctx, buildsys.Cmd{Path: c.bin, Args: args, Env: c.env})
	return buildsys.Succeeded(c.bin, code, err)
}

func (c *CMake) Build(ctx context.Context, opts buildsys.BuildOptions) (int, error) {
	config := opts.Config
	if config == "" {
		config = c.buildType
	}
	args := []string{"--build", c.buildDir}
	if config != "" {
		args = append(args, "--config", config)
	}
	args = append(args, "--parallel", strconv.Itoa(buildsys.Jobs(opts.Jobs)))
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	return c.runner.Run(ctx, buildsys.Cmd{Path: c.bin, Args: args, Env: c.env})
}

// Clean removes the whole isolated build directory.
func (c *CMake) Clean(ctx context.Context) (int, error) {
	if err := os.RemoveAll(c.buildDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 1, err
	}
	return 0, nil
}

// OutputDir returns the build dir.
func (c *CMake) OutputDir() string {
	return c.buildDir
}

func (c *CMake) definesArgs() []string {
	if len(c.Defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Defines))
	for k := range c.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.Defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}
