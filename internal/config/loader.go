package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/samplore/sbuild/internal/dotenv"
	projenv "github.com/samplore/sbuild/internal/env"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SBUILD_"

// flagKeys maps flag names onto settings keys. Flags not listed here are
// command options, not settings.
var flagKeys = map[string]string{
	"config":     "build_config",
	"jobs":       "jobs",
	"build-dir":  "meta_build_dir",
	"log-level":  "log_level",
	"log-format": "log_format",
	"debugger":   "debugger",
}

// Result is a loaded configuration plus what was found on disk.
type Result struct {
	Settings Settings
	// EnvFileFound is false when the project has no .env yet.
	EnvFileFound bool
	// Sources lists the files that contributed, in load order.
	Sources []string
}

// Load reads settings for project. flags may be nil; only flags the user
// changed are applied.
func Load(p projenv.Project, flags ...*pflag.FlagSet) (*Result, error) {
	k := koanf.New(".")
	res := &Result{}

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if ok, err := loadFile(k, p.SettingsFile(), yaml.Parser()); err != nil {
		return nil, err
	} else if ok {
		res.Sources = append(res.Sources, p.SettingsFile())
	}

	ok, err := loadFile(k, p.EnvFile(), dotenv.Parser())
	if err != nil {
		return nil, err
	}
	if ok {
		res.EnvFileFound = true
		res.Sources = append(res.Sources, p.EnvFile())
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	for _, set := range flags {
		if set == nil {
			continue
		}
		if err := k.Load(posflag.ProviderWithFlag(set, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, known := flagKeys[f.Name]
			if !f.Changed || !known {
				return "", nil
			}
			return key, posflag.FlagVal(set, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.UnmarshalWithConf("", &res.Settings, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           &res.Settings,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := res.Settings.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func loadFile(k *koanf.Koanf, path string, parser koanf.Parser) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return false, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return true, nil
}

// JuceRoot returns the configured JUCE root or ErrJucePathUnset.
func (s *Settings) JuceRoot() (string, error) {
	if dotenv.IsUnsetJucePath(s.JucePath) {
		return "", ErrJucePathUnset
	}
	return s.JucePath, nil
}
