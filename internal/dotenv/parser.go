package dotenv

import (
	"fmt"
	"sort"
	"strings"
)

// KoanfParser implements koanf.Parser over the environment file syntax.
// Keys are lower-cased so JUCE_PATH loads as juce_path.
type KoanfParser struct{}

// Parser returns a koanf parser for environment files.
func Parser() *KoanfParser {
	return &KoanfParser{}
}

// Unmarshal parses data into a flat map.
func (p *KoanfParser) Unmarshal(data []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for k, v := range Parse(data) {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}

// Marshal renders a flat map as sorted KEY=VALUE lines.
func (p *KoanfParser) Marshal(m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]interface{}:
			return nil, fmt.Errorf("dotenv: nested key %q cannot be written", k)
		default:
			fmt.Fprintf(&b, "%s=%v\n", strings.ToUpper(k), v)
		}
	}
	return []byte(b.String()), nil
}
