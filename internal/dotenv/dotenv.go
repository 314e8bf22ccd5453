// Package dotenv reads and edits the project's KEY=VALUE environment file.
//
// Edits are line-preserving: Update rewrites exactly one existing line and
// leaves every other byte of the file untouched. The package never creates
// the file implicitly; CopyTemplate is the only way a new file comes to be.
package dotenv

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Well-known keys.
const (
	KeyJucePath    = "JUCE_PATH"
	KeyBuildConfig = "BUILD_CONFIG"

	// PlaceholderJucePath is the template value, treated as unset.
	PlaceholderJucePath = "/path/to/juce"
)

// ErrExists is returned by CopyTemplate when the destination is already there.
var ErrExists = errors.New("environment file already exists")

// Store is an in-memory view of an environment file.
type Store struct {
	path  string
	lines [][]byte
	vals  map[string]string
}

// Load reads path. A missing file yields an error wrapping fs.ErrNotExist.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, lines: splitLines(data), vals: Parse(data)}, nil
}

// Path returns the file this store was loaded from.
func (s *Store) Path() string { return s.path }

// Get returns the value for key, or def when the key is absent.
func (s *Store) Get(key, def string) string {
	if v, ok := s.vals[key]; ok {
		return v
	}
	return def
}

// Lookup reports whether key is present.
func (s *Store) Lookup(key string) (string, bool) {
	v, ok := s.vals[key]
	return v, ok
}

// Update rewrites the first line assigning key. It reports false, without
// writing, when no such line exists. The file must still exist on disk.
func (s *Store) Update(key, value string) (bool, error) {
	prefix := []byte(key + "=")
	idx := -1
	for i, line := range s.lines {
		if bytes.HasPrefix(bytes.TrimSpace(line), prefix) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", key, err)
	}

	old := s.lines[idx]
	repl := make([]byte, 0, len(prefix)+len(value)+2)
	repl = append(repl, prefix...)
	repl = append(repl, value...)
	repl = append(repl, lineEnding(old)...)

	lines := make([][]byte, len(s.lines))
	copy(lines, s.lines)
	lines[idx] = repl

	if err := os.WriteFile(s.path, bytes.Join(lines, nil), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("update %s: %w", key, err)
	}
	s.lines = lines
	s.vals[key] = value
	return true, nil
}

// Keys returns keys in file order, first occurrence only.
func (s *Store) Keys() []string {
	var keys []string
	seen := map[string]bool{}
	for _, line := range s.lines {
		k, _, ok := parseLine(string(line))
		if ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// Parse returns the key/value pairs in data. The first assignment of a key
// wins, the same line Update would rewrite.
func Parse(data []byte) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := parseLine(line); ok {
			if _, dup := out[k]; !dup {
				out[k] = v
			}
		}
	}
	return out
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

// CopyTemplate creates dest from template. It refuses to overwrite.
func CopyTemplate(template, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	data, err := os.ReadFile(template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IsUnsetJucePath reports whether v is empty or the template placeholder.
func IsUnsetJucePath(v string) bool {
	return v == "" || v == PlaceholderJucePath
}

// splitLines splits data after each '\n', keeping terminators.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			lines = append(lines, data)
			break
		}
		lines = append(lines, data[:i+1])
		data = data[i+1:]
	}
	return lines
}

func lineEnding(line []byte) []byte {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return []byte("\r\n")
	case bytes.HasSuffix(line, []byte("\n")):
		return []byte("\n")
	}
	return nil
}
