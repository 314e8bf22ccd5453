// Package descriptor edits and reads the Samplore.jucer project descriptor.
//
// Patch rewrites the path attribute of every MODULEPATH entry under every
// exporter in EXPORTFORMATS. Only the bytes of those attribute values are
// replaced; the declaration, comments, attribute order, quoting and
// whitespace of the rest of the document are left as they were.
package descriptor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrMalformed is returned for documents the XML decoder rejects.
	ErrMalformed = errors.New("malformed project descriptor")
	// ErrNoExportFormats is returned when the root has no EXPORTFORMATS.
	ErrNoExportFormats = errors.New("no EXPORTFORMATS section in project descriptor")
)

const (
	exportFormats = "EXPORTFORMATS"
	modulePaths   = "MODULEPATHS"
	modulePath    = "MODULEPATH"
	pathAttr      = "path"
)

// Change is one rewritten MODULEPATH.
type Change struct {
	Exporter string
	ModuleID string
	Old      string
	New      string
}

func (c Change) String() string { return c.Exporter + "/" + c.ModuleID }

// edit replaces data[start:end] with text.
type edit struct {
	start, end int
	text       string
}

var drivePath = regexp.MustCompile(`^[A-Za-z]:/`)

// NormalizeModulesPath turns a JUCE root into the modules path written to
// the descriptor: home-expanded, absolute, forward slashes, ending in
// /modules.
func NormalizeModulesPath(root string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(root), `\`, "/")
	if p == "" {
		return "", errors.New("empty JUCE path")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		p = strings.ReplaceAll(home, `\`, "/") + p[1:]
	}
	if !drivePath.MatchString(p) && !strings.HasPrefix(p, "/") {
		abs, err := filepath.Abs(filepath.FromSlash(p))
		if err != nil {
			return "", err
		}
		p = filepath.ToSlash(abs)
	}
	p = path.Clean(p)
	if !strings.HasSuffix(p, "/modules") {
		p += "/modules"
	}
	return p, nil
}

// Patch sets every MODULEPATH path under EXPORTFORMATS to modulesPath and
// returns the new document with the list of entries that changed. When
// nothing changes, out is data itself.
func Patch(data []byte, modulesPath string) (out []byte, changes []Change, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack       []string
		edits       []edit
		sawRoot     bool
		sawSections bool
	)
	for {
		start := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w at offset %d: %v", ErrMalformed, dec.InputOffset(), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if len(stack) == 0 {
				if sawRoot {
					return nil, nil, fmt.Errorf("%w: multiple root elements", ErrMalformed)
				}
				sawRoot = true
			}
			if len(stack) == 1 && name == exportFormats {
				sawSections = true
			}
			if len(stack) == 4 && name == modulePath && stack[1] == exportFormats && stack[3] == modulePaths {
				end := int(dec.InputOffset())
				c := Change{Exporter: stack[2], ModuleID: attr(t, "id"), New: modulesPath}
				old, hasPath := lookupAttr(t, pathAttr)
				c.Old = old
				if !hasPath || old != modulesPath {
					e, err := pathEdit(data[start:end], start, modulesPath)
					if err != nil {
						return nil, nil, err
					}
					edits = append(edits, e)
					changes = append(changes, c)
				}
			}
			stack = append(stack, name)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if !sawRoot {
		return nil, nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	if !sawSections {
		return nil, nil, ErrNoExportFormats
	}
	if len(edits) == 0 {
		return data, nil, nil
	}
	return apply(data, edits), changes, nil
}

func attr(t xml.StartElement, name string) string {
	v, _ := lookupAttr(t, name)
	return v
}

func lookupAttr(t xml.StartElement, name string) (string, bool) {
	for _, a := range t.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func apply(data []byte, edits []edit) []byte {
	var b bytes.Buffer
	b.Grow(len(data))
	last := 0
	for _, e := range edits {
		b.Write(data[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.Write(data[last:])
	return b.Bytes()
}

// pathEdit locates the path attribute value inside one raw start tag. When
// the attribute is absent it is inserted after the last attribute.
func pathEdit(raw []byte, base int, value string) (edit, error) {
	s := scanner{raw: raw}
	if !s.consume('<') {
		return edit{}, fmt.Errorf("%w at offset %d: expected start tag", ErrMalformed, base)
	}
	s.name()
	insertAt := s.pos
	for {
		s.space()
		if s.done() || s.peek() == '/' || s.peek() == '>' {
			break
		}
		key := s.name()
		s.space()
		if !s.consume('=') {
			return edit{}, fmt.Errorf("%w at offset %d: attribute %q", ErrMalformed, base+s.pos, key)
		}
		s.space()
		if s.done() {
			return edit{}, fmt.Errorf("%w at offset %d: unterminated tag", ErrMalformed, base+s.pos)
		}
		quote := s.peek()
		if quote != '"' && quote != '\'' {
			return edit{}, fmt.Errorf("%w at offset %d: unquoted attribute %q", ErrMalformed, base+s.pos, key)
		}
		s.pos++
		valStart := s.pos
		end := bytes.IndexByte(raw[valStart:], quote)
		if end < 0 {
			return edit{}, fmt.Errorf("%w at offset %d: unterminated attribute %q", ErrMalformed, base+valStart, key)
		}
		valEnd := valStart + end
		s.pos = valEnd + 1
		insertAt = s.pos
		if key == pathAttr {
			return edit{start: base + valStart, end: base + valEnd, text: escapeAttr(value, quote)}, nil
		}
	}
	return edit{start: base + insertAt, end: base + insertAt, text: ` path="` + escapeAttr(value, '"') + `"`}, nil
}

type scanner struct {
	raw []byte
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.raw) }
func (s *scanner) peek() byte { return s.raw[s.pos] }

func (s *scanner) consume(c byte) bool {
	if !s.done() && s.raw[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) space() {
	for !s.done() {
		switch s.raw[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) name() string {
	start := s.pos
	for !s.done() {
		switch s.raw[s.pos] {
		case ' ', '\t', '\r', '\n', '=', '/', '>':
			return string(s.raw[start:s.pos])
		}
		s.pos++
	}
	return string(s.raw[start:s.pos])
}

func escapeAttr(v string, quote byte) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	v = r.Replace(v)
	if quote == '\'' {
		return strings.ReplaceAll(v, "'", "&apos;")
	}
	return strings.ReplaceAll(v, `"`, "&quot;")
}

// Report describes one PatchFile call.
type Report struct {
	Path        string
	ModulesPath string
	Changes     []Change
	Written     bool
	// Before and After hold the document around the patch.
	Before, After []byte
}

// PatchOptions tunes PatchFile.
type PatchOptions struct {
	// DryRun computes the patch without writing.
	DryRun bool
}

// PatchFile patches the descriptor at file in memory and writes it back
// only when at least one entry changed. The write replaces the file
// atomically with the same permissions.
func PatchFile(file, juceRoot string, opts PatchOptions) (*Report, error) {
	modules, err := NormalizeModulesPath(juceRoot)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	out, changes, err := Patch(data, modules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(file), err)
	}
	r := &Report{Path: file, ModulesPath: modules, Changes: changes, Before: data, After: out}
	if len(changes) == 0 || opts.DryRun {
		return r, nil
	}
	if err := writeAtomic(file, out); err != nil {
		return nil, err
	}
	r.Written = true
	return r, nil
}

func writeAtomic(file string, data []byte) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}
