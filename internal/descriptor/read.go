package descriptor

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

type project struct {
	XMLName     xml.Name `xml:"JUCERPROJECT"`
	Name        string   `xml:"name,attr"`
	Version     string   `xml:"version,attr"`
	ProjectType string   `xml:"projectType,attr"`
	Modules     []struct {
		ID string `xml:"id,attr"`
	} `xml:"MODULES>MODULE"`
	Options *struct {
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"JUCEOPTIONS"`
}

func decode(data []byte) (*project, error) {
	var p project
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &p, nil
}

// Info is the descriptor's identity.
type Info struct {
	Name        string
	Version     string
	ProjectType string
}

// IsGUIApp reports whether the project builds a standalone application.
func (i Info) IsGUIApp() bool {
	return containsAny(i.ProjectType, "GUI", "Standalone", "guiapp")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ProjectInfo reads the root attributes.
func ProjectInfo(data []byte) (Info, error) {
	p, err := decode(data)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: p.Name, Version: p.Version, ProjectType: p.ProjectType}, nil
}

// Modules returns the sorted ids under MODULES.
func Modules(data []byte) ([]string, error) {
	p, err := decode(data)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range p.Modules {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Option is one JUCEOPTIONS flag.
type Option struct {
	Name  string
	Value string
}

// Options returns the JUCEOPTIONS flags whose value is "0" or "1", in
// document order.
func Options(data []byte) ([]Option, error) {
	p, err := decode(data)
	if err != nil {
		return nil, err
	}
	if p.Options == nil {
		return nil, nil
	}
	var out []Option
	for _, a := range p.Options.Attrs {
		if a.Value == "0" || a.Value == "1" {
			out = append(out, Option{Name: a.Name.Local, Value: a.Value})
		}
	}
	return out, nil
}

// Diff renders a unified diff of a patch for display.
func Diff(name string, before, after []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: name,
		ToFile:   name + " (patched)",
		Context:  2,
	})
}
