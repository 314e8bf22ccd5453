// Package deps checks and installs the system packages a Linux build needs.
package deps

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/samplore/sbuild/internal/ctxlog"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// Required lists the Debian packages the JUCE Linux exporter links against.
var Required = []string{
	"libfreetype6-dev",
	"libwebkit2gtk-4.1-dev",
	"libgtk-3-dev",
	"libasound2-dev",
	"libcurl4-openssl-dev",
}

// Status is the installation state of one package.
type Status struct {
	Package   string
	Installed bool
}

// Report is the result of Check.
type Report struct {
	Statuses []Status
}

// Missing returns the packages that are not installed, in check order.
func (r Report) Missing() []string {
	var out []string
	for _, s := range r.Statuses {
		if !s.Installed {
			out = append(out, s.Package)
		}
	}
	return out
}

// OK reports whether nothing is missing.
func (r Report) OK() bool { return len(r.Missing()) == 0 }

// Hint returns the command that installs the missing packages, or "".
func (r Report) Hint() string {
	missing := r.Missing()
	if len(missing) == 0 {
		return ""
	}
	return "sudo apt-get install " + strings.Join(missing, " ")
}

// Render writes a status table to w.
func (r Report) Render(w io.Writer) {
	if len(r.Statuses) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Package", "Status"})
	for _, s := range r.Statuses {
		state := "installed"
		if !s.Installed {
			state = "missing"
		}
		t.AppendRow(table.Row{s.Package, state})
	}
	t.Render()
}

// Checker queries dpkg for each package.
type Checker struct {
	Runner   buildsys.Runner
	Tag      platform.Tag
	Packages []string
}

// Check returns an empty report on platforms other than Linux.
func (c Checker) Check(ctx context.Context) (Report, error) {
	var r Report
	if c.Tag != platform.Linux {
		return r, nil
	}
	pkgs := c.Packages
	if pkgs == nil {
		pkgs = Required
	}
	log := ctxlog.FromContext(ctx)
	for _, pkg := range pkgs {
		code, err := c.Runner.Run(ctx, buildsys.Cmd{Path: "dpkg", Args: []string{"-l", pkg}})
		if err != nil {
			return Report{}, fmt.Errorf("check %s: %w", pkg, err)
		}
		log.Debug("dpkg", "package", pkg, "code", code)
		r.Statuses = append(r.Statuses, Status{Package: pkg, Installed: code == 0})
	}
	return r, nil
}

// Apt installs packages with apt-get under sudo. Both steps run attached
// to the terminal so sudo can prompt.
type Apt struct {
	Runner buildsys.Runner
}

// Install refreshes the package index and installs pkgs in one transaction.
func (a Apt) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	update := buildsys.Cmd{Path: "sudo", Args: []string{"apt-get", "update"}, Interactive: true}
	code, err := a.Runner.Run(ctx, update)
	if err := buildsys.Succeeded("apt-get", code, err); err != nil {
		return fmt.Errorf("failed to update package list: %w", err)
	}
	install := buildsys.Cmd{
		Path:        "sudo",
		Args:        append([]string{"apt-get", "install", "-y"}, pkgs...),
		Interactive: true,
	}
	code, err = a.Runner.Run(ctx, install)
	if err := buildsys.Succeeded("apt-get", code, err); err != nil {
		return fmt.Errorf("failed to install %s: %w", strings.Join(pkgs, " "), err)
	}
	return nil
}
