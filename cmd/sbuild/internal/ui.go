package internal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// printer writes operator-facing output, styled when w is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	f, ok := w.(*os.File)
	return &printer{w: w, color: ok && term.IsTerminal(int(f.Fd()))}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) Println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

// Header prints a banner line framed by rules.
func (p *printer) Header(title string) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(p.w, p.render(dimStyle, rule))
	fmt.Fprintln(p.w, p.render(headerStyle, title))
	fmt.Fprintln(p.w, p.render(dimStyle, rule))
	fmt.Fprintln(p.w)
}

func (p *printer) OK(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(okStyle, "✓ "+fmt.Sprintf(format, args...)))
}

func (p *printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(warnStyle, "! "+fmt.Sprintf(format, args...)))
}

func (p *printer) Fail(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(failStyle, "✗ "+fmt.Sprintf(format, args...)))
}

// Field prints an aligned "label: value" line.
func (p *printer) Field(label, value string) {
	fmt.Fprintf(p.w, "%-10s %s\n", label+":", value)
}
