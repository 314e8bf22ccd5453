package debugger

import (
	"fmt"
	"strings"

	"github.com/samplore/sbuild/internal/platform"
)

// Backend is a debugger front end.
type Backend string

const (
	CGDB   Backend = "cgdb"
	GDBTUI Backend = "gdb-tui"
	GDB    Backend = "gdb"
	LLDB   Backend = "lldb"
)

var backends = []Backend{CGDB, GDBTUI, GDB, LLDB}

func (b Backend) valid() bool {
	for _, v := range backends {
		if b == v {
			return true
		}
	}
	return false
}

// ParseBackend accepts the names used by the debugger setting.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if !b.valid() {
		return "", fmt.Errorf("unknown debugger %q (want cgdb, gdb-tui, gdb or lldb)", s)
	}
	return b, nil
}

// Executable is the program started for b.
func (b Backend) Executable() string {
	switch b {
	case CGDB:
		return "cgdb"
	case LLDB:
		return "lldb"
	}
	return "gdb"
}

// Label is the menu text for b.
func (b Backend) Label() string {
	switch b {
	case CGDB:
		return "CGDB (recommended, full TUI with syntax highlighting)"
	case GDBTUI:
		return "GDB TUI mode"
	case GDB:
		return "GDB (command line only)"
	case LLDB:
		return "LLDB"
	}
	return string(b)
}

// Default returns the backend used when none is chosen.
func Default(tag platform.Tag) Backend {
	if tag == platform.MacOS {
		return LLDB
	}
	return GDBTUI
}

// Probe returns the installed backends in menu order.
func Probe(lookPath func(string) (string, error)) []Backend {
	has := func(name string) bool {
		_, err := lookPath(name)
		return err == nil
	}
	var out []Backend
	if has("cgdb") {
		out = append(out, CGDB)
	}
	if has("gdb") {
		out = append(out, GDBTUI, GDB)
	}
	if has("lldb") {
		out = append(out, LLDB)
	}
	return out
}

// Command returns the argv (without the program) for a launch session.
// For LLDB the breakpoint and run line are read from cmdFile, which the
// caller writes with LLDBScript.
func Command(b Backend, binary, breakpoint string, args []string, cmdFile string) []string {
	if b == LLDB {
		return []string{"-s", cmdFile, binary}
	}
	var argv []string
	if b == GDBTUI {
		argv = append(argv, "-tui")
	}
	if breakpoint != "" {
		argv = append(argv, "-ex", "break "+breakpoint)
	}
	argv = append(argv, "-ex", "run", "--args", binary)
	return append(argv, args...)
}

// LLDBScript is the command file content for an LLDB session.
func LLDBScript(breakpoint string, args []string) string {
	var b strings.Builder
	if breakpoint != "" {
		fmt.Fprintf(&b, "breakpoint set --name %s\n", breakpoint)
	}
	b.WriteString(strings.TrimSpace("run " + strings.Join(args, " ")))
	b.WriteByte('\n')
	return b.String()
}

// InstallHint is the remediation for a missing backend.
func InstallHint(b Backend) string {
	switch b {
	case CGDB:
		return "sudo apt-get install cgdb (or: brew install cgdb)"
	case LLDB:
		return "xcode-select --install"
	}
	return "sudo apt-get install gdb"
}

var quickReference = map[Backend][][2]string{
	CGDB: {
		{"ESC", "switch to source window"},
		{"i", "switch to GDB window"},
		{"Space", "set/unset breakpoint"},
		{"o", "open file dialog"},
		{"/", "search in source"},
		{"run", "start/restart program"},
		{"continue", "continue execution"},
		{"next", "step over"},
		{"step", "step into"},
		{"quit", "exit"},
	},
	GDBTUI: {
		{"Ctrl+X A", "toggle TUI mode"},
		{"Ctrl+X 1", "source window only"},
		{"Ctrl+X 2", "source + assembly"},
		{"Ctrl+L", "refresh screen"},
		{"run", "start/restart program"},
		{"continue", "continue execution"},
		{"next", "step over"},
		{"step", "step into"},
		{"finish", "step out"},
		{"break FILE:LINE", "set breakpoint"},
		{"print VAR", "print variable"},
		{"backtrace", "show call stack"},
		{"quit", "exit GDB"},
	},
	LLDB: {
		{"run (r)", "start/restart program"},
		{"continue (c)", "continue execution"},
		{"next (n)", "step over"},
		{"step (s)", "step into"},
		{"finish", "step out"},
		{"breakpoint set (b)", "set breakpoint"},
		{"frame variable (v)", "print variables"},
		{"bt", "show call stack"},
		{"quit (q)", "exit LLDB"},
	},
}

func init() {
	quickReference[GDB] = quickReference[GDBTUI]
}
