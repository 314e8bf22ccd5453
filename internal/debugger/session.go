package debugger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/samplore/sbuild/internal/ctxlog"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

var (
	// ErrNoProcess is returned by Attach when no application process runs.
	ErrNoProcess = errors.New("no running " + projenv.AppName + " process found")
	// ErrNotInstalled is returned when the chosen debugger is not on PATH.
	ErrNotInstalled = errors.New("debugger not installed")
)

// Session is one debugger launch.
type Session struct {
	Backend    Backend
	Binary     string
	Breakpoint string
	Args       []string
}

// Chooser picks one of several options, returning its index.
type Chooser interface {
	Choose(title string, options []string) (int, error)
}

// Installer installs system packages.
type Installer interface {
	Install(ctx context.Context, pkgs ...string) error
}

// Launcher starts debuggers attached to the terminal.
type Launcher struct {
	// Runner runs the debugger itself.
	Runner buildsys.Runner
	// Capture returns a runner whose output goes to out. It is used to list
	// processes.
	Capture  func(out io.Writer) buildsys.Runner
	LookPath func(string) (string, error)
	Tag      platform.Tag
	// CommandFile is the LLDB command file; it exists only during a session.
	CommandFile string
	Chooser     Chooser
	Out         io.Writer
}

// NewLauncher returns a launcher for project p on tag.
func NewLauncher(p projenv.Project, tag platform.Tag, r buildsys.Runner, out io.Writer) *Launcher {
	return &Launcher{
		Runner: r,
		Capture: func(w io.Writer) buildsys.Runner {
			return buildsys.NewExecRunner(w, nil)
		},
		LookPath:    exec.LookPath,
		Tag:         tag,
		CommandFile: p.LLDBCommandFile(),
		Out:         out,
	}
}

func (l *Launcher) out() io.Writer {
	if l.Out == nil {
		return io.Discard
	}
	return l.Out
}

func (l *Launcher) installed(b Backend) bool {
	_, err := l.LookPath(b.Executable())
	return err == nil
}

// Resolve maps b to the backend that will actually run. A missing cgdb
// falls back to gdb -tui.
func (l *Launcher) Resolve(b Backend) (Backend, error) {
	if l.installed(b) {
		return b, nil
	}
	if b == CGDB {
		fmt.Fprintln(l.out(), "CGDB not installed, falling back to gdb -tui")
		fmt.Fprintf(l.out(), "  install: %s\n", InstallHint(CGDB))
		return l.Resolve(GDBTUI)
	}
	return "", fmt.Errorf("%w: %s", ErrNotInstalled, b.Executable())
}

// Launch runs the session's debugger with the terminal attached and
// returns its exit code.
func (l *Launcher) Launch(ctx context.Context, s Session) (int, error) {
	b, err := l.Resolve(s.Backend)
	if err != nil {
		return 1, err
	}
	if _, err := os.Stat(s.Binary); err != nil {
		return 1, fmt.Errorf("binary not found: %s", s.Binary)
	}
	if b == LLDB {
		if err := os.WriteFile(l.CommandFile, []byte(LLDBScript(s.Breakpoint, s.Args)), 0o644); err != nil {
			return 1, err
		}
		defer os.Remove(l.CommandFile)
	}
	c := buildsys.Cmd{
		Path:        b.Executable(),
		Args:        Command(b, s.Binary, s.Breakpoint, s.Args, l.CommandFile),
		Interactive: true,
	}
	l.banner(b, c)
	ctxlog.FromContext(ctx).Info("launching debugger", "backend", string(b), "binary", s.Binary)
	return l.Runner.Run(ctx, c)
}

func (l *Launcher) banner(b Backend, c buildsys.Cmd) {
	w := l.out()
	fmt.Fprintf(w, "Launching %s...\n", strings.ToUpper(b.Executable()))
	fmt.Fprintf(w, "Command: %s\n\n", c)
	if ref := quickReference[b]; len(ref) > 0 {
		fmt.Fprintln(w, "Quick reference:")
		for _, kv := range ref {
			fmt.Fprintf(w, "  %-20s %s\n", kv[0], kv[1])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
}

// ListProcesses returns the ids of running application processes.
func (l *Launcher) ListProcesses(ctx context.Context) ([]string, error) {
	var c buildsys.Cmd
	if l.Tag == platform.Windows {
		c = buildsys.Cmd{Path: "tasklist", Args: []string{"/FI", "IMAGENAME eq " + projenv.AppName + ".exe"}}
	} else {
		c = buildsys.Cmd{Path: "pgrep", Args: []string{"-l", projenv.AppName}}
	}
	var buf bytes.Buffer
	code, err := l.Capture(&buf).Run(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	if code != 0 {
		return nil, nil
	}
	return ParsePIDs(l.Tag, buf.String()), nil
}

// ParsePIDs extracts process ids from pgrep -l or tasklist output.
func ParsePIDs(tag platform.Tag, output string) []string {
	var pids []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if tag == platform.Windows {
			if len(fields) >= 2 && strings.EqualFold(fields[0], projenv.AppName+".exe") {
				pids = append(pids, fields[1])
			}
			continue
		}
		if len(fields) > 0 {
			pids = append(pids, fields[0])
		}
	}
	return pids
}

// Attach attaches a debugger to a running application process. With more
// than one candidate the Chooser picks.
func (l *Launcher) Attach(ctx context.Context) (int, error) {
	pids, err := l.ListProcesses(ctx)
	if err != nil {
		return 1, err
	}
	if len(pids) == 0 {
		return 1, ErrNoProcess
	}
	pid := pids[0]
	if len(pids) > 1 {
		if l.Chooser == nil {
			return 1, fmt.Errorf("%d %s processes running, cannot choose non-interactively", len(pids), projenv.AppName)
		}
		options := make([]string, len(pids))
		for i, p := range pids {
			options[i] = "PID " + p
		}
		i, err := l.Chooser.Choose("Multiple "+projenv.AppName+" processes found", options)
		if err != nil {
			return 1, err
		}
		if i < 0 || i >= len(pids) {
			return 1, fmt.Errorf("invalid selection %d", i+1)
		}
		pid = pids[i]
	}

	b := GDB
	if l.Tag == platform.MacOS {
		b = LLDB
	}
	if !l.installed(b) {
		return 1, fmt.Errorf("%w: %s", ErrNotInstalled, b.Executable())
	}
	fmt.Fprintf(l.out(), "Attaching to PID %s...\n\n", pid)
	ctxlog.FromContext(ctx).Info("attaching debugger", "backend", string(b), "pid", pid)
	return l.Runner.Run(ctx, buildsys.Cmd{Path: b.Executable(), Args: []string{"-p", pid}, Interactive: true})
}
