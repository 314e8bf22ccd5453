package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/samplore/sbuild/internal/config"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
)

// Menu is the interactive front end. Each screen is a bubbletea program
// over the state machine; debuggers and installers run between programs
// with the terminal released.
type Menu struct {
	Launcher  *Launcher
	Installer Installer
	// Binary resolves the executable to debug for a build flavor.
	Binary func(cfg config.BuildConfig) (string, error)
	Input  io.Reader
	Output io.Writer
}

// Run shows the menu until the operator quits or a debugger exits, and
// returns the debugger's exit code.
func (mn *Menu) Run(ctx context.Context) (int, error) {
	l := mn.Launcher
	m := NewMachine()
	for {
		res, err := mn.show(ctx, newModel(m, Probe(l.LookPath), l.Tag))
		if err != nil {
			return 1, err
		}
		m = res.machine
		switch m.State {
		case Exited:
			return m.ExitCode, nil
		case InstallMenu:
			if err := mn.Installer.Install(ctx, res.install...); err != nil {
				fmt.Fprintf(l.out(), "Failed to install %s: %v\n", strings.Join(res.install, " "), err)
			} else {
				fmt.Fprintf(l.out(), "Installed %s\n", strings.Join(res.install, " "))
			}
			if ctx.Err() != nil {
				return 1, ctx.Err()
			}
			m, _ = Transition(m, Done{})
		case Launching:
			bin, err := mn.Binary(m.Config)
			if err != nil {
				return 1, err
			}
			return l.Launch(ctx, Session{Backend: m.Backend, Binary: bin, Breakpoint: m.Breakpoint})
		case Attached:
			return l.Attach(ctx)
		default:
			return 1, fmt.Errorf("menu stopped in state %s", m.State)
		}
	}
}

func (mn *Menu) show(ctx context.Context, m model) (model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if mn.Input != nil {
		opts = append(opts, tea.WithInput(mn.Input))
	}
	if mn.Output != nil {
		opts = append(opts, tea.WithOutput(mn.Output))
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return model{}, ctx.Err()
		}
		return model{}, err
	}
	return final.(model), nil
}

type item struct {
	label   string
	event   Event
	backend Backend
	install []string
}

type model struct {
	machine   Machine
	installed []Backend
	tag       platform.Tag
	cursor    int

	editing bool
	pending Backend
	input   textinput.Model

	install []string
	err     error
}

func newModel(m Machine, installed []Backend, tag platform.Tag) model {
	ti := textinput.New()
	ti.Prompt = "Breakpoint: "
	ti.Placeholder = "main, Sample::load, SampleLibrary.cpp:123"
	ti.CharLimit = 256
	return model{machine: m, installed: installed, tag: tag, input: ti}
}

func (m model) has(b Backend) bool {
	for _, v := range m.installed {
		if v == b {
			return true
		}
	}
	return false
}

func (m model) missing() []string {
	if m.tag != platform.Linux {
		return nil
	}
	var out []string
	if !m.has(GDB) {
		out = append(out, "gdb")
	}
	if !m.has(CGDB) {
		out = append(out, "cgdb")
	}
	return out
}

func (m model) items() []item {
	switch m.machine.State {
	case MainMenu:
		return []item{
			{label: "Install/check debuggers", event: ChooseInstall{}},
			{label: "Debug " + projenv.AppName + " (Debug build)", event: ChooseDebug{Config: config.Debug}},
			{label: "Debug " + projenv.AppName + " (Release build)", event: ChooseDebug{Config: config.Release}},
			{label: "Exit", event: Quit{}},
		}
	case InstallMenu:
		var items []item
		missing := m.missing()
		for _, pkg := range missing {
			items = append(items, item{label: "Install " + pkg, install: []string{pkg}})
		}
		if len(missing) > 1 {
			items = append(items, item{label: "Install all missing", install: missing})
		}
		return append(items, item{label: "Back to main menu", event: Back{}})
	case DebugMenu:
		var items []item
		for _, b := range m.installed {
			items = append(items, item{label: b.Label(), backend: b})
		}
		if len(items) > 0 {
			items = append(items, item{label: "Attach to running process", event: ChooseAttach{}})
		}
		return append(items, item{label: "Back to main menu", event: Back{}})
	}
	return nil
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if key.Type == tea.KeyCtrlC {
		return m.apply(Quit{})
	}
	if m.editing {
		switch key.Type {
		case tea.KeyEnter:
			m.editing = false
			return m.apply(SelectBackend{Backend: m.pending, Breakpoint: m.input.Value()})
		case tea.KeyEsc:
			m.editing = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	items := m.items()
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(items) {
			return m.choose(items[m.cursor])
		}
	case "q":
		return m.apply(Quit{})
	case "esc":
		if m.machine.State == MainMenu {
			return m.apply(Quit{})
		}
		return m.apply(Back{})
	default:
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 && n <= len(items) {
			m.cursor = n - 1
			return m.choose(items[n-1])
		}
	}
	return m, nil
}

func (m model) choose(it item) (tea.Model, tea.Cmd) {
	switch {
	case len(it.install) > 0:
		m.install = it.install
		return m, tea.Quit
	case it.backend != "":
		m.pending = it.backend
		m.editing = true
		m.input.Reset()
		return m, m.input.Focus()
	}
	return m.apply(it.event)
}

func (m model) apply(e Event) (tea.Model, tea.Cmd) {
	next, err := Transition(m.machine, e)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.machine = next
	m.cursor = 0
	m.err = nil
	switch next.State {
	case Exited, Launching, Attached:
		return m, tea.Quit
	}
	return m, nil
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func (m model) View() string {
	if m.machine.State == Exited || m.machine.State == Launching || m.machine.State == Attached {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(projenv.AppName+" Debugger") + "\n")
	b.WriteString(faintStyle.Render("Platform: "+m.tag.DisplayName()) + "\n\n")
	b.WriteString(m.statusTable() + "\n\n")

	switch m.machine.State {
	case InstallMenu:
		if len(m.missing()) == 0 {
			if m.tag == platform.Linux {
				b.WriteString("All recommended debuggers are installed!\n\n")
			} else {
				b.WriteString("Install debuggers with your platform's tools (" + InstallHint(Default(m.tag)) + ").\n\n")
			}
		}
	case DebugMenu:
		b.WriteString("Configuration: " + m.machine.Config.String() + "\n\n")
		if len(m.installed) == 0 {
			b.WriteString(errorStyle.Render("No debuggers installed! Install them from the main menu first.") + "\n\n")
		}
	}

	for i, it := range m.items() {
		line := fmt.Sprintf("%d) %s", i+1, it.label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.editing {
		b.WriteString("\nSet a breakpoint? (leave empty to skip)\n")
		b.WriteString(m.input.View() + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + faintStyle.Render("up/down move, enter select, esc back, q quit") + "\n")
	return b.String()
}

func (m model) statusTable() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Debugger", "Status"})
	state := func(ok bool) string {
		if ok {
			return "installed"
		}
		return "not installed"
	}
	t.AppendRow(table.Row{"GDB", state(m.has(GDB))})
	t.AppendRow(table.Row{"CGDB", state(m.has(CGDB))})
	if m.tag == platform.MacOS {
		t.AppendRow(table.Row{"LLDB", state(m.has(LLDB))})
	}
	return t.Render()
}
