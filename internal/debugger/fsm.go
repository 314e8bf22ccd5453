// Package debugger launches the application under gdb, cgdb or lldb.
//
// The interactive menu is a pure state machine (Transition) driven by a
// thin bubbletea adapter; nothing in the machine performs I/O.
package debugger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samplore/sbuild/internal/config"
)

// ErrInvalidTransition is returned by Transition for events the current
// state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// State is a menu state.
type State int

const (
	MainMenu State = iota
	InstallMenu
	DebugMenu
	Attached
	Launching
	Exited
)

func (s State) String() string {
	switch s {
	case MainMenu:
		return "main-menu"
	case InstallMenu:
		return "install-menu"
	case DebugMenu:
		return "debug-menu"
	case Attached:
		return "attached"
	case Launching:
		return "launching"
	case Exited:
		return "exited"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event is an operator action. The set of events is closed.
type Event interface {
	event()
}

type (
	// ChooseInstall opens the install menu.
	ChooseInstall struct{}
	// ChooseDebug opens the debug menu for a build flavor.
	ChooseDebug struct{ Config config.BuildConfig }
	// ChooseAttach attaches to a running process.
	ChooseAttach struct{}
	// SelectBackend launches a debugger with an optional breakpoint.
	SelectBackend struct {
		Backend    Backend
		Breakpoint string
	}
	Back struct{}
	Quit struct{}
	// Done reports that the current action finished.
	Done struct{ ExitCode int }
)

func (ChooseInstall) event() {}
func (ChooseDebug) event()   {}
func (ChooseAttach) event()  {}
func (SelectBackend) event() {}
func (Back) event()          {}
func (Quit) event()          {}
func (Done) event()          {}

// Machine is the menu state plus the selections made so far.
type Machine struct {
	State      State
	Config     config.BuildConfig
	Backend    Backend
	Breakpoint string
	ExitCode   int
}

// NewMachine starts at the main menu.
func NewMachine() Machine { return Machine{State: MainMenu} }

// Transition applies e to m. m is never modified; on error the returned
// machine is m unchanged.
func Transition(m Machine, e Event) (Machine, error) {
	next := m
	switch m.State {
	case MainMenu:
		switch e := e.(type) {
		case ChooseInstall:
			next.State = InstallMenu
			return next, nil
		case ChooseDebug:
			if e.Config != config.Debug && e.Config != config.Release {
				return m, fmt.Errorf("%w: %w", ErrInvalidTransition, config.ErrInvalidBuildConfig)
			}
			next.State = DebugMenu
			next.Config = e.Config
			return next, nil
		case ChooseAttach:
			next.State = Attached
			return next, nil
		case Quit:
			next.State = Exited
			return next, nil
		}
	case InstallMenu:
		switch e.(type) {
		case Back, Done:
			next.State = MainMenu
			return next, nil
		case Quit:
			next.State = Exited
			return next, nil
		}
	case DebugMenu:
		switch e := e.(type) {
		case SelectBackend:
			if !e.Backend.valid() {
				break
			}
			next.State = Launching
			next.Backend = e.Backend
			next.Breakpoint = strings.TrimSpace(e.Breakpoint)
			return next, nil
		case ChooseAttach:
			next.State = Attached
			return next, nil
		case Back:
			next = Machine{State: MainMenu}
			return next, nil
		case Quit:
			next.State = Exited
			return next, nil
		}
	case Launching, Attached:
		if d, ok := e.(Done); ok {
			next.State = Exited
			next.ExitCode = d.ExitCode
			return next, nil
		}
	}
	return m, fmt.Errorf("%w: %T in state %s", ErrInvalidTransition, e, m.State)
}
