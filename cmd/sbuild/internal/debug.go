package internal

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/artifact"
	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/debugger"
	"github.com/samplore/sbuild/internal/deps"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// DebugOptions holds options for the debug command.
type DebugOptions struct {
	FullTUI    bool
	TUI        bool
	Attach     bool
	Breakpoint string
}

func newDebugCmd() *cobra.Command {
	opts := &DebugOptions{}

	cmd := &cobra.Command{
		Use:   "debug [flags] [-- app-args...]",
		Short: "Debug " + projenv.AppName + " with cgdb, gdb or lldb",
		Long: `Debug launches the built application under a debugger, or attaches to a
running instance. Without flags on a terminal it opens an interactive menu
that can also install missing debuggers.`,
		Example: `  sbuild debug
  sbuild debug --fulltui -b Sample::load
  sbuild debug --tui -c Release -- --some-app-flag
  sbuild debug --attach`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.FullTUI, "fulltui", false, "use cgdb (falls back to gdb -tui)")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "use gdb -tui")
	cmd.Flags().BoolVar(&opts.Attach, "attach", false, "attach to a running process")
	cmd.Flags().StringVarP(&opts.Breakpoint, "breakpoint", "b", "", "set a breakpoint, e.g. main or Sample.cpp:42")
	cmd.Flags().StringP("config", "c", "", "build configuration to debug (default: Debug)")
	cmd.Flags().String("debugger", "", "debugger when no mode flag is given: cgdb, gdb-tui, gdb or lldb")
	cmd.MarkFlagsMutuallyExclusive("fulltui", "tui", "attach")
	cmd.MarkFlagsMutuallyExclusive("attach", "breakpoint")
	_ = cmd.RegisterFlagCompletionFunc("config", completeConfig)
	return cmd
}

// lazyChooser opens a prompt only when a choice is needed, so the terminal
// is not claimed while the menu runs.
type lazyChooser struct {
	s   *session
	out io.Writer
}

func (c lazyChooser) Choose(title string, options []string) (int, error) {
	pt, err := c.s.app.newPrompter(c.out)
	if err != nil {
		return 0, err
	}
	defer pt.Close()
	return pt.Choose(title, options)
}

func (s *session) launcher(cmd *cobra.Command) *debugger.Launcher {
	out := cmd.OutOrStdout()
	l := debugger.NewLauncher(s.project, s.host, s.runner(cmd), out)
	l.LookPath = s.app.lookPath
	l.Capture = func(w io.Writer) buildsys.Runner {
		return s.app.newRunner(w, s.log)
	}
	l.Chooser = lazyChooser{s: s, out: out}
	return l
}

// debugBinary resolves the executable of the native build for cfg.
func (s *session) debugBinary(cfg config.BuildConfig) (string, error) {
	path, err := artifact.Resolve(artifact.Native(s.project, s.host, cfg), nil)
	if err != nil {
		return "", remedy(err, "build it first: sbuild build -c %s", cfg)
	}
	return artifact.Executable(path), nil
}

func debugError(err error, b debugger.Backend) error {
	switch {
	case errors.Is(err, debugger.ErrNoProcess):
		return remedy(err, "start it first: sbuild run")
	case errors.Is(err, debugger.ErrNotInstalled):
		return remedy(err, "%s", debugger.InstallHint(b))
	}
	return err
}

func runDebug(cmd *cobra.Command, opts *DebugOptions, args []string) error {
	s := sessionFrom(cmd)
	ctx := cmd.Context()
	l := s.launcher(cmd)

	modeless := !cmd.Flags().Changed("fulltui") && !cmd.Flags().Changed("tui") &&
		!cmd.Flags().Changed("attach") && !cmd.Flags().Changed("breakpoint") &&
		!cmd.Flags().Changed("config") && !cmd.Flags().Changed("debugger") && len(args) == 0
	if modeless && s.app.interactive() {
		m := &debugger.Menu{
			Launcher:  l,
			Installer: deps.Apt{Runner: s.runner(cmd)},
			Binary:    s.debugBinary,
		}
		code, err := m.Run(ctx)
		return buildsys.Succeeded("debugger", code, debugError(err, debugger.GDB))
	}

	if opts.Attach {
		b := debugger.GDB
		if s.host == platform.MacOS {
			b = debugger.LLDB
		}
		code, err := l.Attach(ctx)
		return buildsys.Succeeded("debugger", code, debugError(err, b))
	}

	b := debugger.Default(s.host)
	switch {
	case opts.FullTUI:
		b = debugger.CGDB
	case opts.TUI:
		b = debugger.GDBTUI
	case s.settings.Debugger != "":
		v, err := debugger.ParseBackend(s.settings.Debugger)
		if err != nil {
			return err
		}
		b = v
	}

	cfg := config.Debug
	if cmd.Flags().Changed("config") {
		cfg = s.settings.BuildConfig
	}
	bin, err := s.debugBinary(cfg)
	if err != nil {
		return err
	}
	code, err := l.Launch(ctx, debugger.Session{Backend: b, Binary: bin, Breakpoint: opts.Breakpoint, Args: args})
	return buildsys.Succeeded(b.Executable(), code, debugError(err, b))
}
