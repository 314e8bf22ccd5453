package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/ctxlog"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/internal/prompt"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// app holds the process-level collaborators. Tests replace them.
type app struct {
	// newRunner returns the runner for native tools, streaming to out.
	newRunner   func(out io.Writer, log *slog.Logger) buildsys.Runner
	lookPath    func(string) (string, error)
	host        func() (platform.Tag, error)
	interactive func() bool
	newPrompter func(out io.Writer) (*prompt.Prompter, error)
}

func defaultApp() *app {
	return &app{
		newRunner: func(out io.Writer, log *slog.Logger) buildsys.Runner {
			return buildsys.NewExecRunner(out, log)
		},
		lookPath:    exec.LookPath,
		host:        platform.Detect,
		interactive: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		newPrompter: prompt.New,
	}
}

// session is what every subcommand runs against. It is built once in the
// root's PersistentPreRunE and stored in the command context.
type session struct {
	app      *app
	project  projenv.Project
	settings config.Settings
	envFound bool
	host     platform.Tag
	log      *slog.Logger
}

type sessionKey struct{}

func sessionFrom(cmd *cobra.Command) *session {
	if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
		return s
	}
	panic("sbuild: command run without a session")
}

// runner returns a native-tool runner streaming to the command's stdout.
func (s *session) runner(cmd *cobra.Command) buildsys.Runner {
	return s.app.newRunner(cmd.OutOrStdout(), s.log)
}

type rootOptions struct {
	projectDir string
	verbose    bool
}

func newRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sbuild",
		Short: "sbuild builds and runs " + projenv.AppName,
		Long: `sbuild configures the ` + projenv.AppName + ` JUCE project from .env, generates the
native build files with the Projucer, drives make, xcodebuild, MSBuild or CMake,
and runs, debugs and packages the result.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			s, err := newSession(cmd, a, opts)
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), sessionKey{}, s)
			cmd.SetContext(ctxlog.WithLogger(ctx, s.log))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.projectDir, "project-dir", "", "project root (default: search upward for "+projenv.DescriptorName+")")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text|json)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newConfigureCmd(),
		newBuildCmd(),
		newCleanCmd(),
		newRunCmd(),
		newDebugCmd(),
		newRunTestsCmd(),
		newSetupCmd(),
		newVSCodeCmd(),
		newPackageCmd(),
	)
	return rootCmd
}

func newSession(cmd *cobra.Command, a *app, opts *rootOptions) (*session, error) {
	root := opts.projectDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if root, err = projenv.Find(cwd); err != nil {
			return nil, remedy(err, "run sbuild inside the %s checkout or pass --project-dir", projenv.AppName)
		}
	}
	p, err := projenv.New(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p.Descriptor()); err != nil {
		return nil, remedy(fmt.Errorf("%s not found in %s", projenv.DescriptorName, p.Root()),
			"pass the directory that contains %s to --project-dir", projenv.DescriptorName)
	}

	res, err := config.Load(p, cmd.Flags())
	if err != nil {
		if errors.Is(err, config.ErrInvalidBuildConfig) {
			return nil, remedy(err, "set BUILD_CONFIG=Debug or BUILD_CONFIG=Release in %s", p.EnvFile())
		}
		return nil, err
	}
	st := res.Settings
	if opts.verbose {
		st.LogLevel = "debug"
	}
	log, err := ctxlog.New(st.LogLevel, st.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if st.MetaBuildDir != "" && !cmd.Flags().Changed("build-dir") {
		p = p.WithMetaBuildDir(st.MetaBuildDir)
	}

	host, err := a.host()
	if err != nil {
		return nil, remedy(err, "sbuild supports %s, %s and %s hosts", platform.Linux, platform.MacOS, platform.Windows)
	}
	log.Debug("session", "root", p.Root(), "host", host, "sources", res.Sources)
	return &session{
		app:      a,
		project:  p,
		settings: st,
		envFound: res.EnvFileFound,
		host:     host,
		log:      log,
	}, nil
}

// Execute runs the command tree with args and reports any error with its
// remediation on stderr.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, newRootCmd(defaultApp()), args, os.Stderr)
}

func execute(ctx context.Context, rootCmd *cobra.Command, args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(stderr, err)
	}
	return err
}
