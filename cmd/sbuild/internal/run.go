package internal

import (
	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/dispatch"
	projenv "github.com/samplore/sbuild/internal/env"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Debug     bool
	WithCMake bool
	BuildDir  string
}

func newRunCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the built application",
		Long: `Run starts the most recently built ` + projenv.AppName + ` binary for the selected
configuration. Interrupting the application with Ctrl-C exits with status 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "run the Debug build")
	cmd.Flags().StringP("config", "c", "", "build configuration, Debug or Release")
	cmd.Flags().BoolVar(&opts.WithCMake, "build-with-cmake", false, "run the CMake build")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "CMake build directory (requires --build-with-cmake)")
	cmd.MarkFlagsMutuallyExclusive("debug", "config")
	_ = cmd.RegisterFlagCompletionFunc("config", completeConfig)
	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	s := sessionFrom(cmd)
	cfg := s.settings.BuildConfig
	if opts.Debug {
		cfg = config.Debug
	}
	b, err := s.backend(opts.WithCMake)
	if err != nil {
		return err
	}
	req := dispatch.Request{
		Platform: s.host,
		Config:   cfg,
		Backend:  b,
		BuildDir: opts.BuildDir,
	}
	cands, err := s.dispatcher(cmd).ArtifactCandidates(req)
	if err != nil {
		return buildError(err)
	}
	return launchApp(cmd.Context(), cmd, s, cands, cfg)
}
