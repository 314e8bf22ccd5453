package internal

import (
	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/artifact"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// RunTestsOptions holds options for the run_tests command.
type RunTestsOptions struct {
	NoBuild  bool
	Platform string
}

func newRunTestsCmd() *cobra.Command {
	opts := &RunTestsOptions{}

	cmd := &cobra.Command{
		Use:   "run_tests [flags] [-- test-filter...]",
		Short: "Build and run the unit tests",
		Long: `Run_tests builds the ` + projenv.TestsName + ` runner with CMake (always Debug) and runs
it. Arguments after -- are passed to the runner, for example Catch2 tag
filters.`,
		Example: `  sbuild run_tests
  sbuild run_tests --no-build -- "[sample]"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.NoBuild, "no-build", false, "skip building, run the existing test binary")
	cmd.Flags().StringVarP(&opts.Platform, "platform", "p", "", "platform (default: host)")
	_ = cmd.RegisterFlagCompletionFunc("platform", completePlatform)
	return cmd
}

func runTests(cmd *cobra.Command, opts *RunTestsOptions, args []string) error {
	s := sessionFrom(cmd)
	ctx := cmd.Context()
	pr := newPrinter(cmd.OutOrStdout())

	tag, err := s.targetPlatform(opts.Platform)
	if err != nil {
		return err
	}
	if !opts.NoBuild {
		pr.Println("Building tests...")
		if _, err := s.dispatcher(cmd).BuildTests(ctx, tag, s.settings.Jobs); err != nil {
			pr.Fail("Test build failed!")
			return err
		}
		pr.Println()
	}

	bin, err := artifact.Resolve(artifact.Tests(s.project, tag), nil)
	if err != nil {
		return remedy(err, "build the tests first: sbuild run_tests (without --no-build)")
	}
	pr.Printf("Running: %s\n\n", bin)
	code, err := s.runner(cmd).Run(ctx, buildsys.Cmd{Path: bin, Args: args, Dir: s.project.Root()})
	return buildsys.Succeeded(projenv.TestsName, code, err)
}
