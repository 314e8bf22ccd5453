package internal

import (
	"github.com/spf13/cobra"
)

// CleanOptions holds options for the clean command.
type CleanOptions struct {
	All       bool
	Platform  string
	WithCMake bool
	BuildDir  string
}

func newCleanCmd() *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build artifacts",
		Long: `Clean removes derived build output for the current platform. With --all
it cleans every platform's generated project, the CMake build directory and
the unit test build directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "clean all platforms and build directories")
	cmd.Flags().StringVarP(&opts.Platform, "platform", "p", "", "platform to clean (default: host)")
	cmd.Flags().BoolVar(&opts.WithCMake, "build-with-cmake", false, "clean the CMake build directory instead")
	cmd.Flags().StringVar(&opts.BuildDir, "build-dir", "", "CMake build directory (requires --build-with-cmake)")
	cmd.MarkFlagsMutuallyExclusive("all", "platform")
	_ = cmd.RegisterFlagCompletionFunc("platform", completePlatform)
	return cmd
}

func runClean(cmd *cobra.Command, opts *CleanOptions) error {
	s := sessionFrom(cmd)
	ctx := cmd.Context()
	pr := newPrinter(cmd.OutOrStdout())
	d := s.dispatcher(cmd)

	if opts.All {
		pr.Println("Cleaning all build artifacts...")
		cleaned, err := d.CleanAll(ctx)
		for _, dir := range cleaned {
			pr.Printf("  - %s\n", dir)
		}
		if err != nil {
			return err
		}
		pr.OK("Clean complete")
		return nil
	}

	tag, err := s.targetPlatform(opts.Platform)
	if err != nil {
		return err
	}
	b, err := s.backend(opts.WithCMake)
	if err != nil {
		return err
	}
	pr.Printf("Cleaning %s (%s)...\n", tag.DisplayName(), b)
	if _, err := d.Clean(ctx, tag, b, opts.BuildDir); err != nil {
		return buildError(err)
	}
	pr.OK("Clean complete")
	return nil
}
