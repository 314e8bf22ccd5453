package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/deps"
	"github.com/samplore/sbuild/internal/descriptor"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/generator"
	"github.com/samplore/sbuild/internal/platform"
)

// ConfigureOptions holds options for the configure command.
type ConfigureOptions struct {
	NoGenerate bool
	CheckDeps  bool
	Force      bool
	DryRun     bool
}

func newConfigureCmd() *cobra.Command {
	opts := &ConfigureOptions{}

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Point the project at JUCE and generate native build files",
		Long: `Configure reads JUCE_PATH from .env, rewrites the module paths in
` + projenv.DescriptorName + ` and regenerates the native build files with the Projucer.
The Projucer is built from the JUCE sources when no pre-built copy is found.`,
		Example: `  sbuild configure
  sbuild configure --no-generate
  sbuild configure --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigure(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoGenerate, "no-generate", false, "only update "+projenv.DescriptorName+", do not generate build files")
	cmd.Flags().BoolVar(&opts.CheckDeps, "check-deps", false, "check platform build dependencies")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "continue without asking when the JUCE path looks wrong")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show the descriptor diff without writing or generating")
	return cmd
}

func runConfigure(cmd *cobra.Command, opts *ConfigureOptions) error {
	s := sessionFrom(cmd)
	pr := newPrinter(cmd.OutOrStdout())
	pr.Header(projenv.AppName + " Build Configuration")
	pr.Field("Platform", platform.Describe())
	pr.Field("Project", s.project.Root())
	pr.Println()
	return configureProject(cmd.Context(), cmd, s, pr, opts)
}

// configureProject is shared by configure and the setup wizard.
func configureProject(ctx context.Context, cmd *cobra.Command, s *session, pr *printer, opts *ConfigureOptions) error {
	if opts.CheckDeps {
		if err := checkDeps(ctx, cmd, s, pr); err != nil {
			return err
		}
		pr.Println()
	}

	root, err := s.juceRoot()
	if err != nil {
		return err
	}
	if err := s.checkJuceRoot(cmd, pr, root, opts.Force); err != nil {
		return err
	}
	pr.Field("JUCE Path", root)
	pr.Println()

	r, err := s.patch(pr, root, opts.DryRun)
	if err != nil {
		return err
	}
	if opts.DryRun {
		if len(r.Changes) > 0 {
			diff, err := descriptor.Diff(filepath.Base(r.Path), r.Before, r.After)
			if err != nil {
				return err
			}
			pr.Println()
			pr.Printf("%s", diff)
		}
		return nil
	}

	if !opts.NoGenerate {
		pr.Println()
		if err := s.generate(ctx, s.dispatcher(cmd), pr, root); err != nil {
			if ctx.Err() != nil {
				return err
			}
			pr.Fail("%v", err)
			pr.Println(generator.ManualSteps)
			pr.Println()
			pr.Warn("Continuing without generated build files")
		}
	}

	pr.Println()
	pr.Header("Configuration complete!")
	pr.Println("Next steps:")
	if opts.NoGenerate {
		pr.Printf("  1. Open Projucer and load %s\n", projenv.DescriptorName)
		pr.Println("  2. Save the project to regenerate platform-specific build files")
	}
	pr.Println("  - Build the project:")
	pr.Println("      sbuild build")
	return nil
}

// checkJuceRoot warns about a JUCE root without modules and asks whether to
// continue unless force is set.
func (s *session) checkJuceRoot(cmd *cobra.Command, pr *printer, root string, force bool) error {
	var problem string
	if _, err := os.Stat(root); err != nil {
		problem = "JUCE path does not exist: " + root
	} else if _, err := os.Stat(filepath.Join(root, "modules")); err != nil {
		problem = "JUCE modules directory not found: " + filepath.Join(root, "modules")
	}
	if problem == "" || force {
		if problem != "" {
			pr.Warn("%s", problem)
		}
		return nil
	}

	pr.Warn("%s", problem)
	hint := fmt.Sprintf("fix JUCE_PATH in %s or pass --force", s.project.EnvFile())
	if !s.app.interactive() {
		return remedy(fmt.Errorf("%s", problem), "%s", hint)
	}
	pt, err := s.app.newPrompter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pt.Close()
	ok, err := pt.Confirm("Continue anyway?", false)
	if err != nil {
		return err
	}
	if !ok {
		return remedy(fmt.Errorf("%s", problem), "%s", hint)
	}
	return nil
}

// checkDeps reports the Linux build dependencies. Missing packages are a
// warning, not an error.
func checkDeps(ctx context.Context, cmd *cobra.Command, s *session, pr *printer) error {
	rep, err := depsChecker(s).Check(ctx)
	if err != nil {
		return err
	}
	if len(rep.Statuses) == 0 {
		pr.OK("No extra dependencies to check on %s", s.host.DisplayName())
		return nil
	}
	rep.Render(cmd.OutOrStdout())
	if rep.OK() {
		pr.OK("All Linux dependencies installed")
		return nil
	}
	pr.Warn("Missing dependencies, install with:")
	pr.Printf("  %s\n", rep.Hint())
	return nil
}

func depsChecker(s *session) deps.Checker {
	return deps.Checker{Runner: s.app.newRunner(io.Discard, s.log), Tag: s.host}
}
