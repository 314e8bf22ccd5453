package internal

import (
	"os"

	"github.com/spf13/cobra"

	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/vscode"
)

// VSCodeOptions holds options for the vscode command.
type VSCodeOptions struct {
	Force bool
	Check bool
}

func newVSCodeCmd() *cobra.Command {
	opts := &VSCodeOptions{}

	cmd := &cobra.Command{
		Use:   "vscode",
		Short: "Generate VS Code IntelliSense configuration",
		Long: `Vscode writes .vscode/` + vscode.FileName + ` with include paths and
defines for JUCE_PATH and the modules listed in ` + projenv.DescriptorName + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVSCode(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing configuration")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "report the configuration status without writing")
	return cmd
}

func runVSCode(cmd *cobra.Command, opts *VSCodeOptions) error {
	s := sessionFrom(cmd)
	pr := newPrinter(cmd.OutOrStdout())
	pr.Header("VS Code Configuration")

	root, err := s.juceRoot()
	if err != nil {
		return err
	}
	if len(findJuce([]string{root})) == 0 {
		pr.Warn("JUCE modules directory not found under %s", root)
	}
	pr.Field("JUCE Path", root)
	pr.Println()

	data, err := os.ReadFile(s.project.Descriptor())
	if err != nil {
		return err
	}
	in, err := vscode.ReadInput(data, root)
	if err != nil {
		return err
	}
	if in.Defaulted {
		pr.Warn("No JUCE modules found in %s, using the default module set", projenv.DescriptorName)
	}
	pr.Printf("Found %d JUCE modules:\n", len(in.Modules))
	for _, m := range in.Modules {
		pr.Printf("  - %s\n", m)
	}
	pr.Println()

	path := vscode.Path(s.project)
	if opts.Check {
		exists, err := vscode.Exists(path)
		if err != nil {
			return err
		}
		if exists {
			pr.OK("VS Code config exists: %s", path)
			pr.Println("To regenerate, run with --force")
		} else {
			pr.Fail("VS Code config not found: %s", path)
			pr.Println("Run without --check to generate")
		}
		return nil
	}

	written, err := vscode.Write(path, vscode.Generate(in), opts.Force)
	if err != nil {
		return err
	}
	if !written {
		pr.Warn("VS Code config already exists: %s", path)
		pr.Println("Use --force to overwrite, or delete the file manually")
		return nil
	}
	pr.OK("Generated: %s", path)
	pr.Println()
	pr.Println("Reload VS Code (Ctrl+Shift+P, 'Reload Window') and pick the Linux, Mac or")
	pr.Println("Win32 configuration from the status bar.")
	return nil
}
