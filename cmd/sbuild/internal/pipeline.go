package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/bootstrap"
	"github.com/samplore/sbuild/internal/descriptor"
	"github.com/samplore/sbuild/internal/dispatch"
	"github.com/samplore/sbuild/internal/generator"
	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// juceRoot returns the configured JUCE root, expanded to an absolute path.
func (s *session) juceRoot() (string, error) {
	if !s.envFound {
		return "", remedy(fmt.Errorf(".env file not found at %s", s.project.EnvFile()),
			"cp %s %s and set JUCE_PATH, or run: sbuild setup", s.project.EnvTemplate(), s.project.EnvFile())
	}
	root, err := s.settings.JuceRoot()
	if err != nil {
		return "", remedy(err, "set JUCE_PATH in %s, for example JUCE_PATH=/home/username/JUCE", s.project.EnvFile())
	}
	return expandJuceRoot(root)
}

func expandJuceRoot(root string) (string, error) {
	modules, err := descriptor.NormalizeModulesPath(root)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(strings.TrimSuffix(modules, "/modules")), nil
}

// dispatcher wires the build dispatcher to this session. Missing native
// project files are regenerated by patching the descriptor and running the
// Projucer.
func (s *session) dispatcher(cmd *cobra.Command) *dispatch.Dispatcher {
	d := dispatch.New(s.project, s.runner(cmd))
	d.Locator = toolchain.Locator{LookPath: s.app.lookPath}
	d.Tuning = dispatch.Tuning{
		Generator: s.settings.CMakeGenerator,
		Defines:   s.settings.CMakeDefines,
		Env:       s.settings.BuildEnv,
	}
	d.Generate = func(ctx context.Context) error {
		pr := newPrinter(cmd.OutOrStdout())
		pr.Warn("Native build files missing, generating them")
		root, err := s.juceRoot()
		if err != nil {
			return err
		}
		if _, err := s.patch(pr, root, false); err != nil {
			return err
		}
		if err := s.generate(ctx, d, pr, root); err != nil {
			return remedy(err, "run: sbuild configure\n%s", generator.ManualSteps)
		}
		return nil
	}
	return d
}

// patch rewrites the descriptor's module paths and reports the changes.
func (s *session) patch(pr *printer, root string, dryRun bool) (*descriptor.Report, error) {
	r, err := descriptor.PatchFile(s.project.Descriptor(), root, descriptor.PatchOptions{DryRun: dryRun})
	if err != nil {
		if errors.Is(err, descriptor.ErrMalformed) || errors.Is(err, descriptor.ErrNoExportFormats) {
			return nil, remedy(err, "restore %s from version control: git checkout -- %s",
				filepath.Base(s.project.Descriptor()), filepath.Base(s.project.Descriptor()))
		}
		return nil, err
	}
	switch {
	case len(r.Changes) == 0:
		pr.OK("%s already points at %s", filepath.Base(r.Path), r.ModulesPath)
	case dryRun:
		pr.Printf("Would update %d module path(s) to %s\n", len(r.Changes), r.ModulesPath)
	default:
		pr.OK("Updated %d module path(s) to %s", len(r.Changes), r.ModulesPath)
	}
	for _, c := range r.Changes {
		pr.Printf("  - %s\n", c)
	}
	return r, nil
}

// projucer locates the Projucer, building it from the JUCE sources when no
// pre-built copy exists. The bootstrap is attempted once.
func (s *session) projucer(ctx context.Context, d *dispatch.Dispatcher, pr *printer, root string) (toolchain.Handle, error) {
	h, err := d.Locator.LocateProjucer(root)
	if err == nil {
		pr.OK("Found Projucer: %s", h.Path)
		return h, nil
	}
	s.log.Info("projucer not found", "err", err)
	pr.Warn("Projucer not found, building it from %s", filepath.Join(root, "extras", "Projucer"))

	b := &bootstrap.Builder{Drivers: d, Jobs: s.settings.Jobs}
	h, berr := b.Build(ctx, s.host, root)
	if berr == nil {
		pr.OK("Built Projucer: %s", h.Path)
		return h, nil
	}
	var exitErr *buildsys.ExitError
	if errors.As(berr, &exitErr) || errors.Is(berr, context.Canceled) {
		return toolchain.Handle{}, berr
	}
	hint := toolchain.Hint(berr)
	if hint == "" {
		hint = toolchain.Hint(err)
	}
	return toolchain.Handle{}, remedy(berr, "%s", hint)
}

// generate runs the Projucer against the descriptor.
func (s *session) generate(ctx context.Context, d *dispatch.Dispatcher, pr *printer, root string) error {
	h, err := s.projucer(ctx, d, pr, root)
	if err != nil {
		return err
	}
	g := generator.New()
	g.NewRunner = func(out io.Writer) buildsys.Runner {
		return s.app.newRunner(out, s.log)
	}
	pr.Printf("Generating build files with %s --resave ...\n", filepath.Base(h.Path))
	o := g.Generate(ctx, h, s.project.Descriptor())
	if err := o.Err(); err != nil {
		if o.Output != "" {
			pr.Println(o.Output)
		}
		return err
	}
	pr.OK("Build files generated")
	return nil
}
