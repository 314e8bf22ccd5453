package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samplore/sbuild/internal/config"
	"github.com/samplore/sbuild/internal/deps"
	"github.com/samplore/sbuild/internal/dotenv"
	projenv "github.com/samplore/sbuild/internal/env"
	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/internal/prompt"
	"github.com/samplore/sbuild/internal/vcs"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-time setup",
		Long: `Setup creates .env from .env.example, finds or clones JUCE, records
JUCE_PATH and BUILD_CONFIG, checks the Linux build dependencies and runs
configure.`,
		Args: cobra.NoArgs,
		RunE: runSetup,
	}
}

// juceCandidates lists the conventional JUCE install locations.
func juceCandidates(home string) []string {
	return []string{
		filepath.Join(home, "JUCE"),
		filepath.Join(home, "Documents", "JUCE"),
		filepath.Join(home, "juce"),
		filepath.Join(home, "Documents", "juce"),
		"/usr/local/JUCE",
		"C:/JUCE",
	}
}

// findJuce returns the candidates that contain a modules directory.
func findJuce(candidates []string) []string {
	var found []string
	for _, c := range candidates {
		if info, err := os.Stat(filepath.Join(c, "modules")); err == nil && info.IsDir() {
			found = append(found, c)
		}
	}
	return found
}

func runSetup(cmd *cobra.Command, _ []string) error {
	s := sessionFrom(cmd)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	pr := newPrinter(out)

	if !s.app.interactive() {
		return remedy(errors.New("setup needs an interactive terminal"),
			"edit %s by hand and run: sbuild configure", s.project.EnvFile())
	}
	pt, err := s.app.newPrompter(out)
	if err != nil {
		return err
	}
	defer pt.Close()

	pr.Header(projenv.AppName + " Setup")
	pr.Field("Platform", platform.Describe())
	pr.Field("Project", s.project.Root())
	pr.Println()

	// Step 1: environment file.
	err = dotenv.CopyTemplate(s.project.EnvTemplate(), s.project.EnvFile())
	switch {
	case err == nil:
		pr.OK("Created %s from %s", filepath.Base(s.project.EnvFile()), filepath.Base(s.project.EnvTemplate()))
	case errors.Is(err, dotenv.ErrExists):
		again, err := pt.Confirm(".env already exists. Reconfigure?", false)
		if err != nil {
			return err
		}
		if !again {
			pr.Println("Keeping the existing configuration.")
			return nil
		}
	case errors.Is(err, fs.ErrNotExist):
		return remedy(err, "restore %s from version control", filepath.Base(s.project.EnvTemplate()))
	default:
		return err
	}
	store, err := dotenv.Load(s.project.EnvFile())
	if err != nil {
		return err
	}

	// Steps 2 and 3: JUCE location.
	pr.Println()
	root, err := chooseJuce(ctx, s, pr, pt)
	if err != nil {
		return err
	}

	// Step 4: settings.
	if err := updateKey(pr, store, dotenv.KeyJucePath, root); err != nil {
		return err
	}
	current := store.Get(dotenv.KeyBuildConfig, config.DefaultBuildConfig.String())
	answer, err := pt.Ask("Build configuration (Debug/Release)", current)
	if err != nil {
		return err
	}
	cfg, err := config.ParseBuildConfig(answer)
	if err != nil {
		return err
	}
	if err := updateKey(pr, store, dotenv.KeyBuildConfig, cfg.String()); err != nil {
		return err
	}

	// Step 5: dependencies.
	if s.host == platform.Linux {
		pr.Println()
		if err := setupDeps(ctx, cmd, s, pr, pt); err != nil {
			return err
		}
	}

	// Step 6: configure with the new settings.
	res, err := config.Load(s.project)
	if err != nil {
		return err
	}
	s.settings, s.envFound = res.Settings, res.EnvFileFound
	pr.Println()
	return configureProject(ctx, cmd, s, pr, &ConfigureOptions{Force: true})
}

func updateKey(pr *printer, store *dotenv.Store, key, value string) error {
	ok, err := store.Update(key, value)
	if err != nil {
		return err
	}
	if !ok {
		return remedy(fmt.Errorf("%s has no %s line", filepath.Base(store.Path()), key),
			"add a line %s=%s to %s", key, value, store.Path())
	}
	pr.OK("Set %s=%s", key, value)
	return nil
}

func chooseJuce(ctx context.Context, s *session, pr *printer, pt *prompt.Prompter) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	found := findJuce(juceCandidates(home))
	options := append([]string(nil), found...)
	enter := len(options)
	options = append(options, "Enter a JUCE path", "Clone JUCE from GitHub")

	title := "JUCE installation:"
	if len(found) > 0 {
		title = fmt.Sprintf("Found %d JUCE installation(s):", len(found))
	}
	i, err := pt.Choose(title, options)
	if err != nil {
		return "", err
	}
	switch {
	case i < enter:
		return found[i], nil
	case i == enter:
		path, err := pt.Ask("JUCE path", "")
		if err != nil {
			return "", err
		}
		if path == "" {
			return "", errors.New("no JUCE path given")
		}
		abs, err := expandJuceRoot(path)
		if err != nil {
			return "", err
		}
		if len(findJuce([]string{abs})) == 0 {
			pr.Warn("No modules directory in %s", abs)
			ok, err := pt.Confirm("Use it anyway?", false)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", prompt.ErrAborted
			}
		}
		return path, nil
	}
	return cloneJuce(ctx, s, pr, pt, home)
}

func cloneJuce(ctx context.Context, s *session, pr *printer, pt *prompt.Prompter, home string) (string, error) {
	repo, err := vcs.NewRepo(vcs.JUCE, vcs.NewGitVCS(vcs.WithProgress(pr.w)))
	if err != nil {
		return "", err
	}
	def := vcs.DefaultBranch
	if latest, err := repo.LatestRelease(ctx); err == nil {
		def = latest
	} else {
		s.log.Warn("could not list JUCE releases", "err", err)
	}
	ref, err := pt.Ask("Branch or tag", def)
	if err != nil {
		return "", err
	}
	dir, err := pt.Ask("Clone into", filepath.Join(home, "JUCE"))
	if err != nil {
		return "", err
	}
	pr.Printf("Cloning %s (%s) into %s...\n", repo.URL(), ref, dir)
	if err := repo.Clone(ctx, ref, dir); err != nil {
		if errors.Is(err, vcs.ErrNotEmpty) {
			return "", remedy(err, "choose an empty directory or remove %s", dir)
		}
		return "", remedy(err, "check that git is installed and %s is reachable", repo.URL())
	}
	pr.OK("Cloned JUCE into %s", dir)
	return dir, nil
}

func setupDeps(ctx context.Context, cmd *cobra.Command, s *session, pr *printer, pt *prompt.Prompter) error {
	rep, err := depsChecker(s).Check(ctx)
	if err != nil {
		return err
	}
	rep.Render(cmd.OutOrStdout())
	if rep.OK() {
		pr.OK("All Linux dependencies installed")
		return nil
	}
	install, err := pt.Confirm("Install missing packages now?", true)
	if err != nil {
		return err
	}
	if !install {
		pr.Warn("Install them later with: %s", rep.Hint())
		return nil
	}
	if err := (deps.Apt{Runner: s.runner(cmd)}).Install(ctx, rep.Missing()...); err != nil {
		return remedy(err, "%s", rep.Hint())
	}
	pr.OK("Dependencies installed")
	return nil
}
