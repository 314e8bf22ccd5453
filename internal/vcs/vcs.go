// Package vcs fetches the JUCE framework sources with git.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotEmpty is returned by Clone when the destination has content.
var ErrNotEmpty = errors.New("destination directory is not empty")

// VCS defines the interface for version control operations.
type VCS interface {
	// Clone makes a shallow checkout of ref from remote into dir.
	// ref can be a branch or a tag. dir must be missing or empty.
	Clone(ctx context.Context, remote, ref, dir string) error

	// Tags returns all tags from the remote repository.
	Tags(ctx context.Context, remote string) ([]string, error)
}

// gitVCS implements VCS using git.
type gitVCS struct {
	git      string
	progress io.Writer
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// WithProgress streams git's progress output of long operations to w.
func WithProgress(w io.Writer) GitOption {
	return func(g *gitVCS) {
		g.progress = w
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Clone(ctx context.Context, remote, ref, dir string) error {
	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrNotEmpty, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := g.run(ctx, dir, "init", "--quiet"); err != nil {
		return err
	}
	if err := g.fetch(ctx, remote, dir, ref); err != nil {
		return err
	}
	return g.checkout(ctx, dir, "FETCH_HEAD")
}

func (g *gitVCS) fetch(ctx context.Context, remote, dir, ref string) error {
	args := []string{"fetch", "--depth", "1"}
	if g.progress != nil {
		args = append(args, "--progress")
	}
	args = append(args, remote, ref)
	if err := g.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("fetch %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) checkout(ctx context.Context, dir, ref string) error {
	if err := g.run(ctx, dir, "checkout", "--quiet", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) Tags(ctx context.Context, remote string) ([]string, error) {
	output, err := g.output(ctx, "", "ls-remote", "--tags", "--refs", remote)
	if err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}
	return parseTags(output), nil
}

// parseTags reads ls-remote output: <hash>\trefs/tags/<tag> per line.
func parseTags(output string) []string {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	var tags []string
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) == 2 && strings.HasPrefix(parts[1], "refs/tags/") {
			tags = append(tags, strings.TrimPrefix(parts[1], "refs/tags/"))
		}
	}
	return tags
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = filepath.Clean(dir)
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if g.progress != nil {
		cmd.Stderr = io.MultiWriter(&stderr, g.progress)
	}

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
