package vcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// newLocalRemote creates a repository with one commit tagged 1.0.0 and a
// second commit on the default branch.
func newLocalRemote(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Join(dir, filepath.Dir(name)), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	git("init", "--quiet", "-b", "master")
	write("modules/juce_core/juce_core.h", "// 1.0.0\n")
	git("add", ".")
	git("commit", "--quiet", "-m", "first")
	git("tag", "1.0.0")
	write("modules/juce_core/juce_core.h", "// next\n")
	git("commit", "--quiet", "-am", "second")
	return dir
}

func TestGitVCS_Tags(t *testing.T) {
	remote := newLocalRemote(t)
	tags, err := NewGitVCS().Tags(context.Background(), remote)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags) != 1 || tags[0] != "1.0.0" {
		t.Errorf("Tags = %v, want [1.0.0]", tags)
	}
}

func TestGitVCS_Clone(t *testing.T) {
	remote := newLocalRemote(t)
	ctx := context.Background()
	vcs := NewGitVCS()

	tagged := filepath.Join(t.TempDir(), "JUCE")
	if err := vcs.Clone(ctx, "file://"+filepath.ToSlash(remote), "1.0.0", tagged); err != nil {
		t.Fatalf("Clone (tag) failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tagged, "modules", "juce_core", "juce_core.h"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "// 1.0.0" {
		t.Errorf("tag checkout content = %q", data)
	}

	branch := filepath.Join(t.TempDir(), "JUCE")
	if err := vcs.Clone(ctx, "file://"+filepath.ToSlash(remote), "master", branch); err != nil {
		t.Fatalf("Clone (branch) failed: %v", err)
	}
	data, err = os.ReadFile(filepath.Join(branch, "modules", "juce_core", "juce_core.h"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "// next" {
		t.Errorf("branch checkout content = %q", data)
	}

	if err := vcs.Clone(ctx, remote, "master", branch); !errors.Is(err, ErrNotEmpty) {
		t.Errorf("Clone into non-empty dir error = %v, want ErrNotEmpty", err)
	}
}

func TestParseTags(t *testing.T) {
	out := "abc\trefs/tags/7.0.9\ndef\trefs/tags/8.0.0\n\nbogus line\n"
	tags := parseTags(out)
	if len(tags) != 2 || tags[0] != "7.0.9" || tags[1] != "8.0.0" {
		t.Errorf("parseTags = %v", tags)
	}
	if parseTags("  \n") != nil {
		t.Error("parseTags of empty output should be nil")
	}
}
