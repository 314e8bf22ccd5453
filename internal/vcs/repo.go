// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// JUCE is the repository path of the JUCE framework.
const JUCE = "github.com/juce-framework/JUCE"

// DefaultBranch is cloned when no tag is chosen.
const DefaultBranch = "master"

// Repo represents a code hosting repository.
type Repo struct {
	client client
	host   string
	owner  string
	repo   string
}

// NewRepo creates a new Repo for the given repository path.
// repoPath format: "github.com/owner/repo". g may be nil for plain git.
func NewRepo(repoPath string, g VCS) (*Repo, error) {
	host, owner, repo, err := parseRepoPath(repoPath)
	if err != nil {
		return nil, err
	}

	c, err := newClient(host, g)
	if err != nil {
		return nil, err
	}

	return &Repo{
		client: c,
		host:   host,
		owner:  owner,
		repo:   repo,
	}, nil
}

// URL returns the clone URL.
func (r *Repo) URL() string {
	return r.client.URL(r.owner, r.repo)
}

// Tags returns all tags from the repository.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	return r.client.Tags(ctx, r.owner, r.repo)
}

// LatestRelease returns the newest release tag, ignoring pre-releases and
// tags that are not semantic versions.
func (r *Repo) LatestRelease(ctx context.Context) (string, error) {
	tags, err := r.Tags(ctx)
	if err != nil {
		return "", err
	}
	latest, ok := LatestRelease(tags)
	if !ok {
		return "", fmt.Errorf("no release tags in %s/%s", r.owner, r.repo)
	}
	return latest, nil
}

// Clone makes a shallow checkout of ref into dir.
func (r *Repo) Clone(ctx context.Context, ref, dir string) error {
	if ref == "" {
		ref = DefaultBranch
	}
	return r.client.Clone(ctx, r.owner, r.repo, ref, dir)
}

// LatestRelease picks the highest semantic version among tags. Tags may
// carry a leading "v" or not; the tag is returned as written.
func LatestRelease(tags []string) (string, bool) {
	var best, bestTag string
	for _, tag := range tags {
		v := canonical(tag)
		if v == "" || semver.Prerelease(v) != "" {
			continue
		}
		if best == "" || semver.Compare(v, best) > 0 {
			best, bestTag = v, tag
		}
	}
	return bestTag, best != ""
}

func canonical(tag string) string {
	v := tag
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// parseRepoPath parses "github.com/owner/repo" into components.
func parseRepoPath(repoPath string) (host, owner, repo string, err error) {
	parts := strings.Split(repoPath, "/")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("invalid repo path: %s, expected host/owner/repo", repoPath)
	}
	return parts[0], parts[1], strings.Join(parts[2:], "/"), nil
}
