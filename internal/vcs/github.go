// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"context"
	"fmt"
)

// githubClient implements client over git against github.com.
type githubClient struct {
	git VCS
}

// newGitHubClient creates a new GitHub client.
func newGitHubClient(g VCS) *githubClient {
	if g == nil {
		g = NewGitVCS()
	}
	return &githubClient{git: g}
}

func (c *githubClient) URL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
}

// Tags returns all tags from the repository using git ls-remote.
func (c *githubClient) Tags(ctx context.Context, owner, repo string) ([]string, error) {
	return c.git.Tags(ctx, c.URL(owner, repo))
}

// Clone fetches a single ref with depth 1.
func (c *githubClient) Clone(ctx context.Context, owner, repo, ref, dir string) error {
	return c.git.Clone(ctx, c.URL(owner, repo), ref, dir)
}
