// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"context"
	"fmt"
)

// client defines the internal interface for interacting with code hosting platforms.
type client interface {
	// Tags returns all tags from the repository.
	Tags(ctx context.Context, owner, repo string) ([]string, error)

	// Clone makes a shallow checkout of ref into dir.
	Clone(ctx context.Context, owner, repo, ref, dir string) error

	// URL returns the clone URL.
	URL(owner, repo string) string
}

// newClient creates a client for the specified host.
func newClient(host string, g VCS) (client, error) {
	switch host {
	case "github.com":
		return newGitHubClient(g), nil
	default:
		return nil, fmt.Errorf("unsupported host: %s", host)
	}
}
