// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"context"
)

// mockClient implements client interface for unit testing.
type mockClient struct {
	tagsFunc  func(ctx context.Context, owner, repo string) ([]string, error)
	cloneFunc func(ctx context.Context, owner, repo, ref, dir string) error
}

func (m *mockClient) Tags(ctx context.Context, owner, repo string) ([]string, error) {
	if m.tagsFunc != nil {
		return m.tagsFunc(ctx, owner, repo)
	}
	return nil, nil
}

func (m *mockClient) Clone(ctx context.Context, owner, repo, ref, dir string) error {
	if m.cloneFunc != nil {
		return m.cloneFunc(ctx, owner, repo, ref, dir)
	}
	return nil
}

func (m *mockClient) URL(owner, repo string) string {
	return "mock://" + owner + "/" + repo
}
