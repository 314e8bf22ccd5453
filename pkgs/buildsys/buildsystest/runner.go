// Package buildsystest provides a recording Runner for driver tests.
package buildsystest

import (
	"context"
	"sync"

	"github.com/samplore/sbuild/pkgs/buildsys"
)

// Runner records every command and answers with a scripted exit code.
type Runner struct {
	mu    sync.Mutex
	Calls []buildsys.Cmd

	// Code is returned for every command unless RunFunc is set.
	Code int
	Err  error
	// RunFunc overrides Code/Err when non-nil.
	RunFunc func(ctx context.Context, c buildsys.Cmd) (int, error)
}

var _ buildsys.Runner = (*Runner)(nil)

func (r *Runner) Run(ctx context.Context, c buildsys.Cmd) (int, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	r.mu.Unlock()
	if r.RunFunc != nil {
		return r.RunFunc(ctx, c)
	}
	return r.Code, r.Err
}

// Last returns the most recent command, or the zero Cmd.
func (r *Runner) Last() buildsys.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return buildsys.Cmd{}
	}
	return r.Calls[len(r.Calls)-1]
}
