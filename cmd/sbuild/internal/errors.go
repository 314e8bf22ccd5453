package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/samplore/sbuild/pkgs/buildsys"
)

// RemediationError is an orchestration failure with the exact step that
// fixes it.
type RemediationError struct {
	Err  error
	Hint string
}

func (e *RemediationError) Error() string { return e.Err.Error() }

func (e *RemediationError) Unwrap() error { return e.Err }

func remedy(err error, hint string, args ...any) error {
	if err == nil {
		return nil
	}
	return &RemediationError{Err: err, Hint: fmt.Sprintf(hint, args...)}
}

// ExitCode maps a command error to the process exit status. Child exit
// codes pass through unchanged.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *buildsys.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

// printError writes err and every remediation hint in its chain.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, h := range hints(err) {
		fmt.Fprintf(w, "  hint: %s\n", h)
	}
}

// hints collects remediation hints depth first, following errors.Join
// trees as well as single wraps. Repeated hints are reported once.
func hints(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			if r, ok := e.(*RemediationError); ok && r.Hint != "" && !slices.Contains(out, r.Hint) {
				out = append(out, r.Hint)
			}
			if j, ok := e.(interface{ Unwrap() []error }); ok {
				for _, inner := range j.Unwrap() {
					walk(inner)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return out
}
