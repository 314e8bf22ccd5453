package buildsys

import (
	"context"
	"fmt"
)

// BuildOptions selects what one Build call produces.
type BuildOptions struct {
	// Config is the flavor name passed to the native tool (Debug, Release).
	Config string
	// Jobs is the parallelism hint. Values below 1 mean one job.
	Jobs int
	// Target limits the build to one target when the tool supports it.
	Target string
}

// NativeBuildDriver captures the shared lifecycle of one native build tool
// for one platform (make, xcodebuild, MSBuild, CMake).
type NativeBuildDriver interface {
	// Name identifies the driver in logs and messages.
	Name() string

	// Prepared reports whether the project files this driver consumes exist.
	Prepared() error

	// Lifecycle. Build and Clean return the tool's exit code unmodified.
	Configure(ctx context.Context) error
	Build(ctx context.Context, opts BuildOptions) (int, error)
	Clean(ctx context.Context) (int, error)

	// Where artifacts land.
	OutputDir() string
}

// ExitError reports a child process that exited with a non-zero status.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// NotPreparedError is returned by Prepared when project files are missing.
type NotPreparedError struct {
	Driver string
	Path   string
	Hint   string
}

func (e *NotPreparedError) Error() string {
	return fmt.Sprintf("%s: project files not found at %s", e.Driver, e.Path)
}

// Jobs normalizes a parallelism hint.
func Jobs(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
