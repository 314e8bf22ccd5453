// Package generator regenerates the native project files by running the
// Projucer non-interactively against the descriptor.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samplore/sbuild/internal/ctxlog"
	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
)

// DefaultTimeout bounds one Projucer run.
const DefaultTimeout = 60 * time.Second

// ErrGenerate wraps every non-success outcome. It is recoverable: callers
// print ManualSteps and continue.
var ErrGenerate = errors.New("build file generation failed")

// ManualSteps is printed when generation does not succeed.
const ManualSteps = `Manual options:
  1. Download a pre-built Projucer from https://juce.com/
  2. Open Samplore.jucer in Projucer
  3. Click 'Save Project' to generate build files`

// Kind classifies an Outcome.
type Kind int

const (
	Success Kind = iota
	Failed
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the classified result of one run.
type Outcome struct {
	Kind     Kind
	ExitCode int
	// Output is the merged stdout/stderr of the Projucer.
	Output string
	Cause  error
}

// Err returns nil on success and an error wrapping ErrGenerate otherwise.
func (o Outcome) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case TimedOut:
		return fmt.Errorf("%w: Projucer timed out", ErrGenerate)
	}
	if o.Cause != nil {
		return fmt.Errorf("%w: %w", ErrGenerate, o.Cause)
	}
	return fmt.Errorf("%w: Projucer exited with status %d", ErrGenerate, o.ExitCode)
}

// Generator runs <projucer> --resave <descriptor>.
type Generator struct {
	Timeout time.Duration
	// NewRunner builds the runner that captures Projucer output into out.
	NewRunner func(out io.Writer) buildsys.Runner
}

// New returns a generator with the default timeout and exec runner.
func New() *Generator {
	return &Generator{
		Timeout: DefaultTimeout,
		NewRunner: func(out io.Writer) buildsys.Runner {
			return buildsys.NewExecRunner(out, nil)
		},
	}
}

// Generate runs the Projucer. The handle is re-validated first.
func (g *Generator) Generate(ctx context.Context, h toolchain.Handle, descriptor string) Outcome {
	log := ctxlog.FromContext(ctx)
	if h = h.Revalidate(); !h.Valid {
		return Outcome{Kind: Failed, ExitCode: -1, Cause: fmt.Errorf("Projucer missing at %q", h.Path)}
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	r := g.NewRunner(&out)
	log.Info("generating build files", "projucer", h.Path, "descriptor", descriptor, "timeout", timeout)
	code, err := r.Run(runCtx, buildsys.Cmd{Path: h.Path, Args: []string{"--resave", descriptor}})

	o := Outcome{ExitCode: code, Output: strings.TrimSpace(out.String())}
	switch {
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		o.Kind = TimedOut
		o.Cause = err
	case err != nil:
		o.Kind = Failed
		o.Cause = err
	case code != 0:
		o.Kind = Failed
	default:
		o.Kind = Success
	}
	log.Debug("generator finished", "outcome", o.Kind.String(), "code", code)
	return o
}
