package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samplore/sbuild/internal/toolchain"
	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/buildsystest"
)

func projucer(t *testing.T) toolchain.Handle {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Projucer")
	require.NoError(t, os.WriteFile(p, nil, 0o755))
	return toolchain.Handle{Path: p, Valid: true}
}

func withRunner(r *buildsystest.Runner, output string) *Generator {
	return &Generator{
		Timeout: time.Second,
		NewRunner: func(out io.Writer) buildsys.Runner {
			inner := r.RunFunc
			r.RunFunc = func(ctx context.Context, c buildsys.Cmd) (int, error) {
				fmt.Fprintln(out, output)
				if inner != nil {
					return inner(ctx, c)
				}
				return r.Code, r.Err
			}
			return r
		},
	}
}

func TestGenerateSuccess(t *testing.T) {
	h := projucer(t)
	r := &buildsystest.Runner{}
	o := withRunner(r, "Re-saving file: Samplore.jucer").Generate(context.Background(), h, "/p/Samplore.jucer")

	assert.Equal(t, Success, o.Kind)
	assert.NoError(t, o.Err())
	assert.Equal(t, "Re-saving file: Samplore.jucer", o.Output)
	assert.Equal(t, buildsys.Cmd{Path: h.Path, Args: []string{"--resave", "/p/Samplore.jucer"}}, r.Last())
}

func TestGenerateNonZero(t *testing.T) {
	r := &buildsystest.Runner{Code: 3}
	o := withRunner(r, "error: bad module").Generate(context.Background(), projucer(t), "x.jucer")

	assert.Equal(t, Failed, o.Kind)
	assert.Equal(t, 3, o.ExitCode)
	assert.ErrorIs(t, o.Err(), ErrGenerate)
	assert.Contains(t, o.Err().Error(), "status 3")
}

func TestGenerateTimeout(t *testing.T) {
	r := &buildsystest.Runner{RunFunc: func(ctx context.Context, c buildsys.Cmd) (int, error) {
		<-ctx.Done()
		return -1, ctx.Err()
	}}
	g := withRunner(r, "")
	g.Timeout = 10 * time.Millisecond

	o := g.Generate(context.Background(), projucer(t), "x.jucer")
	assert.Equal(t, TimedOut, o.Kind)
	assert.ErrorIs(t, o.Err(), ErrGenerate)
}

func TestGenerateParentCancelIsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &buildsystest.Runner{RunFunc: func(ctx context.Context, c buildsys.Cmd) (int, error) {
		return -1, ctx.Err()
	}}
	o := withRunner(r, "").Generate(ctx, projucer(t), "x.jucer")
	assert.Equal(t, Failed, o.Kind)
	assert.True(t, errors.Is(o.Cause, context.Canceled))
}

func TestGenerateMissingProjucer(t *testing.T) {
	r := &buildsystest.Runner{}
	o := withRunner(r, "").Generate(context.Background(), toolchain.Handle{Path: "/nope/Projucer", Valid: true}, "x.jucer")
	assert.Equal(t, Failed, o.Kind)
	assert.Empty(t, r.Calls, "stale handle is not trusted")
}
