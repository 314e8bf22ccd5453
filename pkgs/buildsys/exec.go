package buildsys

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Cmd describes one child process.
type Cmd struct {
	Path string
	Args []string
	Dir  string
	Env  map[string]string
	// Interactive attaches the child to the terminal instead of streaming
	// its merged output line by line.
	Interactive bool
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner starts a child, waits for it and returns its exit code.
//
// A child that ran and exited yields (code, nil) whatever the code. An error
// is returned only when the child could not be started or was cancelled.
type Runner interface {
	Run(ctx context.Context, c Cmd) (int, error)
}

// ExecRunner runs children with os/exec.
type ExecRunner struct {
	// Stdout receives merged stdout/stderr, one line at a time, as it is
	// produced. Interactive children use the process's own terminal.
	Stdout io.Writer
	Logger *slog.Logger
	// KillGrace bounds how long a cancelled child may keep its output open.
	KillGrace time.Duration
}

// NewExecRunner returns a runner streaming to out.
func NewExecRunner(out io.Writer, logger *slog.Logger) *ExecRunner {
	return &ExecRunner{Stdout: out, Logger: logger, KillGrace: 5 * time.Second}
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) (int, error) {
	cmd := r.command(ctx, c)
	log := r.logger().With("cmd", c.Path, "dir", c.Dir)
	log.Debug("running", "args", c.Args, "interactive", c.Interactive)

	if c.Interactive {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return -1, fmt.Errorf("start %s: %w", c.Path, err)
		}
		return r.waitInteractive(ctx, cmd, c, log)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return -1, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return -1, fmt.Errorf("start %s: %w", c.Path, err)
	}
	pw.Close()

	out := r.Stdout
	if out == nil {
		out = io.Discard
	}
	if err := copyLines(out, pr); err != nil {
		log.Warn("output stream", "err", err)
		io.Copy(io.Discard, pr)
	}
	pr.Close()
	return r.wait(ctx, cmd, c, log)
}

// command builds the exec.Cmd for c. Streamed children get their own
// process group, killed as a whole when ctx is done. Interactive children
// stay in the terminal's foreground group: they read the tty and receive
// Ctrl-C themselves, so ctx never kills them.
func (r *ExecRunner) command(ctx context.Context, c Cmd) *exec.Cmd {
	var cmd *exec.Cmd
	if c.Interactive {
		cmd = exec.Command(c.Path, c.Args...)
	} else {
		cmd = exec.CommandContext(ctx, c.Path, c.Args...)
		setProcessGroup(cmd)
		cmd.WaitDelay = r.KillGrace
	}
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
	}
	return cmd
}

// copyLines streams r to w a line at a time until EOF. A line longer than
// the buffer is passed on in pieces.
func copyLines(w io.Writer, r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			w.Write(chunk)
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			if len(chunk) > 0 {
				w.Write([]byte{'\n'})
			}
			return nil
		default:
			return err
		}
	}
}

func (r *ExecRunner) wait(ctx context.Context, cmd *exec.Cmd, c Cmd, log *slog.Logger) (int, error) {
	err := cmd.Wait()
	if ctx.Err() != nil {
		log.Debug("cancelled", "err", ctx.Err())
		return exitCode(cmd), ctx.Err()
	}
	return r.result(err, c, log)
}

// waitInteractive reports the child's own status. An interrupt that the
// child handled (gdb stopping its inferior) is not a failure; only a child
// killed by a signal while ctx is done reports ctx.Err().
func (r *ExecRunner) waitInteractive(ctx context.Context, cmd *exec.Cmd, c Cmd, log *slog.Logger) (int, error) {
	err := cmd.Wait()
	code := exitCode(cmd)
	if code < 0 && ctx.Err() != nil {
		log.Debug("interrupted", "err", ctx.Err())
		return code, ctx.Err()
	}
	return r.result(err, c, log)
}

func (r *ExecRunner) result(err error, c Cmd, log *slog.Logger) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			return code, fmt.Errorf("%s: %w", c.Path, err)
		}
		log.Debug("exited", "code", code)
		return code, nil
	}
	return -1, fmt.Errorf("%s: %w", c.Path, err)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// Succeeded turns a Run result into an error for callers that only care
// about success. Non-zero exits become *ExitError.
func Succeeded(tool string, code int, err error) error {
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Tool: tool, Code: code}
	}
	return nil
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
