package debugger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/buildsystest"
)

type fakeChooser struct {
	pick    int
	options []string
}

func (c *fakeChooser) Choose(_ string, options []string) (int, error) {
	c.options = options
	return c.pick, nil
}

func newTestLauncher(t *testing.T, tag platform.Tag, listing string, listCode int, tools ...string) (*Launcher, *buildsystest.Runner, *buildsystest.Runner) {
	t.Helper()
	debug := &buildsystest.Runner{}
	list := &buildsystest.Runner{}
	l := &Launcher{
		Runner: debug,
		Capture: func(out io.Writer) buildsys.Runner {
			list.RunFunc = func(context.Context, buildsys.Cmd) (int, error) {
				fmt.Fprint(out, listing)
				return listCode, nil
			}
			return list
		},
		LookPath:    lookPath(tools...),
		Tag:         tag,
		CommandFile: filepath.Join(t.TempDir(), ".lldb_init"),
		Out:         &bytes.Buffer{},
	}
	return l, debug, list
}

func binary(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Samplore")
	require.NoError(t, os.WriteFile(p, nil, 0o755))
	return p
}

func TestLaunchGDB(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.Linux, "", 0, "gdb")
	debug.Code = 7
	bin := binary(t)

	code, err := l.Launch(context.Background(), Session{Backend: GDBTUI, Binary: bin, Breakpoint: "main"})
	require.NoError(t, err)
	assert.Equal(t, 7, code, "debugger exit code is returned unchanged")
	assert.Equal(t, buildsys.Cmd{
		Path:        "gdb",
		Args:        []string{"-tui", "-ex", "break main", "-ex", "run", "--args", bin},
		Interactive: true,
	}, debug.Last())
	assert.Contains(t, l.Out.(*bytes.Buffer).String(), "Ctrl+X A")
}

func TestLaunchCGDBFallsBack(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.Linux, "", 0, "gdb")
	_, err := l.Launch(context.Background(), Session{Backend: CGDB, Binary: binary(t)})
	require.NoError(t, err)
	assert.Equal(t, "gdb", debug.Last().Path)
	assert.Equal(t, "-tui", debug.Last().Args[0])
	assert.Contains(t, l.Out.(*bytes.Buffer).String(), "falling back to gdb -tui")
}

func TestLaunchMissingDebugger(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.Linux, "", 0)
	_, err := l.Launch(context.Background(), Session{Backend: CGDB, Binary: binary(t)})
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.Empty(t, debug.Calls)
}

func TestLaunchMissingBinary(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.Linux, "", 0, "gdb")
	_, err := l.Launch(context.Background(), Session{Backend: GDB, Binary: "/nope/Samplore"})
	assert.Error(t, err)
	assert.Empty(t, debug.Calls)
}

func TestLaunchLLDBCommandFile(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.MacOS, "", 0, "lldb")
	var script string
	debug.RunFunc = func(_ context.Context, c buildsys.Cmd) (int, error) {
		data, err := os.ReadFile(l.CommandFile)
		require.NoError(t, err)
		script = string(data)
		return 0, nil
	}
	bin := binary(t)
	_, err := l.Launch(context.Background(), Session{Backend: LLDB, Binary: bin, Breakpoint: "main", Args: []string{"--x"}})
	require.NoError(t, err)

	assert.Equal(t, "breakpoint set --name main\nrun --x\n", script)
	assert.Equal(t, []string{"-s", l.CommandFile, bin}, debug.Last().Args)
	_, err = os.Stat(l.CommandFile)
	assert.True(t, os.IsNotExist(err), "command file removed after the session")
}

func TestAttachNoProcess(t *testing.T) {
	for _, tc := range []struct {
		listing string
		code    int
	}{
		{"", 1},
		{"", 0},
		{"\n\n", 0},
	} {
		l, debug, list := newTestLauncher(t, platform.Linux, tc.listing, tc.code, "gdb")
		_, err := l.Attach(context.Background())
		assert.ErrorIs(t, err, ErrNoProcess)
		assert.Empty(t, debug.Calls, "no debugger is invoked")
		assert.Equal(t, buildsys.Cmd{Path: "pgrep", Args: []string{"-l", "Samplore"}}, list.Last())
	}
}

func TestAttachSingle(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.Linux, "4242 Samplore\n", 0, "gdb")
	_, err := l.Attach(context.Background())
	require.NoError(t, err)
	assert.Equal(t, buildsys.Cmd{Path: "gdb", Args: []string{"-p", "4242"}, Interactive: true}, debug.Last())
}

func TestAttachChooses(t *testing.T) {
	l, debug, _ := newTestLauncher(t, platform.MacOS, "11 Samplore\n22 Samplore\n", 0, "lldb")
	c := &fakeChooser{pick: 1}
	l.Chooser = c
	_, err := l.Attach(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PID 11", "PID 22"}, c.options)
	assert.Equal(t, buildsys.Cmd{Path: "lldb", Args: []string{"-p", "22"}, Interactive: true}, debug.Last())

	c.pick = 5
	_, err = l.Attach(context.Background())
	assert.Error(t, err)
}

func TestParsePIDsWindows(t *testing.T) {
	out := "\nImage Name                     PID Session Name        Session#    Mem Usage\n" +
		"========================= ======== ================ =========== ============\n" +
		"Samplore.exe                  5120 Console                    1    182,332 K\n"
	assert.Equal(t, []string{"5120"}, ParsePIDs(platform.Windows, out))
	assert.Empty(t, ParsePIDs(platform.Windows, "INFO: No tasks are running which match the specified criteria.\n"))
}
