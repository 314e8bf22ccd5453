package deps

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samplore/sbuild/internal/platform"
	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/buildsystest"
)

func TestCheckLinux(t *testing.T) {
	r := &buildsystest.Runner{RunFunc: func(_ context.Context, c buildsys.Cmd) (int, error) {
		if c.Args[1] == "libgtk-3-dev" || c.Args[1] == "libcurl4-openssl-dev" {
			return 1, nil
		}
		return 0, nil
	}}
	rep, err := Checker{Runner: r, Tag: platform.Linux}.Check(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Calls, len(Required))
	assert.Equal(t, buildsys.Cmd{Path: "dpkg", Args: []string{"-l", "libfreetype6-dev"}}, r.Calls[0])
	assert.False(t, rep.OK())
	assert.Equal(t, []string{"libgtk-3-dev", "libcurl4-openssl-dev"}, rep.Missing())
	assert.Equal(t, "sudo apt-get install libgtk-3-dev libcurl4-openssl-dev", rep.Hint())

	var buf bytes.Buffer
	rep.Render(&buf)
	assert.Contains(t, buf.String(), "libwebkit2gtk-4.1-dev")
	assert.Contains(t, buf.String(), "missing")
}

func TestCheckOtherPlatformsPass(t *testing.T) {
	for _, tag := range []platform.Tag{platform.MacOS, platform.Windows} {
		r := &buildsystest.Runner{}
		rep, err := Checker{Runner: r, Tag: tag}.Check(context.Background())
		require.NoError(t, err)
		assert.True(t, rep.OK())
		assert.Empty(t, rep.Hint())
		assert.Empty(t, r.Calls)
	}
}

func TestCheckRunnerError(t *testing.T) {
	r := &buildsystest.Runner{Code: -1, Err: errors.New("exec: dpkg: not found")}
	_, err := Checker{Runner: r, Tag: platform.Linux, Packages: []string{"x"}}.Check(context.Background())
	assert.Error(t, err)
}

func TestAptInstall(t *testing.T) {
	r := &buildsystest.Runner{}
	require.NoError(t, Apt{Runner: r}.Install(context.Background(), "gdb", "cgdb"))
	require.Len(t, r.Calls, 2)
	assert.Equal(t, []string{"apt-get", "update"}, r.Calls[0].Args)
	assert.Equal(t, []string{"apt-get", "install", "-y", "gdb", "cgdb"}, r.Calls[1].Args)
	assert.True(t, r.Calls[1].Interactive)

	r = &buildsystest.Runner{Code: 100}
	err := Apt{Runner: r}.Install(context.Background(), "gdb")
	var exit *buildsys.ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 100, exit.Code)
	assert.Len(t, r.Calls, 1, "install is skipped when the update fails")

	r = &buildsystest.Runner{}
	require.NoError(t, Apt{Runner: r}.Install(context.Background()))
	assert.Empty(t, r.Calls)
}
