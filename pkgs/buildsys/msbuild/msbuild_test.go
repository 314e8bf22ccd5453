package msbuild

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samplore/sbuild/pkgs/buildsys"
	"github.com/samplore/sbuild/pkgs/buildsys/buildsystest"
)

func layout(t *testing.T, withVS2022, withVS2019 bool) (vs2022, vs2019 string) {
	t.Helper()
	root := t.TempDir()
	vs2022 = filepath.Join(root, "VisualStudio2022")
	vs2019 = filepath.Join(root, "VisualStudio2019")
	for dir, ok := range map[string]bool{vs2022: withVS2022, vs2019: withVS2019} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "x64", "Release"), 0o755))
		if ok {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "Samplore.sln"), nil, 0o644))
		}
	}
	return vs2022, vs2019
}

func TestBuildPrefersVS2022(t *testing.T) {
	vs2022, vs2019 := layout(t, true, true)
	r := &buildsystest.Runner{}
	m := New(`C:\MSBuild.exe`, r, vs2022, vs2019)

	code, err := m.Build(context.Background(), buildsys.BuildOptions{Config: "Release", Jobs: 12})
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, vs2022, r.Last().Dir)
	assert.Equal(t, `C:\MSBuild.exe`, r.Last().Path)
	assert.Equal(t, []string{"Samplore.sln", "/p:Configuration=Release", "/p:Platform=x64", "/m:12"}, r.Last().Args)
	assert.Equal(t, filepath.Join(vs2022, "x64"), m.OutputDir())
}

func TestBuildFallsBackToVS2019(t *testing.T) {
	vs2022, vs2019 := layout(t, false, true)
	r := &buildsystest.Runner{Code: 1}
	m := New("", r, vs2022, vs2019)

	code, err := m.Build(context.Background(), buildsys.BuildOptions{Config: "Debug", Jobs: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, vs2019, r.Last().Dir)
	assert.Equal(t, "msbuild", r.Last().Path)
}

func TestNotPrepared(t *testing.T) {
	vs2022, vs2019 := layout(t, false, false)
	m := New("", &buildsystest.Runner{}, vs2022, vs2019)
	var notPrepared *buildsys.NotPreparedError
	require.ErrorAs(t, m.Prepared(), &notPrepared)
	assert.Equal(t, filepath.Join(vs2022, "*.sln"), notPrepared.Path)
}

func TestCleanRemovesBothOutputs(t *testing.T) {
	vs2022, vs2019 := layout(t, true, false)
	m := New("", &buildsystest.Runner{}, vs2022, vs2019)
	code, err := m.Clean(context.Background())
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.NoDirExists(t, filepath.Join(vs2022, "x64"))
	assert.NoDirExists(t, filepath.Join(vs2019, "x64"))
	assert.FileExists(t, filepath.Join(vs2022, "Samplore.sln"))
}
