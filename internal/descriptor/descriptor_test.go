package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modules = "/opt/JUCE/modules"

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "Samplore.jucer"))
	require.NoError(t, err)
	return data
}

func TestPatchRewritesEveryModulePath(t *testing.T) {
	data := fixture(t)
	out, changes, err := Patch(data, modules)
	require.NoError(t, err)

	var got []string
	for _, c := range changes {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{
		"LINUX_MAKE/juce_core",
		"LINUX_MAKE/juce_gui_basics",
		"XCODE_MAC/juce_core",
		"VS2022/juce_core",
		"VS2022/juce_gui_basics",
	}, got)

	s := string(out)
	assert.Contains(t, s, `<MODULEPATH id="juce_core" path="/opt/JUCE/modules"/>`)
	assert.Contains(t, s, `<MODULEPATH id="juce_gui_basics" path='/opt/JUCE/modules'/>`, "quote style kept")
	assert.Contains(t, s, `<MODULEPATH id="juce_core"   path="/opt/JUCE/modules" />`, "spacing kept")
	assert.Contains(t, s, `<MODULEPATH id="juce_gui_basics" path="/opt/JUCE/modules"/>`, "missing path inserted")
}

func TestPatchPreservesUnrelatedBytes(t *testing.T) {
	data := fixture(t)
	out, _, err := Patch(data, modules)
	require.NoError(t, err)

	before := strings.Split(string(data), "\n")
	after := strings.Split(string(out), "\n")
	require.Len(t, after, len(before))
	for i := range before {
		if strings.Contains(before[i], "<MODULEPATH ") {
			continue
		}
		assert.Equal(t, before[i], after[i], "line %d", i+1)
	}
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(out), "<!-- exporters: paths are rewritten by the build tool -->")
}

func TestPatchIdempotent(t *testing.T) {
	first, changes, err := Patch(fixture(t), modules)
	require.NoError(t, err)
	require.NotEmpty(t, changes)

	second, changes, err := Patch(first, modules)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, first, second)
}

func TestPatchIteratesExportersGenerically(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("<JUCERPROJECT><EXPORTFORMATS>")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, `<EXPORTER_%d><MODULEPATHS><MODULEPATH id="juce_core" path="old%d"/></MODULEPATHS></EXPORTER_%d>`, i, i, i)
			}
			b.WriteString("</EXPORTFORMATS></JUCERPROJECT>")

			out, changes, err := Patch([]byte(b.String()), modules)
			require.NoError(t, err)
			assert.Len(t, changes, n)
			assert.Equal(t, n, strings.Count(string(out), `path="`+modules+`"`))
		})
	}
}

func TestPatchIgnoresModulePathsOutsideExporters(t *testing.T) {
	doc := `<JUCERPROJECT><MODULEPATHS><MODULEPATH id="x" path="keep"/></MODULEPATHS>` +
		`<EXPORTFORMATS><A><MODULEPATHS><MODULEPATH id="y" path="old"/></MODULEPATHS></A></EXPORTFORMATS></JUCERPROJECT>`
	out, changes, err := Patch([]byte(doc), modules)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
	assert.Contains(t, string(out), `path="keep"`)
}

func TestPatchEscapesValue(t *testing.T) {
	doc := `<JUCERPROJECT><EXPORTFORMATS><A><MODULEPATHS><MODULEPATH id="y" path="old"/></MODULEPATHS></A></EXPORTFORMATS></JUCERPROJECT>`
	out, _, err := Patch([]byte(doc), `/opt/R&D "x"/modules`)
	require.NoError(t, err)
	assert.Contains(t, string(out), `path="/opt/R&amp;D &quot;x&quot;/modules"`)

	again, changes, err := Patch(out, `/opt/R&D "x"/modules`)
	require.NoError(t, err)
	assert.Empty(t, changes, "escaped value compares equal after decoding")
	assert.Equal(t, out, again)
}

func TestPatchErrors(t *testing.T) {
	_, _, err := Patch([]byte(`<JUCERPROJECT><MODULES/></JUCERPROJECT>`), modules)
	assert.ErrorIs(t, err, ErrNoExportFormats)

	_, _, err = Patch([]byte(`<JUCERPROJECT><EXPORTFORMATS></JUCERPROJECT>`), modules)
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = Patch([]byte(""), modules)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPatchFileWritesOnlyOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Samplore.jucer")
	require.NoError(t, os.WriteFile(file, fixture(t), 0o640))

	r, err := PatchFile(file, "/opt/JUCE", PatchOptions{})
	require.NoError(t, err)
	assert.True(t, r.Written)
	assert.Len(t, r.Changes, 5)
	assert.Equal(t, modules, r.ModulesPath)

	info, err := os.Stat(file)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	}

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(file, old, old))

	r, err = PatchFile(file, "/opt/JUCE/modules", PatchOptions{})
	require.NoError(t, err)
	assert.False(t, r.Written)
	assert.Empty(t, r.Changes)

	info, err = os.Stat(file)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "no write, no mtime touch")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestPatchFileDryRunAndErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Samplore.jucer")
	data := fixture(t)
	require.NoError(t, os.WriteFile(file, data, 0o644))

	r, err := PatchFile(file, "/opt/JUCE", PatchOptions{DryRun: true})
	require.NoError(t, err)
	assert.False(t, r.Written)
	assert.NotEmpty(t, r.Changes)
	onDisk, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	diff, err := Diff("Samplore.jucer", r.Before, r.After)
	require.NoError(t, err)
	assert.Contains(t, diff, `-        <MODULEPATH id="juce_core" path="../../JUCE/modules"/>`)
	assert.Contains(t, diff, `+        <MODULEPATH id="juce_core" path="/opt/JUCE/modules"/>`)

	broken := []byte(`<JUCERPROJECT><EXPORTFORMATS>`)
	require.NoError(t, os.WriteFile(file, broken, 0o644))
	_, err = PatchFile(file, "/opt/JUCE", PatchOptions{})
	assert.ErrorIs(t, err, ErrMalformed)
	onDisk, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, broken, onDisk, "no partial write")
}

func TestNormalizeModulesPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	home = filepath.ToSlash(home)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		in, want string
	}{
		{"/opt/JUCE", "/opt/JUCE/modules"},
		{"/opt/JUCE/", "/opt/JUCE/modules"},
		{"/opt/JUCE/modules", "/opt/JUCE/modules"},
		{`C:\JUCE`, "C:/JUCE/modules"},
		{"C:/JUCE/modules", "C:/JUCE/modules"},
		{"~/JUCE", home + "/JUCE/modules"},
		{"JUCE", filepath.ToSlash(filepath.Join(cwd, "JUCE")) + "/modules"},
	}
	for _, tt := range tests {
		got, err := NormalizeModulesPath(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err = NormalizeModulesPath("  ")
	assert.Error(t, err)
}

func TestReaders(t *testing.T) {
	data := fixture(t)

	mods, err := Modules(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"juce_core", "juce_gui_basics"}, mods)

	opts, err := Options(data)
	require.NoError(t, err)
	assert.Equal(t, []Option{
		{"JUCE_STRICT_REFCOUNTEDPOINTER", "1"},
		{"JUCE_USE_CURL", "0"},
		{"JUCE_WEB_BROWSER", "0"},
	}, opts)

	info, err := ProjectInfo(data)
	require.NoError(t, err)
	assert.Equal(t, Info{Name: "Samplore", Version: "0.9.4", ProjectType: "guiapp"}, info)
	assert.True(t, info.IsGUIApp())

	_, err = Modules([]byte("<nope"))
	assert.ErrorIs(t, err, ErrMalformed)
}
