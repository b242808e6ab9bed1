package os

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

func TestArgsAndEnv(t *testing.T) {
	t.Setenv("KESTREL_TEST_VALUE", "hello")
	with := scripttest.Module("os", New([]string{"main.ks", "-v"}))
	got := scripttest.Eval(t, `
import os
[os.args, os.getenv("KESTREL_TEST_VALUE"), os.getenv("KESTREL_MISSING"), os.getenv("KESTREL_MISSING", "d")]
`, with)
	require.Equal(t, []any{[]any{"main.ks", "-v"}, "hello", nil, "d"}, got)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	with := scripttest.Module("os", New(nil))
	src := `
import os
var path = os.join(DIR, "notes.txt")
os.writeFile(path, "line one")
os.writeFile(os.join(DIR, "data.bin"), Buffer([1, 2, 3]))
[os.exists(path), os.readFile(path), os.listDir(DIR), len(os.readBytes(os.join(DIR, "data.bin")))]
`
	got := scripttest.Eval(t, "var DIR = "+quote(dir)+"\n"+src, with)
	require.Equal(t, []any{true, "line one", []any{"data.bin", "notes.txt"}, 3.0}, got)

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	require.Equal(t, "line one", string(data))
}

func TestMissingFile(t *testing.T) {
	with := scripttest.Module("os", New(nil))
	err := scripttest.Error(t, "import os\nos.readFile('/no/such/file.txt')", with)
	require.Contains(t, err.Error(), "os.readFile")
}

func TestCwd(t *testing.T) {
	want, err := os.Getwd()
	require.NoError(t, err)
	with := scripttest.Module("os", New(nil))
	require.Equal(t, want, scripttest.Eval(t, "import os\nos.cwd()", with))
}

func quote(s string) string {
	return "\"" + filepath.ToSlash(s) + "\""
}
