package filepath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withFilepath = scripttest.Module("filepath", Module)

func TestPaths(t *testing.T) {
	got := scripttest.Eval(t, `import filepath
[
  filepath.base("/a/b/c.txt"),
  filepath.dir("/a/b/c.txt"),
  filepath.ext("/a/b/c.txt"),
  filepath.clean("/a/./b/../c"),
  filepath.join("a", "b", "c"),
  filepath.isAbs("/a"),
  filepath.isAbs("a"),
  filepath.match("*.txt", "c.txt"),
  filepath.rel("/a", "/a/b/c"),
  filepath.split("/a/b/c.txt"),
]`, withFilepath)
	require.Equal(t, []any{
		"c.txt",
		"/a/b",
		".txt",
		"/a/c",
		filepath.Join("a", "b", "c"),
		true,
		false,
		true,
		filepath.Join("b", "c"),
		[]any{"/a/b/", "c.txt"},
	}, got)
}

func TestAbs(t *testing.T) {
	want, err := filepath.Abs("x")
	require.NoError(t, err)
	require.Equal(t, want, scripttest.Eval(t, "import filepath\nfilepath.abs('x')", withFilepath))
}

func TestBadPattern(t *testing.T) {
	err := scripttest.Error(t, "import filepath\nfilepath.match('[', 'x')", withFilepath)
	require.Contains(t, err.Error(), "filepath.match")
}
