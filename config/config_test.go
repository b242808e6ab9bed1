package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/vm"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, vm.DefaultMaxFrames, c.VM.MaxFrames)
	level, err := c.LogLevel()
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, level)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[heap]
stress = true

[vm]
max-frames = 64

[paths]
search = ["lib", "/opt/kestrel"]

[log]
level = "DEBUG"
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.True(t, c.Heap.Stress)
	require.Equal(t, 2, c.Heap.GrowFactor)
	require.Equal(t, 64, c.VM.MaxFrames)
	require.Equal(t, vm.DefaultMaxTrySnapshots, c.VM.MaxTrySnapshots)
	level, err := c.LogLevel()
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, level)

	t.Setenv(PathEnv, "")
	dirs, err := c.SearchPath()
	require.NoError(t, err)
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(abs, "lib"), "/opt/kestrel"}, dirs)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(writeConfig(t, dir, "[vm\n"))
	require.ErrorContains(t, err, "parse error")

	_, err = Load(writeConfig(t, dir, "[log]\nlevel = \"loud\"\n"))
	require.ErrorContains(t, err, "invalid log level")

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.ErrorContains(t, err, "cannot read")
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[vm]\nmax-frames = 32\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	require.Equal(t, 32, c.VM.MaxFrames)
}

func TestSearchPathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "/x"+string(filepath.ListSeparator)+"/y")
	dirs, err := Default().SearchPath()
	require.NoError(t, err)
	require.Equal(t, []string{"/x", "/y"}, dirs)
}

func TestOptions(t *testing.T) {
	c := Default()
	require.Len(t, c.HeapOptions(zerolog.Nop()), 4)
	opts, err := c.VMOptions()
	require.NoError(t, err)
	require.Len(t, opts, 4)
}
