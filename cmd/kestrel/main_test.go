package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel"
	"github.com/kestrel-lang/kestrel/vm"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCode(t *testing.T) {
	out, err := execute(t, "--no-repl", "-c", "[1, 2, 3]")
	require.NoError(t, err)
	require.JSONEq(t, "[1, 2, 3]", out)

	out, err = execute(t, "--no-repl", "-o", "text", "-c", "'hi'")
	require.NoError(t, err)
	require.Equal(t, "hi\n", out)
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ks")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.ks"), []byte("def twice(n):\n  return n * 2\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("import helper\nimport os\n[helper.twice(21), os.args]"), 0o644))
	out, err := execute(t, "--no-repl", path, "--", "a", "b")
	require.NoError(t, err)
	require.JSONEq(t, `[42, ["a", "b"]]`, out)
}

func TestRunErrors(t *testing.T) {
	_, err := execute(t, "--no-repl", "-c", "1 +")
	require.Error(t, err)

	_, err = execute(t, "--no-repl", "-c", "1", "file.ks")
	require.ErrorIs(t, err, errMultipleSources)

	_, err = execute(t, "--no-repl", "-c", "exit(3)")
	var exit *vm.ExitError
	require.ErrorAs(t, err, &exit)
	require.Equal(t, 3, exit.Code)
}

func TestDis(t *testing.T) {
	out, err := execute(t, "dis", "-c", "def add(a, b):\n  return a + b\nadd(1, 2)")
	require.NoError(t, err)
	require.Contains(t, out, "__main__")
	require.Contains(t, out, "add (arity 2")

	out, err = execute(t, "dis", "--func", "add", "-c", "def add(a, b):\n  return a + b")
	require.NoError(t, err)
	require.Contains(t, out, "RETURN")
	require.NotContains(t, out, "__main__")

	_, err = execute(t, "dis", "--func", "nope", "-c", "1")
	require.EqualError(t, err, `function "nope" not found`)
}

func TestDoc(t *testing.T) {
	out, err := execute(t, "doc", "builtins")
	require.NoError(t, err)
	require.Contains(t, out, "sorted(items, key?)")

	out, err = execute(t, "doc", "-o", "json", "math.sqrt")
	require.NoError(t, err)
	require.Contains(t, out, `"function"`)

	_, err = execute(t, "doc", "nothing")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "dev\n", out)
}

func TestGetOutput(t *testing.T) {
	color.NoColor = true
	tests := []struct {
		result any
		format string
		want   string
	}{
		{nil, "", ""},
		{"text", "", "text"},
		{1.5, "", "1.5"},
		{map[string]any{"a": 1.0}, "", "{\n  \"a\": 1\n}"},
		{nil, "text", "nil"},
		{"s", "json", `"s"`},
	}
	for _, tt := range tests {
		got, err := getOutput(tt.result, tt.format)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
	_, err := getOutput(1, "xml")
	require.EqualError(t, err, "unknown output format: xml")
}

func newTestRepl(t *testing.T) (*repl, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	machine, err := kestrel.NewVM()
	require.NoError(t, err)
	t.Cleanup(machine.Close)
	var out bytes.Buffer
	return &repl{ctx: context.Background(), machine: machine, out: &out}, &out
}

func typeLine(t *testing.T, r *repl, line string) bool {
	t.Helper()
	for _, ch := range line {
		key := keys.Key{Code: keys.RuneKey, Runes: []rune{ch}}
		if ch == ' ' {
			key = keys.Key{Code: keys.Space, Runes: []rune{' '}}
		}
		stop, err := r.handleKey(key)
		require.NoError(t, err)
		require.False(t, stop)
	}
	stop, err := r.handleKey(keys.Key{Code: keys.Enter})
	require.NoError(t, err)
	return stop
}

func TestReplKeepsState(t *testing.T) {
	r, out := newTestRepl(t)
	typeLine(t, r, "var x = 40")
	typeLine(t, r, "x + 2")
	require.Contains(t, out.String(), "42\r\n")
	require.Equal(t, []string{"var x = 40", "x + 2"}, r.history)
}

func TestReplBlocks(t *testing.T) {
	r, out := newTestRepl(t)
	typeLine(t, r, "def sq(n):")
	require.Len(t, r.pending, 1)
	typeLine(t, r, "  return n * n")
	typeLine(t, r, "")
	require.Empty(t, r.pending)
	typeLine(t, r, "sq(9)")
	require.Contains(t, out.String(), continuePrompt)
	require.Contains(t, out.String(), "81\r\n")
}

func TestReplErrorsAndExit(t *testing.T) {
	r, out := newTestRepl(t)
	typeLine(t, r, "nope")
	require.Contains(t, out.String(), "nope")
	require.True(t, typeLine(t, r, "exit(2)"))
	var exit *vm.ExitError
	require.ErrorAs(t, r.exitErr, &exit)
	require.Equal(t, 2, exit.Code)
}

func TestReplKeys(t *testing.T) {
	r, _ := newTestRepl(t)
	typeLine(t, r, "1")
	for _, ch := range "ab" {
		_, err := r.handleKey(keys.Key{Code: keys.RuneKey, Runes: []rune{ch}})
		require.NoError(t, err)
	}
	_, err := r.handleKey(keys.Key{Code: keys.Backspace})
	require.NoError(t, err)
	require.Equal(t, "a", string(r.line))

	_, err = r.handleKey(keys.Key{Code: keys.Up})
	require.NoError(t, err)
	require.Equal(t, "1", string(r.line))
	_, err = r.handleKey(keys.Key{Code: keys.Down})
	require.NoError(t, err)
	require.Empty(t, r.line)

	stop, err := r.handleKey(keys.Key{Code: keys.CtrlC})
	require.NoError(t, err)
	require.True(t, stop)
}

func TestFindThunkIsRecursive(t *testing.T) {
	out, err := execute(t, "dis", "--func", "inner", "-c", "def outer():\n  def inner():\n    return 1\n  return inner")
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "RETURN"))
}

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok_test.ks"),
		[]byte("def testOk(t):\n  t.log(\"hello\")\n  t.assertEqual(1 + 1, 2)\n"), 0o644))

	out, err := execute(t, "test", "-v", dir)
	require.NoError(t, err)
	require.Contains(t, out, "--- PASS: testOk")
	require.Contains(t, out, "hello")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_test.ks"),
		[]byte("def testBad(t):\n  t.fail(\"nope\")\n"), 0o644))
	out, err = execute(t, "test", "--run", "Bad", dir)
	var exit *vm.ExitError
	require.ErrorAs(t, err, &exit)
	require.Equal(t, 1, exit.Code)
	require.Contains(t, out, "nope")
	require.NotContains(t, out, "testOk")
}
