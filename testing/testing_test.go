package testing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	stdt "testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel"
)

func writeFile(t *stdt.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestStatusString(t *stdt.T) {
	require.Equal(t, "PASS", StatusPassed.String())
	require.Equal(t, "FAIL", StatusFailed.String())
	require.Equal(t, "SKIP", StatusSkipped.String())
	require.Equal(t, "ERROR", StatusError.String())
}

func TestDiscoverTestFiles(t *stdt.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a_test.ks", "")
	writeFile(t, dir, "helper.ks", "")
	nested := writeFile(t, dir, "sub/b_test.ks", "")

	files, err := DiscoverTestFiles([]string{dir})
	require.NoError(t, err)
	require.Equal(t, []string{a}, files)

	files, err = DiscoverTestFiles([]string{dir + "/...", a})
	require.NoError(t, err)
	require.Equal(t, []string{a, nested}, files)

	files, err = DiscoverTestFiles([]string{filepath.Join(dir, "*.ks")})
	require.NoError(t, err)
	require.Equal(t, []string{a}, files)

	_, err = DiscoverTestFiles([]string{filepath.Join(dir, "missing")})
	require.ErrorContains(t, err, "path not found")
}

const sample = `
import helper

def testAdd(t):
  t.assertEqual(helper.add(1, 2), 3)
  t.log("added")

def testWrong(t):
  t.assertEqual(helper.add(1, 1), 3, "bad sum")
  t.assertTrue(false)
  t.assertNil(1)
  t.assertNotEqual(1, 1)

def testSkip(t):
  t.skip("not today")

def testRaises(t):
  def boom():
    raise "boom"
  var msg = t.assertRaises(boom)
  t.assertTrue(msg != nil)
  t.assertRaises(def(): 1)

def testCrash(t):
  return 1 + nil

def notATest(t):
  t.fail()

var testValue = 1
`

func TestRunFile(t *stdt.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.ks", "def add(a, b):\n  return a + b\n")
	path := writeFile(t, dir, "math_test.ks", sample)

	result := RunFile(context.Background(), path, nil)
	require.NoError(t, result.LoadErr)
	require.Len(t, result.Tests, 5)

	byName := map[string]*TestResult{}
	for _, test := range result.Tests {
		byName[test.Name] = test
	}
	require.Equal(t, "testAdd", result.Tests[0].Name)

	add := byName["testAdd"]
	require.Equal(t, StatusPassed, add.Status)
	require.Equal(t, []string{"added"}, add.Logs)

	wrong := byName["testWrong"]
	require.Equal(t, StatusFailed, wrong.Status)
	require.Len(t, wrong.Failures, 4)
	require.Equal(t, AssertionError{Message: "bad sum", File: path, Got: "2", Want: "3"}, wrong.Failures[0])
	require.Equal(t, "assertion failed", wrong.Failures[1].Message)
	require.Equal(t, "nil", wrong.Failures[2].Want)
	require.Equal(t, "values are equal", wrong.Failures[3].Message)

	skip := byName["testSkip"]
	require.Equal(t, StatusSkipped, skip.Status)
	require.Equal(t, "not today", skip.SkipReason)

	raises := byName["testRaises"]
	require.Equal(t, StatusFailed, raises.Status)
	require.Len(t, raises.Failures, 1)
	require.Equal(t, "expected an error", raises.Failures[0].Message)

	crash := byName["testCrash"]
	require.Equal(t, StatusError, crash.Status)
	require.Error(t, crash.Error)
}

func TestRunFileFilterAndLoadErrors(t *stdt.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f_test.ks", "def testOne(t):\n  pass\n\ndef testTwo(t):\n  pass\n")
	result := RunFile(context.Background(), path, regexp.MustCompile("Two$"))
	require.Len(t, result.Tests, 1)
	require.Equal(t, "testTwo", result.Tests[0].Name)

	bad := writeFile(t, dir, "bad_test.ks", "def testOne(t:\n")
	result = RunFile(context.Background(), bad, nil)
	require.Error(t, result.LoadErr)
	require.Empty(t, result.Tests)
}

func TestRunSummary(t *stdt.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok_test.ks", "def testOk(t):\n  t.assertTrue(true)\n")
	writeFile(t, dir, "env_test.ks", "def testGlobal(t):\n  t.assertEqual(limit, 10)\n")

	summary, err := Run(context.Background(), &Config{
		Patterns: []string{dir},
		Options:  []kestrel.Option{kestrel.WithGlobal("limit", 10)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Passed)
	require.True(t, summary.Success())

	_, err = Run(context.Background(), &Config{Patterns: []string{dir}, RunPattern: "("})
	require.ErrorContains(t, err, "invalid run pattern")
}

func TestOutput(t *stdt.T) {
	color.NoColor = true
	summary := &Summary{Files: []*FileResult{{
		Filename: "x_test.ks",
		Tests: []*TestResult{
			{Name: "testA", Status: StatusPassed, Logs: []string{"quiet"}},
			{Name: "testB", Status: StatusFailed, Logs: []string{"loud"},
				Failures: []AssertionError{{Message: "bad", File: "x_test.ks", Got: "1", Want: "2"}}},
			{Name: "testC", Status: StatusSkipped, SkipReason: "later"},
		},
	}}}
	summary.ComputeTotals()

	var buf bytes.Buffer
	NewOutput(&buf, false).PrintResults(summary)
	out := buf.String()
	require.Contains(t, out, "=== RUN   testA\n--- PASS: testA (0.000s)")
	require.Contains(t, out, "--- FAIL: testB")
	require.Contains(t, out, "    x_test.ks: bad\n        got:  1\n        want: 2\n")
	require.Contains(t, out, "    loud\n")
	require.NotContains(t, out, "quiet")
	require.Contains(t, out, "--- SKIP: testC (0.000s)\n    later\n")
	require.Contains(t, out, "\nFAIL\n1 passed, 1 failed, 1 skipped")

	buf.Reset()
	NewOutput(&buf, true).PrintResults(summary)
	require.Contains(t, buf.String(), "quiet")
}
