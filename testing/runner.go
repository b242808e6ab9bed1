// Package testing runs script tests. A test file is named *_test.ks and
// every global function whose name starts with "test" is a test. Each test
// runs in a fresh VM and receives a TestContext as its only argument.
package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kestrel-lang/kestrel"
	"github.com/kestrel-lang/kestrel/object"
)

// FileSuffix marks a test file.
const FileSuffix = "_test.ks"

// TestPrefix marks a test function.
const TestPrefix = "test"

// Config holds configuration for a test run.
type Config struct {
	// Patterns lists files, directories, globs, or directories ending in
	// "/..." to search recursively. The default is the current directory.
	Patterns []string

	// RunPattern keeps only tests whose name matches this regexp.
	RunPattern string

	// Options are applied to every VM the run creates.
	Options []kestrel.Option
}

// DiscoverTestFiles returns the test files named by patterns, in order and
// without duplicates.
func DiscoverTestFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	var files []string
	seen := map[string]bool{}
	add := func(path string) {
		if isTestFile(path) && !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	for _, pattern := range patterns {
		if strings.ContainsAny(pattern, "*?[") {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		dir, recursive := strings.CutSuffix(pattern, "...")
		if recursive {
			if dir = strings.TrimSuffix(dir, "/"); dir == "" {
				dir = "."
			}
		}
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("path not found: %s", dir)
			}
			return nil, err
		}
		switch {
		case !info.IsDir():
			add(dir)
		case recursive:
			err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		default:
			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() {
					add(filepath.Join(dir, e.Name()))
				}
			}
		}
	}
	return files, nil
}

func isTestFile(path string) bool {
	return strings.HasSuffix(path, FileSuffix)
}

// Run discovers and runs tests according to cfg.
func Run(ctx context.Context, cfg *Config) (*Summary, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	files, err := DiscoverTestFiles(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	var runRe *regexp.Regexp
	if cfg.RunPattern != "" {
		if runRe, err = regexp.Compile(cfg.RunPattern); err != nil {
			return nil, fmt.Errorf("invalid run pattern: %w", err)
		}
	}
	summary := &Summary{}
	start := time.Now()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.Files = append(summary.Files, RunFile(ctx, file, runRe, cfg.Options...))
	}
	summary.Duration = time.Since(start)
	summary.ComputeTotals()
	return summary, nil
}

// RunFile runs the tests of one file. A nil runRe runs every test.
func RunFile(ctx context.Context, filename string, runRe *regexp.Regexp, opts ...kestrel.Option) *FileResult {
	result := &FileResult{Filename: filename}
	data, err := os.ReadFile(filename)
	if err != nil {
		result.LoadErr = err
		return result
	}
	source := string(data)
	opts = append(opts, kestrel.WithFilename(filename), kestrel.WithMainDir(filepath.Dir(filename)))

	// A first load finds the tests and reports compile errors once.
	v, err := load(ctx, source, opts)
	if err != nil {
		result.LoadErr = err
		return result
	}
	names := testNames(v)
	v.Close()

	for _, name := range names {
		if runRe != nil && !runRe.MatchString(name) {
			continue
		}
		result.Tests = append(result.Tests, runTest(ctx, source, opts, filename, name))
	}
	return result
}

func load(ctx context.Context, source string, opts []kestrel.Option) (*kestrel.VM, error) {
	v, err := kestrel.NewVM(opts...)
	if err != nil {
		return nil, err
	}
	if _, err := v.Eval(ctx, source); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// testNames returns the test functions a loaded file defines, in
// definition order.
func testNames(v *kestrel.VM) []string {
	var names []string
	machine := v.Machine()
	for _, name := range v.GlobalNames() {
		if !strings.HasPrefix(name, TestPrefix) {
			continue
		}
		if fn, err := machine.Get(name); err == nil && fn.IsClosure() {
			names = append(names, name)
		}
	}
	return names
}

// held keeps the test context reachable while the test runs.
type held []object.Value

func (h held) MarkRoots(heap *object.Heap) {
	heap.MarkValues(h)
}

func runTest(ctx context.Context, source string, opts []kestrel.Option, filename, name string) *TestResult {
	result := &TestResult{Name: name}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	v, err := load(ctx, source, opts)
	if err != nil {
		result.Status, result.Error = StatusError, err
		return result
	}
	defer v.Close()
	machine := v.Machine()
	fn, err := machine.Get(name)
	if err != nil {
		result.Status, result.Error = StatusError, err
		return result
	}

	tc := NewTestContext(name, filename)
	h := machine.Heap()
	resume := h.Pause()
	arg := object.ObjValue(h.NewNative(tc))
	unpin := h.AddRoots(held{arg})
	resume()
	_, err = machine.Call(ctx, fn, arg)
	unpin()

	result.Logs = tc.Logs()
	result.Failures = tc.Failures()
	switch {
	case err != nil:
		result.Status, result.Error = StatusError, err
	case tc.Skipped():
		result.Status, result.SkipReason = StatusSkipped, tc.SkipReason()
	case tc.Failed():
		result.Status = StatusFailed
	default:
		result.Status = StatusPassed
	}
	return result
}
