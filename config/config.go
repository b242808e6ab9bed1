// Package config handles kestrel.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// FileName is the name of the configuration file FindAndLoad looks for.
const FileName = "kestrel.toml"

// PathEnv lists extra module directories, separated like PATH.
const PathEnv = "KESTREL_PATH"

// Config is the runtime configuration.
type Config struct {
	Heap  Heap  `toml:"heap"`
	VM    VM    `toml:"vm"`
	Paths Paths `toml:"paths"`
	Log   Log   `toml:"log"`

	// Dir is the directory containing the configuration file, if any.
	Dir string `toml:"-"`
}

// Heap configures the garbage collector.
type Heap struct {
	InitialThreshold int  `toml:"initial-threshold"`
	GrowFactor       int  `toml:"grow-factor"`
	Stress           bool `toml:"stress"`
}

// VM configures execution limits.
type VM struct {
	MaxFrames            int `toml:"max-frames"`
	MaxTrySnapshots      int `toml:"max-try-snapshots"`
	ContextCheckInterval int `toml:"context-check-interval"`
}

// Paths configures module resolution.
type Paths struct {
	Search []string `toml:"search"`
}

// Log configures diagnostics.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Heap: Heap{
			InitialThreshold: 1 << 20,
			GrowFactor:       2,
		},
		VM: VM{
			MaxFrames:            vm.DefaultMaxFrames,
			MaxTrySnapshots:      vm.DefaultMaxTrySnapshots,
			ContextCheckInterval: vm.DefaultContextCheckInterval,
		},
		Log: Log{Level: "warn"},
	}
}

// Load parses a configuration file. Settings missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if _, err := c.LogLevel(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a kestrel.toml file, then
// loads it. Without a file it returns Default().
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (zerolog.Level, error) {
	if c.Log.Level == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return level, nil
}

// SearchPath returns the module search directories: the configured ones,
// resolved against Dir with ~ expanded, followed by the entries of
// KESTREL_PATH.
func (c *Config) SearchPath() ([]string, error) {
	var dirs []string
	for _, dir := range c.Paths.Search {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid search path %q: %w", dir, err)
		}
		if !filepath.IsAbs(expanded) && c.Dir != "" {
			expanded = filepath.Join(c.Dir, expanded)
		}
		dirs = append(dirs, expanded)
	}
	for _, dir := range filepath.SplitList(os.Getenv(PathEnv)) {
		if dir == "" {
			continue
		}
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", PathEnv, dir, err)
		}
		dirs = append(dirs, expanded)
	}
	return dirs, nil
}

// HeapOptions returns the heap settings as options for object.NewHeap.
func (c *Config) HeapOptions(logger zerolog.Logger) []object.HeapOption {
	return []object.HeapOption{
		object.WithLogger(logger),
		object.WithInitialThreshold(c.Heap.InitialThreshold),
		object.WithGrowFactor(c.Heap.GrowFactor),
		object.WithStress(c.Heap.Stress),
	}
}

// VMOptions returns the execution limits and search path as VM options.
func (c *Config) VMOptions() ([]vm.Option, error) {
	dirs, err := c.SearchPath()
	if err != nil {
		return nil, err
	}
	return []vm.Option{
		vm.WithMaxFrames(c.VM.MaxFrames),
		vm.WithMaxTrySnapshots(c.VM.MaxTrySnapshots),
		vm.WithContextCheckInterval(c.VM.ContextCheckInterval),
		vm.WithSearchPath(dirs...),
	}, nil
}
