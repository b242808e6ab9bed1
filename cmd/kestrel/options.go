package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/kestrel-lang/kestrel"
	"github.com/kestrel-lang/kestrel/config"
)

// loadConfig reads the file named by --config, or the nearest kestrel.toml
// above dir.
func loadConfig(dir string) (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(dir)
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	if level := viper.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger(), nil
}

// getOptions builds the interpreter options for a script in file, which
// may be empty for code given inline.
func getOptions(file string, args []string) ([]kestrel.Option, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if file != "" {
		dir = filepath.Dir(file)
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	opts := []kestrel.Option{
		kestrel.WithConfig(cfg),
		kestrel.WithLogger(logger),
		kestrel.WithArgs(args),
		kestrel.WithMainDir(dir),
	}
	if file != "" {
		opts = append(opts, kestrel.WithFilename(file))
	}
	if paths := viper.GetStringSlice("path"); len(paths) > 0 {
		opts = append(opts, kestrel.WithSearchPath(paths...))
	}
	if viper.GetBool("no-default-modules") {
		opts = append(opts, kestrel.WithoutDefaultModules())
	}
	return opts, nil
}
