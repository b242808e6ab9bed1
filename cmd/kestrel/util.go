package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/vm"
)

func fatal(err error) {
	var exit *vm.ExitError
	if errors.As(err, &exit) {
		os.Exit(exit.Code)
	}
	msg := err.Error()
	var structured *errz.StructuredError
	if errors.As(err, &structured) {
		msg = structured.FriendlyErrorMessage()
	}
	fmt.Fprintln(os.Stderr, red(msg))
	os.Exit(1)
}

func isTerminalIO() bool {
	stdin := os.Stdin.Fd()
	stdout := os.Stdout.Fd()
	inTerm := isatty.IsTerminal(stdin) || isatty.IsCygwinTerminal(stdin)
	outTerm := isatty.IsTerminal(stdout) || isatty.IsCygwinTerminal(stdout)
	return inTerm && outTerm
}

// scriptArgs returns the arguments after "--", which belong to the script
// rather than the CLI.
func scriptArgs(cmd *cobra.Command, args []string) []string {
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		return args[n:]
	}
	return nil
}

var errMultipleSources = errors.New("multiple input sources specified")

// getCode returns the code to run from --code, --stdin or the file named
// by path. ok is false when no source was given.
func getCode(cmd *cobra.Command, path string, stdin io.Reader) (code string, ok bool, err error) {
	codeSet := cmd.Flags().Changed("code")
	stdinSet := viper.GetBool("stdin")
	count := 0
	for _, set := range []bool{codeSet, stdinSet, path != ""} {
		if set {
			count++
		}
	}
	switch {
	case count > 1:
		return "", false, errMultipleSources
	case count == 0:
		return "", false, nil
	case stdinSet:
		data, err := io.ReadAll(stdin)
		return string(data), err == nil, err
	case path != "":
		data, err := os.ReadFile(path)
		return string(data), err == nil, err
	}
	code, err = cmd.Flags().GetString("code")
	return code, err == nil, err
}

func handleSigForProfiler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		pprof.StopCPUProfile()
		os.Exit(1)
	}()
}

// processGlobalFlags applies flags that affect every command.
func processGlobalFlags() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}
