package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrel-lang/kestrel"
)

func runHandler(cmd *cobra.Command, args []string) error {
	positional := args
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		positional = args[:n]
	}
	if len(positional) > 1 {
		return errors.New("expected at most one script file")
	}
	var file string
	if len(positional) == 1 {
		file = positional[0]
	}

	if profilePath := viper.GetString("cpu-profile"); profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
		handleSigForProfiler()
	}

	opts, err := getOptions(file, scriptArgs(cmd, args))
	if err != nil {
		return err
	}
	code, ok, err := getCode(cmd, file, os.Stdin)
	if err != nil {
		return err
	}
	if !ok {
		if viper.GetBool("no-repl") || !isTerminalIO() {
			return errors.New("no input provided")
		}
		return runRepl(contextOf(cmd), opts)
	}

	machine, err := kestrel.NewVM(opts...)
	if err != nil {
		return err
	}
	defer machine.Close()
	stop := forwardInterrupts(machine)
	defer stop()

	start := time.Now()
	result, err := machine.Eval(contextOf(cmd), code)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	output, err := getOutput(result, viper.GetString("output"))
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), output)
	}
	if viper.GetBool("timing") {
		fmt.Fprintln(cmd.ErrOrStderr(), elapsed)
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// forwardInterrupts turns SIGINT into a catchable "Interrupted" error in
// the running script. A second SIGINT while the first is pending exits.
func forwardInterrupts(machine *kestrel.VM) (stop func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	done := make(chan struct{})
	go func() {
		last := time.Time{}
		for {
			select {
			case <-c:
				if time.Since(last) < time.Second {
					os.Exit(130)
				}
				last = time.Now()
				machine.Signal()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(c)
		close(done)
	}
}
