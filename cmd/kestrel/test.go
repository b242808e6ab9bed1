package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kestrel-lang/kestrel/testing"
	"github.com/kestrel-lang/kestrel/vm"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [patterns...]",
		Short: "Run script tests",
		Long: `Run the test functions of *_test.ks files.

Patterns are files, directories, globs, or directories ending in "/..."
to search recursively. Every global function whose name starts with
"test" is called with a test context offering assertTrue, assertEqual,
assertNotEqual, assertNil, assertRaises, fail, skip and log.`,
		RunE: testHandler,
	}
	cmd.Flags().BoolP("verbose", "v", false, "Show logs of passing tests")
	cmd.Flags().String("run", "", "Run only tests matching this regexp")
	return cmd
}

func testHandler(cmd *cobra.Command, args []string) error {
	opts, err := getOptions("", nil)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	runPattern, _ := cmd.Flags().GetString("run")
	ctx, cancel := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer cancel()

	summary, err := testing.Run(ctx, &testing.Config{
		Patterns:   args,
		RunPattern: runPattern,
		Options:    opts,
	})
	if err != nil {
		return err
	}
	testing.NewOutput(cmd.OutOrStdout(), verbose).PrintResults(summary)
	if !summary.Success() {
		return &vm.ExitError{Code: 1}
	}
	return nil
}
