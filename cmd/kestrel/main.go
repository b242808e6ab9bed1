package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var red = color.New(color.FgRed).SprintFunc()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kestrel [file] [-- args...]",
		Short: "Run kestrel scripts or start an interactive session",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			processGlobalFlags()
			return nil
		},
		RunE:          runHandler,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringP("code", "c", "", "Code to evaluate")
	pf.Bool("stdin", false, "Read code from stdin")
	pf.Bool("no-color", false, "Disable colored output")
	pf.Bool("no-default-modules", false, "Disable the default modules")
	pf.String("config", "", "Path to a kestrel.toml file")
	pf.StringSlice("path", nil, "Extra directories searched by import")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")

	f := root.Flags()
	f.StringP("output", "o", "", "Output format (json or text)")
	f.Bool("timing", false, "Show execution time")
	f.Bool("no-repl", false, "Disable the REPL")
	f.String("cpu-profile", "", "Capture a CPU profile")

	root.AddCommand(newVersionCmd(), newDisCmd(), newDocCmd(), newTestCmd())

	viper.SetEnvPrefix("kestrel")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(pf)
	viper.BindPFlags(f)
	return root
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output, _ := cmd.Flags().GetString("output"); output == "json" {
				s, err := getOutputJSON(map[string]any{"version": version, "commit": commit, "date": date})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output format (json or text)")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}
