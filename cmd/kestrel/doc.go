package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrel-lang/kestrel"
	"github.com/kestrel-lang/kestrel/builtins"
	"github.com/kestrel-lang/kestrel/internal/table"
)

func newDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doc [topic]",
		Aliases: []string{"d"},
		Short:   "Browse language documentation",
		Long: `Browse documentation for builtins, types and modules.

Topics are a category (builtins, types, modules, syntax), a builtin such
as "sorted", a type such as "Dict", a module such as "json" or a module
member such as "math.sqrt".`,
		Args: cobra.MaximumNArgs(1),
		RunE: docHandler,
	}
	cmd.Flags().StringP("output", "o", "", "Output format (json or text)")
	return cmd
}

var categories = map[string]bool{"builtins": true, "types": true, "modules": true, "syntax": true}

func docHandler(cmd *cobra.Command, args []string) error {
	var docs *kestrel.Documentation
	switch {
	case len(args) == 0:
		docs = kestrel.Docs()
	case categories[args[0]]:
		docs = kestrel.Docs(kestrel.DocsCategory(args[0]))
	default:
		docs = kestrel.Docs(kestrel.DocsTopic(args[0]))
	}
	out := cmd.OutOrStdout()
	if format, _ := cmd.Flags().GetString("output"); format == "json" {
		fmt.Fprintln(out, docs.JSON())
		return nil
	}
	if len(args) > 0 && args[0] == "builtins" {
		printBuiltins(out)
		return nil
	}
	if data, ok := docs.Data().(map[string]any); ok {
		if msg, ok := data["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
	}
	s, err := getOutputJSON(docs.Data())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, s)
	return nil
}

func printBuiltins(w io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	specs := append([]builtins.FuncSpec(nil), builtins.Docs()...)
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	rows := make([][]string, len(specs))
	for i, spec := range specs {
		rows[i] = []string{bold(spec.Name) + "(" + strings.Join(spec.Args, ", ") + ")", spec.Returns, spec.Doc}
	}
	table.NewTable(w).WithHeader([]string{"FUNCTION", "RETURNS", "DESCRIPTION"}).WithRows(rows).Render()
}
