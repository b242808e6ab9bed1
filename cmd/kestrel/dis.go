package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/dis"
	"github.com/kestrel-lang/kestrel/object"
)

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble kestrel bytecode",
		Args:  cobra.MaximumNArgs(1),
		RunE:  disHandler,
	}
	cmd.Flags().String("func", "", "Disassemble only the named function")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	var file string
	if len(args) > 0 {
		file = args[0]
	}
	code, ok, err := getCode(cmd, file, os.Stdin)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no input provided")
	}
	var opts []compiler.Option
	if file != "" {
		opts = append(opts, compiler.WithFilename(file))
	}
	thunk, err := compiler.Compile(object.NewHeap(), code, opts...)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("func")
	if name == "" {
		return dis.PrintAll(thunk, cmd.OutOrStdout())
	}
	target := findThunk(thunk, name)
	if target == nil {
		return fmt.Errorf("function %q not found", name)
	}
	instructions, err := dis.Disassemble(target)
	if err != nil {
		return err
	}
	dis.Print(instructions, cmd.OutOrStdout())
	return nil
}

// findThunk searches the functions nested in thunk for one called name.
func findThunk(thunk *object.Thunk, name string) *object.Thunk {
	for _, c := range thunk.Constants {
		nested, ok := object.As[*object.Thunk](c)
		if !ok {
			continue
		}
		if nested.Name != nil && nested.Name.String() == name {
			return nested
		}
		if found := findThunk(nested, name); found != nil {
			return found
		}
	}
	return nil
}
