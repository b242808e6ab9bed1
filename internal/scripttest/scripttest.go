// Package scripttest runs kestrel snippets from Go tests.
package scripttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/builtins"
	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// Module registers a native module under name for a single run.
func Module(name string, init vm.NativeModule) vm.Option {
	return vm.WithNativeModules(map[string]vm.NativeModule{name: init})
}

// Run compiles and runs src on a fresh heap and VM with the global
// builtins installed.
func Run(t *testing.T, src string, opts ...vm.Option) (object.Value, error) {
	t.Helper()
	opts = append([]vm.Option{vm.WithBuiltins(builtins.Builtins()...)}, opts...)
	machine := vm.New(object.NewHeap(), opts...)
	t.Cleanup(machine.Close)
	thunk, err := compiler.Compile(machine.Heap(), src, compiler.WithFilename("test.ks"))
	require.NoError(t, err)
	return machine.Run(context.Background(), thunk)
}

// Eval runs src and converts its result with vm.ToGo.
func Eval(t *testing.T, src string, opts ...vm.Option) any {
	t.Helper()
	result, err := Run(t, src, opts...)
	require.NoError(t, err)
	v, err := vm.ToGo(result)
	require.NoError(t, err)
	return v
}

// Error runs src and returns the error it fails with.
func Error(t *testing.T, src string, opts ...vm.Option) error {
	t.Helper()
	_, err := Run(t, src, opts...)
	require.Error(t, err)
	return err
}
