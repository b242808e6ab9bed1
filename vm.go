package kestrel

import (
	"context"
	"fmt"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// VM runs code incrementally. Globals defined by one Eval stay visible to
// the next, so a VM suits REPLs and hosts that call into scripts. A VM must
// not be used from more than one goroutine at a time, except for Signal.
type VM struct {
	machine *vm.VirtualMachine
	opts    *options
}

// pinned keeps values reachable while Go code holds them.
type pinned []object.Value

func (p pinned) MarkRoots(h *object.Heap) {
	h.MarkValues(p)
}

// NewVM creates a VM with its own heap.
func NewVM(opts ...Option) (v *VM, err error) {
	o := collectOptions(opts...)
	vmOpts, err := o.vmOpts()
	if err != nil {
		return nil, err
	}
	defer func() {
		// vm.New panics on globals that cannot be converted.
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%v", r)
		}
	}()
	machine := vm.New(object.NewHeap(o.heapOpts()...), vmOpts...)
	return &VM{machine: machine, opts: o}, nil
}

// Close releases the VM's hold on its heap.
func (v *VM) Close() {
	v.machine.Close()
}

// Eval compiles and runs source in this VM and returns the value of its
// final expression statement converted to Go data. Values with no Go form,
// such as functions and instances, are returned as their repr.
func (v *VM) Eval(ctx context.Context, source string) (any, error) {
	thunk, err := compiler.Compile(v.machine.Heap(), source, v.opts.compilerOpts()...)
	if err != nil {
		return nil, err
	}
	result, err := v.machine.Continue(ctx, thunk)
	if err != nil {
		return nil, err
	}
	return v.export(ctx, result)
}

// Call calls the global function called name with Go arguments.
func (v *VM) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, err := v.machine.Get(name)
	if err != nil {
		return nil, err
	}
	if !object.CallableArg.Matches(fn) {
		return nil, fmt.Errorf("%s is not callable (got %s)", name, object.TypeName(fn))
	}
	h := v.machine.Heap()
	resume := h.Pause()
	values := make(pinned, len(args))
	for i, arg := range args {
		if values[i], err = vm.FromGo(h, arg); err != nil {
			resume()
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	unpin := h.AddRoots(values)
	resume()
	result, err := v.machine.Call(ctx, fn, values...)
	unpin()
	if err != nil {
		return nil, err
	}
	return v.export(ctx, result)
}

// Get returns a global converted to Go data.
func (v *VM) Get(name string) (any, error) {
	value, err := v.machine.Get(name)
	if err != nil {
		return nil, err
	}
	return v.export(context.Background(), value)
}

// GlobalNames returns the names defined by code run so far.
func (v *VM) GlobalNames() []string {
	return v.machine.GlobalNames()
}

// Signal interrupts the code currently running. The script sees a
// catchable "Interrupted" error.
func (v *VM) Signal() {
	v.machine.Signal()
}

// Machine returns the underlying virtual machine.
func (v *VM) Machine() *vm.VirtualMachine {
	return v.machine
}

func (v *VM) export(ctx context.Context, value object.Value) (any, error) {
	if converted, err := vm.ToGo(value); err == nil {
		return converted, nil
	}
	unpin := v.machine.Heap().AddRoots(pinned{value})
	defer unpin()
	return v.machine.Repr(ctx, value)
}
