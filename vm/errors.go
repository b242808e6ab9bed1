package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
)

// RaisedError carries a value thrown by a raise expression or statement.
// A handler receives the value itself.
type RaisedError struct {
	Value   object.Value
	Message string
}

func (e *RaisedError) Error() string {
	return e.Message
}

// ExitError asks the host to end the program with Code. Scripts cannot
// catch it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// annotate turns err into a *errz.StructuredError located at the current
// instruction. Errors that already carry a location keep it. Context and
// halt errors pass through untouched.
func (vm *VirtualMachine) annotate(err error) error {
	if !catchable(err) {
		return err
	}
	var fatal *errz.FatalError
	if errors.As(err, &fatal) {
		return err
	}
	var se *errz.StructuredError
	if errors.As(err, &se) {
		if se.Location.IsZero() {
			se.Location = vm.getCurrentLocation()
		}
		se.WithStack(vm.captureStack())
		return se
	}
	var raised *RaisedError
	if errors.As(err, &raised) {
		return errz.NewStructuredError(errz.ErrRuntime, raised.Message,
			vm.getCurrentLocation(), vm.captureStack()).WithCause(raised)
	}
	return errz.NewStructuredError(errz.ErrRuntime, err.Error(),
		vm.getCurrentLocation(), vm.captureStack()).WithCause(err)
}

// Catchable reports whether a try handler may receive err. Exit requests,
// halts and context errors are never catchable.
func Catchable(err error) bool {
	return catchable(err)
}

func catchable(err error) bool {
	var exit *ExitError
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, errHalted) &&
		!errors.As(err, &exit)
}

// errorValue is the value an except clause binds for err: the raised value,
// or else the error message.
func (vm *VirtualMachine) errorValue(err error) object.Value {
	var raised *RaisedError
	if errors.As(err, &raised) {
		return raised.Value
	}
	var se *errz.StructuredError
	if errors.As(err, &se) {
		return vm.heap.Str(se.Message)
	}
	return vm.heap.Str(err.Error())
}

// keepRaised roots the value carried by err until a handler takes it.
func (vm *VirtualMachine) keepRaised(err error) {
	var raised *RaisedError
	if errors.As(err, &raised) {
		vm.inflight = raised.Value
	}
}

func (vm *VirtualMachine) raise(v object.Value) error {
	return &RaisedError{Value: v, Message: describe(v)}
}

// haltError reports why the dispatch loop stopped early.
func (vm *VirtualMachine) haltError() error {
	if err := vm.ctx.Err(); err != nil {
		return err
	}
	return errHalted
}

func (vm *VirtualMachine) undefined(name *object.String, module *object.Instance) error {
	var candidates []string
	collect := func(k, _ object.Value) bool {
		candidates = append(candidates, k.AsString().String())
		return true
	}
	module.Fields.Each(collect)
	vm.builtins.Each(collect)
	msg := "Undefined variable '" + name.String() + "'"
	if hint := errz.FormatSuggestions(errz.SuggestSimilar(name.String(), candidates)); hint != "" {
		msg += "; " + hint
	}
	return vm.runtimeError(errz.ErrName, "%s", msg)
}
