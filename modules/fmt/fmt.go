// Package fmt provides the fmt module: printf-style formatting with Go's
// verbs.
package fmt

import (
	"fmt"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// operand converts v for use with a Go verb. Values without a Go form are
// passed as their repr.
func operand(rt object.Runtime, v object.Value) (any, error) {
	if goValue, err := vm.ToGo(v); err == nil {
		if f, ok := goValue.(float64); ok && f == float64(int64(f)) {
			return int64(f), nil
		}
		return goValue, nil
	}
	return rt.Repr(v)
}

func format(rt object.Runtime, args []object.Value) (string, error) {
	operands := make([]any, len(args)-1)
	for i, arg := range args[1:] {
		v, err := operand(rt, arg)
		if err != nil {
			return "", err
		}
		operands[i] = v
	}
	return fmt.Sprintf(args[0].AsString().String(), operands...), nil
}

// Sprintf formats its operands. Integral numbers format as integers so
// %d works, and %v prints lists and dicts in Go's notation.
var Sprintf = &object.CFunction{Name: "sprintf", Arity: 1, MaxArity: object.Variadic,
	ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		s, err := format(rt, args)
		if err != nil {
			return object.Nil(), err
		}
		return rt.Heap().Str(s), nil
	}}

var Printf = &object.CFunction{Name: "printf", Arity: 1, MaxArity: object.Variadic,
	ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		s, err := format(rt, args)
		if err != nil {
			return object.Nil(), err
		}
		if _, err := fmt.Fprint(rt.Stdout(), s); err != nil {
			return object.Nil(), object.RuntimeErrorf("fmt.printf: %s", err)
		}
		return object.Nil(), nil
	}}

// Module populates the fmt module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Sprintf, Printf)
	return nil
}
