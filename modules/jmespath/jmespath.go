// Package jmespath provides the jmespath module for querying nested lists
// and dicts with JMESPath expressions.
package jmespath

import (
	"github.com/jmespath/go-jmespath"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// Search evaluates expr against data. Dict keys are matched as text.
func Search(h *object.Heap, expr string, data object.Value) (object.Value, error) {
	input, err := vm.ToGo(data)
	if err != nil {
		return object.Nil(), err
	}
	if b, ok := input.([]byte); ok {
		input = string(b)
	}
	result, err := jmespath.Search(expr, input)
	if err != nil {
		return object.Nil(), object.ValueErrorf("jmespath.search: %s", err)
	}
	return vm.FromGo(h, result)
}

var searchFn = &object.CFunction{Name: "search", Arity: 2, ArgTypes: []object.TypePattern{object.AnyArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return Search(rt.Heap(), args[1].AsString().String(), args[0])
	}}

var compileFn = &object.CFunction{Name: "compile", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		expr := args[0].AsString().String()
		q, err := jmespath.Compile(expr)
		if err != nil {
			return object.Nil(), object.ValueErrorf("jmespath.compile: %s", err)
		}
		return object.ObjValue(rt.Heap().NewNative(&Query{expr: expr, q: q})), nil
	}}

// Query is a compiled expression that can be applied to many values.
type Query struct {
	expr string
	q    *jmespath.JMESPath
}

func (q *Query) Descriptor() *object.NativeDescriptor { return queryDescriptor }
func (q *Query) Trace(h *object.Heap)                 {}

var queryDescriptor = &object.NativeDescriptor{
	Name: "Query",
	Methods: []*object.CFunction{
		object.NewCFunction("search", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			n, _ := object.As[*object.Native](recv)
			q := n.Value.(*Query)
			input, err := vm.ToGo(args[0])
			if err != nil {
				return object.Nil(), err
			}
			result, err := q.q.Search(input)
			if err != nil {
				return object.Nil(), object.ValueErrorf("jmespath.search: %s", err)
			}
			return vm.FromGo(rt.Heap(), result)
		}),
		object.NewCFunction("__repr__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			n, _ := object.As[*object.Native](recv)
			return rt.Heap().Str("Query(" + n.Value.(*Query).expr + ")"), nil
		}),
	},
}

// Module populates the jmespath module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, searchFn, compileFn)
	return nil
}
