// Package math provides the math module.
package math

import (
	"math"

	"github.com/kestrel-lang/kestrel/object"
)

func unary(name string, fn func(float64) float64) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(fn(args[0].AsNumber())), nil
		}}
}

func binary(name string, fn func(a, b float64) float64) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 2, ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg},
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(fn(args[0].AsNumber(), args[1].AsNumber())), nil
		}}
}

func predicate(name string, fn func(float64) bool) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Bool(fn(args[0].AsNumber())), nil
		}}
}

// Log returns the natural logarithm of x, or the logarithm in base if one
// is given.
var Log = &object.CFunction{Name: "log", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		x := args[0].AsNumber()
		if x <= 0 {
			return object.Nil(), object.ValueErrorf("math.log() domain error: %s", object.FormatNumber(x))
		}
		if len(args) == 1 {
			return object.Number(math.Log(x)), nil
		}
		return object.Number(math.Log(x) / math.Log(args[1].AsNumber())), nil
	}}

// Sqrt fails for negative numbers instead of returning nan.
var Sqrt = &object.CFunction{Name: "sqrt", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		x := args[0].AsNumber()
		if x < 0 {
			return object.Nil(), object.ValueErrorf("math.sqrt() domain error: %s", object.FormatNumber(x))
		}
		return object.Number(math.Sqrt(x)), nil
	}}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func functions() []*object.CFunction {
	return []*object.CFunction{
		Sqrt, Log,
		unary("abs", math.Abs),
		unary("sign", sign),
		unary("floor", math.Floor),
		unary("ceil", math.Ceil),
		unary("trunc", math.Trunc),
		unary("sin", math.Sin),
		unary("cos", math.Cos),
		unary("tan", math.Tan),
		unary("asin", math.Asin),
		unary("acos", math.Acos),
		unary("atan", math.Atan),
		unary("exp", math.Exp),
		unary("log2", math.Log2),
		unary("log10", math.Log10),
		binary("atan2", math.Atan2),
		binary("pow", math.Pow),
		binary("hypot", math.Hypot),
		binary("mod", math.Mod),
		predicate("isinf", func(x float64) bool { return math.IsInf(x, 0) }),
		predicate("isnan", math.IsNaN),
	}
}

var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"inf": math.Inf(1),
	"nan": math.NaN(),
}

// Module populates the math module.
func Module(rt object.Runtime, module *object.Instance) error {
	h := rt.Heap()
	h.BindNatives(&module.Fields, functions()...)
	for name, value := range constants {
		module.Fields.SetString(h.Intern(name), object.Number(value))
	}
	return nil
}
