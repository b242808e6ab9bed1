// Package rand provides the rand module: pseudo-random numbers and
// sampling. It is not suitable for security-sensitive work.
package rand

import (
	"math"
	"math/rand"

	"github.com/kestrel-lang/kestrel/object"
)

func items(v object.Value) []object.Value {
	if l, ok := object.As[*object.List](v); ok {
		return l.Items
	}
	f, _ := object.As[*object.FrozenList](v)
	return f.Items
}

func integer(name string, v object.Value) (int64, error) {
	f := v.AsNumber()
	if f != math.Trunc(f) {
		return 0, object.ValueErrorf("rand.%s: expected an integer but got %s", name, object.FormatNumber(f))
	}
	return int64(f), nil
}

var Random = object.NewCFunction("random", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	return object.Number(rand.Float64()), nil
})

// Randint returns an integer in [a, b], both ends included.
var Randint = &object.CFunction{Name: "randint", Arity: 2, ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		a, err := integer("randint", args[0])
		if err != nil {
			return object.Nil(), err
		}
		b, err := integer("randint", args[1])
		if err != nil {
			return object.Nil(), err
		}
		if b < a {
			return object.Nil(), object.ValueErrorf("rand.randint: b must be >= a, got a=%d b=%d", a, b)
		}
		return object.Number(float64(a + rand.Int63n(b-a+1))), nil
	}}

var Uniform = &object.CFunction{Name: "uniform", Arity: 2, ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		a, b := args[0].AsNumber(), args[1].AsNumber()
		return object.Number(a + rand.Float64()*(b-a)), nil
	}}

// Normal samples a normal distribution, standard unless mu and sigma are
// given.
var Normal = &object.CFunction{Name: "normal", Arity: 0, MaxArity: 2, ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		mu, sigma := 0.0, 1.0
		if len(args) == 1 {
			return object.Nil(), object.TypeErrorf("rand.normal expects 0 or 2 arguments but got 1")
		}
		if len(args) == 2 {
			mu, sigma = args[0].AsNumber(), args[1].AsNumber()
		}
		if sigma < 0 {
			return object.Nil(), object.ValueErrorf("rand.normal: sigma must be non-negative, got %s", object.FormatNumber(sigma))
		}
		return object.Number(mu + rand.NormFloat64()*sigma), nil
	}}

var Choice = &object.CFunction{Name: "choice", Arity: 1, ArgTypes: []object.TypePattern{object.ListOrFrozenListArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		values := items(args[0])
		if len(values) == 0 {
			return object.Nil(), object.ValueErrorf("rand.choice: cannot choose from an empty list")
		}
		return values[rand.Intn(len(values))], nil
	}}

// Sample returns k distinct items of a list in random order.
var Sample = &object.CFunction{Name: "sample", Arity: 2, ArgTypes: []object.TypePattern{object.ListOrFrozenListArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		values := items(args[0])
		k, err := integer("sample", args[1])
		if err != nil {
			return object.Nil(), err
		}
		if k < 0 || int(k) > len(values) {
			return object.Nil(), object.ValueErrorf("rand.sample: k must be between 0 and %d, got %d", len(values), k)
		}
		out := make([]object.Value, k)
		for i, j := range rand.Perm(len(values))[:k] {
			out[i] = values[j]
		}
		return object.ObjValue(rt.Heap().NewList(out)), nil
	}}

// Shuffle reorders a list in place and returns it.
var Shuffle = &object.CFunction{Name: "shuffle", Arity: 1, ArgTypes: []object.TypePattern{object.ListArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		l, _ := object.As[*object.List](args[0])
		rand.Shuffle(len(l.Items), func(i, j int) {
			l.Items[i], l.Items[j] = l.Items[j], l.Items[i]
		})
		return args[0], nil
	}}

var Bytes = &object.CFunction{Name: "bytes", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		n, err := integer("bytes", args[0])
		if err != nil {
			return object.Nil(), err
		}
		if n < 0 || n > 1<<24 {
			return object.Nil(), object.ValueErrorf("rand.bytes: n out of range, got %d", n)
		}
		data := make([]byte, n)
		rand.Read(data)
		return object.ObjValue(rt.Heap().NewBuffer(data)), nil
	}}

// Module populates the rand module.
func Module(rt object.Runtime, module *object.Instance) error {
	rt.Heap().BindNatives(&module.Fields, Random, Randint, Uniform, Normal, Choice, Sample, Shuffle, Bytes)
	return nil
}
