// Package bcrypt provides the bcrypt module for password hashing.
package bcrypt

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/kestrel-lang/kestrel/object"
)

func bytesOf(v object.Value) []byte {
	if v.IsString() {
		return []byte(v.AsString().String())
	}
	b, _ := object.As[*object.Buffer](v)
	return b.Bytes
}

func checkSecret(name string, v object.Value) error {
	if !v.IsString() && !v.IsBuffer() {
		return object.TypeErrorf("bcrypt.%s expects a string or buffer but got %s", name, object.TypeName(v))
	}
	return nil
}

// Hash returns the bcrypt hash of a password, using the default cost
// unless one is given.
var Hash = &object.CFunction{Name: "hash", Arity: 1, MaxArity: 2, ArgTypes: []object.TypePattern{object.AnyArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		if err := checkSecret("hash", args[0]); err != nil {
			return object.Nil(), err
		}
		cost := bcrypt.DefaultCost
		if len(args) > 1 {
			cost = int(args[1].AsNumber())
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return object.Nil(), object.ValueErrorf("bcrypt.hash: cost must be between %d and %d, got %d",
				bcrypt.MinCost, bcrypt.MaxCost, cost)
		}
		hash, err := bcrypt.GenerateFromPassword(bytesOf(args[0]), cost)
		if err != nil {
			return object.Nil(), object.ValueErrorf("bcrypt.hash: %s", err)
		}
		return rt.Heap().Str(string(hash)), nil
	}}

// Compare reports whether password matches hash. Malformed hashes are an
// error.
var Compare = &object.CFunction{Name: "compare", Arity: 2, ArgTypes: []object.TypePattern{object.StringArg, object.AnyArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		if err := checkSecret("compare", args[1]); err != nil {
			return object.Nil(), err
		}
		err := bcrypt.CompareHashAndPassword([]byte(args[0].AsString().String()), bytesOf(args[1]))
		switch {
		case err == nil:
			return object.True(), nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return object.False(), nil
		}
		return object.Nil(), object.ValueErrorf("bcrypt.compare: %s", err)
	}}

// Module populates the bcrypt module.
func Module(rt object.Runtime, module *object.Instance) error {
	h := rt.Heap()
	h.BindNatives(&module.Fields, Hash, Compare)
	module.Fields.SetString(h.Intern("DEFAULT_COST"), object.Number(float64(bcrypt.DefaultCost)))
	return nil
}
