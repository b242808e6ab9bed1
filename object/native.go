package object

import (
	"context"
	"fmt"
	"io"

	"github.com/kestrel-lang/kestrel/errz"
)

// Variadic is the MaxArity of a native function without an upper bound.
const Variadic = -1

// TypePattern constrains one argument of a native function.
type TypePattern uint8

const (
	AnyArg TypePattern = iota
	BoolArg
	NumberArg
	StringArg
	ListArg
	DictArg
	BufferArg
	ClassArg
	CallableArg
	ListOrFrozenListArg
)

func (p TypePattern) String() string {
	switch p {
	case BoolArg:
		return "bool"
	case NumberArg:
		return "number"
	case StringArg:
		return "string"
	case ListArg:
		return "list"
	case DictArg:
		return "dict"
	case BufferArg:
		return "buffer"
	case ClassArg:
		return "class"
	case CallableArg:
		return "function"
	case ListOrFrozenListArg:
		return "list or frozenlist"
	default:
		return "any"
	}
}

// Matches reports whether v satisfies the pattern.
func (p TypePattern) Matches(v Value) bool {
	switch p {
	case BoolArg:
		return v.IsBool()
	case NumberArg:
		return v.IsNumber()
	case StringArg:
		return v.IsString()
	case ListArg:
		return v.IsList()
	case DictArg:
		return v.IsDict()
	case BufferArg:
		return v.IsBuffer()
	case ClassArg:
		return v.IsClass()
	case CallableArg:
		return v.IsClosure() || v.IsCFunction() || v.IsClass()
	case ListOrFrozenListArg:
		return v.IsList() || v.IsFrozenList()
	default:
		return true
	}
}

// NativeBody is the Go implementation of a native function. For methods,
// recv is the receiver; for free functions it is nil.
type NativeBody func(rt Runtime, recv Value, args []Value) (Value, error)

// CFunction describes a native function callable from scripts.
type CFunction struct {
	Name     string
	Arity    int
	MaxArity int // Variadic for no bound; values below Arity mean exactly Arity
	ArgTypes []TypePattern
	Body     NativeBody
}

// NewCFunction returns a native function taking exactly arity arguments.
func NewCFunction(name string, arity int, body NativeBody) *CFunction {
	return &CFunction{Name: name, Arity: arity, MaxArity: arity, Body: body}
}

// CheckArgs validates argument count and types.
func (fn *CFunction) CheckArgs(args []Value) error {
	maxArity := fn.MaxArity
	if maxArity != Variadic && maxArity < fn.Arity {
		maxArity = fn.Arity
	}
	switch {
	case fn.Arity == maxArity && len(args) != fn.Arity:
		return TypeErrorf("Function %s expects %d arguments but got %d", fn.Name, fn.Arity, len(args))
	case len(args) < fn.Arity:
		return TypeErrorf("Function %s expects at least %d arguments but got %d", fn.Name, fn.Arity, len(args))
	case maxArity != Variadic && len(args) > maxArity:
		return TypeErrorf("Function %s expects at most %d arguments but got %d", fn.Name, maxArity, len(args))
	}
	for i, pattern := range fn.ArgTypes {
		if i >= len(args) {
			break
		}
		if !pattern.Matches(args[i]) {
			return TypeErrorf("Expected argument %d to %s to be %s but got %s",
				i, fn.Name, pattern, TypeName(args[i]))
		}
	}
	return nil
}

// NativeDescriptor describes a host type exposed through Native objects.
// The VM builds one class per descriptor from Methods.
type NativeDescriptor struct {
	Name    string
	Methods []*CFunction
	Call    *CFunction
}

// NativeValue is implemented by host values wrapped in Native objects. Trace
// must mark every Value the host value keeps alive.
type NativeValue interface {
	Descriptor() *NativeDescriptor
	Trace(h *Heap)
}

// Iterator is implemented by native values that step through a sequence.
// Next returns StopIteration once the sequence is exhausted.
type Iterator interface {
	NativeValue
	Next(rt Runtime) (Value, error)
}

// Freer is implemented by native values holding resources that must be
// released when the collector frees them.
type Freer interface {
	Free()
}

// Runtime is the surface of the virtual machine available to native code.
// Natives may call back into scripts through it.
type Runtime interface {
	Context() context.Context
	Heap() *Heap
	Stdout() io.Writer
	Call(fn Value, args ...Value) (Value, error)
	CallMethod(recv Value, name string, args ...Value) (Value, error)
	Repr(v Value) (string, error)
	Str(v Value) (string, error)
	Len(v Value) (int, error)
	Equal(a, b Value) (bool, error)
	LessThan(a, b Value) (bool, error)
	Iterate(v Value, fn func(item Value) error) error
	ClassOf(v Value) *Class
	// Interrupted reports and clears a pending Signal.
	Interrupted() bool
}

// BindNatives stores each function in fields under its own name.
func (h *Heap) BindNatives(fields *Map, fns ...*CFunction) {
	for _, fn := range fns {
		fields.SetString(h.Intern(fn.Name), CFunctionValue(fn))
	}
}

// TypeErrorf returns a catchable type error.
func TypeErrorf(format string, args ...any) error {
	return newError(errz.ErrType, format, args...)
}

// ValueErrorf returns a catchable value error.
func ValueErrorf(format string, args ...any) error {
	return newError(errz.ErrValue, format, args...)
}

// RuntimeErrorf returns a catchable runtime error.
func RuntimeErrorf(format string, args ...any) error {
	return newError(errz.ErrRuntime, format, args...)
}

// NameErrorf returns a catchable name error.
func NameErrorf(format string, args ...any) error {
	return newError(errz.ErrName, format, args...)
}

func newError(kind errz.ErrorKind, format string, args ...any) error {
	return &errz.StructuredError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
