package builtins

import (
	"fmt"
	"math"

	"github.com/kestrel-lang/kestrel/object"
)

// Range is an arithmetic progression produced by range().
type Range struct {
	Start, Stop, Step float64
}

var rangeDescriptor = &object.NativeDescriptor{
	Name: "Range",
	Methods: []*object.CFunction{
		object.NewCFunction("__iter__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			r := rangeOf(recv)
			it := &rangeIterator{next: r.Start, stop: r.Stop, step: r.Step}
			return object.ObjValue(rt.Heap().NewNative(it)), nil
		}),
		object.NewCFunction("__len__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(float64(rangeOf(recv).Len())), nil
		}),
		object.NewCFunction("__repr__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str(rangeOf(recv).String()), nil
		}),
		object.NewCFunction("__contains__", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			if !args[0].IsNumber() {
				return object.False(), nil
			}
			return object.Bool(rangeOf(recv).Contains(args[0].AsNumber())), nil
		}),
	},
}

func (r *Range) Descriptor() *object.NativeDescriptor { return rangeDescriptor }
func (r *Range) Trace(h *object.Heap)                 {}

// Len returns the number of values in the range.
func (r *Range) Len() int {
	n := math.Ceil((r.Stop - r.Start) / r.Step)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Contains reports whether the range yields n.
func (r *Range) Contains(n float64) bool {
	if r.Step > 0 && (n < r.Start || n >= r.Stop) {
		return false
	}
	if r.Step < 0 && (n > r.Start || n <= r.Stop) {
		return false
	}
	return math.Mod(n-r.Start, r.Step) == 0
}

func (r *Range) String() string {
	return fmt.Sprintf("Range(%s,%s,%s)", object.FormatNumber(r.Start),
		object.FormatNumber(r.Stop), object.FormatNumber(r.Step))
}

func rangeOf(v object.Value) *Range {
	n, _ := object.As[*object.Native](v)
	return n.Value.(*Range)
}

var rangeIteratorDescriptor = &object.NativeDescriptor{Name: "RangeIterator"}

type rangeIterator struct {
	next, stop, step float64
}

func (it *rangeIterator) Descriptor() *object.NativeDescriptor { return rangeIteratorDescriptor }
func (it *rangeIterator) Trace(h *object.Heap)                 {}

func (it *rangeIterator) Next(rt object.Runtime) (object.Value, error) {
	if (it.step > 0 && it.next >= it.stop) || (it.step < 0 && it.next <= it.stop) {
		return object.StopIteration, nil
	}
	v := it.next
	it.next += it.step
	return object.Number(v), nil
}

// range accepts (stop), (start, stop) or (start, stop, step).
var rangeFn = &object.CFunction{Name: "range", Arity: 1, MaxArity: 3,
	ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		r := &Range{Step: 1}
		switch len(args) {
		case 1:
			r.Stop = args[0].AsNumber()
		default:
			r.Start, r.Stop = args[0].AsNumber(), args[1].AsNumber()
			if len(args) == 3 {
				r.Step = args[2].AsNumber()
			}
		}
		if r.Step == 0 {
			return object.Nil(), object.ValueErrorf("range() step must not be zero")
		}
		return object.ObjValue(rt.Heap().NewNative(r)), nil
	}}
