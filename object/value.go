// Package object provides the kestrel data model: the tagged Value type, the
// heap object kinds, the insertion-ordered hash Map, interned strings, and
// the Heap that allocates objects and reclaims them with a tracing
// mark-sweep collector.
package object

import (
	"math"
	"strconv"
)

// ValueType identifies the variant held by a Value.
type ValueType uint8

const (
	NilType ValueType = iota
	BoolType
	NumberType
	StringType
	CFunctionType
	SentinelType
	ObjType
)

// Sentinel values are internal markers that never escape to user code as
// ordinary data.
type Sentinel uint8

const (
	// SentinelStopIteration is returned by an iterator when it is exhausted.
	SentinelStopIteration Sentinel = 1
	// SentinelEmptyKey marks empty and deleted Map slots.
	SentinelEmptyKey Sentinel = 2
)

// Value is a tagged union of nil, bool, number, interned string, native
// function, sentinel and heap object references.
type Value struct {
	typ ValueType
	num float64
	ref any
}

var (
	nilValue   = Value{typ: NilType}
	trueValue  = Value{typ: BoolType, num: 1}
	falseValue = Value{typ: BoolType}

	// StopIteration is the value an exhausted iterator returns.
	StopIteration = Value{typ: SentinelType, num: float64(SentinelStopIteration)}
	// EmptyKey is the key stored in empty and tombstoned Map slots.
	EmptyKey = Value{typ: SentinelType, num: float64(SentinelEmptyKey)}
)

// Nil returns the nil value.
func Nil() Value { return nilValue }

// True returns the boolean true value.
func True() Value { return trueValue }

// False returns the boolean false value.
func False() Value { return falseValue }

// Bool converts a Go bool into a Value.
func Bool(b bool) Value {
	if b {
		return trueValue
	}
	return falseValue
}

// Number wraps a float64.
func Number(f float64) Value {
	return Value{typ: NumberType, num: f}
}

// StringValue wraps an interned string.
func StringValue(s *String) Value {
	return Value{typ: StringType, ref: s}
}

// CFunctionValue wraps a native function.
func CFunctionValue(fn *CFunction) Value {
	return Value{typ: CFunctionType, ref: fn}
}

// ObjValue wraps a heap object.
func ObjValue(o Obj) Value {
	return Value{typ: ObjType, ref: o}
}

// Type returns the variant held by v.
func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNil() bool       { return v.typ == NilType }
func (v Value) IsBool() bool      { return v.typ == BoolType }
func (v Value) IsNumber() bool    { return v.typ == NumberType }
func (v Value) IsString() bool    { return v.typ == StringType }
func (v Value) IsCFunction() bool { return v.typ == CFunctionType }
func (v Value) IsSentinel() bool  { return v.typ == SentinelType }
func (v Value) IsObj() bool       { return v.typ == ObjType }

// IsStopIteration reports whether v is the StopIteration sentinel.
func (v Value) IsStopIteration() bool {
	return v.typ == SentinelType && Sentinel(v.num) == SentinelStopIteration
}

// IsEmptyKey reports whether v is the EmptyKey sentinel.
func (v Value) IsEmptyKey() bool {
	return v.typ == SentinelType && Sentinel(v.num) == SentinelEmptyKey
}

// AsBool returns the boolean payload of v.
func (v Value) AsBool() bool { return v.num != 0 }

// AsNumber returns the numeric payload of v.
func (v Value) AsNumber() float64 { return v.num }

// AsSentinel returns the sentinel payload of v.
func (v Value) AsSentinel() Sentinel { return Sentinel(v.num) }

// AsString returns the string payload of v, or nil.
func (v Value) AsString() *String {
	s, _ := v.ref.(*String)
	return s
}

// AsCFunction returns the native function payload of v, or nil.
func (v Value) AsCFunction() *CFunction {
	fn, _ := v.ref.(*CFunction)
	return fn
}

// AsObj returns the heap object payload of v, or nil.
func (v Value) AsObj() Obj {
	o, _ := v.ref.(Obj)
	return o
}

// As returns v's heap object as a T when it holds one.
func As[T Obj](v Value) (T, bool) {
	o, ok := v.ref.(T)
	return o, ok
}

// ObjKindOf returns the kind of heap object held by v, or KindNone.
func ObjKindOf(v Value) ObjKind {
	if o := v.AsObj(); o != nil {
		return o.Kind()
	}
	return KindNone
}

func (v Value) IsList() bool       { return ObjKindOf(v) == KindList }
func (v Value) IsFrozenList() bool { return ObjKindOf(v) == KindFrozenList }
func (v Value) IsDict() bool       { return ObjKindOf(v) == KindDict }
func (v Value) IsFrozenDict() bool { return ObjKindOf(v) == KindFrozenDict }
func (v Value) IsClass() bool      { return ObjKindOf(v) == KindClass }
func (v Value) IsClosure() bool    { return ObjKindOf(v) == KindClosure }
func (v Value) IsInstance() bool   { return ObjKindOf(v) == KindInstance }
func (v Value) IsBuffer() bool     { return ObjKindOf(v) == KindBuffer }
func (v Value) IsNative() bool     { return ObjKindOf(v) == KindNative }

// IsModule reports whether v is a module instance.
func (v Value) IsModule() bool {
	inst, ok := As[*Instance](v)
	return ok && inst.Class.IsModuleClass
}

// IsFalsey reports whether v is nil, false or the number zero.
func (v Value) IsFalsey() bool {
	switch v.typ {
	case NilType:
		return true
	case BoolType, NumberType:
		return v.num == 0
	}
	return false
}

// IsTruthy is the negation of IsFalsey.
func (v Value) IsTruthy() bool { return !v.IsFalsey() }

// FormatNumber renders a number the way repr and str show it: integral
// values without a fractional part, everything else in shortest form.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == math.Trunc(f) && math.Abs(f) < 1e17:
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
