package object

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPerKind(t *testing.T) {
	h := NewHeap()
	l1 := ObjValue(h.NewList(nil))
	l2 := ObjValue(h.NewList(nil))
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil", Nil(), Nil(), true},
		{"numbers by value", Number(3), Number(3), true},
		{"different numbers", Number(3), Number(4), false},
		{"bools", True(), True(), true},
		{"strings interned", h.Str("x"), h.Str("x"), true},
		{"same list", l1, l1, true},
		{"equal lists are distinct", l1, l2, false},
		{"kind mismatch", Number(0), False(), false},
		{"nil vs false", Nil(), False(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Is(tt.a, tt.b))
		})
	}
}

func TestEqualIsStructuralForMutableCollections(t *testing.T) {
	h := NewHeap()
	a := h.NewList([]Value{Number(1), h.Str("a")})
	b := h.NewList([]Value{Number(1), h.Str("a")})
	require.True(t, Equal(ObjValue(a), ObjValue(b)))
	b.Items = append(b.Items, Nil())
	require.False(t, Equal(ObjValue(a), ObjValue(b)))

	d1 := h.NewDict()
	d2 := h.NewDict()
	d1.Map.SetString(h.Intern("k"), ObjValue(a))
	d2.Map.SetString(h.Intern("k"), ObjValue(h.NewList([]Value{Number(1), h.Str("a")})))
	require.True(t, Equal(ObjValue(d1), ObjValue(d2)))

	require.True(t, Equal(ObjValue(h.NewBuffer([]byte("xy"))), ObjValue(h.NewBuffer([]byte("xy")))))

	c1 := h.NewInstance(h.NewClass(h.Intern("C")))
	c2 := h.NewInstance(c1.Class)
	require.False(t, Equal(ObjValue(c1), ObjValue(c2)))
}

func TestLessThan(t *testing.T) {
	h := NewHeap()
	list := func(items ...Value) Value { return ObjValue(h.NewList(items)) }
	tests := []struct {
		a, b Value
		want bool
	}{
		{Number(1), Number(2), true},
		{Number(2), Number(1), false},
		{False(), True(), true},
		{h.Str("abc"), h.Str("abd"), true},
		{h.Str("b"), h.Str("abc"), false},
		{list(Number(1), Number(2)), list(Number(1), Number(3)), true},
		{list(Number(1)), list(Number(1), Number(0)), true},
		{list(Number(1), Number(0)), list(Number(1)), false},
	}
	for _, tt := range tests {
		got, err := LessThan(tt.a, tt.b)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
	_, err := LessThan(Number(1), h.Str("1"))
	require.EqualError(t, err, "type error: '<' not supported between number and string")
}

func TestHash(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		v    Value
		want uint32
	}{
		{Nil(), 17},
		{True(), 1231},
		{False(), 1237},
		{Number(42), 42},
		{Number(-1), math.MaxUint32},
	}
	for _, tt := range tests {
		got, err := Hash(tt.v)
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}

	frac, err := Hash(Number(0.5))
	require.NoError(t, err)
	bits := math.Float64bits(0.5)
	require.Equal(t, uint32(bits)^uint32(bits>>32), frac)

	s, err := Hash(h.Str("a"))
	require.NoError(t, err)
	require.Equal(t, uint32(0xe40c292c), s)

	_, err = Hash(ObjValue(h.NewDict()))
	require.EqualError(t, err, "type error: dict is not hashable")

	_, err = Hash(ObjValue(h.NewClass(h.Intern("Point"))))
	require.ErrorContains(t, err, "is not hashable")
}

func TestFalsey(t *testing.T) {
	h := NewHeap()
	require.True(t, Nil().IsFalsey())
	require.True(t, False().IsFalsey())
	require.True(t, Number(0).IsFalsey())
	require.False(t, Number(0.1).IsFalsey())
	require.False(t, h.Str("").IsFalsey())
	require.False(t, ObjValue(h.NewList(nil)).IsFalsey())
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "3", FormatNumber(3))
	require.Equal(t, "-2", FormatNumber(-2))
	require.Equal(t, "0.5", FormatNumber(0.5))
	require.Equal(t, "1e+20", FormatNumber(1e20))
	require.Equal(t, "inf", FormatNumber(math.Inf(1)))
	require.Equal(t, "nan", FormatNumber(math.NaN()))
}

func TestTypeName(t *testing.T) {
	h := NewHeap()
	require.Equal(t, "nil", TypeName(Nil()))
	require.Equal(t, "number", TypeName(Number(1)))
	require.Equal(t, "list", TypeName(ObjValue(h.NewList(nil))))
	require.Equal(t, "Point", TypeName(ObjValue(h.NewInstance(h.NewClass(h.Intern("Point"))))))
	require.Equal(t, "module", TypeName(ObjValue(h.NewModule(h.Intern("m")))))
}

func TestCheckArgs(t *testing.T) {
	fn := &CFunction{Name: "f", Arity: 1, MaxArity: 2, ArgTypes: []TypePattern{NumberArg}}
	require.NoError(t, fn.CheckArgs([]Value{Number(1)}))
	require.EqualError(t, fn.CheckArgs(nil), "type error: Function f expects at least 1 arguments but got 0")
	require.EqualError(t, fn.CheckArgs([]Value{Number(1), Nil(), Nil()}),
		"type error: Function f expects at most 2 arguments but got 3")
	require.EqualError(t, fn.CheckArgs([]Value{True()}),
		"type error: Expected argument 0 to f to be number but got bool")
	exact := NewCFunction("g", 2, nil)
	require.EqualError(t, exact.CheckArgs(nil), "type error: Function g expects 2 arguments but got 0")
}
