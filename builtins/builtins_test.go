package builtins

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

func run(t *testing.T, src string, opts ...vm.Option) (object.Value, error) {
	t.Helper()
	opts = append(opts, vm.WithBuiltins(Builtins()...))
	machine := vm.New(object.NewHeap(), opts...)
	t.Cleanup(machine.Close)
	thunk, err := compiler.Compile(machine.Heap(), src, compiler.WithFilename("test.ks"))
	require.NoError(t, err)
	return machine.Run(context.Background(), thunk)
}

func eval(t *testing.T, src string) any {
	t.Helper()
	result, err := run(t, src)
	require.NoError(t, err)
	v, err := vm.ToGo(result)
	require.NoError(t, err)
	return v
}

func TestBuiltins(t *testing.T) {
	names := map[string]bool{}
	for _, fn := range Builtins() {
		require.False(t, names[fn.Name], "duplicate builtin %s", fn.Name)
		names[fn.Name] = true
	}
	for _, doc := range Docs() {
		require.True(t, names[doc.Name], "documented builtin %s is not defined", doc.Name)
	}
	require.Len(t, Docs(), len(names))
}

func TestBuiltinResults(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"str(12)", "12"},
		{"str('x')", "x"},
		{"repr('x')", `"x"`},
		{"repr([1, 'a'])", `[1, "a"]`},
		{"len('héllo')", 5.0},
		{"len({1: 2})", 1.0},
		{"type(1) is Number", true},
		{"type([]) is List", true},
		{"isinstance(1, Number)", true},
		{"isinstance('a', [Number, String])", true},
		{"isinstance([], Dict)", false},
		{"hex(255)", "0xFF"},
		{"hex(-16)", "-0x10"},
		{"bin(5)", "0b101"},
		{"chr(65)", "A"},
		{"ord('é')", 233.0},
		{"int(3.9)", 3.0},
		{"int(-3.9)", -3.0},
		{"int('ff', 16)", 255.0},
		{"int('-101', 2)", -5.0},
		{"float('2.5')", 2.5},
		{"abs(-4)", 4.0},
		{"round(2.5)", 3.0},
		{"round(1.2345, 2)", 1.23},
		{"min(3, 1, 2)", 1.0},
		{"max([3, 1, 2])", 3.0},
		{"max('b', 'a')", "b"},
		{"sum([1, 2, 3])", 6.0},
		{"sorted([3, 1, 2])", []any{1.0, 2.0, 3.0}},
		{"sorted(['bb', 'a', 'ccc'], def(s): len(s))", []any{"a", "bb", "ccc"}},
		{"any([0, nil, 'x'])", true},
		{"any([])", false},
		{"all([1, true, 'x'])", true},
		{"all([1, 0])", false},
		{"List(range(4))", []any{0.0, 1.0, 2.0, 3.0}},
		{"List(range(1, 7, 2))", []any{1.0, 3.0, 5.0}},
		{"List(range(3, 0, -1))", []any{3.0, 2.0, 1.0}},
		{"len(range(0, 10, 3))", 4.0},
		{"repr(range(2))", "Range(0,2,1)"},
		{"4 in range(0, 10, 2)", true},
		{"5 in range(0, 10, 2)", false},
		{"isClose(0.1 + 0.2, 0.3)", true},
		{"len(Set([1, 2, 2, 3]))", 3.0},
		{"freeze([1, 2]) == (1, 2)", true},
		{"freeze({'a': 1}) is final{'a': 1}", true},
		{"clock() >= 0", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, eval(t, tt.src))
		})
	}
}

func TestForOverRange(t *testing.T) {
	src := `
var total = 0
for i in range(5):
  total = total + i
total
`
	require.Equal(t, 10.0, eval(t, src))
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	_, err := run(t, "print('hi')\nprint([1, 'a'])\nprint(nil)", vm.WithStdout(&out))
	require.NoError(t, err)
	require.Equal(t, "hi\n[1, \"a\"]\nnil\n", out.String())
}

func TestGetattrAndSetattr(t *testing.T) {
	src := `
class Point:
  def __init__(x):
    this.x = x
var p = Point(1)
setattr(p, 'y', 2)
[getattr(p, 'x'), p.y, getattr(p, 'z', 'none')]
`
	require.Equal(t, []any{1.0, 2.0, "none"}, eval(t, src))
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"ord('ab')", "ord() requires a string of length 1 but got a string of length 2"},
		{"int('12', 40)", "int(): unsupported base 40"},
		{"int('19', 8)", "int(): digit value is too big for base (digit=9, base=8)"},
		{"int('1x')", "int(): Expected digit but got 'x'"},
		{"int('')", "int(): Expected digit, but got end of string"},
		{"float('abc')", "Could not convert string to float"},
		{"sum([1, 'a'])", "Expected number but got string"},
		{"min([])", "min() arg is an empty sequence"},
		{"range(1, 2, 0)", "step must not be zero"},
		{"freeze([[1]])", "is not hashable"},
		{"getattr(1, 'x')", "getattr() expects an instance"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := run(t, tt.src)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExitIsNotCatchable(t *testing.T) {
	src := `
try:
  exit(3)
except:
  pass
`
	_, err := run(t, src)
	var exit *vm.ExitError
	require.True(t, errors.As(err, &exit))
	require.Equal(t, 3, exit.Code)
	var se *errz.StructuredError
	require.False(t, errors.As(err, &se))
}
