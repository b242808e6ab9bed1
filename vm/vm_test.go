package vm

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/stretchr/testify/require"
)

// newTestVM returns a VM on a fresh heap. The VM is created before any
// code is compiled so compiled thunks are rooted by the time it allocates.
func newTestVM(t *testing.T, heap *object.Heap, opts ...Option) *VirtualMachine {
	t.Helper()
	if heap == nil {
		heap = object.NewHeap()
	}
	machine := New(heap, opts...)
	t.Cleanup(machine.Close)
	return machine
}

func runOn(t *testing.T, machine *VirtualMachine, src string) (object.Value, error) {
	t.Helper()
	thunk, err := compiler.Compile(machine.Heap(), src, compiler.WithFilename("test.ks"))
	require.NoError(t, err)
	return machine.Run(context.Background(), thunk)
}

func run(t *testing.T, src string, opts ...Option) (object.Value, error) {
	t.Helper()
	return runOn(t, newTestVM(t, nil, opts...), src)
}

// eval runs src and converts its result to Go data.
func eval(t *testing.T, src string, opts ...Option) any {
	t.Helper()
	result, err := run(t, src, opts...)
	require.NoError(t, err)
	v, err := ToGo(result)
	require.NoError(t, err)
	return v
}

func evalError(t *testing.T, src string, opts ...Option) *errz.StructuredError {
	t.Helper()
	_, err := run(t, src, opts...)
	require.Error(t, err)
	var se *errz.StructuredError
	require.True(t, errors.As(err, &se), "expected a structured error but got %T: %v", err, err)
	return se
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"1 + 2 * 3", 7.0},
		{"7 // 2", 3.0},
		{"-7 % 3", 2.0},
		{"7 % -3", -2.0},
		{"2 ** 10", 1024.0},
		{"1 << 4 | 1", 17.0},
		{"6 & 3 ^ 1", 3.0},
		{"'a' + 'b'", "ab"},
		{"3 > 2 and 2 >= 2 and 1 < 2 and 2 <= 2", true},
		{"1 != 1", false},
		{"'b' in 'abc'", true},
		{"2 in [1, 2, 3]", true},
		{"'z' not in {'a': 1}", true},
		{"nil is nil", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, eval(t, tt.src))
		})
	}
}

func TestClosureCounter(t *testing.T) {
	src := `
def make():
  var x = 0
  def inc():
    x = x + 1
    return x
  return inc
var counter = make()
[counter(), counter()]
`
	require.Equal(t, []any{1.0, 2.0}, eval(t, src))
}

func TestClosuresShareCapturedVariable(t *testing.T) {
	src := `
def pair():
  var n = 10
  def get():
    return n
  def set(v):
    n = v
  return [get, set]
var p = pair()
p[1](42)
p[0]()
`
	require.Equal(t, 42.0, eval(t, src))
}

func TestTryRestoresStack(t *testing.T) {
	var machine *VirtualMachine
	depth := object.NewCFunction("depth", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return object.Number(float64(machine.sp)), nil
	})
	machine = newTestVM(t, nil, WithBuiltins(depth))
	src := `
before = depth()
try:
  [1, 2, 3, raise "boom"]
except as e:
  after = depth()
  caught = e
[before, after, caught]
`
	result, err := runOn(t, machine, src)
	require.NoError(t, err)
	v, err := ToGo(result)
	require.NoError(t, err)
	items := v.([]any)
	require.Equal(t, items[0], items[1])
	require.Equal(t, "boom", items[2])
	require.Equal(t, 0, machine.sp)
	require.Equal(t, 0, machine.fc)
}

func TestTryAcrossFrames(t *testing.T) {
	src := `
def fail(n):
  if n == 0:
    raise "bottom"
  return fail(n - 1)
var result = nil
try:
  fail(20)
except as e:
  result = e
result
`
	require.Equal(t, "bottom", eval(t, src))
}

func TestRuntimeErrorsAreCatchable(t *testing.T) {
	src := `
var messages = []
try:
  undefinedName
except as e:
  messages.append(e)
try:
  1 + "a"
except as e:
  messages.append(e)
try:
  [1][5]
except as e:
  messages.append(e)
messages
`
	got := eval(t, src).([]any)
	require.Len(t, got, 3)
	require.Contains(t, got[0], "Undefined variable 'undefinedName'")
	require.Contains(t, got[1], "Unsupported operand types for +")
	require.Equal(t, "Index out of bounds", got[2])
}

func TestRaiseNonString(t *testing.T) {
	src := `
var got = nil
try:
  raise {"code": 7}
except as e:
  got = e["code"]
got
`
	require.Equal(t, 7.0, eval(t, src))
}

func TestAssertRaises(t *testing.T) {
	se := evalError(t, "assert 1 == 2")
	require.Equal(t, "Assertion failed", se.Message)
}

func TestUncaughtErrorHasStack(t *testing.T) {
	src := `
def inner():
  raise "bad"
def outer():
  inner()
outer()
`
	se := evalError(t, src)
	require.Equal(t, "bad", se.Message)
	require.Equal(t, errz.ErrRuntime, se.Kind)
	require.GreaterOrEqual(t, len(se.Stack), 3)
	require.Equal(t, "inner", se.Stack[0].Function)
	require.Equal(t, "outer", se.Stack[1].Function)
	require.Equal(t, "<main>", se.Stack[2].Function)
	require.Equal(t, 3, se.Stack[0].Location.Line)
	require.Equal(t, "test.ks", se.Location.Filename)

	var raised *RaisedError
	require.True(t, errors.As(se, &raised))
	require.Equal(t, "bad", raised.Value.AsString().String())
}

func TestUndefinedSuggestsSimilar(t *testing.T) {
	se := evalError(t, "var counter = 1\ncountr + 1")
	require.Equal(t, errz.ErrName, se.Kind)
	require.Contains(t, se.Message, "counter")
}

func TestOperatorOverloads(t *testing.T) {
	src := `
class V:
  def __init__(x):
    this.x = x
  def __add__(o):
    return V(this.x + o.x)
  def __eq__(o):
    return this.x == o.x
  def __lt__(o):
    return this.x < o.x
  def __getitem__(i):
    return this.x * i
  def __contains__(v):
    return v == this.x
  def __len__():
    return this.x
var a = V(1) + V(2)
[a.x, a == V(3), a != V(3), a[10], 3 in a, V(1) < a, a > V(1), len(a)]
`
	got := eval(t, src, WithBuiltins(object.NewCFunction("len", 1,
		func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			n, err := rt.Len(args[0])
			return object.Number(float64(n)), err
		})))
	require.Equal(t, []any{3.0, true, false, 30.0, true, true, true, 3.0}, got)
}

func TestInheritanceAndSuper(t *testing.T) {
	src := `
class Animal:
  def __init__(name):
    this.name = name
  def speak():
    return this.name + " makes a sound"
class Dog(Animal):
  def __init__(name):
    super.__init__(name)
    this.kind = "dog"
  def speak():
    return super.speak() + " (woof)"
var d = Dog("rex")
[d.speak(), d.kind]
`
	require.Equal(t, []any{"rex makes a sound (woof)", "dog"}, eval(t, src))
}

func TestStaticMethods(t *testing.T) {
	src := `
class Point:
  def __init__(x, y):
    this.x = x
    this.y = y
  static def origin():
    return Point(0, 0)
var p = Point.origin()
[p.x, p.y]
`
	require.Equal(t, []any{0.0, 0.0}, eval(t, src))
}

func TestKeywordAndDefaultArguments(t *testing.T) {
	src := `
def f(a, b=2, c=3):
  return [a, b, c]
[f(1), f(1, c=5), f(a=0, b=1), f(1, 2, 3)]
`
	require.Equal(t, []any{
		[]any{1.0, 2.0, 3.0},
		[]any{1.0, 2.0, 5.0},
		[]any{0.0, 1.0, 3.0},
		[]any{1.0, 2.0, 3.0},
	}, eval(t, src))
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"too few", "def f(a, b):\n  pass\nf(1)", "Expected 2 arguments but got 1"},
		{"too many", "def f(a):\n  pass\nf(1, 2)", "Expected 1 arguments but got 2"},
		{"unknown keyword", "def f(a):\n  pass\nf(b=1)", "Unused keyword argument 'b'"},
		{"duplicate keyword", "def f(a):\n  pass\nf(1, a=2)", "Got multiple values for argument 'a'"},
		{"missing keyword", "def f(a, b):\n  pass\nf(b=2)", "Missing argument 'a'"},
		{"not callable", "var x = 1\nx()", "Can only call functions and classes but got number"},
		{"no init", "class A:\n  pass\nA(1)", "Expected 0 arguments but got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := evalError(t, tt.src)
			require.Contains(t, se.Message, tt.want)
		})
	}
}

func TestForLoops(t *testing.T) {
	src := `
var total = 0
for x in [1, 2, 3]:
  total = total + x
for k in {"a": 10, "b": 20}:
  total = total + k.getByteLength()
var chars = []
for c in "héllo":
  chars.append(c)
for item in final[4, 5]:
  total = total + item
[total, chars]
`
	require.Equal(t, []any{17.0, []any{"h", "é", "l", "l", "o"}}, eval(t, src))
}

func TestCustomIterator(t *testing.T) {
	src := `
class Countdown:
  def __init__(n):
    this.n = n
  def __iter__():
    var n = this.n
    def next():
      if n <= 0:
        return StopIteration
      n = n - 1
      return n + 1
    return next
var seen = []
for v in Countdown(3):
  seen.append(v)
seen
`
	stop := map[string]any{"StopIteration": object.StopIteration}
	require.Equal(t, []any{3.0, 2.0, 1.0}, eval(t, src, WithGlobals(stop)))
}

func TestCollections(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"var l = [3, 1, 2]\nl.sort()\nl", []any{1.0, 2.0, 3.0}},
		{"var l = [1, 2, 3, 4]\nl[1:3]", []any{2.0, 3.0}},
		{"var l = [1, 2]\nl.extend([3])\nl.pop()", 3.0},
		{"[1, 2] + [3]", []any{1.0, 2.0, 3.0}},
		{"[0] * 3", []any{0.0, 0.0, 0.0}},
		{"[1, 2, 3].map(def(x): x * 2)", []any{2.0, 4.0, 6.0}},
		{"[1, 2, 3, 4].filter(def(x): x % 2 == 0)", []any{2.0, 4.0}},
		{"var l = ['b', 'aa', 'c']\nl.sort(def(s): len(s))\nl", []any{"b", "c", "aa"}},
		{"var d = {'a': 1}\nd['b'] = 2\n[d.keys(), d.values(), len(d)]", []any{[]any{"a", "b"}, []any{1.0, 2.0}, 2.0}},
		{"var d = {'a': 1}\n[d.get('z', 5), d.getOrNil('z'), d.delete('a'), d.delete('a')]", []any{5.0, nil, true, false}},
		{"{'x': 1, 'y': 2}.rget(2)", "y"},
		{"Dict.fromPairs([['a', 1], ['b', 2]])['b']", 2.0},
		{"'  hi  '.strip()", "hi"},
		{"'a,b,c'.split(',')", []any{"a", "b", "c"}},
		{"'-'.join(['a', 'b'])", "a-b"},
		{"'héllo'.upper()", "HÉLLO"},
		{"'hello world'.title()", "Hello World"},
		{"'7'.padStart(3, '0')", "007"},
		{"'ab'.padEnd(5, 'xy')", "abxyx"},
		{"'héllo'[1]", "é"},
		{"'héllo'[1:3]", "él"},
		{"'héllo'.find('l')", 2.0},
		{"'%s is %r' % ['x', 'y']", "x is \"y\""},
		{"(255).base(16)", "FF"},
		{"'abc'.encode().decode()", "abc"},
		{"'é'.encode('latin-1').decode('latin-1')", "é"},
		{"len('é'.encode())", 2.0},
	}
	lenFn := object.NewCFunction("len", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		n, err := rt.Len(args[0])
		return object.Number(float64(n)), err
	})
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, eval(t, tt.src, WithBuiltins(lenFn)))
		})
	}
}

func TestFrozenCollectionsAreCanonical(t *testing.T) {
	src := `
var a = final[1, final{"k": "v"}]
var b = [1, final{"k": "v"}].freeze()
[a is b, {"k": "v"}.freeze() is final{"k": "v"}, [1, 2] is [1, 2]]
`
	require.Equal(t, []any{true, true, false}, eval(t, src))
}

func TestFreezeRejectsUnhashable(t *testing.T) {
	se := evalError(t, "[[1]].freeze()")
	require.Equal(t, errz.ErrType, se.Kind)
}

func TestRepr(t *testing.T) {
	machine := newTestVM(t, nil)
	result, err := runOn(t, machine, `[1, "two", (3,), {"k": nil}, final{1: true}, 1.5]`)
	require.NoError(t, err)
	s, err := machine.Runtime().Repr(result)
	require.NoError(t, err)
	require.Equal(t, `[1, "two", (3,), {"k": nil}, final{1: true}, 1.5]`, s)
}

func TestGlobalsAndGet(t *testing.T) {
	machine := newTestVM(t, nil, WithGlobals(map[string]any{
		"limit": 10,
		"names": []string{"a", "b"},
	}))
	_, err := runOn(t, machine, "var total = limit * 2\nvar first = names[0]")
	require.NoError(t, err)

	total, err := machine.Get("total")
	require.NoError(t, err)
	require.Equal(t, 20.0, total.AsNumber())

	first, err := machine.Get("first")
	require.NoError(t, err)
	require.Equal(t, "a", first.AsString().String())

	_, err = machine.Get("missing")
	require.ErrorIs(t, err, ErrGlobalNotFound)
	require.Contains(t, machine.GlobalNames(), "total")
}

func TestCallFromHost(t *testing.T) {
	machine := newTestVM(t, nil)
	_, err := runOn(t, machine, "def add(a, b):\n  return a + b")
	require.NoError(t, err)
	fn, err := machine.Get("add")
	require.NoError(t, err)
	result, err := machine.Call(context.Background(), fn, object.Number(2), object.Number(3))
	require.NoError(t, err)
	require.Equal(t, 5.0, result.AsNumber())

	_, err = machine.Call(context.Background(), fn, object.Number(2))
	require.Error(t, err)
	require.Equal(t, 0, machine.sp)
}

func TestNativeCallsBackIntoScript(t *testing.T) {
	apply := object.NewCFunction("apply", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return rt.Call(args[0], args[1])
	})
	src := `
def fail(x):
  raise "inner " + x
var got = nil
try:
  apply(fail, "boom")
except as e:
  got = e
[apply(def(x): x + 1, 1), got]
`
	require.Equal(t, []any{2.0, "inner boom"}, eval(t, src, WithBuiltins(apply)))
}

func TestStackOverflowIsCatchable(t *testing.T) {
	src := `
def recurse(n):
  return recurse(n + 1)
var msg = nil
try:
  recurse(0)
except as e:
  msg = e
msg
`
	require.Equal(t, "Stack overflow", eval(t, src, WithMaxFrames(64)))
}

func TestContextCancellation(t *testing.T) {
	machine := newTestVM(t, nil, WithContextCheckInterval(10))
	thunk, err := compiler.Compile(machine.Heap(), "while true:\n  try:\n    pass\n  except:\n    pass")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = machine.Run(ctx, thunk)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The machine is reusable afterwards.
	result, err := runOn(t, machine, "1 + 1")
	require.NoError(t, err)
	require.Equal(t, 2.0, result.AsNumber())
}

func TestSignalRaisesInterrupted(t *testing.T) {
	var machine *VirtualMachine
	tick := object.NewCFunction("tick", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		machine.Signal()
		return object.Nil(), nil
	})
	machine = newTestVM(t, nil, WithBuiltins(tick))
	src := `
var msg = nil
try:
  while true:
    tick()
except as e:
  msg = e
msg
`
	result, err := runOn(t, machine, src)
	require.NoError(t, err)
	require.Equal(t, "Interrupted", result.AsString().String())
}

func TestGCStress(t *testing.T) {
	heap := object.NewHeap(object.WithStress(true))
	lenFn := object.NewCFunction("len", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		n, err := rt.Len(args[0])
		return object.Number(float64(n)), err
	})
	machine := newTestVM(t, heap, WithBuiltins(lenFn))
	src := `
class Node:
  def __init__(v, next):
    this.v = v
    this.next = next
def build(n):
  var head = nil
  var i = 0
  while i < n:
    head = Node("n" + i.base(10), head)
    i = i + 1
  return head
def sum(node):
  var total = 0
  while node is not nil:
    total = total + node.v.getByteLength()
    node = node.next
  return total
var parts = {}
var i = 0
while i < 50:
  parts["k" + i.base(10)] = [i, final[i, "x"], build(3)]
  i = i + 1
[sum(build(20)), len(parts), parts["k7"][1][1]]
`
	result, err := runOn(t, machine, src)
	require.NoError(t, err)
	v, err := ToGo(result)
	require.NoError(t, err)
	// "n0".."n9" are 2 bytes, "n10".."n19" are 3.
	require.Equal(t, []any{50.0, 50.0, "x"}, v)
	require.Greater(t, heap.Stats().Collections, 0)
}

func TestGCStressNativeCallbacks(t *testing.T) {
	heap := object.NewHeap(object.WithStress(true))
	machine := newTestVM(t, heap)
	src := `
def shout(x):
  raise "boom" + x.base(10)
def label(x):
  return ["k" + x.base(10), [x, x]]
var caught = nil
try:
  [1, 2].map(shout)
except as e:
  caught = e
var one = 1
var keys = [3, 1, 2]
keys.sort(def(x): 0 - x)
var labelled = [1, 2, 3].map(label)
var sortErr = nil
try:
  [2, 1].sort(shout)
except as e:
  sortErr = e
[caught == "boom" + one.base(10), sortErr, keys, labelled[2][0], labelled[0][1]]
`
	result, err := runOn(t, machine, src)
	require.NoError(t, err)
	v, err := ToGo(result)
	require.NoError(t, err)
	got := v.([]any)
	require.Equal(t, true, got[0])
	require.Contains(t, got[1], "boom")
	require.Equal(t, []any{3.0, 2.0, 1.0}, got[2])
	require.Equal(t, "k3", got[3])
	require.Equal(t, []any{1.0, 1.0}, got[4])
}

func TestCollectDuringNativeCallback(t *testing.T) {
	src := `
def churn(x):
  var i = 0
  while i < 50000:
    var garbage = [i, i]
    i = i + 1
  return x
%s
`
	direct := object.NewHeap()
	_, err := runOn(t, newTestVM(t, direct), fmt.Sprintf(src, "churn(1)"))
	require.NoError(t, err)

	viaMap := object.NewHeap()
	result, err := runOn(t, newTestVM(t, viaMap), fmt.Sprintf(src, "[1].map(churn)"))
	require.NoError(t, err)
	v, err := ToGo(result)
	require.NoError(t, err)
	require.Equal(t, []any{1.0}, v)

	require.Greater(t, direct.Stats().Collections, 2)
	require.InDelta(t, direct.Stats().Collections, viaMap.Stats().Collections, 1)
}

func TestImportFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "util.ks"),
		[]byte("var loaded = 0\nloaded = loaded + 1\ndef double(x):\n  return x * 2\n"), 0o644))
	src := `
import lib.util
from lib.util import double
import lib.util as again
[util.double(2), double(3), again.loaded, util.__name__]
`
	got := eval(t, src, WithSearchPath(dir))
	require.Equal(t, []any{4.0, 6.0, 1.0, "lib.util"}, got)
}

func TestFailedModuleIsNotCached(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.ks"), []byte("var ready = 2\n"), 0o644))
	machine := newTestVM(t, nil, WithSearchPath(dir))

	thunk, err := compiler.Compile(machine.Heap(), "var ready = 1\nraise 'broken'", compiler.WithFilename("config.ks"))
	require.NoError(t, err)
	_, err = machine.RunModule(context.Background(), "config", thunk)
	require.ErrorContains(t, err, "broken")

	result, err := runOn(t, machine, "import config\nconfig.ready")
	require.NoError(t, err)
	require.Equal(t, 2.0, result.AsNumber())
}

func TestImportFromArchive(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("greet.ks")
	require.NoError(t, err)
	_, err = f.Write([]byte("def hello(name):\n  return 'hello ' + name\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	require.Equal(t, "hello kestrel", eval(t, "import greet\ngreet.hello('kestrel')", WithArchive(archive)))
}

func TestImportNativeModule(t *testing.T) {
	calls := 0
	mod := func(rt object.Runtime, module *object.Instance) error {
		calls++
		module.Fields.SetString(rt.Heap().Intern("answer"), object.Number(42))
		return nil
	}
	src := "import facts\nimport facts as f2\n[facts.answer, f2.answer]"
	got := eval(t, src, WithNativeModules(map[string]NativeModule{"facts": mod}))
	require.Equal(t, []any{42.0, 42.0}, got)
	require.Equal(t, 1, calls)
}

func TestImportMissingModule(t *testing.T) {
	se := evalError(t, "import nowhere")
	require.Equal(t, errz.ErrImport, se.Kind)
	require.Equal(t, "Module 'nowhere' not found", se.Message)
}

func TestModuleMemberError(t *testing.T) {
	mod := func(rt object.Runtime, module *object.Instance) error { return nil }
	se := evalError(t, "import empty\nempty.nothing", WithNativeModules(map[string]NativeModule{"empty": mod}))
	require.Equal(t, "Module empty has no member 'nothing'", se.Message)
}

func TestNativeValues(t *testing.T) {
	machine := newTestVM(t, nil, WithGlobals(map[string]any{"counter": &testCounter{}}))
	result, err := runOn(t, machine, "counter.add(2)\ncounter.add(3)\n[counter.total(), counter]")
	require.NoError(t, err)
	s, err := machine.Runtime().Repr(result)
	require.NoError(t, err)
	require.Equal(t, "[5, <Counter 5>]", s)
}

var testCounterDescriptor = &object.NativeDescriptor{
	Name: "Counter",
	Methods: []*object.CFunction{
		object.NewCFunction("add", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			c := recv.AsObj().(*object.Native).Value.(*testCounter)
			c.n += args[0].AsNumber()
			return object.Nil(), nil
		}),
		object.NewCFunction("total", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return object.Number(recv.AsObj().(*object.Native).Value.(*testCounter).n), nil
		}),
		object.NewCFunction("__repr__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			c := recv.AsObj().(*object.Native).Value.(*testCounter)
			return rt.Heap().Str("<Counter " + object.FormatNumber(c.n) + ">"), nil
		}),
	},
}

type testCounter struct{ n float64 }

func (c *testCounter) Descriptor() *object.NativeDescriptor { return testCounterDescriptor }
func (c *testCounter) Trace(h *object.Heap)                 {}

func TestContinueKeepsGlobals(t *testing.T) {
	machine := newTestVM(t, nil)
	ctx := context.Background()
	compile := func(src string) *object.Thunk {
		thunk, err := compiler.Compile(machine.Heap(), src)
		require.NoError(t, err)
		return thunk
	}
	_, err := machine.Continue(ctx, compile("var x = 40"))
	require.NoError(t, err)
	_, err = machine.Continue(ctx, compile("def add(n):\n  return x + n"))
	require.NoError(t, err)
	result, err := machine.Continue(ctx, compile("add(2)"))
	require.NoError(t, err)
	require.Equal(t, 42.0, result.AsNumber())
	require.ElementsMatch(t, []string{"__name__", "x", "add"}, machine.GlobalNames())
}
