package testing

import (
	"fmt"
	"strings"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

// TestContext is the value passed to every test function as its only
// argument. Failed assertions are recorded and the test keeps running.
type TestContext struct {
	name       string
	filename   string
	failed     bool
	skipped    bool
	skipReason string
	logs       []string
	failures   []AssertionError
}

// NewTestContext returns the context for the test called name.
func NewTestContext(name, filename string) *TestContext {
	return &TestContext{name: name, filename: filename}
}

func (t *TestContext) Descriptor() *object.NativeDescriptor { return contextDescriptor }
func (t *TestContext) Trace(h *object.Heap)                 {}

func (t *TestContext) Name() string               { return t.name }
func (t *TestContext) Failed() bool               { return t.failed }
func (t *TestContext) Skipped() bool              { return t.skipped }
func (t *TestContext) SkipReason() string         { return t.skipReason }
func (t *TestContext) Logs() []string             { return t.logs }
func (t *TestContext) Failures() []AssertionError { return t.failures }

func (t *TestContext) addFailure(msg, got, want string) {
	t.failed = true
	t.failures = append(t.failures, AssertionError{
		Message: msg,
		File:    t.filename,
		Got:     got,
		Want:    want,
	})
}

func contextOf(v object.Value) *TestContext {
	n, _ := object.As[*object.Native](v)
	return n.Value.(*TestContext)
}

// message returns args[i] as text, or def when it was not passed.
func message(rt object.Runtime, args []object.Value, i int, def string) (string, error) {
	if len(args) <= i {
		return def, nil
	}
	return rt.Str(args[i])
}

func reprs(rt object.Runtime, got, want object.Value) (string, string, error) {
	g, err := rt.Repr(got)
	if err != nil {
		return "", "", err
	}
	w, err := rt.Repr(want)
	return g, w, err
}

// compare builds assertEqual and assertNotEqual.
func compare(name, def string, wantEqual bool) *object.CFunction {
	return &object.CFunction{Name: name, Arity: 2, MaxArity: 3,
		Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			eq, err := rt.Equal(args[0], args[1])
			if err != nil {
				return object.Nil(), err
			}
			if eq == wantEqual {
				return object.Nil(), nil
			}
			msg, err := message(rt, args, 2, def)
			if err != nil {
				return object.Nil(), err
			}
			got, want, err := reprs(rt, args[0], args[1])
			if err != nil {
				return object.Nil(), err
			}
			if !wantEqual {
				want = "anything else"
			}
			contextOf(recv).addFailure(msg, got, want)
			return object.Nil(), nil
		}}
}

var contextDescriptor = &object.NativeDescriptor{
	Name: "TestContext",
	Methods: []*object.CFunction{
		object.NewCFunction("name", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str(contextOf(recv).name), nil
		}),
		object.NewCFunction("__repr__", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
			return rt.Heap().Str(fmt.Sprintf("TestContext(%s)", contextOf(recv).name)), nil
		}),
		{Name: "assertTrue", Arity: 1, MaxArity: 2,
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				if args[0].IsTruthy() {
					return object.Nil(), nil
				}
				msg, err := message(rt, args, 1, "assertion failed")
				if err != nil {
					return object.Nil(), err
				}
				got, err := rt.Repr(args[0])
				if err != nil {
					return object.Nil(), err
				}
				contextOf(recv).addFailure(msg, got, "")
				return object.Nil(), nil
			}},
		compare("assertEqual", "values are not equal", true),
		compare("assertNotEqual", "values are equal", false),
		{Name: "assertNil", Arity: 1, MaxArity: 2,
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				if args[0].IsNil() {
					return object.Nil(), nil
				}
				msg, err := message(rt, args, 1, "expected nil")
				if err != nil {
					return object.Nil(), err
				}
				got, err := rt.Repr(args[0])
				if err != nil {
					return object.Nil(), err
				}
				contextOf(recv).addFailure(msg, got, "nil")
				return object.Nil(), nil
			}},
		// assertRaises calls fn and returns the message of the error it
		// raised, or nil after recording a failure.
		{Name: "assertRaises", Arity: 1, MaxArity: 2,
			ArgTypes: []object.TypePattern{object.CallableArg, object.AnyArg},
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				_, callErr := rt.Call(args[0])
				if callErr != nil {
					if !vm.Catchable(callErr) {
						return object.Nil(), callErr
					}
					return rt.Heap().Str(callErr.Error()), nil
				}
				msg, err := message(rt, args, 1, "expected an error")
				if err != nil {
					return object.Nil(), err
				}
				contextOf(recv).addFailure(msg, "", "")
				return object.Nil(), nil
			}},
		{Name: "fail", Arity: 0, MaxArity: 1,
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				msg, err := message(rt, args, 0, "test failed")
				if err != nil {
					return object.Nil(), err
				}
				contextOf(recv).addFailure(msg, "", "")
				return object.Nil(), nil
			}},
		{Name: "skip", Arity: 0, MaxArity: 1,
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				reason, err := message(rt, args, 0, "")
				if err != nil {
					return object.Nil(), err
				}
				t := contextOf(recv)
				t.skipped, t.skipReason = true, reason
				return object.Nil(), nil
			}},
		{Name: "log", Arity: 0, MaxArity: object.Variadic,
			Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
				parts := make([]string, len(args))
				for i, arg := range args {
					s, err := rt.Str(arg)
					if err != nil {
						return object.Nil(), err
					}
					parts[i] = s
				}
				t := contextOf(recv)
				t.logs = append(t.logs, strings.Join(parts, " "))
				return object.Nil(), nil
			}},
	},
}
