// Package builtins defines the global native functions of kestrel.
package builtins

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

var start = time.Now()

// Builtins returns the global native functions. The slice is freshly
// allocated; callers may append their own functions to it.
func Builtins() []*object.CFunction {
	return []*object.CFunction{
		printFn, reprFn, strFn, lenFn, typeFn, isinstanceFn,
		hexFn, binFn, chrFn, ordFn, intFn, floatFn, absFn, roundFn,
		minFn, maxFn, sumFn, sortedFn, anyFn, allFn, rangeFn, clockFn,
		exitFn, getattrFn, setattrFn, freezeFn, isCloseFn, setFn,
	}
}

var printFn = object.NewCFunction("print", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	s, err := rt.Str(args[0])
	if err != nil {
		return object.Nil(), err
	}
	if _, err := fmt.Fprintln(rt.Stdout(), s); err != nil {
		return object.Nil(), object.RuntimeErrorf("print: %s", err)
	}
	return object.Nil(), nil
})

var reprFn = object.NewCFunction("repr", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	s, err := rt.Repr(args[0])
	if err != nil {
		return object.Nil(), err
	}
	return rt.Heap().Str(s), nil
})

var strFn = object.NewCFunction("str", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	if args[0].IsString() {
		return args[0], nil
	}
	s, err := rt.Str(args[0])
	if err != nil {
		return object.Nil(), err
	}
	return rt.Heap().Str(s), nil
})

var lenFn = object.NewCFunction("len", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	n, err := rt.Len(args[0])
	return object.Number(float64(n)), err
})

var typeFn = object.NewCFunction("type", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	return object.ObjValue(rt.ClassOf(args[0])), nil
})

// isinstance accepts a class or a list of classes.
var isinstanceFn = object.NewCFunction("isinstance", 2, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	class := rt.ClassOf(args[0])
	if c, ok := object.As[*object.Class](args[1]); ok {
		return object.Bool(class.IsSubclassOf(c)), nil
	}
	var candidates []object.Value
	switch o := args[1].AsObj().(type) {
	case *object.List:
		candidates = o.Items
	case *object.FrozenList:
		candidates = o.Items
	default:
		return object.Nil(), object.TypeErrorf("isinstance() expects a class or a list of classes but got %s", object.TypeName(args[1]))
	}
	for _, candidate := range candidates {
		c, ok := object.As[*object.Class](candidate)
		if !ok {
			return object.Nil(), object.TypeErrorf("isinstance() expects a class but got %s", object.TypeName(candidate))
		}
		if class.IsSubclassOf(c) {
			return object.True(), nil
		}
	}
	return object.False(), nil
})

func formatInt(rt object.Runtime, prefix string, n float64, base int) object.Value {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strings.ToUpper(strconv.FormatUint(uint64(n), base))
	return rt.Heap().Str(sign + prefix + digits)
}

var hexFn = &object.CFunction{Name: "hex", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return formatInt(rt, "0x", args[0].AsNumber(), 16), nil
	}}

var binFn = &object.CFunction{Name: "bin", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return formatInt(rt, "0b", args[0].AsNumber(), 2), nil
	}}

var chrFn = &object.CFunction{Name: "chr", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		r := rune(args[0].AsNumber())
		if float64(r) != args[0].AsNumber() || !utf8.ValidRune(r) {
			return object.Nil(), object.ValueErrorf("chr(): invalid code point %s", object.FormatNumber(args[0].AsNumber()))
		}
		return rt.Heap().Str(string(r)), nil
	}}

var ordFn = &object.CFunction{Name: "ord", Arity: 1, ArgTypes: []object.TypePattern{object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		s := args[0].AsString()
		if s.Len() != 1 {
			return object.Nil(), object.ValueErrorf("ord() requires a string of length 1 but got a string of length %d", s.Len())
		}
		r, _ := utf8.DecodeRuneInString(s.String())
		return object.Number(float64(r)), nil
	}}

var intFn = &object.CFunction{Name: "int", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.AnyArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		base := 10
		if len(args) > 1 {
			base = int(args[1].AsNumber())
		}
		if args[0].IsString() {
			n, err := parseInt(args[0].AsString().String(), base)
			return object.Number(n), err
		}
		if len(args) > 1 {
			return object.Nil(), object.TypeErrorf("int() cannot take a base with %s", object.TypeName(args[0]))
		}
		n, err := vm.ParseNumber(args[0])
		if err != nil {
			return object.Nil(), err
		}
		return object.Number(math.Trunc(n)), nil
	}}

// parseInt parses s as an integer in base. Letters stand for digits above
// 9 in either case.
func parseInt(s string, base int) (float64, error) {
	if base < 2 || base > 36 {
		return 0, object.ValueErrorf("int(): unsupported base %d", base)
	}
	s = strings.TrimSpace(s)
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return 0, object.ValueErrorf("int(): Expected digit, but got end of string")
	}
	var n float64
	for _, c := range s {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'Z':
			d = int(c-'A') + 10
		default:
			return 0, object.ValueErrorf("int(): Expected digit but got '%c'", c)
		}
		if d >= base {
			return 0, object.ValueErrorf("int(): digit value is too big for base (digit=%d, base=%d)", d, base)
		}
		n = n*float64(base) + float64(d)
	}
	return sign * n, nil
}

var floatFn = object.NewCFunction("float", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	if args[0].IsString() {
		s := strings.TrimSpace(args[0].AsString().String())
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return object.Nil(), object.ValueErrorf("Could not convert string to float: %s", strconv.Quote(s))
		}
		return object.Number(f), nil
	}
	f, err := vm.ParseNumber(args[0])
	return object.Number(f), err
})

var absFn = &object.CFunction{Name: "abs", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return object.Number(math.Abs(args[0].AsNumber())), nil
	}}

// round rounds half away from zero, optionally to a number of decimal
// places.
var roundFn = &object.CFunction{Name: "round", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		n := args[0].AsNumber()
		if len(args) == 1 {
			return object.Number(math.Round(n)), nil
		}
		scale := math.Pow(10, math.Trunc(args[1].AsNumber()))
		return object.Number(math.Round(n*scale) / scale), nil
	}}

// extreme returns the item for which better holds against every other.
// A single argument is iterated instead.
func extreme(rt object.Runtime, name string, args []object.Value, better func(a, b object.Value) (bool, error)) (object.Value, error) {
	items := args
	if len(args) == 1 {
		items = nil
		err := rt.Iterate(args[0], func(item object.Value) error {
			items = append(items, item)
			return nil
		})
		if err != nil {
			return object.Nil(), err
		}
	}
	if len(items) == 0 {
		return object.Nil(), object.ValueErrorf("%s() arg is an empty sequence", name)
	}
	best := items[0]
	for _, item := range items[1:] {
		ok, err := better(item, best)
		if err != nil {
			return object.Nil(), err
		}
		if ok {
			best = item
		}
	}
	return best, nil
}

var minFn = &object.CFunction{Name: "min", Arity: 1, MaxArity: object.Variadic,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return extreme(rt, "min", args, rt.LessThan)
	}}

var maxFn = &object.CFunction{Name: "max", Arity: 1, MaxArity: object.Variadic,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return extreme(rt, "max", args, func(a, b object.Value) (bool, error) {
			return rt.LessThan(b, a)
		})
	}}

var sumFn = object.NewCFunction("sum", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	var total float64
	err := rt.Iterate(args[0], func(item object.Value) error {
		if !item.IsNumber() {
			return object.TypeErrorf("Expected number but got %s", object.TypeName(item))
		}
		total += item.AsNumber()
		return nil
	})
	return object.Number(total), err
})

var sortedFn = &object.CFunction{Name: "sorted", Arity: 1, MaxArity: 2,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		var items []object.Value
		err := rt.Iterate(args[0], func(item object.Value) error {
			items = append(items, item)
			return nil
		})
		if err != nil {
			return object.Nil(), err
		}
		key := object.Nil()
		if len(args) > 1 {
			key = args[1]
		}
		if err := vm.SortValues(rt, items, key); err != nil {
			return object.Nil(), err
		}
		return object.ObjValue(rt.Heap().NewList(items)), nil
	}}

var anyFn = object.NewCFunction("any", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	found := false
	err := rt.Iterate(args[0], func(item object.Value) error {
		if item.IsTruthy() {
			found = true
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return object.Nil(), err
	}
	return object.Bool(found), nil
})

var allFn = object.NewCFunction("all", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	all := true
	err := rt.Iterate(args[0], func(item object.Value) error {
		if item.IsFalsey() {
			all = false
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return object.Nil(), err
	}
	return object.Bool(all), nil
})

// errStop ends an iteration early.
var errStop = errors.New("stop iteration")

var clockFn = object.NewCFunction("clock", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	return object.Number(time.Since(start).Seconds()), nil
})

var exitFn = &object.CFunction{Name: "exit", Arity: 0, MaxArity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		code := 0
		if len(args) > 0 {
			code = int(args[0].AsNumber())
		}
		return object.Nil(), &vm.ExitError{Code: code}
	}}

// getattr reads a field of an instance or module. Without a default a
// missing field is an error.
var getattrFn = &object.CFunction{Name: "getattr", Arity: 2, MaxArity: 3,
	ArgTypes: []object.TypePattern{object.AnyArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		inst, ok := object.As[*object.Instance](args[0])
		if ok {
			if v, found := inst.Fields.GetString(args[1].AsString()); found {
				return v, nil
			}
		}
		if len(args) > 2 {
			return args[2], nil
		}
		if !ok {
			return object.Nil(), object.TypeErrorf("getattr() expects an instance but got %s", object.TypeName(args[0]))
		}
		return object.Nil(), object.NameErrorf("Field '%s' not found on %s", args[1].AsString(), object.TypeName(args[0]))
	}}

var setattrFn = &object.CFunction{Name: "setattr", Arity: 3,
	ArgTypes: []object.TypePattern{object.AnyArg, object.StringArg, object.AnyArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		inst, ok := object.As[*object.Instance](args[0])
		if !ok {
			return object.Nil(), object.TypeErrorf("setattr() expects an instance but got %s", object.TypeName(args[0]))
		}
		if inst.Class.IsModuleClass {
			return object.Nil(), object.TypeErrorf("Cannot set fields of %s", object.TypeName(args[0]))
		}
		if isNew := inst.Fields.SetString(args[1].AsString(), args[2]); isNew {
			rt.Heap().Account(inst, 48)
		}
		return args[2], nil
	}}

// freeze returns a frozen copy of a list or dict. Frozen values are
// returned as is.
var freezeFn = object.NewCFunction("freeze", 1, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	switch o := args[0].AsObj().(type) {
	case *object.List:
		frozen, err := rt.Heap().FreezeList(append([]object.Value(nil), o.Items...))
		if err != nil {
			return object.Nil(), err
		}
		return object.ObjValue(frozen), nil
	case *object.Dict:
		frozen, err := rt.Heap().FreezeDict(&o.Map)
		if err != nil {
			return object.Nil(), err
		}
		return object.ObjValue(frozen), nil
	case *object.FrozenList, *object.FrozenDict:
		return args[0], nil
	}
	if _, err := object.Hash(args[0]); err == nil {
		return args[0], nil
	}
	return object.Nil(), object.TypeErrorf("Cannot freeze %s", object.TypeName(args[0]))
})

var isCloseFn = &object.CFunction{Name: "isClose", Arity: 2, MaxArity: 4,
	ArgTypes: []object.TypePattern{object.NumberArg, object.NumberArg, object.NumberArg, object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		a, b := args[0].AsNumber(), args[1].AsNumber()
		relTol, absTol := 1e-09, 0.0
		if len(args) > 2 {
			relTol = args[2].AsNumber()
		}
		if len(args) > 3 {
			absTol = args[3].AsNumber()
		}
		diff := math.Abs(a - b)
		return object.Bool(diff <= math.Max(relTol*math.Max(math.Abs(a), math.Abs(b)), absTol)), nil
	}}

// Set builds a dict whose keys are the items of an iterable, each mapped
// to nil.
var setFn = &object.CFunction{Name: "Set", Arity: 0, MaxArity: 1,
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		d := rt.Heap().NewDict()
		if len(args) == 0 {
			return object.ObjValue(d), nil
		}
		err := rt.Iterate(args[0], func(item object.Value) error {
			isNew, err := d.Map.Set(item, object.Nil())
			if err == nil && isNew {
				rt.Heap().Account(d, 48)
			}
			return err
		})
		return object.ObjValue(d), err
	}}
