// Package time provides the time module. Times are numbers of seconds since
// the Unix epoch.
package time

import (
	"time"

	"github.com/kestrel-lang/kestrel/object"
)

// pollInterval is how often sleep checks for a pending signal.
const pollInterval = 10 * time.Millisecond

var layouts = map[string]string{
	"ANSIC":       time.ANSIC,
	"UnixDate":    time.UnixDate,
	"RFC822":      time.RFC822,
	"RFC1123":     time.RFC1123,
	"RFC3339":     time.RFC3339,
	"RFC3339Nano": time.RFC3339Nano,
	"Kitchen":     time.Kitchen,
	"DateTime":    time.DateTime,
	"DateOnly":    time.DateOnly,
}

func seconds(t time.Time) object.Value {
	return object.Number(float64(t.UnixNano()) / 1e9)
}

func fromSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9)).UTC()
}

func layoutArg(args []object.Value, i int) string {
	if i < len(args) {
		return args[i].AsString().String()
	}
	return time.RFC3339
}

var Now = object.NewCFunction("time", 0, func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
	return seconds(time.Now()), nil
})

// Sleep blocks for a number of seconds. It wakes early with an
// "Interrupted" error when the VM is signalled, and stops when the run's
// context ends.
var Sleep = &object.CFunction{Name: "sleep", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		d := time.Duration(args[0].AsNumber() * float64(time.Second))
		if d < 0 {
			return object.Nil(), object.ValueErrorf("sleep length must be non-negative")
		}
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		timer := time.NewTimer(d)
		defer timer.Stop()
		ctx := rt.Context()
		for {
			select {
			case <-timer.C:
				return object.Nil(), nil
			case <-ctx.Done():
				return object.Nil(), ctx.Err()
			case <-ticker.C:
				if rt.Interrupted() {
					return object.Nil(), object.RuntimeErrorf("Interrupted")
				}
			}
		}
	}}

var Format = &object.CFunction{Name: "format", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.NumberArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		t := fromSeconds(args[0].AsNumber())
		return rt.Heap().Str(t.Format(layoutArg(args, 1))), nil
	}}

var Parse = &object.CFunction{Name: "parse", Arity: 1, MaxArity: 2,
	ArgTypes: []object.TypePattern{object.StringArg, object.StringArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		t, err := time.Parse(layoutArg(args, 1), args[0].AsString().String())
		if err != nil {
			return object.Nil(), object.ValueErrorf("time.parse: %s", err)
		}
		return seconds(t), nil
	}}

var Since = &object.CFunction{Name: "since", Arity: 1, ArgTypes: []object.TypePattern{object.NumberArg},
	Body: func(rt object.Runtime, recv object.Value, args []object.Value) (object.Value, error) {
		return object.Number(time.Since(fromSeconds(args[0].AsNumber())).Seconds()), nil
	}}

// Module populates the time module.
func Module(rt object.Runtime, module *object.Instance) error {
	h := rt.Heap()
	h.BindNatives(&module.Fields, Now, Sleep, Format, Parse, Since)
	for name, layout := range layouts {
		module.Fields.SetString(h.Intern(name), h.Str(layout))
	}
	return nil
}
