package time

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/internal/scripttest"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/vm"
)

var withTime = scripttest.Module("time", Module)

func TestNow(t *testing.T) {
	before := float64(time.Now().Unix())
	got := scripttest.Eval(t, "import time\ntime.time()", withTime)
	require.GreaterOrEqual(t, got.(float64), before)
}

func TestFormatAndParse(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"time.format(0)", "1970-01-01T00:00:00Z"},
		{"time.format(1633046400, time.DateOnly)", "2021-10-01"},
		{"time.parse('2021-10-01T00:00:00Z')", 1633046400.0},
		{"time.parse('2021-10-01 00:00:30', time.DateTime)", 1633046430.0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, scripttest.Eval(t, "import time\n"+tt.src, withTime))
		})
	}
	err := scripttest.Error(t, "import time\ntime.parse('yesterday')", withTime)
	require.Contains(t, err.Error(), "time.parse")
}

func TestSleep(t *testing.T) {
	start := time.Now()
	scripttest.Eval(t, "import time\ntime.sleep(0.02)", withTime)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	err := scripttest.Error(t, "import time\ntime.sleep(-1)", withTime)
	require.Contains(t, err.Error(), "non-negative")
}

func TestSleepIsInterruptible(t *testing.T) {
	machine := vm.New(object.NewHeap(), withTime)
	t.Cleanup(machine.Close)
	src := `
import time
var result = nil
try:
  time.sleep(10)
except as e:
  result = e
result
`
	thunk, err := compiler.Compile(machine.Heap(), src)
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		machine.Signal()
	}()
	start := time.Now()
	result, err := machine.Run(context.Background(), thunk)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, "Interrupted", result.AsString().String())
}

func TestSleepStopsOnCancel(t *testing.T) {
	machine := vm.New(object.NewHeap(), withTime)
	t.Cleanup(machine.Close)
	thunk, err := compiler.Compile(machine.Heap(), "import time\ntime.sleep(10)")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = machine.Run(ctx, thunk)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
