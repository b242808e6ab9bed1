package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingObserver records every event it receives.
type recordingObserver struct {
	NoOpObserver
	config  ObserverConfig
	Steps   []StepEvent
	Calls   []CallEvent
	Returns []ReturnEvent
}

func newRecordingObserver(mode StepMode) *recordingObserver {
	return &recordingObserver{config: NewObserverConfig(mode)}
}

func (o *recordingObserver) Config() ObserverConfig { return o.config }

func (o *recordingObserver) OnStep(event StepEvent) bool {
	o.Steps = append(o.Steps, event)
	return true
}

func (o *recordingObserver) OnCall(event CallEvent) bool {
	o.Calls = append(o.Calls, event)
	return true
}

func (o *recordingObserver) OnReturn(event ReturnEvent) bool {
	o.Returns = append(o.Returns, event)
	return true
}

func TestObserverOnStep(t *testing.T) {
	observer := newRecordingObserver(StepAll)
	_, err := run(t, "var x = 1 + 2", WithObserver(observer))
	require.NoError(t, err)
	require.NotEmpty(t, observer.Steps)
	for _, step := range observer.Steps {
		require.NotEmpty(t, step.OpcodeName)
		require.Equal(t, "<main>", step.Function)
	}
}

func TestObserverOnCallAndReturn(t *testing.T) {
	src := `
def add(a, b):
  return a + b
var result = add(1, 2)
`
	observer := newRecordingObserver(StepNone)
	_, err := run(t, src, WithObserver(observer))
	require.NoError(t, err)
	require.Empty(t, observer.Steps)

	var found *CallEvent
	for i := range observer.Calls {
		if observer.Calls[i].FunctionName == "add" {
			found = &observer.Calls[i]
		}
	}
	require.NotNil(t, found, "expected a call event for add")
	require.Equal(t, 2, found.ArgCount)
	require.Equal(t, 2, found.FrameDepth)

	var names []string
	for _, r := range observer.Returns {
		names = append(names, r.FunctionName)
	}
	require.Equal(t, []string{"add", "<main>"}, names)
	require.Equal(t, 3, observer.Returns[0].Location.Line)
}

func TestObserverOnLine(t *testing.T) {
	src := "var a = 1\nvar b = 2\nvar c = a + b\n"
	observer := newRecordingObserver(StepOnLine)
	_, err := run(t, src, WithObserver(observer))
	require.NoError(t, err)
	var lines []int
	for _, step := range observer.Steps {
		lines = append(lines, step.Location.Line)
	}
	require.Equal(t, []int{1, 2, 3}, lines[:3])
}

func TestObserverSampled(t *testing.T) {
	src := "var i = 0\nwhile i < 20:\n  i = i + 1"
	all := newRecordingObserver(StepAll)
	_, err := run(t, src, WithObserver(all))
	require.NoError(t, err)

	sampled := newRecordingObserver(StepSampled)
	sampled.config.SampleInterval = 5
	_, err = run(t, src, WithObserver(sampled))
	require.NoError(t, err)
	require.Equal(t, len(all.Steps)/5, len(sampled.Steps))
}

type haltingObserver struct {
	NoOpObserver
	haltAfter int
	steps     int
}

func (o *haltingObserver) OnStep(event StepEvent) bool {
	o.steps++
	return o.steps < o.haltAfter
}

func TestObserverHaltOnStep(t *testing.T) {
	observer := &haltingObserver{haltAfter: 3}
	_, err := run(t, "var x = 1 + 2 + 3 + 4", WithObserver(observer))
	require.ErrorIs(t, err, errHalted)
	require.Equal(t, 3, observer.steps)
}

func TestObserverHaltIsNotCatchable(t *testing.T) {
	src := `
try:
  var i = 0
  while true:
    i = i + 1
except:
  pass
`
	observer := &haltingObserver{haltAfter: 50}
	_, err := run(t, src, WithObserver(observer))
	require.ErrorIs(t, err, errHalted)
}

func TestObserverConfigNormalized(t *testing.T) {
	cfg := ObserverConfig{StepMode: StepSampled}.normalized()
	require.Equal(t, 1, cfg.SampleInterval)

	cfg = NewObserverConfig(StepAll)
	require.True(t, cfg.ObserveCalls)
	require.True(t, cfg.ObserveReturns)
	require.Equal(t, DefaultSampleInterval, cfg.SampleInterval)
}
