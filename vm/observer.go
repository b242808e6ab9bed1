package vm

import (
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/op"
)

// DefaultSampleInterval is the StepSampled interval of NewObserverConfig.
const DefaultSampleInterval = 1000

// StepMode selects which instructions reach Observer.OnStep.
type StepMode uint8

const (
	// StepAll reports every instruction.
	StepAll StepMode = iota
	// StepNone reports no instructions, only calls and returns.
	StepNone
	// StepSampled reports one instruction in every SampleInterval.
	StepSampled
	// StepOnLine reports the first instruction of each new source line.
	StepOnLine
)

// ObserverConfig is read once, when the observer is attached.
type ObserverConfig struct {
	StepMode       StepMode
	SampleInterval int
	ObserveCalls   bool
	ObserveReturns bool
}

// NewObserverConfig returns a config for mode that also reports calls and
// returns.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: DefaultSampleInterval,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// normalized clamps a non-positive sample interval to 1.
func (c ObserverConfig) normalized() ObserverConfig {
	if c.StepMode == StepSampled && c.SampleInterval <= 0 {
		c.SampleInterval = 1
	}
	return c
}

// Observer receives execution events synchronously from the run loop.
// Returning false from any callback halts the VM with an uncatchable error.
// Tracers, profilers and coverage tools are built on it.
type Observer interface {
	Config() ObserverConfig
	OnStep(event StepEvent) bool
	OnCall(event CallEvent) bool
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes the instruction about to execute.
type StepEvent struct {
	IP         int
	Function   string
	Opcode     op.Code
	OpcodeName string
	Location   errz.SourceLocation
	StackDepth int
	FrameDepth int
}

// CallEvent describes a call to a closure, class or native function.
// FrameDepth counts frames after the call was pushed.
type CallEvent struct {
	FunctionName string
	ArgCount     int
	Location     errz.SourceLocation
	FrameDepth   int
}

// ReturnEvent describes a closure returning to its caller.
type ReturnEvent struct {
	FunctionName string
	Location     errz.SourceLocation
	FrameDepth   int
}

// NoOpObserver accepts every event. Embed it to implement only some of the
// callbacks.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig    { return NewObserverConfig(StepAll) }
func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}
