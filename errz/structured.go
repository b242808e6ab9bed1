// Package errz defines the structured errors reported by the compiler and
// the virtual machine.
package errz

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a StructuredError.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrType
	ErrName
	ErrValue
	ErrRuntime
	ErrImport
)

var kindNames = [...]string{
	ErrSyntax:  "syntax error",
	ErrType:    "type error",
	ErrName:    "name error",
	ErrValue:   "value error",
	ErrRuntime: "runtime error",
	ErrImport:  "import error",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "error"
}

// StructuredError is a recoverable error with the location it was raised
// at and the script call stack at that moment. Scripts can catch it.
type StructuredError struct {
	Message  string
	Kind     ErrorKind
	Location SourceLocation
	Stack    []StackFrame
	Cause    error
}

// NewStructuredError returns an error of kind raised at loc.
func NewStructuredError(kind ErrorKind, message string, loc SourceLocation, stack []StackFrame) *StructuredError {
	return &StructuredError{Message: message, Kind: kind, Location: loc, Stack: stack}
}

// NewStructuredErrorf is NewStructuredError with a formatted message.
func NewStructuredErrorf(kind ErrorKind, loc SourceLocation, stack []StackFrame, format string, args ...any) *StructuredError {
	return NewStructuredError(kind, fmt.Sprintf(format, args...), loc, stack)
}

// header is "kind: message", followed by "(line:column)" when located.
func (e *StructuredError) header() string {
	if e.Location.IsZero() {
		return e.Kind.String() + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (%d:%d)", e.Kind, e.Message, e.Location.Line, e.Location.Column)
}

func (e *StructuredError) Error() string {
	return e.header()
}

func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// IsFatal is false: broken invariants use FatalError instead.
func (e *StructuredError) IsFatal() bool {
	return false
}

// FriendlyErrorMessage renders the error for a terminal: the header, the
// offending source line with a caret under the column, then the stack.
func (e *StructuredError) FriendlyErrorMessage() string {
	var b strings.Builder
	b.WriteString(e.header())
	b.WriteByte('\n')
	if src := e.Location.Source; src != "" {
		fmt.Fprintf(&b, " | %s\n", src)
		if col := e.Location.Column; col > 0 {
			fmt.Fprintf(&b, " | %s^\n", strings.Repeat(" ", col-1))
		}
	}
	if len(e.Stack) > 0 {
		b.WriteByte('\n')
		b.WriteString(FormatStackTrace(e.Stack))
	}
	return b.String()
}

// WithCause records the Go error behind e.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// WithStack sets the stack unless one was captured already. The innermost
// capture wins when an error crosses nested calls.
func (e *StructuredError) WithStack(stack []StackFrame) *StructuredError {
	if len(e.Stack) == 0 {
		e.Stack = stack
	}
	return e
}

func (e *StructuredError) GetStack() []StackFrame {
	return e.Stack
}
