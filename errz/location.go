package errz

import (
	"fmt"
	"strings"
)

// SourceLocation is a 1-based position in a script. Source holds the text
// of the line when it is known.
type SourceLocation struct {
	Filename string
	Line     int
	Column   int
	Source   string
}

// String renders file:line:column, dropping the parts that are unknown.
// A location without a file reads "line N" or "N:M".
func (s SourceLocation) String() string {
	pos := fmt.Sprintf("%d", s.Line)
	if s.Column != 0 {
		pos = fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	switch {
	case s.Filename != "":
		return s.Filename + ":" + pos
	case s.Column == 0:
		return "line " + pos
	}
	return pos
}

func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// StackFrame is one active call when an error was raised.
type StackFrame struct {
	Function string
	Location SourceLocation
}

func (f StackFrame) String() string {
	if f.Function == "" {
		return "at " + f.Location.String()
	}
	return fmt.Sprintf("at %s (%s)", f.Function, f.Location)
}

// FormatStackTrace renders frames innermost first under a "Stack trace:"
// heading. It returns "" for no frames.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	lines := make([]string, 0, len(frames)+1)
	lines = append(lines, "Stack trace:")
	for _, f := range frames {
		lines = append(lines, "  "+f.String())
	}
	return strings.Join(lines, "\n") + "\n"
}

// FatalError reports a broken runtime invariant. It is raised with panic
// and is never delivered to a script's except handler.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	return "fatal error: " + e.Message
}

func (e *FatalError) IsFatal() bool {
	return true
}

// Fatalf panics with a FatalError.
func Fatalf(format string, args ...any) {
	panic(&FatalError{Message: fmt.Sprintf(format, args...)})
}
