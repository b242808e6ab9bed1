package errz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredErrorMessage(t *testing.T) {
	err := NewStructuredErrorf(ErrName, SourceLocation{}, nil, "Undefined variable '%s'", "x")
	require.Equal(t, "name error: Undefined variable 'x'", err.Error())
	require.False(t, err.IsFatal())

	located := NewStructuredError(ErrSyntax, "unexpected token", SourceLocation{Line: 3, Column: 7}, nil)
	require.Equal(t, "syntax error: unexpected token (3:7)", located.Error())
}

func TestFriendlyErrorMessage(t *testing.T) {
	err := NewStructuredError(ErrType, "bad operand", SourceLocation{
		Filename: "main.ks",
		Line:     2,
		Column:   5,
		Source:   "x = 1 + nil",
	}, []StackFrame{
		{Function: "f", Location: SourceLocation{Filename: "main.ks", Line: 2}},
		{Location: SourceLocation{Filename: "main.ks", Line: 9}},
	})
	expected := "type error: bad operand (2:5)\n" +
		" | x = 1 + nil\n" +
		" |     ^\n" +
		"\n" +
		"Stack trace:\n" +
		"  at f (main.ks:2)\n" +
		"  at main.ks:9\n"
	require.Equal(t, expected, err.FriendlyErrorMessage())
}

func TestWithStackKeepsFirstStack(t *testing.T) {
	err := NewStructuredError(ErrRuntime, "boom", SourceLocation{}, nil)
	first := []StackFrame{{Function: "a"}}
	err.WithStack(first).WithStack([]StackFrame{{Function: "b"}})
	require.Equal(t, first, err.GetStack())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStructuredError(ErrImport, "cannot load", SourceLocation{}, nil).WithCause(cause)
	require.ErrorIs(t, err, cause)
}

func TestFatalf(t *testing.T) {
	defer func() {
		r := recover()
		fatal, ok := r.(*FatalError)
		require.True(t, ok)
		require.True(t, fatal.IsFatal())
		require.Equal(t, "fatal error: stack underflow", fatal.Error())
	}()
	Fatalf("stack %s", "underflow")
}

func TestSourceLocationString(t *testing.T) {
	require.Equal(t, "a.ks:1:2", SourceLocation{Filename: "a.ks", Line: 1, Column: 2}.String())
	require.Equal(t, "a.ks:1", SourceLocation{Filename: "a.ks", Line: 1}.String())
	require.Equal(t, "line 4", SourceLocation{Line: 4}.String())
}

func TestSuggestSimilar(t *testing.T) {
	candidates := []string{"print", "println", "repr", "range", "sorted"}
	require.Equal(t, []string{"print"}, SuggestSimilar("pirnt", candidates))
	require.Equal(t, []string{"range"}, SuggestSimilar("rang", candidates))
	require.Empty(t, SuggestSimilar("zzz", candidates))
	require.Empty(t, SuggestSimilar("", candidates))
}

func TestFormatSuggestions(t *testing.T) {
	require.Equal(t, "", FormatSuggestions(nil))
	require.Equal(t, "did you mean 'x'?", FormatSuggestions([]string{"x"}))
	require.Equal(t, "did you mean one of 'a', 'b'?", FormatSuggestions([]string{"a", "b"}))
}
