package lexer

import (
	"testing"

	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/internal/token"
	"github.com/stretchr/testify/require"
)

type expectedToken struct {
	typ     token.Type
	literal string
}

func requireTokens(t *testing.T, input string, want []expectedToken) {
	t.Helper()
	l := New(input)
	for i, tt := range want {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equal(t, tt.typ, tok.Type, "token %d", i)
		require.Equal(t, tt.literal, tok.Literal, "token %d", i)
	}
}

func TestNil(t *testing.T) {
	requireTokens(t, "a = nil", []expectedToken{
		{token.IDENT, "a"},
		{token.ASSIGN, "="},
		{token.NIL, "nil"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestOperators(t *testing.T) {
	requireTokens(t, "% + - * / // ** << >> & | ^ ~ == != <= >= < > -> @ .", []expectedToken{
		{token.MOD, "%"},
		{token.PLUS, "+"},
		{token.MINUS, "-"},
		{token.ASTERISK, "*"},
		{token.SLASH, "/"},
		{token.SLASH_SLASH, "//"},
		{token.POW, "**"},
		{token.LT_LT, "<<"},
		{token.GT_GT, ">>"},
		{token.AMPERSAND, "&"},
		{token.BITOR, "|"},
		{token.CARET, "^"},
		{token.TILDE, "~"},
		{token.EQ, "=="},
		{token.NOT_EQ, "!="},
		{token.LT_EQUALS, "<="},
		{token.GT_EQUALS, ">="},
		{token.LT, "<"},
		{token.GT, ">"},
		{token.ARROW, "->"},
		{token.AT, "@"},
		{token.PERIOD, "."},
	})
}

func TestKeywords(t *testing.T) {
	requireTokens(t, "def class if elif else while for in is not and or this super", []expectedToken{
		{token.DEF, "def"},
		{token.CLASS, "class"},
		{token.IF, "if"},
		{token.ELIF, "elif"},
		{token.ELSE, "else"},
		{token.WHILE, "while"},
		{token.FOR, "for"},
		{token.IN, "in"},
		{token.IS, "is"},
		{token.NOT, "not"},
		{token.AND, "and"},
		{token.OR, "or"},
		{token.THIS, "this"},
		{token.SUPER, "super"},
	})
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   token.Type
		lit   string
	}{
		{"42", token.NUMBER, "42"},
		{"3.25", token.NUMBER, "3.25"},
		{"1e10", token.NUMBER, "1e10"},
		{"2.5E-3", token.NUMBER, "2.5E-3"},
		{"0xff", token.NUMBER_HEX, "0xff"},
		{"0b1010", token.NUMBER_BIN, "0b1010"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, err := New(tt.input).Next()
			require.NoError(t, err)
			require.Equal(t, tt.typ, tok.Type)
			require.Equal(t, tt.lit, tok.Literal)
		})
	}
}

func TestNumberFollowedByMethod(t *testing.T) {
	requireTokens(t, "1.base(2)", []expectedToken{
		{token.NUMBER, "1"},
		{token.PERIOD, "."},
		{token.IDENT, "base"},
	})
}

func TestInvalidNumbers(t *testing.T) {
	for _, input := range []string{"0x", "0b2", "12abc"} {
		t.Run(input, func(t *testing.T) {
			_, err := New(input).Next()
			require.Error(t, err)
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input string
		typ   token.Type
		lit   string
	}{
		{`"hello"`, token.STRING, "hello"},
		{`'hello'`, token.STRING, "hello"},
		{`""`, token.STRING, ""},
		{`"a\nb\tc"`, token.STRING, "a\nb\tc"},
		{`"q\"q"`, token.STRING, `q"q`},
		{`"\x41\u00e9\U0001F600"`, token.STRING, "Aé😀"},
		{`"a\0b"`, token.STRING, "a\x00b"},
		{"\"\"\"line1\nline2\"\"\"", token.STRING, "line1\nline2"},
		{`r"a\nb"`, token.RAW_STRING, `a\nb`},
		{`r'''x\y'''`, token.RAW_STRING, `x\y`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, err := New(tt.input).Next()
			require.NoError(t, err)
			require.Equal(t, tt.typ, tok.Type)
			require.Equal(t, tt.lit, tok.Literal)
		})
	}
}

func TestStringErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{`"abc`, "unterminated string literal"},
		{"\"ab\ncd\"", "unterminated string literal"},
		{`"\q"`, `invalid escape sequence: \q`},
		{`"\xZZ"`, `invalid escape sequence: \xZZ`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := New(tt.input).Next()
			require.Error(t, err)
			var serr *errz.StructuredError
			require.ErrorAs(t, err, &serr)
			require.Equal(t, errz.ErrSyntax, serr.Kind)
			require.Equal(t, tt.msg, serr.Message)
		})
	}
}

func TestIndentation(t *testing.T) {
	input := `if x:
  y = 1
  if z:
    w
v
`
	toks, err := New(input).Tokens()
	require.NoError(t, err)
	require.Equal(t,
		"if IDENT(x) : NEWLINE(\n) INDENT IDENT(y) = NUMBER(1) NEWLINE(\n) "+
			"if IDENT(z) : NEWLINE(\n) INDENT IDENT(w) NEWLINE(\n) DEDENT DEDENT "+
			"IDENT(v) NEWLINE(\n) EOF",
		String(toks))
}

func TestDedentsAtEOF(t *testing.T) {
	toks, err := New("def f():\n  return 1").Tokens()
	require.NoError(t, err)
	require.Equal(t, "def IDENT(f) ( ) : NEWLINE(\n) INDENT return NUMBER(1) NEWLINE DEDENT EOF", String(toks))
}

func TestEOFRepeats(t *testing.T) {
	l := New("x")
	_, err := l.Tokens()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equal(t, token.EOF, tok.Type)
	}
}

func TestBlankAndCommentLinesAreSkipped(t *testing.T) {
	input := "a\n\n   \n  # indented comment\n# comment\nb\n"
	toks, err := New(input).Tokens()
	require.NoError(t, err)
	require.Equal(t, "IDENT(a) NEWLINE(\n) IDENT(b) NEWLINE(\n) EOF", String(toks))
}

func TestNewlinesInsideBrackets(t *testing.T) {
	input := "x = [\n  1,\n    2,\n]\ny"
	toks, err := New(input).Tokens()
	require.NoError(t, err)
	require.Equal(t, "IDENT(x) = [ NUMBER(1) , NUMBER(2) , ] NEWLINE(\n) IDENT(y) NEWLINE EOF", String(toks))
}

func TestLineContinuation(t *testing.T) {
	toks, err := New("a = 1 + \\\n  2").Tokens()
	require.NoError(t, err)
	require.Equal(t, "IDENT(a) = NUMBER(1) + NUMBER(2) NEWLINE EOF", String(toks))
}

func TestIndentationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"odd width", "if x:\n   y", "indentation must be a multiple of 2 spaces, but got 3"},
		{"double indent", "if x:\n    y", "one level of indentation must be exactly 2 spaces, but got 4"},
		{"tab", "if x:\n\ty", "tabs may not be used for indentation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.input).Tokens()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestUnmatchedBracket(t *testing.T) {
	_, err := New("x)").Tokens()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmatched ')'")
}

func TestPositions(t *testing.T) {
	l := New("a\n  b", WithFile("main.ks"))
	toks, err := l.Tokens()
	require.NoError(t, err)
	require.Equal(t, "main.ks", l.Filename())
	// a NEWLINE INDENT b
	b := toks[3]
	require.Equal(t, "b", b.Literal)
	require.Equal(t, 2, b.StartPosition.LineNumber())
	require.Equal(t, 3, b.StartPosition.ColumnNumber())
	require.Equal(t, "  b", l.GetLineText(b))
}

func TestErrorLocation(t *testing.T) {
	_, err := New("x = 1\ny = $", WithFile("f.ks")).Tokens()
	var serr *errz.StructuredError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, 2, serr.Location.Line)
	require.Equal(t, 5, serr.Location.Column)
	require.Equal(t, "y = $", serr.Location.Source)
	require.Equal(t, "f.ks", serr.Location.Filename)
}
