package regexp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withRegexp = scripttest.Module("regexp", Module)

func TestMethods(t *testing.T) {
	got := scripttest.Eval(t, `import regexp
var re = regexp.compile("(\\w+)@(\\w+)\\.com")
[
  re.match("mail bob@example.com"),
  re.find("to: bob@example.com, amy@test.com"),
  re.findAll("bob@example.com amy@test.com"),
  re.findAll("bob@example.com amy@test.com", 1),
  re.groups("bob@example.com"),
  re.groups("nothing"),
  re.replace("bob@example.com", "$2:$1"),
  re.pattern(),
  repr(re),
]`, withRegexp)
	require.Equal(t, []any{
		true,
		"bob@example.com",
		[]any{"bob@example.com", "amy@test.com"},
		[]any{"bob@example.com"},
		[]any{"bob@example.com", "bob", "example"},
		nil,
		"example:bob",
		`(\w+)@(\w+)\.com`,
		`Regexp("(\\w+)@(\\w+)\\.com")`,
	}, got)
}

func TestSplit(t *testing.T) {
	got := scripttest.Eval(t, `import regexp
var re = regexp.compile(",\\s*")
[re.split("a, b,c"), re.split("a, b,c", 2)]`, withRegexp)
	require.Equal(t, []any{[]any{"a", "b", "c"}, []any{"a", "b,c"}}, got)
}

func TestModuleFunctions(t *testing.T) {
	got := scripttest.Eval(t, `import regexp
[regexp.match("^a.c$", "abc"), regexp.match("^a.c$", "abcd"), regexp.escape("1+1=2")]`, withRegexp)
	require.Equal(t, []any{true, false, `1\+1=2`}, got)
}

func TestInvalidPattern(t *testing.T) {
	err := scripttest.Error(t, "import regexp\nregexp.compile('(')", withRegexp)
	require.Contains(t, err.Error(), "regexp.compile")
}
