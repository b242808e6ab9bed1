package jmespath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withJMESPath = scripttest.Module("jmespath", Module)

func TestSearch(t *testing.T) {
	got := scripttest.Eval(t, `import jmespath
var data = {"people": [{"name": "ann", "age": 31}, {"name": "bo", "age": 17}]}
[
  jmespath.search(data, "people[?age > ` + "`20`" + `].name"),
  jmespath.search(data, "people[0]"),
  jmespath.search(data, "length(people)"),
  jmespath.search(data, "missing"),
]`, withJMESPath)
	require.Equal(t, []any{
		[]any{"ann"},
		map[string]any{"age": 31.0, "name": "ann"},
		2.0,
		nil,
	}, got)
}

func TestCompiledQuery(t *testing.T) {
	got := scripttest.Eval(t, `import jmespath
var q = jmespath.compile("a.b")
[q.search({"a": {"b": 1}}), q.search({"a": {"b": [2]}}), repr(q)]`, withJMESPath)
	require.Equal(t, []any{1.0, []any{2.0}, "Query(a.b)"}, got)
}

func TestErrors(t *testing.T) {
	err := scripttest.Error(t, "import jmespath\njmespath.search({}, 'a[')", withJMESPath)
	require.Contains(t, err.Error(), "jmespath.search")
	err = scripttest.Error(t, "import jmespath\njmespath.compile('a[')", withJMESPath)
	require.Contains(t, err.Error(), "jmespath.compile")
}
