package json

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withJSON = scripttest.Module("json", Module)

func TestDumps(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`json.dumps(nil)`, `null`},
		{`json.dumps([1, 2.5, true, "a\n"])`, `[1,2.5,true,"a\n"]`},
		{`json.dumps({"z": 1, "a": [nil]})`, `{"z":1,"a":[null]}`},
		{`json.dumps((1, 2))`, `[1,2]`},
		{`json.dumps({"a": 1}, 2)`, "{\n  \"a\": 1\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, scripttest.Eval(t, "import json\n"+tt.src, withJSON))
		})
	}
}

func TestDumpsErrors(t *testing.T) {
	err := scripttest.Error(t, "import json\njson.dumps({1: 2})", withJSON)
	require.Contains(t, err.Error(), "JSON object keys must be strings")
	err = scripttest.Error(t, "import json\njson.dumps(Buffer())", withJSON)
	require.Contains(t, err.Error(), "is not JSON serializable")
}

func TestLoads(t *testing.T) {
	got := scripttest.Eval(t, `import json
json.loads('{"b": [1, "two", null], "a": {"c": false}}')`, withJSON)
	require.Equal(t, map[string]any{
		"a": map[string]any{"c": false},
		"b": []any{1.0, "two", nil},
	}, got)

	err := scripttest.Error(t, "import json\njson.loads('{')", withJSON)
	require.Contains(t, err.Error(), "json.loads")
}

func TestRoundTrip(t *testing.T) {
	got := scripttest.Eval(t, `import json
var v = {"name": "kestrel", "tags": ["a", "b"], "n": 3}
json.loads(json.dumps(v)) == v`, withJSON)
	require.Equal(t, true, got)
}
