package yaml

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withYAML = scripttest.Module("yaml", Module)

func TestDumpsKeepsOrder(t *testing.T) {
	got := scripttest.Eval(t, `import yaml
yaml.dumps({"name": "kestrel", "tags": ["a", "b"], "ratio": 0.5, "count": 3})`, withYAML)
	require.Equal(t, "name: kestrel\ntags:\n- a\n- b\nratio: 0.5\ncount: 3\n", got)
}

func TestLoads(t *testing.T) {
	src := `import yaml
var v = yaml.loads("z: 1\na:\n  - x\n  - true\n  - null\n")
[v.keys(), v["a"]]`
	require.Equal(t, []any{[]any{"z", "a"}, []any{"x", true, nil}}, scripttest.Eval(t, src, withYAML))

	require.Equal(t, 4.5, scripttest.Eval(t, "import yaml\nyaml.loads('4.5')", withYAML))
	require.Equal(t, []any{map[string]any{"k": 1.0}}, scripttest.Eval(t, "import yaml\nyaml.loads('- k: 1')", withYAML))
}

func TestRoundTrip(t *testing.T) {
	got := scripttest.Eval(t, `import yaml
var v = {"a": [1, 2.5, "s"], "b": {"c": nil}, 3: false}
yaml.loads(yaml.dumps(v)) == v`, withYAML)
	require.Equal(t, true, got)
}

func TestErrors(t *testing.T) {
	err := scripttest.Error(t, "import yaml\nyaml.dumps(Buffer())", withYAML)
	require.Contains(t, err.Error(), "is not YAML serializable")
	err = scripttest.Error(t, "import yaml\nyaml.loads('a: [1')", withYAML)
	require.Contains(t, err.Error(), "yaml.loads")
}
