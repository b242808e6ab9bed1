package bmon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
	"github.com/kestrel-lang/kestrel/object"
)

var withBMON = scripttest.Module("bmon", Module)

func TestEncoding(t *testing.T) {
	got := scripttest.Eval(t, `import bmon
List(bmon.dumps([nil, true, false, "hi"]))`, withBMON)
	require.Equal(t, []any{
		6.0, 4.0, 0.0, 0.0, 0.0,
		1.0, 2.0, 3.0,
		5.0, 2.0, 0.0, 0.0, 0.0, 104.0, 105.0,
	}, got)

	got = scripttest.Eval(t, "import bmon\nList(bmon.dumps(1))", withBMON)
	require.Equal(t, []any{4.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 240.0, 63.0}, got)
}

func TestRoundTrip(t *testing.T) {
	tests := []string{
		`nil`,
		`[1, -2.5, "héllo", true, false, nil]`,
		`{"a": [1, 2], "b": {"c": "d"}, 3: nil}`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			got := scripttest.Eval(t, "import bmon\nvar v = "+src+"\nbmon.loads(bmon.dumps(v)) == v", withBMON)
			require.Equal(t, true, got)
		})
	}
}

func TestFrozenValuesLoadAsMutable(t *testing.T) {
	got := scripttest.Eval(t, `import bmon
bmon.loads(bmon.dumps(final{"k": (1,)})) == {"k": [1]}`, withBMON)
	require.Equal(t, true, got)
}

func TestCustomSerialization(t *testing.T) {
	src := `
import bmon
class Point:
  def __init__(x, y):
    this.x = x
    this.y = y
  def __bmon__():
    return [this.x, this.y]
bmon.loads(bmon.dumps(Point(1, 2)))
`
	require.Equal(t, []any{1.0, 2.0}, scripttest.Eval(t, src, withBMON))
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"bmon.dumps(def(): 1)", "is not BMON serializable"},
		{"bmon.loads(Buffer([9]))", "Invalid BMON tag 9"},
		{"bmon.loads(Buffer([5, 4, 0, 0, 0, 104]))", "Unexpected EOF when loading BMON"},
		{"bmon.loads(Buffer([1, 1]))", "Extra data when loading BMON"},
		{"bmon.loads(Buffer())", "Unexpected EOF when loading BMON"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			err := scripttest.Error(t, "import bmon\n"+tt.src, withBMON)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromGo(t *testing.T) {
	h := object.NewHeap()
	resume := h.Pause()
	defer resume()
	v, err := Load(h, []byte{7, 1, 0, 0, 0, 5, 1, 0, 0, 0, 'k', 2})
	require.NoError(t, err)
	d, ok := object.As[*object.Dict](v)
	require.True(t, ok)
	got, ok := d.Map.GetString(h.Intern("k"))
	require.True(t, ok)
	require.True(t, got.AsBool())
}
