package fmt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
	"github.com/kestrel-lang/kestrel/vm"
)

var withFmt = scripttest.Module("fmt", Module)

func TestSprintf(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`fmt.sprintf("%d items", 3)`, "3 items"},
		{`fmt.sprintf("%.2f", 1.5)`, "1.50"},
		{`fmt.sprintf("%s=%q", "k", "v")`, `k="v"`},
		{`fmt.sprintf("%v", [1, "a"])`, "[1 a]"},
		{`fmt.sprintf("%05.1f|%x", 2.5, 255)`, "002.5|ff"},
		{`fmt.sprintf("%s", fmt.sprintf)`, "<function sprintf>"},
		{`fmt.sprintf("plain")`, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, scripttest.Eval(t, "import fmt\n"+tt.src, withFmt))
		})
	}
}

func TestPrintf(t *testing.T) {
	var out bytes.Buffer
	_, err := scripttest.Run(t, `import fmt
fmt.printf("%s:%d\n", "a", 1)`, withFmt, vm.WithStdout(&out))
	require.NoError(t, err)
	require.Equal(t, "a:1\n", out.String())
}
