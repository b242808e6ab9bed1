package bcrypt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/internal/scripttest"
)

var withBcrypt = scripttest.Module("bcrypt", Module)

func TestHashAndCompare(t *testing.T) {
	got := scripttest.Eval(t, `import bcrypt
var h = bcrypt.hash("hunter2", 4)
[h[0:4], bcrypt.compare(h, "hunter2"), bcrypt.compare(h, "hunter3"), bcrypt.compare(h, Buffer("hunter2"))]`, withBcrypt)
	require.Equal(t, []any{"$2a$", true, false, true}, got)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"bcrypt.hash('x', 2)", "cost must be between"},
		{"bcrypt.hash(1)", "expects a string or buffer"},
		{"bcrypt.compare('not a hash', 'x')", "bcrypt.compare"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			err := scripttest.Error(t, "import bcrypt\n"+tt.src, withBcrypt)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
