package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupIdentifier(t *testing.T) {
	for word, typ := range keywords {
		require.Equal(t, typ, LookupIdentifier(word), word)
	}
	require.Equal(t, DEF, LookupIdentifier("def"))
	require.Equal(t, NIL, LookupIdentifier("nil"))
	require.Equal(t, IDENT, LookupIdentifier("Def"))
	require.Equal(t, IDENT, LookupIdentifier("define"))
}

func TestPositionIsOneBased(t *testing.T) {
	pos := Position{Line: 2, Column: 0, File: "main.ks"}
	require.Equal(t, 3, pos.LineNumber())
	require.Equal(t, 1, pos.ColumnNumber())
	require.True(t, pos.IsValid())
	require.False(t, NoPos.IsValid())
}
