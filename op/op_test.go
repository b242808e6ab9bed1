package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(Invoke)
	require.Equal(t, "INVOKE", info.Name)
	require.Equal(t, 2, info.OperandCount)
	require.Equal(t, Invoke, info.Code)
	require.Equal(t, 3, info.Width())
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code  Code
		name  string
		width int
	}{
		{Constant, "CONSTANT", 2},
		{Nil, "NIL", 1},
		{GetLocal, "GET_LOCAL", 2},
		{DefineGlobal, "DEFINE_GLOBAL", 2},
		{BinaryOp, "BINARY_OP", 2},
		{Jump, "JUMP", 3},
		{JumpIfFalse, "JUMP_IF_FALSE", 3},
		{Loop, "LOOP", 3},
		{Call, "CALL", 2},
		{SuperInvoke, "SUPER_INVOKE", 3},
		{Closure, "CLOSURE", 2},
		{TryStart, "TRY_START", 3},
		{TryEnd, "TRY_END", 3},
		{GetError, "GET_ERROR", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.width, info.Width())
		})
	}
}

func TestUnknownOpcode(t *testing.T) {
	require.Equal(t, "", GetInfo(Code(255)).Name)
}

func TestBinaryOpStrings(t *testing.T) {
	require.Equal(t, "+", Add.String())
	require.Equal(t, "__add__", Add.Dunder())
	require.Equal(t, "//", FloorDivide.String())
	require.Equal(t, "__floordiv__", FloorDivide.Dunder())
	require.Equal(t, "", BinaryOpType(0).String())
	require.Equal(t, "is", Is.String())
}
