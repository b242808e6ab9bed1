package dis

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-lang/kestrel/compiler"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

func compile(t *testing.T, src string) *object.Thunk {
	t.Helper()
	// No collection runs without an allocation outside a pause, so the
	// thunk stays valid for the whole test.
	thunk, err := compiler.Compile(object.NewHeap(), src)
	require.NoError(t, err)
	return thunk
}

func names(instructions []Instruction) []string {
	var out []string
	for _, instr := range instructions {
		out = append(out, instr.Name)
	}
	return out
}

func TestDisassembleConstants(t *testing.T) {
	thunk := compile(t, "var x = 42\nx + 'a'")
	instructions, err := Disassemble(thunk)
	require.NoError(t, err)
	require.Contains(t, names(instructions), "DEFINE_GLOBAL")
	require.Contains(t, names(instructions), "BINARY_OP")

	var sawNumber, sawGlobal bool
	for _, instr := range instructions {
		switch instr.Opcode {
		case op.Constant:
			require.NotNil(t, instr.Constant)
			if instr.Annotation == "42" {
				sawNumber = true
			}
		case op.DefineGlobal:
			require.Equal(t, `"x"`, instr.Annotation)
			sawGlobal = true
		case op.BinaryOp:
			require.Equal(t, "+", instr.Annotation)
		}
		require.Equal(t, instr.Line, thunk.LineAt(instr.Offset))
	}
	require.True(t, sawNumber)
	require.True(t, sawGlobal)
}

func TestDisassembleClosure(t *testing.T) {
	src := `
def outer(a):
  def inner():
    return a
  return inner
`
	thunk := compile(t, src)
	var outer *object.Thunk
	for _, c := range thunk.Constants {
		if fn, ok := object.As[*object.Thunk](c); ok {
			outer = fn
		}
	}
	require.NotNil(t, outer)
	instructions, err := Disassemble(outer)
	require.NoError(t, err)
	var closure *Instruction
	for i := range instructions {
		if instructions[i].Opcode == op.Closure {
			closure = &instructions[i]
		}
	}
	require.NotNil(t, closure)
	require.Equal(t, "local 1", closure.Annotation)

	// Offsets must line up with the upvalue pairs that follow CLOSURE.
	last := instructions[len(instructions)-1]
	require.Equal(t, "RETURN", last.Name)
}

func TestJumpTargets(t *testing.T) {
	thunk := compile(t, "var i = 0\nwhile i < 3:\n  i = i + 1")
	instructions, err := Disassemble(thunk)
	require.NoError(t, err)
	offsets := map[int]bool{}
	for _, instr := range instructions {
		offsets[instr.Offset] = true
	}
	for _, instr := range instructions {
		switch instr.Opcode {
		case op.Jump, op.JumpIfFalse, op.Loop:
			var target int
			_, err := fmt.Sscanf(instr.Annotation, "-> %d", &target)
			require.NoError(t, err)
			require.True(t, offsets[target] || target == len(thunk.Code), "bad target %d", target)
		}
	}
}

func TestInvalidOpcode(t *testing.T) {
	h := object.NewHeap()
	thunk := h.NewThunk(h.Intern("bad"), h.Intern("bad"))
	thunk.Write(255, 1)
	_, err := Disassemble(thunk)
	require.ErrorContains(t, err, "invalid opcode 255")
}

func TestPrintAll(t *testing.T) {
	color.NoColor = true
	thunk := compile(t, "def f():\n  return 42\nf()")
	var buf bytes.Buffer
	require.NoError(t, PrintAll(thunk, &buf))
	out := buf.String()
	require.Contains(t, out, "| OFFSET |")
	require.Contains(t, out, "func:f")
	require.Contains(t, out, "f (arity 0, upvalues 0)")
	require.Contains(t, out, "| 42")
}
