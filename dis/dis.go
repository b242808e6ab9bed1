// Package dis supports analysis of kestrel bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and the thunks
// produced by the `compiler` package.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/kestrel-lang/kestrel/internal/table"
	"github.com/kestrel-lang/kestrel/object"
	"github.com/kestrel-lang/kestrel/op"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int
	Line       int
	Name       string
	Opcode     op.Code
	Operands   []int
	Annotation string
	Constant   *object.Value
}

// Disassemble returns a parsed representation of the thunk's bytecode.
func Disassemble(thunk *object.Thunk) ([]Instruction, error) {
	var instructions []Instruction
	code := thunk.Code
	for offset := 0; offset < len(code); {
		info := op.GetInfo(op.Code(code[offset]))
		if info.Name == "" {
			return nil, fmt.Errorf("invalid opcode %d at offset %d", code[offset], offset)
		}
		instr := Instruction{
			Offset: offset,
			Line:   thunk.LineAt(offset),
			Name:   info.Name,
			Opcode: info.Code,
		}
		pos := offset + 1
		for _, kind := range info.Operands {
			width := 1
			if kind == op.Offset {
				width = 2
			}
			if pos+width > len(code) {
				return nil, fmt.Errorf("truncated %s instruction at offset %d", info.Name, offset)
			}
			v := int(code[pos])
			if width == 2 {
				v = v<<8 | int(code[pos+1])
			}
			instr.Operands = append(instr.Operands, v)
			pos += width
		}
		next, err := annotate(thunk, &instr, pos)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instr)
		offset = next
	}
	return instructions, nil
}

// annotate fills in the annotation of instr, whose fixed operands end at
// pos, and returns the offset of the next instruction.
func annotate(thunk *object.Thunk, instr *Instruction, pos int) (int, error) {
	constant := func(i int) (object.Value, error) {
		if i >= len(thunk.Constants) {
			return object.Nil(), fmt.Errorf("constant index out of range: %d", i)
		}
		return thunk.Constants[i], nil
	}
	switch instr.Opcode {
	case op.Constant, op.GetGlobal, op.SetGlobal, op.DefineGlobal, op.GetField, op.SetField,
		op.Invoke, op.InvokeKw, op.SuperInvoke, op.Class, op.Method, op.StaticMethod, op.Import:
		c, err := constant(instr.Operands[0])
		if err != nil {
			return 0, err
		}
		if instr.Opcode == op.Constant {
			instr.Constant = &c
		}
		instr.Annotation = describe(c)
	case op.Closure:
		c, err := constant(instr.Operands[0])
		if err != nil {
			return 0, err
		}
		fn, ok := object.As[*object.Thunk](c)
		if !ok {
			return 0, fmt.Errorf("closure constant %d is not a function", instr.Operands[0])
		}
		instr.Constant = &c
		var captures []string
		for i := 0; i < fn.UpvalueCount; i++ {
			if pos+2 > len(thunk.Code) {
				return 0, fmt.Errorf("truncated CLOSURE instruction at offset %d", instr.Offset)
			}
			kind := "upvalue"
			if thunk.Code[pos] == 1 {
				kind = "local"
			}
			captures = append(captures, fmt.Sprintf("%s %d", kind, thunk.Code[pos+1]))
			pos += 2
		}
		instr.Annotation = strings.Join(captures, ", ")
	case op.GetLocal, op.SetLocal:
		slot := instr.Operands[0]
		if slot > 0 && slot <= len(thunk.ParamNames) {
			instr.Annotation = thunk.ParamNames[slot-1].String()
		}
	case op.BinaryOp:
		instr.Annotation = op.BinaryOpType(instr.Operands[0]).String()
	case op.CompareOp:
		instr.Annotation = op.CompareOpType(instr.Operands[0]).String()
	case op.Jump, op.JumpIfFalse, op.JumpIfStopIteration, op.TryStart, op.TryEnd:
		instr.Annotation = "-> " + strconv.Itoa(pos+instr.Operands[0])
	case op.Loop:
		instr.Annotation = "-> " + strconv.Itoa(pos-instr.Operands[0])
	}
	return pos, nil
}

func describe(v object.Value) string {
	switch v.Type() {
	case object.NilType:
		return "nil"
	case object.BoolType:
		return strconv.FormatBool(v.AsBool())
	case object.NumberType:
		return object.FormatNumber(v.AsNumber())
	case object.StringType:
		s := v.AsString().String()
		if len(s) > 80 {
			s = s[:77] + "..."
		}
		return strconv.Quote(s)
	}
	if fn, ok := object.As[*object.Thunk](v); ok {
		return "func:" + thunkName(fn)
	}
	return object.TypeName(v)
}

func thunkName(thunk *object.Thunk) string {
	if thunk.Name == nil || thunk.Name.String() == "" {
		return "<anonymous>"
	}
	return thunk.Name.String()
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
)

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for _, instr := range instructions {
		values := []string{
			strconv.Itoa(instr.Offset),
			strconv.Itoa(instr.Line),
			bold(instr.Name),
			formatOperands(instr.Operands),
		}
		switch {
		case instr.Constant != nil:
			c := *instr.Constant
			switch {
			case c.IsNumber():
				values = append(values, yellow(instr.Annotation))
			case c.IsString():
				values = append(values, green(instr.Annotation))
			default:
				info := describe(c)
				if instr.Annotation != "" {
					info += " (" + instr.Annotation + ")"
				}
				values = append(values, magenta(info))
			}
		case instr.Annotation != "":
			values = append(values, cyan(instr.Annotation))
		default:
			values = append(values, "")
		}
		lines = append(lines, values)
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "LINE", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

// PrintAll disassembles thunk and every function nested in its constants,
// printing each under a header with its name.
func PrintAll(thunk *object.Thunk, writer io.Writer) error {
	seen := map[*object.Thunk]bool{}
	var walk func(t *object.Thunk) error
	walk = func(t *object.Thunk) error {
		if seen[t] {
			return nil
		}
		seen[t] = true
		instructions, err := Disassemble(t)
		if err != nil {
			return fmt.Errorf("%s: %w", thunkName(t), err)
		}
		if len(seen) > 1 {
			fmt.Fprintln(writer)
		}
		fmt.Fprintf(writer, "%s (arity %d, upvalues %d)\n", bold(thunkName(t)), t.Arity, t.UpvalueCount)
		Print(instructions, writer)
		for _, c := range t.Constants {
			if nested, ok := object.As[*object.Thunk](c); ok {
				if err := walk(nested); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(thunk)
}

func formatOperands(ops []int) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = strconv.Itoa(o)
	}
	return strings.Join(parts, ", ")
}
