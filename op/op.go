// Package op defines opcodes used by the kestrel compiler and virtual machine.
//
// Instructions are a one byte opcode followed by zero or more operands.
// Operands are one byte wide (constant, local, upvalue and argument indices)
// except jump offsets, which are two bytes, big endian.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Constants and stack
	Constant Code = 1
	Nil      Code = 2
	True     Code = 3
	False    Code = 4
	Pop      Code = 5
	Dup      Code = 6

	// Variables
	GetLocal     Code = 10
	SetLocal     Code = 11
	GetGlobal    Code = 12
	SetGlobal    Code = 13
	DefineGlobal Code = 14
	GetUpvalue   Code = 15
	SetUpvalue   Code = 16
	GetField     Code = 17
	SetField     Code = 18

	// Operations
	BinaryOp  Code = 30
	CompareOp Code = 31
	Not       Code = 32
	Negate    Code = 33
	BitNot    Code = 34

	// Jumps
	Jump                Code = 40
	JumpIfFalse         Code = 41
	JumpIfStopIteration Code = 42
	Loop                Code = 43

	// Iteration
	GetIter Code = 50
	GetNext Code = 51

	// Calls
	Call        Code = 60
	CallKw      Code = 61
	Invoke      Code = 62
	InvokeKw    Code = 63
	SuperInvoke Code = 64
	Return      Code = 65

	// Closures
	Closure      Code = 70
	CloseUpvalue Code = 71

	// Build
	NewList       Code = 80
	NewFrozenList Code = 81
	NewDict       Code = 82
	NewFrozenDict Code = 83

	// Classes and modules
	Class        Code = 90
	Inherit      Code = 91
	Method       Code = 92
	StaticMethod Code = 93
	Import       Code = 94

	// Exception handling
	TryStart Code = 100 // Push a try snapshot; operand is the handler offset
	TryEnd   Code = 101 // Pop the try snapshot and jump past the handler
	Raise    Code = 102 // Raise TOS
	GetError Code = 103 // Push the value caught by the innermost handler
)

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands. For example, addition, subtraction, multiplication, etc.
type BinaryOpType uint8

const (
	Add         BinaryOpType = 1
	Subtract    BinaryOpType = 2
	Multiply    BinaryOpType = 3
	Divide      BinaryOpType = 4
	FloorDivide BinaryOpType = 5
	Modulo      BinaryOpType = 6
	Power       BinaryOpType = 7
	LShift      BinaryOpType = 8
	RShift      BinaryOpType = 9
	BitwiseAnd  BinaryOpType = 10
	BitwiseOr   BinaryOpType = 11
	BitwiseXor  BinaryOpType = 12
)

// String returns a string representation of the binary operation.
// For example, "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case FloorDivide:
		return "//"
	case Modulo:
		return "%"
	case Power:
		return "**"
	case LShift:
		return "<<"
	case RShift:
		return ">>"
	case BitwiseAnd:
		return "&"
	case BitwiseOr:
		return "|"
	case BitwiseXor:
		return "^"
	default:
		return ""
	}
}

// Dunder returns the name of the method a non-numeric left operand must
// implement for this operation.
func (bop BinaryOpType) Dunder() string {
	switch bop {
	case Add:
		return "__add__"
	case Subtract:
		return "__sub__"
	case Multiply:
		return "__mul__"
	case Divide:
		return "__truediv__"
	case FloorDivide:
		return "__floordiv__"
	case Modulo:
		return "__mod__"
	case Power:
		return "__pow__"
	case LShift:
		return "__lshift__"
	case RShift:
		return "__rshift__"
	case BitwiseAnd:
		return "__and__"
	case BitwiseOr:
		return "__or__"
	case BitwiseXor:
		return "__xor__"
	default:
		return ""
	}
}

// CompareOpType describes a type of comparison operation. Negated forms
// (!=, >=, <=, is not, not in) are compiled as the positive form followed
// by Not.
type CompareOpType uint8

const (
	Equal       CompareOpType = 1
	LessThan    CompareOpType = 2
	GreaterThan CompareOpType = 3
	Is          CompareOpType = 4
	In          CompareOpType = 5
)

// String returns a string representation of the comparison operation.
func (cop CompareOpType) String() string {
	switch cop {
	case Equal:
		return "=="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case Is:
		return "is"
	case In:
		return "in"
	default:
		return ""
	}
}

// OperandKind describes how an operand should be interpreted.
type OperandKind uint8

const (
	U8       OperandKind = 1 // slot, count or sub-operation
	ConstIdx OperandKind = 2 // index into the constant pool
	Offset   OperandKind = 3 // two byte jump offset
)

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
	Operands     []OperandKind
}

// Width returns the encoded size of the instruction in bytes, not counting
// the variable-length upvalue pairs that follow Closure.
func (i Info) Width() int {
	w := 1
	for _, k := range i.Operands {
		if k == Offset {
			w += 2
		} else {
			w++
		}
	}
	return w
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op       Code
		name     string
		operands []OperandKind
	}
	ops := []opInfo{
		{Constant, "CONSTANT", []OperandKind{ConstIdx}},
		{Nil, "NIL", nil},
		{True, "TRUE", nil},
		{False, "FALSE", nil},
		{Pop, "POP", nil},
		{Dup, "DUP", nil},
		{GetLocal, "GET_LOCAL", []OperandKind{U8}},
		{SetLocal, "SET_LOCAL", []OperandKind{U8}},
		{GetGlobal, "GET_GLOBAL", []OperandKind{ConstIdx}},
		{SetGlobal, "SET_GLOBAL", []OperandKind{ConstIdx}},
		{DefineGlobal, "DEFINE_GLOBAL", []OperandKind{ConstIdx}},
		{GetUpvalue, "GET_UPVALUE", []OperandKind{U8}},
		{SetUpvalue, "SET_UPVALUE", []OperandKind{U8}},
		{GetField, "GET_FIELD", []OperandKind{ConstIdx}},
		{SetField, "SET_FIELD", []OperandKind{ConstIdx}},
		{BinaryOp, "BINARY_OP", []OperandKind{U8}},
		{CompareOp, "COMPARE_OP", []OperandKind{U8}},
		{Not, "NOT", nil},
		{Negate, "NEGATE", nil},
		{BitNot, "BIT_NOT", nil},
		{Jump, "JUMP", []OperandKind{Offset}},
		{JumpIfFalse, "JUMP_IF_FALSE", []OperandKind{Offset}},
		{JumpIfStopIteration, "JUMP_IF_STOP_ITERATION", []OperandKind{Offset}},
		{Loop, "LOOP", []OperandKind{Offset}},
		{GetIter, "GET_ITER", nil},
		{GetNext, "GET_NEXT", nil},
		{Call, "CALL", []OperandKind{U8}},
		{CallKw, "CALL_KW", []OperandKind{U8}},
		{Invoke, "INVOKE", []OperandKind{ConstIdx, U8}},
		{InvokeKw, "INVOKE_KW", []OperandKind{ConstIdx, U8}},
		{SuperInvoke, "SUPER_INVOKE", []OperandKind{ConstIdx, U8}},
		{Return, "RETURN", nil},
		{Closure, "CLOSURE", []OperandKind{ConstIdx}},
		{CloseUpvalue, "CLOSE_UPVALUE", nil},
		{NewList, "NEW_LIST", []OperandKind{U8}},
		{NewFrozenList, "NEW_FROZEN_LIST", []OperandKind{U8}},
		{NewDict, "NEW_DICT", []OperandKind{U8}},
		{NewFrozenDict, "NEW_FROZEN_DICT", []OperandKind{U8}},
		{Class, "CLASS", []OperandKind{ConstIdx}},
		{Inherit, "INHERIT", nil},
		{Method, "METHOD", []OperandKind{ConstIdx}},
		{StaticMethod, "STATIC_METHOD", []OperandKind{ConstIdx}},
		{Import, "IMPORT", []OperandKind{ConstIdx}},
		{TryStart, "TRY_START", []OperandKind{Offset}},
		{TryEnd, "TRY_END", []OperandKind{Offset}},
		{Raise, "RAISE", nil},
		{GetError, "GET_ERROR", nil},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: len(o.operands),
			Operands:     o.operands,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}
