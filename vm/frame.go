package vm

import (
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/object"
)

// frame is one activation of a closure. Slot 0 of the frame, at base, holds
// the callee or the receiver and later receives the return value.
type frame struct {
	closure *object.Closure
	ip      int
	base    int
}

func (f *frame) thunk() *object.Thunk {
	return f.closure.Thunk
}

func (f *frame) readByte() byte {
	b := f.closure.Thunk.Code[f.ip]
	f.ip++
	return b
}

func (f *frame) readShort() int {
	code := f.closure.Thunk.Code
	v := int(code[f.ip])<<8 | int(code[f.ip+1])
	f.ip += 2
	return v
}

func (f *frame) readConstant() object.Value {
	return f.closure.Thunk.Constants[f.readByte()]
}

func (f *frame) readString() *object.String {
	return f.readConstant().AsString()
}

func (f *frame) functionName() string {
	name := f.closure.Thunk.Name.String()
	switch name {
	case "":
		return "<anonymous>"
	case f.closure.Thunk.ModuleName.String():
		return "<main>"
	}
	return name
}

// location returns the source location of the instruction at ip.
func (f *frame) location(ip int) errz.SourceLocation {
	t := f.closure.Thunk
	if ip < 0 {
		ip = 0
	}
	return errz.SourceLocation{Filename: t.Filename, Line: t.LineAt(ip)}
}

// trySnapshot records the state to restore when an error reaches the
// handler of an active try block.
type trySnapshot struct {
	frameCount int
	handler    int
	sp         int
}
