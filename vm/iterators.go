package vm

import "github.com/kestrel-lang/kestrel/object"

var (
	listIteratorDescriptor   = &object.NativeDescriptor{Name: "ListIterator"}
	valuesIteratorDescriptor = &object.NativeDescriptor{Name: "Iterator"}
	stringIteratorDescriptor = &object.NativeDescriptor{Name: "StringIterator"}
)

// listIterator reads a live list by index, so items appended while
// iterating are visited.
type listIterator struct {
	list *object.List
	next int
}

func (it *listIterator) Descriptor() *object.NativeDescriptor { return listIteratorDescriptor }
func (it *listIterator) Trace(h *object.Heap)                 { h.MarkObject(it.list) }

func (it *listIterator) Next(rt object.Runtime) (object.Value, error) {
	if it.next >= len(it.list.Items) {
		return object.StopIteration, nil
	}
	v := it.list.Items[it.next]
	it.next++
	return v, nil
}

// valuesIterator steps through a fixed slice, such as the items of a
// frozen list or a snapshot of dict keys.
type valuesIterator struct {
	values []object.Value
	next   int
}

func (it *valuesIterator) Descriptor() *object.NativeDescriptor { return valuesIteratorDescriptor }
func (it *valuesIterator) Trace(h *object.Heap)                 { h.MarkValues(it.values[it.next:]) }

func (it *valuesIterator) Next(rt object.Runtime) (object.Value, error) {
	if it.next >= len(it.values) {
		return object.StopIteration, nil
	}
	v := it.values[it.next]
	it.next++
	return v, nil
}

// stringIterator yields each code point of a string as a string.
type stringIterator struct {
	s    *object.String
	next int
}

func (it *stringIterator) Descriptor() *object.NativeDescriptor { return stringIteratorDescriptor }
func (it *stringIterator) Trace(h *object.Heap)                 { h.MarkString(it.s) }

func (it *stringIterator) Next(rt object.Runtime) (object.Value, error) {
	if it.next >= it.s.Len() {
		return object.StopIteration, nil
	}
	v := rt.Heap().Str(it.s.Substring(it.next, it.next+1))
	it.next++
	return v, nil
}

func newIterator(h *object.Heap, it object.Iterator) object.Value {
	return object.ObjValue(h.NewNative(it))
}
