package object

// Collect runs a full mark-sweep collection.
func (h *Heap) Collect() {
	if h.collecting {
		return
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	before := h.bytes + h.stringBytes
	objectsBefore := h.objectCount

	h.markRoots()
	h.traceReferences()
	h.sweepStrings()
	h.sweepFrozen()
	h.sweep()

	live := h.bytes + h.stringBytes
	h.nextGC = live * h.growFactor
	if h.nextGC < h.minThreshold {
		h.nextGC = h.minThreshold
	}
	h.stats.Collections++
	h.stats.LastFreed = objectsBefore - h.objectCount

	h.logger.Debug().
		Int("collection", h.stats.Collections).
		Int("freed_objects", h.stats.LastFreed).
		Int("live_objects", h.objectCount).
		Int("bytes_before", before).
		Int("bytes_after", live).
		Int("next_gc", h.nextGC).
		Msg("gc cycle")
}

func (h *Heap) markRoots() {
	for _, v := range h.forever {
		h.MarkValue(v)
	}
	h.MarkValues(h.temps)
	for _, r := range h.roots {
		r.MarkRoots(h)
	}
}

// MarkValue marks the string or object referenced by v.
func (h *Heap) MarkValue(v Value) {
	switch v.typ {
	case StringType:
		h.MarkString(v.AsString())
	case ObjType:
		h.MarkObject(v.AsObj())
	}
}

// MarkString marks an interned string.
func (h *Heap) MarkString(s *String) {
	if s != nil {
		s.marked = true
	}
}

// MarkObject greys o so its references are traced.
func (h *Heap) MarkObject(o Obj) {
	if o == nil {
		return
	}
	hd := o.hdr()
	if hd.marked {
		return
	}
	hd.marked = true
	h.gray = append(h.gray, o)
}

// MarkMap marks every key and value of m.
func (h *Heap) MarkMap(m *Map) {
	m.Each(func(k, v Value) bool {
		h.MarkValue(k)
		h.MarkValue(v)
		return true
	})
}

// MarkValues marks every element of values.
func (h *Heap) MarkValues(values []Value) {
	for _, v := range values {
		h.MarkValue(v)
	}
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		o := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o Obj) {
	switch o := o.(type) {
	case *Class:
		h.MarkString(o.Name)
		if o.Super != nil {
			h.MarkObject(o.Super)
		}
		h.MarkMap(&o.Methods)
		h.MarkMap(&o.StaticMethods)
		h.MarkMap(&o.Getters)
		h.MarkMap(&o.Setters)
	case *Closure:
		h.MarkObject(o.Thunk)
		if o.Module != nil {
			h.MarkObject(o.Module)
		}
		for _, u := range o.Upvalues {
			if u != nil {
				h.MarkObject(u)
			}
		}
	case *Thunk:
		h.MarkString(o.Name)
		h.MarkString(o.ModuleName)
		h.MarkValues(o.Constants)
		h.MarkValues(o.DefaultArgs)
		for _, p := range o.ParamNames {
			h.MarkString(p)
		}
	case *Instance:
		h.MarkObject(o.Class)
		h.MarkMap(&o.Fields)
	case *Upvalue:
		if !o.open {
			h.MarkValue(o.closed)
		}
	case *List:
		h.MarkValues(o.Items)
	case *FrozenList:
		h.MarkValues(o.Items)
	case *Dict:
		h.MarkMap(&o.Map)
	case *FrozenDict:
		h.MarkMap(&o.Map)
	case *Native:
		o.Value.Trace(h)
	case *Buffer:
	}
}

func (h *Heap) sweepStrings() {
	for chars, s := range h.strings {
		if s.marked {
			s.marked = false
			continue
		}
		h.stringBytes -= s.accountedSize()
		delete(h.strings, chars)
	}
}

// sweepFrozen drops intern table entries whose collection is about to be
// freed. The tables hold their keys weakly.
func (h *Heap) sweepFrozen() {
	unmarked := func(k Value) bool {
		o := k.AsObj()
		return o != nil && !o.hdr().marked
	}
	h.frozenLists.DeleteIf(unmarked)
	h.frozenDicts.DeleteIf(unmarked)
}

func (h *Heap) sweep() {
	var prev Obj
	o := h.objects
	for o != nil {
		hd := o.hdr()
		if hd.marked {
			hd.marked = false
			prev = o
			o = hd.next
			continue
		}
		unreached := o
		o = hd.next
		if prev == nil {
			h.objects = o
		} else {
			prev.hdr().next = o
		}
		h.free(unreached)
	}
}

func (h *Heap) free(o Obj) {
	hd := o.hdr()
	h.bytes -= hd.size
	h.objectCount--
	hd.next = nil
	if n, ok := o.(*Native); ok {
		if f, ok := n.Value.(Freer); ok {
			f.Free()
		}
	}
}
