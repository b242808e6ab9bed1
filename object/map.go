package object

const (
	mapMaxLoadNum = 3
	mapMaxLoadDen = 4
	noEntry       = -1
)

type mapEntry struct {
	key   Value
	value Value
	prev  int
	next  int
}

func (e *mapEntry) isEmpty() bool     { return e.key.IsEmptyKey() && e.value.IsNil() }
func (e *mapEntry) isTombstone() bool { return e.key.IsEmptyKey() && !e.value.IsNil() }

// Map is an open addressing hash table with linear probing. Deleted slots
// become tombstones so probe sequences stay intact. Live entries are also
// threaded on a doubly linked list so iteration follows insertion order
// regardless of where keys land in the table.
//
// The zero Map is empty and ready to use.
type Map struct {
	entries  []mapEntry
	size     int // live keys
	occupied int // live keys plus tombstones
	first    int
	last     int
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{first: noEntry, last: noEntry}
}

// Len returns the number of keys.
func (m *Map) Len() int { return m.size }

// Cap returns the number of slots in the table.
func (m *Map) Cap() int { return len(m.entries) }

// Get looks up key. Unhashable keys are never present.
func (m *Map) Get(key Value) (Value, bool) {
	if m.size == 0 {
		return Nil(), false
	}
	h, err := Hash(key)
	if err != nil {
		return Nil(), false
	}
	e := &m.entries[m.find(key, h)]
	if e.key.IsEmptyKey() {
		return Nil(), false
	}
	return e.value, true
}

// GetString looks up a string key.
func (m *Map) GetString(key *String) (Value, bool) {
	if m.size == 0 {
		return Nil(), false
	}
	e := &m.entries[m.find(StringValue(key), key.hash)]
	if e.key.IsEmptyKey() {
		return Nil(), false
	}
	return e.value, true
}

// Has reports whether key is present.
func (m *Map) Has(key Value) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key and reports whether the key is new.
func (m *Map) Set(key, value Value) (bool, error) {
	h, err := Hash(key)
	if err != nil {
		return false, err
	}
	return m.set(key, h, value), nil
}

// SetString stores value under a string key and reports whether it is new.
func (m *Map) SetString(key *String, value Value) bool {
	return m.set(StringValue(key), key.hash, value)
}

func (m *Map) set(key Value, h uint32, value Value) bool {
	if (m.occupied+1)*mapMaxLoadDen > len(m.entries)*mapMaxLoadNum {
		m.resize(growCapacity(len(m.entries)))
	}
	idx := m.find(key, h)
	e := &m.entries[idx]
	isNew := e.key.IsEmptyKey()
	if isNew {
		if e.isEmpty() {
			m.occupied++
		}
		m.size++
		e.key = key
		m.link(idx)
	}
	e.value = value
	return isNew
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key Value) bool {
	if m.size == 0 {
		return false
	}
	h, err := Hash(key)
	if err != nil {
		return false
	}
	idx := m.find(key, h)
	e := &m.entries[idx]
	if e.key.IsEmptyKey() {
		return false
	}
	m.unlink(idx)
	e.key = EmptyKey
	e.value = True()
	m.size--
	return true
}

// Clear removes every key.
func (m *Map) Clear() {
	*m = Map{first: noEntry, last: noEntry}
}

// AddAll copies every entry of src into m, in src's order.
func (m *Map) AddAll(src *Map) {
	src.Each(func(k, v Value) bool {
		h, _ := Hash(k)
		m.set(k, h, v)
		return true
	})
}

// Each calls fn for each entry in insertion order until fn returns false.
func (m *Map) Each(fn func(key, value Value) bool) {
	if m.size == 0 {
		return
	}
	for i := m.first; i != noEntry; i = m.entries[i].next {
		if !fn(m.entries[i].key, m.entries[i].value) {
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	keys := make([]Value, 0, m.size)
	m.Each(func(k, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// DeleteIf removes every entry whose key satisfies pred.
func (m *Map) DeleteIf(pred func(key Value) bool) {
	for _, k := range m.Keys() {
		if pred(k) {
			m.Delete(k)
		}
	}
}

// Find probes for an entry with hash h whose key satisfies match. It is the
// lookup used by the structural intern tables, where the candidate has not
// been allocated yet.
func (m *Map) Find(h uint32, match func(key Value) bool) (Value, bool) {
	if m.size == 0 {
		return Nil(), false
	}
	mask := len(m.entries) - 1
	for i := int(h) & mask; ; i = (i + 1) & mask {
		e := &m.entries[i]
		if e.isEmpty() {
			return Nil(), false
		}
		if e.isTombstone() {
			continue
		}
		if kh, err := Hash(e.key); err == nil && kh == h && match(e.key) {
			return e.key, true
		}
	}
}

// find returns the slot holding key, or else the slot where key should be
// inserted: the first tombstone seen along the probe sequence, if any,
// otherwise the terminating empty slot.
func (m *Map) find(key Value, h uint32) int {
	mask := len(m.entries) - 1
	tombstone := noEntry
	for i := int(h) & mask; ; i = (i + 1) & mask {
		e := &m.entries[i]
		if e.key.IsEmptyKey() {
			if e.value.IsNil() {
				if tombstone != noEntry {
					return tombstone
				}
				return i
			}
			if tombstone == noEntry {
				tombstone = i
			}
		} else if Is(e.key, key) {
			return i
		}
	}
}

func (m *Map) link(idx int) {
	e := &m.entries[idx]
	e.next = noEntry
	e.prev = m.last
	if m.last == noEntry || m.size == 1 {
		m.first = idx
		e.prev = noEntry
	} else {
		m.entries[m.last].next = idx
	}
	m.last = idx
}

func (m *Map) unlink(idx int) {
	e := &m.entries[idx]
	if e.prev == noEntry {
		m.first = e.next
	} else {
		m.entries[e.prev].next = e.next
	}
	if e.next == noEntry {
		m.last = e.prev
	} else {
		m.entries[e.next].prev = e.prev
	}
}

func (m *Map) resize(capacity int) {
	old := m.entries
	first := m.first
	if m.size == 0 {
		first = noEntry
	}
	m.entries = make([]mapEntry, capacity)
	for i := range m.entries {
		m.entries[i] = mapEntry{key: EmptyKey, prev: noEntry, next: noEntry}
	}
	m.size = 0
	m.occupied = 0
	m.first = noEntry
	m.last = noEntry
	for i := first; i != noEntry; i = old[i].next {
		h, _ := Hash(old[i].key)
		idx := m.find(old[i].key, h)
		m.entries[idx].key = old[i].key
		m.entries[idx].value = old[i].value
		m.size++
		m.occupied++
		m.link(idx)
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}
