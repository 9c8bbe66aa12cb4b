// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

// orderedEntryMap is a dense insertion-ordered Name->*Entry map: a
// keys/values pair of parallel slices plus a hash index from Name string to
// slice position, giving O(1) average Get/Add/Insert while Keys/Values
// iterate in stable insertion order. InsertAt, Remove and RemoveAt shift and
// reindex every entry after the affected position.
type orderedEntryMap struct {
	keys   []Name
	values []*Entry
	index  map[string]int
}

func newOrderedEntryMap() *orderedEntryMap {
	return &orderedEntryMap{index: make(map[string]int)}
}

// Len returns the number of entries currently present.
func (m *orderedEntryMap) Len() int { return len(m.keys) }

// Get returns the entry for key and whether it was present.
func (m *orderedEntryMap) Get(key string) (*Entry, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Add appends a new key/value pair; it is the caller's responsibility to
// check for an existing key first (see Insert for add-or-replace).
func (m *orderedEntryMap) Add(key Name, value *Entry) {
	m.index[key.String()] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// Insert adds key/value, or replaces the value in place (preserving
// position) if key is already present.
func (m *orderedEntryMap) Insert(key Name, value *Entry) {
	if i, ok := m.index[key.String()]; ok {
		m.values[i] = value
		return
	}
	m.Add(key, value)
}

// InsertAt places key/value at position i, shifting later entries up by one
// and reindexing them. i must be in [0, Len()].
func (m *orderedEntryMap) InsertAt(i int, key Name, value *Entry) {
	m.keys = append(m.keys, Name{})
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = key
	m.values = append(m.values, nil)
	copy(m.values[i+1:], m.values[i:])
	m.values[i] = value
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j].String()] = j
	}
}

// Remove deletes key if present. Removing and re-adding the same key moves
// it to the end of iteration order, matching dense-slice removal.
func (m *orderedEntryMap) Remove(key string) bool {
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.RemoveAt(i)
	return true
}

// RemoveAt deletes the entry at position i, shifting later entries down by
// one and reindexing them.
func (m *orderedEntryMap) RemoveAt(i int) {
	delete(m.index, m.keys[i].String())
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j].String()] = j
	}
}

// Keys returns the keys in stable insertion order. The returned slice must
// not be mutated by the caller.
func (m *orderedEntryMap) Keys() []Name { return m.keys }

// Values returns the values in the same order as Keys. The returned slice
// must not be mutated by the caller.
func (m *orderedEntryMap) Values() []*Entry { return m.values }
