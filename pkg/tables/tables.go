package tables

import (
	"errors"

	"github.com/xplshn/pcgk/pkg/kernel"
)

var ErrTableFull = errors.New("attribute table is full")

// AttributeTable numbers attribute keys for a whole compute graph. IDs are
// dense and follow insertion order, starting at firstID so that the IDs below
// it stay free for the reserved point properties.
type AttributeTable struct {
	keys     []kernel.AttributeKey
	index    map[kernel.AttributeKey]int
	capacity int
	firstID  int
}

func NewAttributeTable(capacity, firstID int) *AttributeTable {
	return &AttributeTable{
		index:    make(map[kernel.AttributeKey]int),
		capacity: capacity,
		firstID:  firstID,
	}
}

// Add returns the ID of key, appending it when new. A full table is left
// unchanged and ErrTableFull is returned.
func (t *AttributeTable) Add(key kernel.AttributeKey) (int, error) {
	if i, ok := t.index[key]; ok {
		return i + t.firstID, nil
	}
	if len(t.keys) >= t.capacity {
		return -1, ErrTableFull
	}
	t.index[key] = len(t.keys)
	t.keys = append(t.keys, key)
	return len(t.keys) - 1 + t.firstID, nil
}

func (t *AttributeTable) ID(key kernel.AttributeKey) (int, bool) {
	i, ok := t.index[key]
	if !ok {
		return -1, false
	}
	return i + t.firstID, true
}

func (t *AttributeTable) Len() int      { return len(t.keys) }
func (t *AttributeTable) Capacity() int { return t.capacity }
func (t *AttributeTable) FirstID() int  { return t.firstID }

func (t *AttributeTable) Keys() []kernel.AttributeKey {
	return append([]kernel.AttributeKey(nil), t.keys...)
}

func (t *AttributeTable) Clone() *AttributeTable {
	c := NewAttributeTable(t.capacity, t.firstID)
	for _, k := range t.keys {
		c.index[k] = len(c.keys)
		c.keys = append(c.keys, k)
	}
	return c
}

// StringTable holds the unique strings of a compute graph. Index 0 is always
// the empty string, so zeroed string keys read as "no value".
type StringTable struct {
	values []string
	index  map[string]int
}

func NewStringTable() *StringTable {
	return &StringTable{values: []string{""}, index: map[string]int{"": 0}}
}

func (t *StringTable) Add(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	t.index[s] = len(t.values)
	t.values = append(t.values, s)
	return len(t.values) - 1
}

func (t *StringTable) Index(s string) (int, bool) {
	i, ok := t.index[s]
	return i, ok
}

func (t *StringTable) At(i int) string {
	if i < 0 || i >= len(t.values) {
		return ""
	}
	return t.values[i]
}

func (t *StringTable) Len() int { return len(t.values) }

func (t *StringTable) Values() []string { return append([]string(nil), t.values...) }

func (t *StringTable) Clone() *StringTable {
	c := &StringTable{values: append([]string(nil), t.values...), index: make(map[string]int, len(t.index))}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}
