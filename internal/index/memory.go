package index

import (
	"cmp"
	"slices"

	"datatime/internal/timeline"
)

type memoryEntry struct {
	key int64
	rec timeline.Record
}

// MemoryIndex keeps every entry in a slice and stable-sorts it by key before
// the first iteration, so equal keys stay in insertion order.
type MemoryIndex struct {
	entries    []memoryEntry
	maxEntries int
	sorted     bool
}

var _ timeline.Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index. maxEntries caps the number of
// entries; zero or less means no cap.
func NewMemoryIndex(maxEntries int) *MemoryIndex {
	return &MemoryIndex{maxEntries: maxEntries, sorted: true}
}

// Insert appends an entry, or returns timeline.ErrIndexFull once the cap is reached.
func (m *MemoryIndex) Insert(key int64, rec timeline.Record) error {
	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		return timeline.ErrIndexFull
	}
	m.entries = append(m.entries, memoryEntry{key: key, rec: rec})
	m.sorted = false
	return nil
}

func (m *MemoryIndex) Len() int { return len(m.entries) }

// Each visits entries by ascending key; ties keep insertion order.
func (m *MemoryIndex) Each(fn func(key int64, rec timeline.Record) error) error {
	if !m.sorted {
		slices.SortStableFunc(m.entries, func(a, b memoryEntry) int {
			return cmp.Compare(a.key, b.key)
		})
		m.sorted = true
	}
	for _, e := range m.entries {
		if err := fn(e.key, e.rec); err != nil {
			return err
		}
	}
	return nil
}

// Close drops the entries so the records can be collected.
func (m *MemoryIndex) Close() error {
	m.entries = nil
	m.sorted = true
	return nil
}
