package catalog

import (
	"sync"
)

// Memory is an in-memory record set keyed by ID. The CLI loads the SQLite
// catalog into a Memory before searching so result hydration does no I/O.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]*FileRecord
	order   []int64
}

// NewMemory creates a Memory holding records. Later duplicates replace
// earlier ones but keep the first position.
func NewMemory(records ...*FileRecord) *Memory {
	m := &Memory{records: make(map[int64]*FileRecord, len(records))}
	for _, r := range records {
		m.Put(r)
	}
	return m
}

// Put adds or replaces a record. Nil records are ignored.
func (m *Memory) Put(r *FileRecord) {
	if r == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = r
}

// Lookup returns the record with the given ID.
func (m *Memory) Lookup(id int64) (*FileRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}

// All returns every record in insertion order.
func (m *Memory) All() []*FileRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*FileRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// Len returns the number of records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Replace swaps the whole record set, keeping the Memory itself so holders
// of the pointer see the new records.
func (m *Memory) Replace(records []*FileRecord) {
	fresh := NewMemory(records...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = fresh.records
	m.order = fresh.order
}
