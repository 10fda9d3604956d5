package store

import "sync"

// MemoryStore keeps records in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex
	t  *table
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{t: newTable()}
}

func (m *MemoryStore) FindAll() ([]Record, error) {
	return m.Find(nil)
}

func (m *MemoryStore) Find(pred func(Record) bool) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.find(pred), nil
}

func (m *MemoryStore) FindByKey(key string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.t.lookup(key)
	return rec, ok, nil
}

func (m *MemoryStore) Insert(rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.insert(rec)
}

func (m *MemoryStore) Update(rec Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.update(rec)
}

func (m *MemoryStore) Delete(ids ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t.remove(ids...), nil
}

func (m *MemoryStore) Close() error { return nil }
