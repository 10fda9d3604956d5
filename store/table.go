package store

import (
	"fmt"

	"github.com/google/uuid"
)

// table is the in-memory index shared by the memory and file engines.
// It is not safe for concurrent use; callers hold their own lock.
type table struct {
	order []string
	byID  map[string]Record
	byKey map[string]string
}

func newTable() *table {
	return &table{
		byID:  make(map[string]Record),
		byKey: make(map[string]string),
	}
}

func (t *table) insert(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, ok := t.byID[rec.ID]; ok {
		return Record{}, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	if rec.Key != "" {
		if _, ok := t.byKey[rec.Key]; ok {
			return Record{}, ErrDuplicateKey
		}
		t.byKey[rec.Key] = rec.ID
	}
	t.byID[rec.ID] = rec
	t.order = append(t.order, rec.ID)
	return rec, nil
}

func (t *table) update(rec Record) (bool, error) {
	old, ok := t.byID[rec.ID]
	if !ok {
		return false, nil
	}
	if rec.Key != "" && rec.Key != old.Key {
		if _, taken := t.byKey[rec.Key]; taken {
			return false, ErrDuplicateKey
		}
	}
	if old.Key != "" {
		delete(t.byKey, old.Key)
	}
	if rec.Key != "" {
		t.byKey[rec.Key] = rec.ID
	}
	t.byID[rec.ID] = rec
	return true, nil
}

func (t *table) remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		rec, ok := t.byID[id]
		if !ok {
			continue
		}
		drop[id] = true
		delete(t.byID, id)
		if rec.Key != "" {
			delete(t.byKey, rec.Key)
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := t.order[:0]
	for _, id := range t.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	t.order = kept
	return len(drop)
}

func (t *table) find(pred func(Record) bool) []Record {
	out := make([]Record, 0, len(t.order))
	for _, id := range t.order {
		rec := t.byID[id]
		if pred == nil || pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (t *table) lookup(key string) (Record, bool) {
	if key == "" {
		return Record{}, false
	}
	id, ok := t.byKey[key]
	if !ok {
		return Record{}, false
	}
	return t.byID[id], true
}
