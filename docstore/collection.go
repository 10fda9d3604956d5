package docstore

import (
	"encoding/json"
	"fmt"
)

// Collection is a typed view over a Store. T must round-trip through JSON
// and carry its identifier in a field tagged `json:"id"`.
type Collection[T any] struct {
	s *Store
}

// NewCollection returns a typed view over s.
func NewCollection[T any](s *Store) *Collection[T] {
	return &Collection[T]{s: s}
}

// Store returns the underlying document store.
func (c *Collection[T]) Store() *Store { return c.s }

func (c *Collection[T]) Create(v T) (T, error) {
	var zero T
	doc, err := toDocument(v)
	if err != nil {
		return zero, err
	}
	out, err := c.s.Create(doc)
	if err != nil {
		return zero, err
	}
	return fromDocument[T](out)
}

// Get returns nil when no document has the given id.
func (c *Collection[T]) Get(id string) (*T, error) {
	doc, err := c.s.GetByID(id)
	if err != nil || doc == nil {
		return nil, err
	}
	v, err := fromDocument[T](doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Collection[T]) All() ([]T, error) {
	return c.Find(nil)
}

func (c *Collection[T]) Find(q Query) ([]T, error) {
	docs, err := c.s.Find(q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := fromDocument[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Update returns nil when no document has the given id.
func (c *Collection[T]) Update(id string, patch Document) (*T, error) {
	doc, err := c.s.Update(id, patch)
	if err != nil || doc == nil {
		return nil, err
	}
	v, err := fromDocument[T](doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Collection[T]) Delete(id string) (int, error) {
	return c.s.Delete(id)
}

func (c *Collection[T]) Count(q Query) (int, error) {
	return c.s.Count(q)
}

func toDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

func fromDocument[T any](doc Document) (T, error) {
	var v T
	b, err := json.Marshal(doc)
	if err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	return v, nil
}
