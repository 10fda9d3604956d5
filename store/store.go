// Package store defines the persistence backend interface and implementations.
//
// A backend holds the records of one collection. Records are opaque to the
// backend: Data is an encrypted envelope and Key is a blind index supplied by
// the caller. The backend only guarantees durability, insertion order and
// uniqueness of non-empty keys.
package store

import (
	"errors"
	"regexp"
)

var (
	// ErrDuplicateKey is returned when a record's key is already indexed.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDuplicateID is returned when a record's internal id already exists.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrInvalidCollection is returned for collection names that cannot be
	// used as a file name.
	ErrInvalidCollection = errors.New("invalid collection name")
)

// Record is one stored, encrypted document.
type Record struct {
	// ID is the storage-internal record id, assigned on insert when empty.
	ID string `json:"_id"`
	// Key is the unique index value. Empty keys are not indexed.
	Key string `json:"key,omitempty"`
	// Data is the encrypted envelope.
	Data string `json:"encryptedData"`
}

// Backend is the interface that all persistence engines must implement.
type Backend interface {
	// FindAll returns every record in insertion order.
	FindAll() ([]Record, error)

	// Find returns the records matching pred in insertion order.
	Find(pred func(Record) bool) ([]Record, error)

	// FindByKey looks a record up through the unique index.
	FindByKey(key string) (Record, bool, error)

	// Insert adds a record and persists the collection. The stored record
	// is returned with its assigned ID.
	Insert(rec Record) (Record, error)

	// Update replaces the record with the same ID. Returns false if no
	// such record exists.
	Update(rec Record) (bool, error)

	// Delete removes the records with the given IDs and returns how many
	// existed.
	Delete(ids ...string) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}

var collectionName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidCollection reports whether name can be used as a collection name.
func ValidCollection(name string) bool {
	return collectionName.MatchString(name)
}
