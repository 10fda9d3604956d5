package store

import (
	"fmt"
	"log/slog"
)

// New opens the backend for one collection.
//
// Supported backends:
//
//	"file"   - newline-delimited JSON at dataDir/<collection>.db (default)
//	"sqlite" - SQLite database at dataDir/<collection>.sqlite
//	"memory" - In-memory (ephemeral, for testing)
//
// A deployment must stick to one backend: the engines do not read each
// other's files.
func New(backend, dataDir, collection string, log *slog.Logger) (Backend, error) {
	switch backend {
	case "file", "":
		return NewJsonFileStore(dataDir, collection, log)
	case "sqlite":
		return NewSqliteStore(dataDir, collection)
	case "memory":
		if !ValidCollection(collection) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
		}
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: file, sqlite, memory)", backend)
	}
}
