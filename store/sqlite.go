package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SqliteStore keeps one collection in its own SQLite database.
//
// Table:
//
//	records(seq, id, key, data)  seq gives insertion order, id and non-empty key are unique
//
// Every mutation is a single transaction, so the database never holds a
// partially applied write. Only envelopes are written to data.
type SqliteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSqliteStore opens (or creates) the collection database at
// dir/collection.sqlite.
func NewSqliteStore(dir, collection string) (*SqliteStore, error) {
	if !ValidCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, collection+".sqlite"))
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			key TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS records_key ON records(key) WHERE key <> ''`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) FindAll() ([]Record, error) {
	return s.Find(nil)
}

func (s *SqliteStore) Find(pred func(Record) bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query("SELECT id, key, data FROM records ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.Data); err != nil {
			return nil, err
		}
		if pred == nil || pred(rec) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func (s *SqliteStore) FindByKey(key string) (Record, bool, error) {
	if key == "" {
		return Record{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := Record{Key: key}
	err := s.db.QueryRow("SELECT id, data FROM records WHERE key = ?", key).Scan(&rec.ID, &rec.Data)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *SqliteStore) Insert(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM records WHERE id = ?", rec.ID).Scan(&n); err != nil {
		return Record{}, err
	}
	if n > 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	if _, err := tx.Exec(
		"INSERT INTO records (id, key, data) VALUES (?, ?, ?)",
		rec.ID, rec.Key, rec.Data,
	); err != nil {
		return Record{}, constraintErr(err)
	}
	return rec, tx.Commit()
}

func (s *SqliteStore) Update(rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"UPDATE records SET key = ?, data = ? WHERE id = ?",
		rec.Key, rec.Data, rec.ID,
	)
	if err != nil {
		return false, constraintErr(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SqliteStore) Delete(ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM records WHERE id = ?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	total := 0
	for _, id := range ids {
		res, err := stmt.Exec(id)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, tx.Commit()
}

// constraintErr maps the driver's unique-constraint failure onto ErrDuplicateKey.
func constraintErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
