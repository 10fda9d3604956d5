package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/uratmangun/ai-custodial-wallet/logger"
)

// JsonFileStore keeps one collection in memory and mirrors it to a
// newline-delimited JSON file, one Record per line.
//
// Layout:
//
//	data_dir/
//	  wallet.db   # "wallet" collection
//	  users.db    # "users" collection
//
// Every mutation rewrites the whole file through a temp file and a rename,
// so the file on disk is always a complete snapshot. Lines that cannot be
// parsed on load are skipped and written back unchanged at the end of the
// file on the next rewrite.
type JsonFileStore struct {
	mu      sync.RWMutex
	path    string
	t       *table
	orphans []string
	log     *slog.Logger
}

// NewJsonFileStore opens the collection file at dir/collection.db, creating
// the directory and an empty file when they do not exist.
func NewJsonFileStore(dir, collection string, log *slog.Logger) (*JsonFileStore, error) {
	if !ValidCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	s := &JsonFileStore{
		path: filepath.Join(dir, collection+".db"),
		t:    newTable(),
		log:  log.With(logger.Collection(collection)),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *JsonFileStore) Path() string {
	return s.path
}

func (s *JsonFileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(s.path, nil, 0o600); err != nil {
			return fmt.Errorf("create %s: %w", s.path, err)
		}
		s.log.Info("created collection file", slog.String("path", s.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Data == "" {
			if err == nil {
				err = errors.New("record has no encryptedData")
			}
			s.log.Warn("skipping unreadable record", slog.Int("line", i+1), logger.Error(err))
			s.orphans = append(s.orphans, line)
			continue
		}
		if _, err := s.t.insert(rec); err != nil {
			s.log.Warn("skipping conflicting record", slog.Int("line", i+1), logger.Error(err))
			s.orphans = append(s.orphans, line)
		}
	}
	return nil
}

// sync rewrites the file from the in-memory state. Caller holds s.mu.
func (s *JsonFileStore) sync() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range s.t.find(nil) {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	for _, line := range s.orphans {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := writeFile(s.path, buf.Bytes(), 0o600); err != nil {
		s.log.Error("collection resync failed", logger.Error(err))
		return fmt.Errorf("resync %s: %w", s.path, err)
	}
	return nil
}

func (s *JsonFileStore) FindAll() ([]Record, error) {
	return s.Find(nil)
}

func (s *JsonFileStore) Find(pred func(Record) bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t.find(pred), nil
}

func (s *JsonFileStore) FindByKey(key string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.t.lookup(key)
	return rec, ok, nil
}

func (s *JsonFileStore) Insert(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.t.insert(rec)
	if err != nil {
		return Record{}, err
	}
	return rec, s.sync()
}

func (s *JsonFileStore) Update(rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.t.update(rec)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.sync()
}

func (s *JsonFileStore) Delete(ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.t.remove(ids...)
	if n == 0 {
		return 0, nil
	}
	return n, s.sync()
}

func (s *JsonFileStore) Close() error { return nil }

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
