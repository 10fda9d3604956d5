// Package docstore is an encrypted document store over a persistence backend.
//
// Documents are plaintext maps carrying a caller-supplied "id" field. The
// store stamps "createdAt" and "updatedAt", seals each document into an
// envelope before it reaches the backend, and opens envelopes on the way
// out. The backend only ever sees ciphertext plus a keyed hash of the id,
// which it uses to keep ids unique.
//
// A record that fails to decrypt (wrong key, truncated line, foreign data)
// is logged and treated as absent: it never aborts a read of the rest of the
// collection.
//
// All operations on one Store are serialized, so mutations apply in the
// order they are issued. Nothing coordinates two processes that open the
// same collection file.
package docstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uratmangun/ai-custodial-wallet/config"
	"github.com/uratmangun/ai-custodial-wallet/envelope"
	"github.com/uratmangun/ai-custodial-wallet/logger"
	"github.com/uratmangun/ai-custodial-wallet/schema"
	"github.com/uratmangun/ai-custodial-wallet/store"
)

// Field names managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

var (
	// ErrConfig is returned by Open when the configuration cannot be used,
	// most commonly because the secret key is missing or malformed.
	ErrConfig = errors.New("store configuration error")

	// ErrMissingID is returned when a document has no non-empty string id.
	ErrMissingID = errors.New("document has no id")

	// ErrDuplicateID is returned when a document id is already taken.
	ErrDuplicateID = errors.New("duplicate identifier")

	// ErrInvalidDocument is returned when a document fails schema validation.
	ErrInvalidDocument = errors.New("invalid document")
)

// Document is a plaintext document.
type Document map[string]any

// ID returns the document's logical identifier, or "" when absent.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// Store is an encrypted collection.
type Store struct {
	mu      sync.Mutex
	name    string
	backend store.Backend
	cipher  *envelope.Cipher
	schema  *schema.Schema
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSchema validates every document written to the store.
func WithSchema(sc *schema.Schema) Option {
	return func(s *Store) { s.schema = sc }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the named collection using the backend and data directory from
// cfg. The secret key is checked before anything touches the filesystem.
func Open(cfg *config.Config, collection string, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no configuration", ErrConfig)
	}
	c, err := envelope.NewCipher(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	s := newStore(collection, c, opts)
	b, err := store.New(cfg.Backend, cfg.DataDir, collection, s.log)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", collection, err)
	}
	return s.attach(b)
}

// New wraps an already opened backend.
func New(collection string, b store.Backend, c *envelope.Cipher, opts ...Option) (*Store, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no cipher", ErrConfig)
	}
	return newStore(collection, c, opts).attach(b)
}

func newStore(collection string, c *envelope.Cipher, opts []Option) *Store {
	s := &Store{
		name:   collection,
		cipher: c,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) attach(b store.Backend) (*Store, error) {
	s.backend = b
	s.log = s.log.With(logger.Collection(s.name))
	if err := s.reindex(); err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}

// reindex gives a blind index key to records written without one, such as
// files produced before the index existed.
func (s *Store) reindex() error {
	recs, err := s.backend.Find(func(r store.Record) bool { return r.Key == "" })
	if err != nil {
		return err
	}
	for _, rec := range recs {
		doc, err := s.decode(rec)
		if err != nil || doc.ID() == "" {
			s.log.Debug("leaving unindexed record", slog.String("record", rec.ID), logger.Error(err))
			continue
		}
		rec.Key = s.cipher.Index(doc.ID())
		if _, err := s.backend.Update(rec); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				s.log.Warn("record id already indexed", slog.String("record", rec.ID))
				continue
			}
			return fmt.Errorf("reindex %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Name returns the collection name.
func (s *Store) Name() string { return s.name }

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// Create stores a new document and returns it as read back from storage.
// Timestamps supplied by the caller are replaced.
func (s *Store) Create(doc Document) (Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	d := make(Document, len(doc)+2)
	for k, v := range doc {
		d[k] = v
	}
	d[FieldCreatedAt] = now
	d[FieldUpdatedAt] = now

	env, err := s.seal(d)
	if err != nil {
		return nil, err
	}
	rec, err := s.backend.Insert(store.Record{Key: s.cipher.Index(id), Data: env})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	if err != nil {
		return nil, err
	}
	return s.decode(rec)
}

// GetByID returns the document with the given id, or nil when there is no
// readable document with that id.
func (s *Store) GetByID(id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, doc, err := s.lookup(id)
	return doc, err
}

// GetAll returns every readable document in insertion order.
func (s *Store) GetAll() ([]Document, error) {
	return s.Find(nil)
}

// Find returns the readable documents matching q in insertion order.
// A nil or empty query matches everything.
func (s *Store) Find(q Query) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Document{}
	err := s.scan(q, func(_ store.Record, doc Document) {
		out = append(out, doc)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of readable documents matching q.
func (s *Store) Count(q Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	err := s.scan(q, func(store.Record, Document) { n++ })
	return n, err
}

// Update merges patch into the document with the given id, refreshes
// updatedAt and returns the merged document. It returns nil, nil when the
// document does not exist. createdAt cannot be changed; id can, as long as
// the new id is free.
func (s *Store) Update(id string, patch Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, cur, err := s.lookup(id)
	if err != nil || cur == nil {
		return nil, err
	}
	merged := make(Document, len(cur)+len(patch))
	for k, v := range cur {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	if created, ok := cur[FieldCreatedAt]; ok {
		merged[FieldCreatedAt] = created
	} else {
		delete(merged, FieldCreatedAt)
	}
	merged[FieldUpdatedAt] = s.timestamp()

	newID := merged.ID()
	if newID == "" {
		return nil, ErrMissingID
	}
	env, err := s.seal(merged)
	if err != nil {
		return nil, err
	}
	rec.Key = s.cipher.Index(newID)
	rec.Data = env
	ok, err := s.backend.Update(rec)
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, newID)
	}
	if err != nil || !ok {
		return nil, err
	}
	return s.decode(rec)
}

// Delete removes the document with the given id and returns the number of
// documents removed (0 or 1).
func (s *Store) Delete(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok, err := s.backend.FindByKey(s.cipher.Index(id))
	if err != nil || !ok {
		return 0, err
	}
	return s.backend.Delete(rec.ID)
}

// DeleteMany removes every readable document matching q and returns how
// many were removed.
func (s *Store) DeleteMany(q Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	err := s.scan(q, func(rec store.Record, _ Document) {
		ids = append(ids, rec.ID)
	})
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return s.backend.Delete(ids...)
}

// lookup finds a document through the index. Caller holds s.mu.
func (s *Store) lookup(id string) (store.Record, Document, error) {
	if id == "" {
		return store.Record{}, nil, nil
	}
	rec, ok, err := s.backend.FindByKey(s.cipher.Index(id))
	if err != nil || !ok {
		return store.Record{}, nil, err
	}
	doc, err := s.decode(rec)
	if err != nil {
		s.warnUnreadable(rec, err)
		return store.Record{}, nil, nil
	}
	return rec, doc, nil
}

// scan decrypts every record, skipping unreadable ones, and calls fn for
// those matching q. Caller holds s.mu.
func (s *Store) scan(q Query, fn func(store.Record, Document)) error {
	recs, err := s.backend.FindAll()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		doc, err := s.decode(rec)
		if err != nil {
			s.warnUnreadable(rec, err)
			continue
		}
		if q.Match(doc) {
			fn(rec, doc)
		}
	}
	return nil
}

func (s *Store) seal(doc Document) (string, error) {
	if err := s.schema.Validate(doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return s.cipher.EncryptJSON(doc)
}

func (s *Store) decode(rec store.Record) (Document, error) {
	var doc Document
	if err := s.cipher.DecryptJSON(rec.Data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: record is not a document", envelope.ErrDecrypt)
	}
	return doc, nil
}

func (s *Store) warnUnreadable(rec store.Record, err error) {
	s.log.Warn("skipping unreadable record", slog.String("record", rec.ID), logger.Error(err))
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
