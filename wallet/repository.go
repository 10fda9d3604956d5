// Package wallet manages custodial EVM wallets kept in an encrypted
// document store.
//
// Private keys stay inside this package: the projections handed to callers
// (Wallet and Summary) carry the id and address only. Code that needs to
// sign asks for a Signer by address.
package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uratmangun/ai-custodial-wallet/config"
	"github.com/uratmangun/ai-custodial-wallet/docstore"
	"github.com/uratmangun/ai-custodial-wallet/schema"
)

// Collection is the name of the collection holding wallet records.
const Collection = "wallet"

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrAddressMismatch = errors.New("stored key does not match wallet address")
)

// Schema describes a stored wallet record.
var Schema = schema.MustCompile(map[string]any{
	"type":     "object",
	"required": []any{"id", "privateKey", "publicKey"},
	"properties": map[string]any{
		"id":         map[string]any{"type": "string", "minLength": 1},
		"privateKey": map[string]any{"type": "string", "pattern": "^0x[0-9a-fA-F]{64}$"},
		"publicKey":  map[string]any{"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
		"createdAt":  map[string]any{"type": "string"},
		"updatedAt":  map[string]any{"type": "string"},
	},
	"additionalProperties": false,
})

// Record is a wallet as stored, private key included.
type Record struct {
	ID         string    `json:"id"`
	PrivateKey string    `json:"privateKey"`
	PublicKey  string    `json:"publicKey"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Wallet is the public view of a wallet.
type Wallet struct {
	ID        string    `json:"id"`
	PublicKey string    `json:"publicKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the list view of a wallet.
type Summary struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
}

func (r Record) wallet() Wallet {
	return Wallet{ID: r.ID, PublicKey: r.PublicKey, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// Repository creates and looks up wallets.
type Repository struct {
	wallets *docstore.Collection[Record]
	log     *slog.Logger
	newKey  func() (*Key, error)
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRepository returns a repository over s. The store is expected to hold
// the wallet collection.
func NewRepository(s *docstore.Store, opts ...Option) *Repository {
	r := &Repository{
		wallets: docstore.NewCollection[Record](s),
		log:     slog.Default(),
		newKey:  GenerateKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens the wallet collection described by cfg with schema validation
// enabled.
func Open(cfg *config.Config, log *slog.Logger) (*Repository, error) {
	s, err := docstore.Open(cfg, Collection, docstore.WithSchema(Schema), docstore.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return NewRepository(s, WithLogger(log)), nil
}

// Close closes the underlying store.
func (r *Repository) Close() error {
	return r.wallets.Store().Close()
}

// CreateWallet generates a key pair and stores it under a random id.
func (r *Repository) CreateWallet() (Wallet, error) {
	key, err := r.newKey()
	if err != nil {
		return Wallet{}, err
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return Wallet{}, fmt.Errorf("generate wallet id: %w", err)
	}
	rec, err := r.wallets.Create(Record{
		ID:         hex.EncodeToString(id),
		PrivateKey: key.Hex(),
		PublicKey:  key.Address(),
	})
	if err != nil {
		return Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	r.log.Info("wallet created", slog.String("wallet", rec.ID), slog.String("address", rec.PublicKey))
	return rec.wallet(), nil
}

// ListWallets returns every wallet in creation order.
func (r *Repository) ListWallets() ([]Summary, error) {
	recs, err := r.wallets.All()
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Summary{ID: rec.ID, PublicKey: rec.PublicKey})
	}
	return out, nil
}

// Get returns the public view of the wallet with the given id.
func (r *Repository) Get(id string) (Wallet, error) {
	rec, err := r.wallets.Get(id)
	if err != nil {
		return Wallet{}, err
	}
	if rec == nil {
		return Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return rec.wallet(), nil
}

// FindByAddress returns the full stored record for addr. Addresses match
// regardless of case. The result includes the private key and must not be
// handed to callers outside this process.
func (r *Repository) FindByAddress(addr string) (*Record, error) {
	recs, err := r.wallets.Find(docstore.Query{"publicKey": addr})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		all, err := r.wallets.All()
		if err != nil {
			return nil, err
		}
		for _, rec := range all {
			if strings.EqualFold(rec.PublicKey, addr) {
				recs = append(recs, rec)
			}
		}
	}
	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, addr)
	case 1:
	default:
		r.log.Warn("several wallets share an address, using the first", slog.String("address", addr))
	}
	return &recs[0], nil
}

// Signer returns the signing key for addr after checking that the stored key
// still derives that address.
func (r *Repository) Signer(addr string) (*Key, error) {
	rec, err := r.FindByAddress(addr)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", rec.ID, err)
	}
	if !strings.EqualFold(key.Address(), addr) {
		r.log.Error("stored key does not derive wallet address", slog.String("wallet", rec.ID), slog.String("address", addr))
		return nil, fmt.Errorf("%w: %s", ErrAddressMismatch, addr)
	}
	return key, nil
}
