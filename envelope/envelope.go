// Package envelope encrypts documents into self-describing ciphertext
// envelopes of the form hex(iv) + ":" + hex(ciphertext).
//
// Envelopes use AES-256-CBC with PKCS#7 padding under a single 32-byte
// process secret. Every call to Encrypt draws a fresh 16-byte IV, so two
// encryptions of the same plaintext never produce the same envelope.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length of the process secret in bytes.
	KeySize = 32
	// IVSize is the length of the per-envelope initialization vector.
	IVSize = aes.BlockSize

	separator = ":"
	indexInfo = "docstore/index"
)

var (
	// ErrMissingSecret is returned when no secret key is configured.
	ErrMissingSecret = errors.New("secret key is not set, generate one with 'custodial secret generate'")

	// ErrInvalidSecret is returned when the secret is not 64 hex characters.
	ErrInvalidSecret = fmt.Errorf("secret key must be %d hex characters", KeySize*2)

	// ErrMalformedEnvelope is returned when an envelope cannot be parsed.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrDecrypt is returned when an envelope parses but does not decrypt,
	// usually because of a wrong key or a corrupted ciphertext.
	ErrDecrypt = errors.New("envelope decryption failed")
)

// Cipher seals and opens envelopes under one secret key.
// It holds no mutable state and is safe for concurrent use.
type Cipher struct {
	block    cipher.Block
	indexKey []byte
	rand     io.Reader
}

// NewCipher parses a hex-encoded 32-byte secret.
func NewCipher(secretHex string) (*Cipher, error) {
	secretHex = strings.TrimSpace(secretHex)
	if secretHex == "" {
		return nil, ErrMissingSecret
	}
	if len(secretHex) != KeySize*2 {
		return nil, ErrInvalidSecret
	}
	key, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return newCipher(key, rand.Reader)
}

func newCipher(key []byte, r io.Reader) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	indexKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte(indexInfo)), indexKey); err != nil {
		return nil, fmt.Errorf("derive index key: %w", err)
	}
	return &Cipher{block: block, indexKey: indexKey, rand: r}, nil
}

// Encrypt seals plaintext into an envelope string.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}
	padded := pad(plaintext)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ct, padded)
	return hex.EncodeToString(iv) + separator + hex.EncodeToString(ct), nil
}

// EncryptJSON marshals v and seals the result.
func (c *Cipher) EncryptJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return c.Encrypt(raw)
}

// Decrypt opens an envelope produced by Encrypt.
func (c *Cipher) Decrypt(env string) ([]byte, error) {
	ivHex, ctHex, ok := strings.Cut(env, separator)
	if !ok || strings.Contains(ctHex, separator) {
		return nil, fmt.Errorf("%w: expected exactly one %q", ErrMalformedEnvelope, separator)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformedEnvelope, err)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv is %d bytes", ErrMalformedEnvelope, len(iv))
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedEnvelope, err)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is %d bytes", ErrMalformedEnvelope, len(ct))
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(pt, ct)
	pt, err = unpad(pt)
	if err != nil {
		return nil, err
	}
	return pt, nil
}

// DecryptJSON opens an envelope and unmarshals the plaintext into v.
func (c *Cipher) DecryptJSON(env string, v any) error {
	raw, err := c.Decrypt(env)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return nil
}

// Index returns a keyed hash of value. Equal values give equal indexes
// under the same secret, which lets a storage engine enforce uniqueness
// without seeing the plaintext.
func (c *Cipher) Index(value string) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrDecrypt
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrDecrypt
		}
	}
	return b[:len(b)-n], nil
}
