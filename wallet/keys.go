package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidHash    = errors.New("hash must be 32 bytes")
)

// Key is a secp256k1 signing key for an EVM account.
type Key struct {
	priv *secp256k1.PrivateKey
}

// GenerateKey returns a new random key.
func GenerateKey() (*Key, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{priv: priv}, nil
}

// ParsePrivateKey parses a 32-byte hex key with or without the 0x prefix.
func ParsePrivateKey(s string) (*Key, error) {
	b, err := hex.DecodeString(strip0x(strings.TrimSpace(s)))
	if err != nil || len(b) != 32 {
		return nil, ErrInvalidKey
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, ErrInvalidKey
	}
	return &Key{priv: secp256k1.NewPrivateKey(&scalar)}, nil
}

// Hex returns the private key as 0x followed by 64 lowercase hex digits.
func (k *Key) Hex() string {
	return "0x" + hex.EncodeToString(k.priv.Serialize())
}

// Address returns the EIP-55 checksummed account address.
func (k *Key) Address() string {
	pub := k.priv.PubKey().SerializeUncompressed()
	return checksum(keccak256(pub[1:])[12:])
}

// Sign signs a 32-byte hash and returns the signature as R || S || V with
// V in {0, 1}.
func (k *Key) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, ErrInvalidHash
	}
	compact := ecdsa.SignCompact(k.priv, hash, false)
	// SignCompact puts the recovery code (27 + v) first.
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27
	return sig, nil
}

// IsAddress reports whether s is 0x followed by 40 hex digits. The checksum
// is not verified.
func IsAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// ChecksumAddress returns the EIP-55 form of addr.
func ChecksumAddress(addr string) (string, error) {
	if !IsAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	b, _ := hex.DecodeString(addr[2:])
	return checksum(b), nil
}

func checksum(addr []byte) string {
	lower := hex.EncodeToString(addr)
	hash := keccak256([]byte(lower))
	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0xf >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func keccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}

func strip0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
