package envelope

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret returns a new random secret key, hex encoded.
func GenerateSecret() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}
