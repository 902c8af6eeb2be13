package credential

import (
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const vaultPrefix = "v1:"

// vaultSalt is fixed so the same secret always yields the same key across
// restarts. Per-value randomness comes from the GCM nonce.
var vaultSalt = []byte("toolshub.vault.1")

// Vault encrypts rented tool credentials at rest.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives the vault key from secret.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault secret is empty")
	}
	aead, err := NewAEAD(DeriveKey(secret, vaultSalt))
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext and returns a printable, versioned token.
func (v *Vault) Seal(plaintext string) (string, error) {
	data, err := Seal(v.aead, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return vaultPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// Open decrypts a token produced by Seal.
func (v *Vault) Open(token string) (string, error) {
	encoded, ok := strings.CutPrefix(token, vaultPrefix)
	if !ok {
		return "", fmt.Errorf("unknown credential format")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	plaintext, err := Open(v.aead, data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
