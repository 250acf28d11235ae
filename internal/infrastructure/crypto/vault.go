// Package crypto provides the credential vault: AES-256-GCM encryption for
// integration credentials at rest. Ciphertext is nonce||sealed, base64
// encoded so it can live in ordinary text columns.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrKeyNotConfigured indicates encrypt/decrypt was called without a key
	ErrKeyNotConfigured = errors.New("crypto: encryption key not configured")
	// ErrCiphertextInvalid indicates the ciphertext is malformed or tampered
	ErrCiphertextInvalid = errors.New("crypto: invalid ciphertext")
)

// Vault encrypts and decrypts credential strings with a process-wide key.
// Concurrent calls are safe; the vault holds no mutable state.
type Vault struct {
	key []byte
}

// NewVault creates a vault from a hex-encoded 256-bit key.
func NewVault(hexKey string) (*Vault, error) {
	if hexKey == "" {
		return nil, ErrKeyNotConfigured
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: key must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: key must be 32 bytes, got %d", len(key))
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext with AES-256-GCM and returns base64(nonce||ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated input returns
// ErrCiphertextInvalid.
func (v *Vault) Decrypt(encoded string) (string, error) {
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrCiphertextInvalid
	}
	nonce, data := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	return string(plaintext), nil
}

// DecryptField decrypts a nullable credential column. A nil pointer decrypts
// to the empty string without error.
func (v *Vault) DecryptField(field *string) (string, error) {
	if field == nil || *field == "" {
		return "", nil
	}
	return v.Decrypt(*field)
}

// EncryptField encrypts into a nullable credential column. Empty plaintext
// encrypts to a nil pointer.
func (v *Vault) EncryptField(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	out, err := v.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	if len(v.key) != 32 {
		return nil, ErrKeyNotConfigured
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
