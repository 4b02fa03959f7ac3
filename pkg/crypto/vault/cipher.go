package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// CipherType identifies the blob format.
type CipherType string

const (
	CipherAESCBC   CipherType = "aes-256-cbc"
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// KeySize is the required key length in bytes.
const KeySize = 32

var (
	// ErrDecryption is returned for every blob that cannot be opened.
	ErrDecryption = errors.New("vault: decryption failed")

	// ErrInvalidKey is returned when the key is not KeySize bytes.
	ErrInvalidKey = errors.New("vault: key must be 32 bytes")
)

// Cipher seals and opens raw bytes. Sealed output embeds its own IV/nonce.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Seal encrypts plaintext.
	Seal(plaintext []byte) ([]byte, error)

	// Open decrypts sealed data. Any failure returns ErrDecryption.
	Open(sealed []byte) ([]byte, error)
}

// ParseCipherType validates a configured cipher name. Empty selects CBC.
func ParseCipherType(s string) (CipherType, error) {
	switch CipherType(s) {
	case "", CipherAESCBC:
		return CipherAESCBC, nil
	case CipherAESGCM, CipherChaCha20:
		return CipherType(s), nil
	default:
		return "", fmt.Errorf("vault: unknown cipher type %q", s)
	}
}

// newCipher builds the cipher for t.
func newCipher(key []byte, t CipherType) (Cipher, error) {
	switch t {
	case CipherAESCBC:
		return NewAESCBC(key)
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("vault: unknown cipher type %q", t)
	}
}

// randomBytes reads n bytes from the CSPRNG.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("vault: read random: %w", err)
	}
	return b, nil
}
