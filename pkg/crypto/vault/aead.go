package vault

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"
)

// aeadCipher seals with an AEAD, prepending the nonce to the output.
type aeadCipher struct {
	aead cipher.AEAD
	kind CipherType
}

// NewAESGCM creates an AES-256-GCM cipher.
func NewAESGCM(key []byte) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{aead: aead, kind: CipherAESGCM}, nil
}

// NewChaCha20 creates a ChaCha20-Poly1305 cipher.
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{aead: aead, kind: CipherChaCha20}, nil
}

// Type returns the cipher type.
func (c *aeadCipher) Type() CipherType {
	return c.kind
}

// Seal encrypts and authenticates plaintext under a fresh nonce.
func (c *aeadCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce, err := randomBytes(c.aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open verifies and decrypts sealed data.
func (c *aeadCipher) Open(sealed []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return nil, ErrDecryption
	}
	out, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return out, nil
}
