package vault

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Vault encrypts strings into opaque base64 blobs. It is safe for
// concurrent use.
type Vault struct {
	cipher Cipher
}

// Option configures a Vault.
type Option func(*options)

type options struct {
	cipherType CipherType
}

// WithCipher selects the blob format. The default is CipherAESCBC.
func WithCipher(t CipherType) Option {
	return func(o *options) {
		o.cipherType = t
	}
}

// New creates a Vault for a 32-byte key.
func New(key []byte, opts ...Option) (*Vault, error) {
	o := options{cipherType: CipherAESCBC}
	for _, opt := range opts {
		opt(&o)
	}

	c, err := newCipher(key, o.cipherType)
	if err != nil {
		return nil, err
	}
	return &Vault{cipher: c}, nil
}

// CipherType returns the blob format this vault produces.
func (v *Vault) CipherType() CipherType {
	return v.cipher.Type()
}

// Encrypt seals the UTF-8 bytes of plaintext and returns the base64 blob.
// It only fails when the random source fails.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	sealed, err := v.cipher.Seal([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt with the same key and format.
// Every failure, including output that is not valid UTF-8, is ErrDecryption.
func (v *Vault) Decrypt(blob string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryption
	}
	plain, err := v.cipher.Open(sealed)
	if err != nil {
		return "", ErrDecryption
	}
	if !utf8.Valid(plain) {
		return "", ErrDecryption
	}
	return string(plain), nil
}

// GenerateKey returns a new random 32-byte key.
func GenerateKey() ([]byte, error) {
	return randomBytes(KeySize)
}

// EncodeKey renders a key in the form ParseKey accepts first.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// ParseKey decodes a configured key. Accepted forms, in order: standard
// base64, unpadded URL-safe base64, 64 hex characters, or a raw 32-byte
// string. The result must be exactly 32 bytes.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	if len(s) == 2*KeySize {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	if len(s) == KeySize {
		return []byte(s), nil
	}
	return nil, ErrInvalidKey
}
