package domain

import "strings"

// Credential constraints.
const (
	MaxExchangeLength = 32
	MaxAPIKeyLength   = 512
)

// SupportedExchanges lists the exchanges credentials can be stored for.
var SupportedExchanges = []string{"binance", "bybit", "okx", "kraken", "coinbase", "bitget", "kucoin"}

// Credential is an exchange API key pair. Key and secret are only ever held
// as opaque vault blobs; the persistence layer stores them verbatim.
type Credential struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Exchange        string `json:"exchange"`
	EncryptedKey    string `json:"encrypted_key"`
	EncryptedSecret string `json:"encrypted_secret"`
	KeyHint         string `json:"key_hint"`
	CreatedAt       int64  `json:"created_at"` // Unix ms
}

// Clone returns a copy of the credential.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// NormalizeExchange lowercases and trims an exchange name.
func NormalizeExchange(exchange string) string {
	return strings.ToLower(strings.TrimSpace(exchange))
}

// IsSupportedExchange reports whether exchange is in SupportedExchanges.
func IsSupportedExchange(exchange string) bool {
	exchange = NormalizeExchange(exchange)
	for _, e := range SupportedExchanges {
		if e == exchange {
			return true
		}
	}
	return false
}

// ValidateCredentialInput checks a plaintext key pair before encryption.
func ValidateCredentialInput(exchange, key, secret string) error {
	if !IsSupportedExchange(exchange) {
		return ErrCredentialValidation.WithDetails("unsupported exchange: " + exchange)
	}
	if key == "" || secret == "" {
		return ErrCredentialValidation.WithDetails("key and secret are required")
	}
	if len(key) > MaxAPIKeyLength || len(secret) > MaxAPIKeyLength {
		return ErrCredentialValidation.WithDetails("key or secret too long")
	}
	return nil
}

// KeyHint masks an exchange API key for display: first 4 and last 4 chars.
func KeyHint(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
