// Package vault encrypts exchange credentials before they reach storage.
//
// A Vault turns a secret string into a self-contained opaque blob and back.
// The blob carries no key identifier; the same 256-bit key must be used for
// both directions.
//
// Formats:
//
//   - aes-256-cbc (default): base64(IV[16] || AES-256-CBC(PKCS#7(plaintext))).
//     There is no authentication tag. A tampered blob usually fails padding
//     checks, but a successful decrypt only means the blob is plausible.
//   - aes-gcm, chacha20-poly1305: base64(nonce || ciphertext || tag).
//     Any modification is rejected.
//
// Every decrypt failure is reported as ErrDecryption so callers cannot
// distinguish a wrong key from a corrupted blob.
//
// Usage:
//
//	v, err := vault.New(key)
//	blob, err := v.Encrypt("api-secret")
//	plain, err := v.Decrypt(blob)
package vault
