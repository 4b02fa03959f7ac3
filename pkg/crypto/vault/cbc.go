package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
)

// AESCBC implements AES-256-CBC with PKCS#7 padding and a random IV
// prepended to the ciphertext.
type AESCBC struct {
	block cipher.Block
}

// NewAESCBC creates a CBC cipher. Key must be exactly 32 bytes.
func NewAESCBC(key []byte) (*AESCBC, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &AESCBC{block: block}, nil
}

// Type returns the cipher type.
func (c *AESCBC) Type() CipherType {
	return CipherAESCBC
}

// Seal pads plaintext and encrypts it under a fresh IV.
func (c *AESCBC) Seal(plaintext []byte) ([]byte, error) {
	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// Open splits the IV, decrypts and removes padding.
func (c *AESCBC) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 2*aes.BlockSize || len(sealed)%aes.BlockSize != 0 {
		return nil, ErrDecryption
	}

	iv, ct := sealed[:aes.BlockSize], sealed[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ct)

	out, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok {
		return nil, ErrDecryption
	}
	return out, nil
}

// pkcs7Pad appends 1..blockSize bytes, each holding the pad length.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// pkcs7Unpad validates and strips padding without branching on the
// position of the first bad byte.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}

	good := 1
	for i := len(data) - blockSize; i < len(data); i++ {
		inPad := subtle.ConstantTimeLessOrEq(len(data)-n, i)
		match := subtle.ConstantTimeByteEq(data[i], byte(n))
		// Bytes inside the pad must match; bytes outside are ignored.
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}
	if good != 1 {
		return nil, false
	}
	return data[:len(data)-n], true
}
