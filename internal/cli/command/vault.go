package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/pkg/crypto/vault"
)

func keyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Vault key (base64 or hex, 32 bytes)",
			EnvVars: []string{"TRADEGATE_SECURITY_VAULT_KEY"},
		},
		&cli.StringFlag{
			Name:    "cipher",
			Usage:   "Cipher: aes-256-cbc, aes-gcm, chacha20-poly1305",
			Value:   string(vault.CipherAESCBC),
			EnvVars: []string{"TRADEGATE_SECURITY_VAULT_CIPHER"},
		},
	}
}

// KeygenCommand returns the keygen command.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a random vault key",
		Action: func(c *cli.Context) error {
			key, err := vault.GenerateKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			fmt.Fprintln(c.App.Writer, vault.EncodeKey(key))
			return nil
		},
	}
}

// EncryptCommand returns the encrypt command.
func EncryptCommand() *cli.Command {
	return &cli.Command{
		Name:      "encrypt",
		Usage:     "Encrypt a value with the vault key",
		ArgsUsage: "[PLAINTEXT|-]",
		Flags:     keyFlags(),
		Action: func(c *cli.Context) error {
			v, err := openVault(c)
			if err != nil {
				return err
			}
			plain, err := readInput(c, "plaintext")
			if err != nil {
				return err
			}
			blob, err := v.Encrypt(plain)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			fmt.Fprintln(c.App.Writer, blob)
			return nil
		},
	}
}

// DecryptCommand returns the decrypt command.
func DecryptCommand() *cli.Command {
	return &cli.Command{
		Name:      "decrypt",
		Usage:     "Decrypt a vault blob",
		ArgsUsage: "[BLOB|-]",
		Flags:     keyFlags(),
		Action: func(c *cli.Context) error {
			v, err := openVault(c)
			if err != nil {
				return err
			}
			blob, err := readInput(c, "ciphertext")
			if err != nil {
				return err
			}
			plain, err := v.Decrypt(blob)
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}
			fmt.Fprintln(c.App.Writer, plain)
			return nil
		},
	}
}

func openVault(c *cli.Context) (*vault.Vault, error) {
	if c.String("key") == "" {
		return nil, errors.New("vault key is required (--key or TRADEGATE_SECURITY_VAULT_KEY)")
	}
	key, err := vault.ParseKey(c.String("key"))
	if err != nil {
		return nil, err
	}
	t, err := vault.ParseCipherType(c.String("cipher"))
	if err != nil {
		return nil, err
	}
	return vault.New(key, vault.WithCipher(t))
}

// HashPasswordCommand returns the hash-password command.
func HashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Hash a password with bcrypt",
		ArgsUsage: "[PASSWORD|-]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "cost",
				Usage: "bcrypt cost",
				Value: authn.DefaultBcryptCost,
			},
		},
		Action: func(c *cli.Context) error {
			plain, err := readInput(c, "password")
			if err != nil {
				return err
			}
			// Hashing needs no secret; a throwaway one satisfies the constructor.
			auth, err := localAuthenticator(make([]byte, authn.MinSecretLength), 0, c.Int("cost"))
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(plain)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(c.App.Writer, hash)
			return nil
		},
	}
}
