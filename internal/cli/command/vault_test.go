package command

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/tradegate-go/pkg/crypto/vault"
)

func TestKeygen(t *testing.T) {
	env := newCLIEnv(t)
	out := strings.TrimSpace(env.mustRun(t, "", "keygen"))

	key, err := vault.ParseKey(out)
	if err != nil {
		t.Fatalf("ParseKey(%q): %v", out, err)
	}
	if len(key) != vault.KeySize {
		t.Errorf("key length = %d, want %d", len(key), vault.KeySize)
	}

	again := strings.TrimSpace(env.mustRun(t, "", "keygen"))
	if again == out {
		t.Error("keygen returned the same key twice")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	env := newCLIEnv(t)
	key := strings.TrimSpace(env.mustRun(t, "", "keygen"))

	ciphers := []string{
		string(vault.CipherAESCBC),
		string(vault.CipherAESGCM),
		string(vault.CipherChaCha20),
	}
	for _, c := range ciphers {
		t.Run(c, func(t *testing.T) {
			blob := strings.TrimSpace(env.mustRun(t, "", "encrypt", "--key", key, "--cipher", c, "exchange-secret"))
			if blob == "" || strings.Contains(blob, "exchange-secret") {
				t.Fatalf("blob = %q", blob)
			}

			plain := env.mustRun(t, "", "decrypt", "--key", key, "--cipher", c, blob)
			if strings.TrimSpace(plain) != "exchange-secret" {
				t.Errorf("decrypt = %q, want exchange-secret", plain)
			}
		})
	}
}

func TestEncrypt_Stdin(t *testing.T) {
	env := newCLIEnv(t)
	key := strings.TrimSpace(env.mustRun(t, "", "keygen"))
	t.Setenv("TRADEGATE_SECURITY_VAULT_KEY", key)

	blob := strings.TrimSpace(env.mustRun(t, "from-stdin\n", "encrypt"))
	plain := env.mustRun(t, blob+"\n", "decrypt", "-")
	if strings.TrimSpace(plain) != "from-stdin" {
		t.Errorf("decrypt = %q, want from-stdin", plain)
	}
}

func TestEncryptDecrypt_Errors(t *testing.T) {
	env := newCLIEnv(t)
	key := strings.TrimSpace(env.mustRun(t, "", "keygen"))
	other := strings.TrimSpace(env.mustRun(t, "", "keygen"))
	blob := strings.TrimSpace(env.mustRun(t, "", "encrypt", "--key", key, "value"))

	tests := []struct {
		name string
		args []string
	}{
		{"missing key", []string{"encrypt", "value"}},
		{"short key", []string{"encrypt", "--key", "c2hvcnQ=", "value"}},
		{"unknown cipher", []string{"encrypt", "--key", key, "--cipher", "rot13", "value"}},
		{"empty input", []string{"encrypt", "--key", key}},
		{"wrong key", []string{"decrypt", "--key", other, blob}},
		{"not base64", []string{"decrypt", "--key", key, "%%%"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.run("", tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	env := newCLIEnv(t)
	hash := strings.TrimSpace(env.mustRun(t, "", "hash-password", "--cost", "4", "hunter22!"))

	if !strings.HasPrefix(hash, "$2a$04$") {
		t.Errorf("hash = %q, want bcrypt cost 4", hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter22!")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}

	if _, err := env.run("", "hash-password", "--cost", "99", "x"); err == nil {
		t.Error("expected an error for an out-of-range cost")
	}
}
