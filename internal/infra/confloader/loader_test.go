package confloader

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr        string        `koanf:"addr"`
			ReadTimeout time.Duration `koanf:"read_timeout"`
		} `koanf:"http"`
	} `koanf:"server"`
	Security struct {
		JWTSecret   string   `koanf:"jwt_secret"`
		CORSOrigins []string `koanf:"cors_origins"`
	} `koanf:"security"`
	Defense struct {
		MaxRequests int  `koanf:"max_requests"`
		Enabled     bool `koanf:"enabled"`
	} `koanf:"defense"`
	ignored string
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/config.yaml"),
		WithDotEnv(".env"),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want TEST_", l.envPrefix)
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
	if len(l.dotEnv) != 1 {
		t.Errorf("dotEnv = %v", l.dotEnv)
	}
	if NewLoader().envPrefix != DefaultEnvPrefix {
		t.Error("default prefix not applied")
	}
}

func TestKeysOf(t *testing.T) {
	keys := KeysOf(&testConfig{})
	want := []string{
		"server.http.addr",
		"server.http.read_timeout",
		"security.jwt_secret",
		"security.cors_origins",
		"defense.max_requests",
		"defense.enabled",
	}
	if !slices.Equal(keys, want) {
		t.Errorf("KeysOf() = %v, want %v", keys, want)
	}
	if KeysOf(nil) != nil {
		t.Error("KeysOf(nil) should be nil")
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http:
    addr: "0.0.0.0:8000"
defense:
  enabled: true
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if addr := l.GetString("server.http.addr"); addr != "0.0.0.0:8000" {
		t.Errorf("server.http.addr = %q", addr)
	}
	if !l.GetBool("defense.enabled") {
		t.Error("defense.enabled should be true")
	}

	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
}

func TestLoader_Load_Defaults(t *testing.T) {
	var cfg testConfig
	cfg.Server.HTTP.Addr = "127.0.0.1:8000"
	cfg.Defense.MaxRequests = 100

	l := NewLoader(WithEnvPrefix("TGTEST_DEFAULTS_"))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:8000" || cfg.Defense.MaxRequests != 100 {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http:
    addr: "from-file:8000"
    read_timeout: 5s
defense:
  max_requests: 50
`)
	t.Setenv("TRADEGATE_SERVER_HTTP_ADDR", "from-env:9000")
	t.Setenv("TRADEGATE_SECURITY_JWT_SECRET", "env-secret")
	t.Setenv("TRADEGATE_SECURITY_CORS_ORIGINS", "https://a.example,https://b.example")

	var cfg testConfig
	l := NewLoader(WithConfigFile(path))
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "from-env:9000" {
		t.Errorf("Addr = %q, env should override file", cfg.Server.HTTP.Addr)
	}
	if cfg.Server.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.HTTP.ReadTimeout)
	}
	if cfg.Security.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q, underscore key not resolved", cfg.Security.JWTSecret)
	}
	if cfg.Defense.MaxRequests != 50 {
		t.Errorf("MaxRequests = %d, want 50", cfg.Defense.MaxRequests)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoader_DotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "TGTEST_DOTENV_DEFENSE_MAX_REQUESTS=7\nTGTEST_DOTENV_SECURITY_JWT_SECRET=from-dotenv\n")
	t.Setenv("TGTEST_DOTENV_SECURITY_JWT_SECRET", "from-process")
	t.Cleanup(func() { os.Unsetenv("TGTEST_DOTENV_DEFENSE_MAX_REQUESTS") })

	var cfg testConfig
	l := NewLoader(
		WithEnvPrefix("TGTEST_DOTENV_"),
		WithDotEnv(envFile, filepath.Join(t.TempDir(), "missing.env")),
	)
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Defense.MaxRequests != 7 {
		t.Errorf("MaxRequests = %d, want 7 from .env", cfg.Defense.MaxRequests)
	}
	if cfg.Security.JWTSecret != "from-process" {
		t.Errorf("JWTSecret = %q, process env should win over .env", cfg.Security.JWTSecret)
	}
}

func TestLoader_LoadEnv_UnknownKey(t *testing.T) {
	t.Setenv("MYAPP_SERVER_PORT", "9090")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if port := l.GetString("server.port"); port != "9090" {
		t.Errorf("server.port = %q, want 9090", port)
	}
}

func TestLoader_LoadEnv_SectionNameIgnored(t *testing.T) {
	t.Setenv("TRADEGATE_SERVER", "http://127.0.0.1:8000")
	t.Setenv("TRADEGATE_SERVER_HTTP_ADDR", "from-env:9000")

	var cfg testConfig
	if err := NewLoader().Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "from-env:9000" {
		t.Errorf("Addr = %q, want from-env:9000", cfg.Server.HTTP.Addr)
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	err := l.LoadMap(map[string]any{
		"log":  map[string]any{"level": "debug"},
		"port": 8080,
	})
	if err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if got := l.GetString("log.level"); got != "debug" {
		t.Errorf("log.level = %q", got)
	}
	if got := l.GetInt("port"); got != 8080 {
		t.Errorf("port = %d", got)
	}
	if len(l.Keys()) < 2 || len(l.All()) < 2 {
		t.Error("Keys()/All() should expose loaded keys")
	}
	if l.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}
