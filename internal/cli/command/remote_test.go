package command

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	cliconfig "github.com/yndnr/tradegate-go/internal/cli/config"
)

func TestLogin(t *testing.T) {
	env := newCLIEnv(t)
	srv := newMockServer(t)
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	srv.handle("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorResponse(w, http.StatusBadRequest, "TG-SYS-4000", "bad request")
			return
		}
		if req.Email != "ada@example.com" || req.Password != "correct-horse" {
			errorResponse(w, http.StatusUnauthorized, "TG-AUTH-4015", "invalid email or password")
			return
		}
		jsonResponse(w, http.StatusOK, tokenResponse{
			AccessToken: "jwt-token",
			TokenType:   "bearer",
			ExpiresAt:   expires,
		})
	})

	out := env.mustRun(t, "correct-horse\n",
		"--server", srv.URL, "--profile", "prod", "login", "--email", "ada@example.com")
	if !strings.Contains(out, "2026-01-02T03:04:05Z") {
		t.Errorf("output = %q, want expiry", out)
	}

	req := srv.lastRequest(t)
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if ua := req.Header.Get("User-Agent"); !strings.HasPrefix(ua, "tradegate-cli/") {
		t.Errorf("User-Agent = %q", ua)
	}

	cfg, err := cliconfig.Load(env.configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Current != "prod" {
		t.Errorf("Current = %q, want prod", cfg.Current)
	}
	p := cfg.Profile("prod")
	if p.Server != srv.URL || p.Token != "jwt-token" {
		t.Errorf("profile = %+v", p)
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newCLIEnv(t)
	srv := newMockServer(t)
	srv.handle("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusUnauthorized, "TG-AUTH-4015", "invalid email or password")
	})

	_, err := env.run("wrong\n", "--server", srv.URL, "login", "--email", "ada@example.com")
	if err == nil || !strings.Contains(err.Error(), "TG-AUTH-4015") {
		t.Errorf("error = %v, want TG-AUTH-4015", err)
	}

	if _, err := env.run("", "--server", srv.URL, "login", "--email", "ada@example.com"); err == nil {
		t.Error("expected an error without a password")
	}

	cfg, err := cliconfig.Load(env.configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok := cfg.Profile("").Token; tok != "" {
		t.Errorf("token saved after failed login: %q", tok)
	}
}

func TestLogin_NoSave(t *testing.T) {
	env := newCLIEnv(t)
	srv := newMockServer(t)
	srv.handle("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, tokenResponse{AccessToken: "printed-token", TokenType: "bearer"})
	})

	out := env.mustRun(t, "", "--server", srv.URL, "login", "--email", "a@b.io", "--no-save", "pw-argument")
	if strings.TrimSpace(out) != "printed-token" {
		t.Errorf("output = %q", out)
	}
	cfg, _ := cliconfig.Load(env.configPath)
	if cfg.Profile("").Token != "" {
		t.Error("--no-save wrote the token")
	}
}

func TestStatus(t *testing.T) {
	env := newCLIEnv(t)
	srv := newMockServer(t)
	srv.handle("GET /health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy", "time": "2026-01-01T00:00:00Z"})
	})

	out := env.mustRun(t, "", "--server", srv.URL, "status")
	for _, want := range []string{"FIELD", "healthy", srv.URL} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	srv.handle("GET /health", func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusServiceUnavailable, "TG-SYS-5030", "service unavailable")
	})
	if _, err := env.run("", "--server", srv.URL, "status"); err == nil {
		t.Error("expected an error for an unhealthy server")
	}
}

func TestBlocklist(t *testing.T) {
	env := newCLIEnv(t)
	srv := newMockServer(t)
	blockedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	srv.handle("GET /admin/blocklist", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, listResponse[BlockEntry]{
			Items: []BlockEntry{
				{Identity: "203.0.113.9", Reason: "injection", BlockedAt: blockedAt, Permanent: true},
			},
			Total: 1,
		})
	})
	srv.handle("DELETE /admin/blocklist/203.0.113.9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("not logged in", func(t *testing.T) {
		_, err := env.run("", "--server", srv.URL, "blocklist", "list")
		if err == nil || !strings.Contains(err.Error(), "not logged in") {
			t.Errorf("error = %v, want not logged in", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		out := env.mustRun(t, "", "--server", srv.URL, "--token", "admin-jwt", "blocklist", "list")
		for _, want := range []string{"IDENTITY", "203.0.113.9", "injection", "2026-03-01T12:00:00Z"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "PERMANENT") {
			t.Error("permanent column shown without --wide")
		}
		if got := srv.lastRequest(t).Header.Get("Authorization"); got != "Bearer admin-jwt" {
			t.Errorf("Authorization = %q", got)
		}
	})

	t.Run("remove", func(t *testing.T) {
		out := env.mustRun(t, "", "--server", srv.URL, "--token", "admin-jwt", "blocklist", "rm", "203.0.113.9")
		if !strings.Contains(out, "Unblocked 203.0.113.9") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("remove unknown", func(t *testing.T) {
		_, err := env.run("", "--server", srv.URL, "--token", "admin-jwt", "blocklist", "rm", "198.51.100.1")
		if err == nil || !strings.Contains(err.Error(), "TG-SYS-4040") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("remove without identity", func(t *testing.T) {
		if _, err := env.run("", "--server", srv.URL, "--token", "admin-jwt", "blocklist", "rm"); err == nil {
			t.Error("expected an error")
		}
	})
}
