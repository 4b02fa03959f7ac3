package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// mockServer is a test HTTP server with per-path handlers.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

// newMockServer creates a mock server that is closed with the test.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(r.Context()))
		handler, ok := m.handlers[r.Method+" "+r.URL.Path]
		m.mu.Unlock()
		if !ok {
			errorResponse(w, http.StatusNotFound, "TG-SYS-4040", "not found")
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for "METHOD /path".
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// lastRequest returns the most recent request.
func (m *mockServer) lastRequest(t *testing.T) *http.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		t.Fatal("server received no requests")
	}
	return m.requests[len(m.requests)-1]
}

// jsonResponse writes a success envelope around data.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "success",
		"request_id": "req-test",
		"data":       data,
	})
}

// errorResponse writes an error envelope.
func errorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
	})
}

// cliEnv runs the CLI against an isolated CLI config file.
type cliEnv struct {
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, name := range []string{
		"TRADEGATE_SERVER", "TRADEGATE_TOKEN", "TRADEGATE_PROFILE",
		"TRADEGATE_SECURITY_VAULT_KEY", "TRADEGATE_SECURITY_VAULT_CIPHER",
		"TRADEGATE_SECURITY_JWT_SECRET", "TRADEGATE_CONFIG",
	} {
		t.Setenv(name, "")
	}
	return &cliEnv{configPath: filepath.Join(t.TempDir(), "cli.yaml")}
}

// run executes the app with args and stdin, returning stdout.
func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	full := append([]string{"tradegate-cli", "--cli-config", e.configPath}, args...)
	err := app.Run(full)
	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *cliEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(stdin, args...)
	if err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out
}
