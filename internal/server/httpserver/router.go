package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Services are the business services behind the handlers.
	Services handler.Services

	// Auth validates bearer tokens.
	Auth *authn.Authenticator

	// Pipeline screens every request before routing.
	Pipeline *defense.Pipeline

	// Metrics receives request and auth observations (optional).
	Metrics Metrics

	// MetricsHandler serves MetricsPath (optional; nil disables the endpoint).
	MetricsHandler http.Handler

	// MetricsPath is the scrape path (default: /metrics).
	MetricsPath string

	// Logger for request logging.
	Logger *slog.Logger

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = CORS off).
	CORSAllowedOrigins []string

	// TrustProxyHeaders makes X-Forwarded-For / X-Real-IP the client identity.
	TrustProxyHeaders bool

	// MaxBodyBytes limits request bodies (0 = unlimited).
	MaxBodyBytes int64
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		MetricsPath:  "/metrics",
		MaxBodyBytes: 1 << 20,
	}
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
//
// Every request passes RequestID, Audit, Recover, Defense, CORS and MaxBody
// in that order. Routes then add Authenticate, or Authenticate and
// RequireAdmin.
func NewRouter(cfg *RouterConfig) (http.Handler, error) {
	if cfg == nil {
		return nil, errors.New("httpserver: nil router config")
	}
	if cfg.Auth == nil {
		return nil, errors.New("httpserver: authenticator is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("httpserver: defense pipeline is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	h := handler.New(cfg.Services, log)
	clientIP := ClientIP(cfg.TrustProxyHeaders)

	authed := Chain(h, Authenticate(cfg.Auth, metrics, log))
	admin := Chain(h, Authenticate(cfg.Auth, metrics, log), RequireAdmin())

	mux := http.NewServeMux()

	// Public endpoints
	mux.Handle("GET /{$}", h)
	mux.Handle("GET /health", h)
	mux.Handle("POST /users/register", h)
	mux.Handle("POST /users/login", h)
	mux.Handle("POST /webhook/tradingview", h)

	if cfg.MetricsHandler != nil {
		mux.Handle("GET "+metricsPath, cfg.MetricsHandler)
	}

	// Authenticated endpoints
	mux.Handle("GET /users/me", authed)
	mux.Handle("GET /api-keys", authed)
	mux.Handle("POST /api-keys", authed)
	mux.Handle("DELETE /api-keys/{id}", authed)
	mux.Handle("GET /trading/trades", authed)
	mux.Handle("GET /trading/deposits", authed)
	mux.Handle("POST /trading/deposits", authed)
	mux.Handle("GET /trading/withdrawals", authed)
	mux.Handle("POST /trading/withdrawals", authed)
	mux.Handle("POST /trading/execute", authed)

	// Admin endpoints
	mux.Handle("GET /admin/blocklist", admin)
	mux.Handle("DELETE /admin/blocklist/{identity}", admin)
	mux.Handle("GET /admin/users", admin)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteDomainError(w, r, domain.ErrNotFound)
	})

	return Chain(mux,
		RequestID(),
		Audit(log, metrics, clientIP),
		Recover(log),
		Defense(cfg.Pipeline, clientIP, log),
		CORS(cfg.CORSAllowedOrigins),
		MaxBody(cfg.MaxBodyBytes),
	), nil
}
