package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/core/service"
	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
)

// Services bundles the business services behind the API.
type Services struct {
	Users       *service.UserService
	Credentials *service.CredentialService
	Ledger      *service.LedgerService
	Webhook     *service.WebhookService
	Security    *service.SecurityService
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	users    *service.UserService
	creds    *service.CredentialService
	ledger   *service.LedgerService
	webhook  *service.WebhookService
	security *service.SecurityService
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a new Handler with the given services.
func New(svcs Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		users:    svcs.Users,
		creds:    svcs.Credentials,
		ledger:   svcs.Ledger,
		webhook:  svcs.Webhook,
		security: svcs.Security,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Service endpoints
	h.mux.HandleFunc("GET /{$}", h.handleRoot)
	h.mux.HandleFunc("GET /health", h.handleHealth)

	// Users
	h.mux.HandleFunc("POST /users/register", h.handleRegister)
	h.mux.HandleFunc("POST /users/login", h.handleLogin)
	h.mux.HandleFunc("GET /users/me", h.handleMe)

	// Exchange credentials
	h.mux.HandleFunc("GET /api-keys", h.handleListCredentials)
	h.mux.HandleFunc("POST /api-keys", h.handleCreateCredential)
	h.mux.HandleFunc("DELETE /api-keys/{id}", h.handleDeleteCredential)

	// Ledger
	h.mux.HandleFunc("GET /trading/trades", h.handleListTrades)
	h.mux.HandleFunc("GET /trading/deposits", h.handleListDeposits)
	h.mux.HandleFunc("POST /trading/deposits", h.handleRecordDeposit)
	h.mux.HandleFunc("GET /trading/withdrawals", h.handleListWithdrawals)
	h.mux.HandleFunc("POST /trading/withdrawals", h.handleRecordWithdrawal)
	h.mux.HandleFunc("POST /trading/execute", h.handleExecute)

	// Signals
	h.mux.HandleFunc("POST /webhook/tradingview", h.handleTradingView)

	// Admin endpoints
	h.mux.HandleFunc("GET /admin/blocklist", h.handleListBlocked)
	h.mux.HandleFunc("DELETE /admin/blocklist/{identity}", h.handleUnblock)
	h.mux.HandleFunc("GET /admin/users", h.handleListUsers)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := RequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "request_id", requestID, "error", err)
	}
}

// WriteError writes an error response with standard envelope format. The
// middleware chain uses it for denials raised before a handler runs.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := RequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	if status == http.StatusUnauthorized && strings.HasPrefix(code, "TG-AUTH-") {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// WriteDomainError writes err's code and status without its cause.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err *domain.DomainError) {
	var details any
	if err.Details != "" {
		details = err.Details
	}
	WriteError(w, r, err.HTTPStatus(), err.Code, err.Message, details)
}

// RequestID returns the request ID assigned by the middleware chain.
func RequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.L(r.Context())

	if authn.IsAuthError(err) {
		log.Warn("authentication failed", "reason", authn.Reason(err))
		WriteDomainError(w, r, domain.ErrUnauthenticated)
		return
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.HTTPStatus() >= http.StatusInternalServerError {
			// Causes stay in the log; clients get the code and message.
			log.Error("request failed", "code", de.Code, "error", err)
			WriteError(w, r, de.HTTPStatus(), de.Code, de.Message, nil)
			return
		}
		if errors.Is(err, domain.ErrLoginThrottled) {
			w.Header().Set("Retry-After", strconv.Itoa(int(service.DefaultLoginInterval.Seconds())))
		}
		WriteDomainError(w, r, de)
		return
	}

	// Generic internal error
	log.Error("internal error", "error", err)
	WriteDomainError(w, r, domain.ErrInternalServer)
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrPayloadTooLarge
		}
		return domain.ErrBadRequest.WithDetails("invalid request body")
	}
	return nil
}

// currentUser returns the authenticated user. Routes registered behind the
// authentication middleware always have one.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	u := authn.UserFromContext(r.Context())
	if u == nil {
		WriteDomainError(w, r, domain.ErrUnauthenticated)
		return nil, false
	}
	return u, true
}
