package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/server/httpserver/handler"
	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
	"github.com/yndnr/tradegate-go/pkg/secure"
)

// maxRequestIDLength bounds client-supplied X-Request-ID values.
const maxRequestIDLength = 128

// Metrics receives per-request observations. *metric.Registry implements it.
type Metrics interface {
	ObserveRequest(method, status string, seconds float64)
	RecordAuthFailure(reason string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, float64) {}
func (nopMetrics) RecordAuthFailure(string)               {}

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// requestState is shared by the middlewares of one request so the audit
// record can report values resolved further down the chain.
type requestState struct {
	start    time.Time
	clientIP string
	userID   string
}

type stateKey struct{}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey{}).(*requestState)
	return st
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check for existing request ID in header
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > maxRequestIDLength {
				if id, err := secure.GenerateWithLength(16); err == nil {
					requestID = "req-" + id
				} else {
					requestID = "req-unknown"
				}
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			if stateFrom(ctx) == nil {
				ctx = context.WithValue(ctx, stateKey{}, &requestState{start: time.Now()})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFunc resolves the client identity of a request.
type ClientIPFunc func(r *http.Request) string

// ClientIP returns a resolver for the client address. Forwarding headers are
// only honored when trustProxy is set, since clients can forge them.
func ClientIP(trustProxy bool) ClientIPFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
				return xri
			}
		}

		// Use net.SplitHostPort to correctly handle IPv6 addresses like [::1]:8080
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

// Audit writes one log record and one metric observation per request.
func Audit(log *slog.Logger, metrics Metrics, clientIP ClientIPFunc) Middleware {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithLogger(r.Context(), log)
			st := stateFrom(ctx)
			if st == nil {
				st = &requestState{start: time.Now()}
				ctx = context.WithValue(ctx, stateKey{}, st)
			}
			r = r.WithContext(ctx)
			st.clientIP = clientIP(r)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(st.start)
			metrics.ObserveRequest(r.Method, strconv.Itoa(wrapped.statusCode), duration.Seconds())

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"client_ip", st.clientIP,
			}
			if st.userID != "" {
				attrs = append(attrs, "user_id", st.userID)
			}

			// Log based on status code
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					handler.WriteDomainError(w, r, domain.ErrInternalServer)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Defense runs every request through the defense pipeline. Allowed requests
// get the security headers before the next handler runs; denials are
// answered with the reason's status and code.
func Defense(p *defense.Pipeline, clientIP ClientIPFunc, log *slog.Logger) Middleware {
	retryAfter := strconv.Itoa(int(p.Window().Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := defense.NewRequest(r, clientIP(r))

			verdict, err := p.Evaluate(ctx, req)
			if err != nil {
				log.Error("defense pipeline failed",
					"request_id", logger.RequestIDFromContext(ctx),
					"identity", req.Identity,
					"error", err,
				)
				handler.WriteDomainError(w, r, domain.ErrInternalServer)
				return
			}

			if !verdict.Allowed {
				log.Warn("request denied",
					"request_id", logger.RequestIDFromContext(ctx),
					"identity", req.Identity,
					"stage", verdict.Stage,
					"reason", verdict.Reason.String(),
					"path", r.URL.Path,
				)
				if verdict.Reason == defense.ReasonRateLimited {
					w.Header().Set("Retry-After", retryAfter)
				}
				var details any
				if verdict.Detail != "" {
					details = verdict.Detail
				}
				handler.WriteError(w, r, verdict.Reason.Status(), verdict.Reason.Code(), verdict.Reason.Err().Message, details)
				return
			}

			defense.ApplySecurityHeaders(w.Header())
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate requires a valid bearer token. Every failure is answered
// with the same 401; the precise reason is only logged and counted.
func Authenticate(auth *authn.Authenticator, metrics Metrics, log *slog.Logger) Middleware {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				metrics.RecordAuthFailure(authn.Reason(domain.ErrUnauthenticated))
				handler.WriteDomainError(w, r, domain.ErrUnauthenticated)
				return
			}

			user, err := auth.ValidateToken(ctx, token)
			if err != nil {
				if !authn.IsAuthError(err) {
					log.Error("token subject lookup failed",
						"request_id", logger.RequestIDFromContext(ctx),
						"error", err,
					)
					handler.WriteDomainError(w, r, domain.ErrInternalServer)
					return
				}
				reason := authn.Reason(err)
				metrics.RecordAuthFailure(reason)
				log.Warn("authentication failed",
					"request_id", logger.RequestIDFromContext(ctx),
					"reason", reason,
				)
				handler.WriteDomainError(w, r, domain.ErrUnauthenticated)
				return
			}

			if st := stateFrom(ctx); st != nil {
				st.userID = user.ID
			}
			ctx = authn.WithUser(ctx, user)
			ctx = logger.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated users without the admin role. It must
// run after Authenticate.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := authn.UserFromContext(r.Context())
			if user == nil {
				handler.WriteDomainError(w, r, domain.ErrUnauthenticated)
				return
			}
			if !user.IsAdmin {
				handler.WriteDomainError(w, r, domain.ErrAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CORS adds Cross-Origin Resource Sharing headers. Empty allowedOrigins
// disables CORS.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Signature")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			// Handle preflight
			if r.Method == http.MethodOptions && allowed {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBody limits request bodies to n bytes.
func MaxBody(n int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
