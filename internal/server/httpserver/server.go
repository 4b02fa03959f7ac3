package httpserver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/yndnr/tradegate-go/internal/infra/tlsroots"
)

// Config holds listener settings.
type Config struct {
	Addr         string
	TLSCertFile  string
	TLSKeyFile   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// TLSClientCAFile enables mutual TLS with the CAs in this file or
	// directory. Ignored without a certificate pair.
	TLSClientCAFile string

	Logger *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	certFile   string
	keyFile    string
	clientCA   string
	logger     *slog.Logger

	mu        sync.Mutex
	stopWatch context.CancelFunc
	certWatch *tlsroots.Watcher
}

// New creates a new HTTP server.
func New(cfg Config, handler http.Handler) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		handler:  handler,
		certFile: cfg.TLSCertFile,
		keyFile:  cfg.TLSKeyFile,
		clientCA: cfg.TLSClientCAFile,
		logger:   logger,
	}
}

// TLS reports whether the server terminates TLS.
func (s *Server) TLS() bool {
	return s.certFile != "" && s.keyFile != ""
}

// ListenAndServe starts the server on its configured address, with TLS when
// a certificate pair is configured. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. With TLS the certificate
// pair is reloaded whenever its files change.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.TLS() {
		cfg, tlsErr := s.tlsConfig()
		if tlsErr != nil {
			ln.Close()
			return tlsErr
		}
		s.httpServer.TLSConfig = cfg
		err = s.httpServer.ServeTLS(ln, "", "")
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// tlsConfig loads the certificate pair and starts its watcher.
func (s *Server) tlsConfig() (*tls.Config, error) {
	w, err := tlsroots.NewWatcher(s.certFile, s.keyFile, tlsroots.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	var clientCAs *x509.CertPool
	if s.clientCA != "" {
		if clientCAs, err = tlsroots.LoadCertPool(s.clientCA); err != nil {
			return nil, fmt.Errorf("client CA: %w", err)
		}
	}
	cfg := tlsroots.ServerConfig(w, clientCAs)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.certWatch = w
	s.stopWatch = cancel
	s.mu.Unlock()

	go func() {
		if err := w.Run(ctx); err != nil {
			s.logger.Error("certificate watcher stopped", "error", err)
		}
	}()
	return cfg, nil
}

// CertificateExpiry returns the served certificate's expiry, or the zero
// time before TLS is serving.
func (s *Server) CertificateExpiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.certWatch == nil {
		return time.Time{}
	}
	return s.certWatch.NotAfter()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
