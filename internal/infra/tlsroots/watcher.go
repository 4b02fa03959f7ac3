package tlsroots

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultExpiryWarning is how close to NotAfter a loaded certificate
// starts logging warnings.
const DefaultExpiryWarning = 30 * 24 * time.Hour

// Watcher serves a certificate pair and reloads it when the files change.
type Watcher struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration
	warn     time.Duration
	clock    func() time.Time

	mu       sync.RWMutex
	cert     *tls.Certificate
	notAfter time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long file events settle before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithExpiryWarning sets the expiry warning horizon.
func WithExpiryWarning(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.warn = d
	}
}

// NewWatcher loads the pair once and returns a watcher serving it.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
		warn:     DefaultExpiryWarning,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return w, nil
}

// Run watches the certificate directories until ctx is canceled. A
// failed reload keeps serving the previous certificate.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer fw.Close()

	// Directories, not files: editors and secret mounts replace files by rename.
	dirs := map[string]struct{}{
		filepath.Dir(w.certFile): {},
		filepath.Dir(w.keyFile):  {},
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	w.logger.Info("certificate watcher started", "cert_file", w.certFile, "key_file", w.keyFile)

	watched := map[string]struct{}{
		filepath.Base(w.certFile): {},
		filepath.Base(w.keyFile):  {},
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if _, ok := watched[filepath.Base(event.Name)]; !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("certificate file changed", "file", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.logger.Error("certificate reload failed", "cert_file", w.certFile, "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("certificate watcher error", "cert_file", w.certFile, "error", err)
		}
	}
}

// Reload reads the pair from disk and swaps it in.
func (w *Watcher) Reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	var notAfter time.Time
	if len(cert.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return fmt.Errorf("parse leaf: %w", err)
		}
		cert.Leaf = leaf
		notAfter = leaf.NotAfter
	}

	w.mu.Lock()
	w.cert = &cert
	w.notAfter = notAfter
	w.mu.Unlock()

	w.logger.Info("certificate loaded", "cert_file", w.certFile, "not_after", notAfter)
	if left := notAfter.Sub(w.clock()); left < w.warn {
		w.logger.Warn("certificate expires soon", "cert_file", w.certFile, "not_after", notAfter, "remaining", left.Round(time.Minute))
	}
	return nil
}

// NotAfter returns the expiry of the served certificate.
func (w *Watcher) NotAfter() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.notAfter
}

// GetCertificate implements tls.Config.GetCertificate.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cert, nil
}
