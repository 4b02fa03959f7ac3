package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/infra/eventbus"
	"github.com/yndnr/tradegate-go/pkg/secure"
)

// WebhookConfig configures signal authentication.
type WebhookConfig struct {
	// Secret is the HMAC-SHA256 key shared with TradingView.
	Secret string
	// AllowUnsigned accepts every body when Secret is empty.
	AllowUnsigned bool
}

// Signal outcomes reported to Metrics.
const (
	SignalAccepted     = "accepted"
	SignalBadSignature = "bad_signature"
	SignalBadPayload   = "bad_payload"
)

// WebhookService authenticates and dispatches TradingView signals.
type WebhookService struct {
	cfg       WebhookConfig
	publisher eventbus.Publisher
	clock     func() time.Time
	metrics   Metrics
	logger    *slog.Logger
}

// NewWebhookService creates a WebhookService. A nil publisher drops events.
func NewWebhookService(cfg WebhookConfig, publisher eventbus.Publisher, opts ...Option) *WebhookService {
	o := applyOptions(opts)
	if publisher == nil {
		publisher = eventbus.Discard{}
	}
	return &WebhookService{
		cfg:       cfg,
		publisher: publisher,
		clock:     time.Now,
		metrics:   o.metrics,
		logger:    o.logger,
	}
}

// VerifySignature checks signature against hex(HMAC-SHA256(secret, body)).
// With no secret configured the body passes only if unsigned webhooks are
// allowed.
func (s *WebhookService) VerifySignature(body []byte, signature string) error {
	if s.cfg.Secret == "" {
		if s.cfg.AllowUnsigned {
			return nil
		}
		return domain.ErrWebhookSignature.WithDetails("webhook secret not configured")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return domain.ErrWebhookSignature.WithDetails("missing signature")
	}
	if !secure.Verify([]byte(s.cfg.Secret), body, signature) {
		return domain.ErrWebhookSignature
	}
	return nil
}

// Handle verifies, parses and publishes a signal.
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature string) (*domain.Signal, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		s.metrics.RecordSignal(SignalBadSignature)
		s.logger.WarnContext(ctx, "webhook signature rejected")
		return nil, err
	}

	sig, err := domain.ParseSignal(body)
	if err != nil {
		s.metrics.RecordSignal(SignalBadPayload)
		return nil, err
	}

	ev := eventbus.SignalReceived{Signal: sig, ReceivedAt: s.clock().UTC()}
	err = s.publisher.Publish(ctx, eventbus.TopicSignalReceived, ev)
	s.metrics.RecordEvent(eventbus.TopicSignalReceived, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish signal", "error", err)
		return nil, domain.ErrServiceUnavailable.WithCause(err)
	}

	s.metrics.RecordSignal(SignalAccepted)
	s.logger.InfoContext(ctx, "signal received",
		"symbol", sig.Symbol,
		"side", sig.Side,
		"strategy", sig.Strategy,
		"quantity", sig.Quantity.String(),
		"exchange", sig.Exchange,
	)
	return sig, nil
}
