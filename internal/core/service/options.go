package service

import (
	"errors"
	"log/slog"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// Metrics receives service-level observations. *metric.Registry
// implements it.
type Metrics interface {
	RecordLogin(result string)
	RecordVaultOp(op string, err error)
	RecordSignal(result string)
	RecordEvent(topic string, err error)
}

type nopMetrics struct{}

func (nopMetrics) RecordLogin(string)          {}
func (nopMetrics) RecordVaultOp(string, error) {}
func (nopMetrics) RecordSignal(string)         {}
func (nopMetrics) RecordEvent(string, error)   {}

// Option configures a service.
type Option func(*options)

type options struct {
	metrics Metrics
	logger  *slog.Logger
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{metrics: nopMetrics{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// storageErr passes domain errors through and wraps anything else as a
// storage error.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}
