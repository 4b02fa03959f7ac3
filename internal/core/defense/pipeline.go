package defense

import (
	"context"
	"fmt"
	"time"
)

// Defaults.
const (
	DefaultWindow       = 60 * time.Second
	DefaultMaxRequests  = 100
	DefaultMaxUserAgent = 500
)

// Config holds pipeline settings.
type Config struct {
	// Window is the rate limit window (default: 60s).
	Window time.Duration

	// MaxRequests is the number of requests allowed per window (default: 100).
	MaxRequests int

	// MaxUserAgent is the maximum User-Agent length in characters (default: 500).
	MaxUserAgent int

	// BlockTTL is how long injection blocks last. Zero is permanent.
	BlockTTL time.Duration

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time
}

// Recorder receives one observation per evaluated stage.
type Recorder interface {
	ObserveVerdict(stage, outcome string)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the verdict recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithBlockListener sets the callback run after an identity is blocklisted.
func WithBlockListener(l BlockListener) Option {
	return func(p *Pipeline) {
		p.onBlock = l
	}
}

// WithStages replaces the default stages.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.stages = stages
	}
}

// Pipeline runs stages in order and stops at the first denial.
type Pipeline struct {
	store    StateStore
	stages   []Stage
	recorder Recorder
	onBlock  BlockListener
	window   time.Duration
}

// NewPipeline creates the standard four-stage pipeline over store.
func NewPipeline(store StateStore, cfg Config, opts ...Option) *Pipeline {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.MaxUserAgent <= 0 {
		cfg.MaxUserAgent = DefaultMaxUserAgent
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	p := &Pipeline{store: store, window: cfg.Window}
	for _, opt := range opts {
		opt(p)
	}

	if p.stages == nil {
		p.stages = []Stage{
			NewBlocklistStage(store),
			NewRateLimitStage(store, cfg.Window, cfg.MaxRequests, cfg.Clock),
			NewHeaderStage(cfg.MaxUserAgent),
			NewInjectionStage(store, cfg.BlockTTL, cfg.Clock, p.onBlock),
		}
	}
	return p
}

// Store returns the pipeline's state store.
func (p *Pipeline) Store() StateStore {
	return p.store
}

// Window returns the rate limit window.
func (p *Pipeline) Window() time.Duration {
	return p.window
}

// Stages returns the stage names in evaluation order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Evaluate runs req through every stage until one denies it.
// A stage error aborts evaluation and is returned.
func (p *Pipeline) Evaluate(ctx context.Context, req *Request) (Verdict, error) {
	for _, stage := range p.stages {
		v, err := stage.Check(ctx, req)
		if err != nil {
			p.observe(stage.Name(), "error")
			return Verdict{}, fmt.Errorf("defense: %s stage: %w", stage.Name(), err)
		}
		if !v.Allowed {
			v.Stage = stage.Name()
			p.observe(stage.Name(), v.Reason.String())
			return v, nil
		}
		p.observe(stage.Name(), "allow")
	}
	return Allow(), nil
}

func (p *Pipeline) observe(stage, outcome string) {
	if p.recorder != nil {
		p.recorder.ObserveVerdict(stage, outcome)
	}
}
