package defense

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Stage names.
const (
	StageBlocklist = "blocklist"
	StageRateLimit = "rate_limit"
	StageHeaders   = "headers"
	StageInjection = "injection"
)

// Stage is one check in the pipeline.
type Stage interface {
	// Name returns the stage name.
	Name() string

	// Check evaluates req. An error means the stage could not decide.
	Check(ctx context.Context, req *Request) (Verdict, error)
}

// ============================================================================
// Blocklist
// ============================================================================

// BlocklistStage denies identities on the blocklist.
type BlocklistStage struct {
	store StateStore
}

// NewBlocklistStage creates a BlocklistStage.
func NewBlocklistStage(store StateStore) *BlocklistStage {
	return &BlocklistStage{store: store}
}

// Name returns the stage name.
func (s *BlocklistStage) Name() string { return StageBlocklist }

// Check denies blocked identities.
func (s *BlocklistStage) Check(ctx context.Context, req *Request) (Verdict, error) {
	blocked, err := s.store.IsBlocked(ctx, req.Identity)
	if err != nil {
		return Verdict{}, err
	}
	if blocked {
		return Deny(ReasonBlocked, "access denied"), nil
	}
	return Allow(), nil
}

// ============================================================================
// Rate limit
// ============================================================================

// RateLimitStage enforces a sliding window of at most limit requests per
// identity. Denied requests are not recorded.
type RateLimitStage struct {
	store  StateStore
	window time.Duration
	limit  int
	clock  func() time.Time
}

// NewRateLimitStage creates a RateLimitStage.
func NewRateLimitStage(store StateStore, window time.Duration, limit int, clock func() time.Time) *RateLimitStage {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimitStage{store: store, window: window, limit: limit, clock: clock}
}

// Name returns the stage name.
func (s *RateLimitStage) Name() string { return StageRateLimit }

// Check admits req into its identity's window.
func (s *RateLimitStage) Check(ctx context.Context, req *Request) (Verdict, error) {
	ok, err := s.store.Admit(ctx, req.Identity, s.clock(), s.window, s.limit)
	if err != nil {
		return Verdict{}, err
	}
	if !ok {
		return Deny(ReasonRateLimited, "rate limit exceeded"), nil
	}
	return Allow(), nil
}

// ============================================================================
// Headers
// ============================================================================

// HeaderStage validates the User-Agent and, for requests with a body,
// the Content-Type.
type HeaderStage struct {
	maxUserAgent int
}

// NewHeaderStage creates a HeaderStage. maxUserAgent is counted in
// characters.
func NewHeaderStage(maxUserAgent int) *HeaderStage {
	return &HeaderStage{maxUserAgent: maxUserAgent}
}

// Name returns the stage name.
func (s *HeaderStage) Name() string { return StageHeaders }

// Check validates req's headers.
func (s *HeaderStage) Check(_ context.Context, req *Request) (Verdict, error) {
	ua := req.Header.Get("User-Agent")
	if ua == "" {
		return Deny(ReasonInvalidHeaders, "missing User-Agent header"), nil
	}
	if utf8.RuneCountInString(ua) > s.maxUserAgent {
		return Deny(ReasonInvalidHeaders, "User-Agent header too long"), nil
	}

	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
			return Deny(ReasonInvalidHeaders, "Content-Type must be application/json"), nil
		}
	}
	return Allow(), nil
}

// ============================================================================
// Injection
// ============================================================================

// DefaultInjectionPatterns are the markers InjectionStage scans for.
var DefaultInjectionPatterns = []string{
	"'; DROP TABLE",
	"UNION SELECT",
	"OR 1=1",
	"'; --",
	"<script>",
	"javascript:",
	"onload=",
	"onerror=",
}

// BlockListener is notified after InjectionStage blocklists an identity.
type BlockListener func(ctx context.Context, entry BlockEntry)

// InjectionStage scans the URL and query values for injection markers and
// blocklists identities that send them.
type InjectionStage struct {
	store    StateStore
	patterns []string // lower-cased
	blockTTL time.Duration
	clock    func() time.Time
	onBlock  BlockListener
}

// NewInjectionStage creates an InjectionStage using DefaultInjectionPatterns.
func NewInjectionStage(store StateStore, blockTTL time.Duration, clock func() time.Time, onBlock BlockListener) *InjectionStage {
	if clock == nil {
		clock = time.Now
	}
	patterns := make([]string, len(DefaultInjectionPatterns))
	for i, p := range DefaultInjectionPatterns {
		patterns[i] = strings.ToLower(p)
	}
	return &InjectionStage{
		store:    store,
		patterns: patterns,
		blockTTL: blockTTL,
		clock:    clock,
		onBlock:  onBlock,
	}
}

// Name returns the stage name.
func (s *InjectionStage) Name() string { return StageInjection }

// Check blocklists and denies req if any marker is present.
func (s *InjectionStage) Check(ctx context.Context, req *Request) (Verdict, error) {
	pattern, ok := s.match(req)
	if !ok {
		return Allow(), nil
	}

	reason := fmt.Sprintf("injection pattern %q", pattern)
	created, err := s.store.Block(ctx, req.Identity, reason, s.blockTTL)
	if err != nil {
		return Verdict{}, err
	}
	if created && s.onBlock != nil {
		now := s.clock()
		entry := BlockEntry{Identity: req.Identity, Reason: reason, BlockedAt: now}
		if s.blockTTL > 0 {
			entry.ExpiresAt = now.Add(s.blockTTL)
		}
		s.onBlock(ctx, entry)
	}
	return Deny(ReasonInjectionDetected, "attack attempt detected"), nil
}

// match returns the first pattern found in any scanned input.
func (s *InjectionStage) match(req *Request) (string, bool) {
	if p, ok := s.matchString(req.RawURL); ok {
		return p, true
	}
	if req.DecodedURL != req.RawURL {
		if p, ok := s.matchString(req.DecodedURL); ok {
			return p, true
		}
	}
	for _, values := range req.Query {
		for _, v := range values {
			if p, ok := s.matchString(v); ok {
				return p, true
			}
		}
	}
	return "", false
}

func (s *InjectionStage) matchString(in string) (string, bool) {
	if in == "" {
		return "", false
	}
	lower := strings.ToLower(in)
	for _, p := range s.patterns {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}
