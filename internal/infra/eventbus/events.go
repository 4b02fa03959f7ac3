package eventbus

import (
	"context"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// SignalReceived is published for every accepted webhook signal.
type SignalReceived struct {
	Signal     *domain.Signal `json:"signal"`
	ReceivedAt time.Time      `json:"received_at"`
}

// OrderRequested is published when a trade is recorded for execution.
type OrderRequested struct {
	Trade *domain.Trade `json:"trade"`
}

// IdentityBlocked is published when the defense pipeline blocks a client.
type IdentityBlocked struct {
	Entry defense.BlockEntry `json:"entry"`
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(_ context.Context, _ string, _ any) error { return nil }
