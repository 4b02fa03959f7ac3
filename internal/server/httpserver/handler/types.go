package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// CredentialsRequest is the request body for POST /users/register and
// POST /users/login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the response body for POST /users/login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
}

// CreateCredentialRequest is the request body for POST /api-keys.
type CreateCredentialRequest struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// ExecuteRequest is the request body for POST /trading/execute.
type ExecuteRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Exchange string          `json:"exchange,omitempty"`
}

// TransferRequest is the request body for POST /trading/deposits and
// POST /trading/withdrawals.
type TransferRequest struct {
	Asset    string          `json:"asset"`
	Amount   decimal.Decimal `json:"amount"`
	Exchange string          `json:"exchange"`
	Address  string          `json:"address,omitempty"`
	TxID     string          `json:"tx_id,omitempty"`
}

// SignalAcceptedResponse is the response body for POST /webhook/tradingview.
type SignalAcceptedResponse struct {
	Status string         `json:"status"`
	Signal *domain.Signal `json:"signal"`
}

// BlockEntryResponse represents a blocklist entry.
type BlockEntryResponse struct {
	Identity  string     `json:"identity"`
	Reason    string     `json:"reason"`
	BlockedAt time.Time  `json:"blocked_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Permanent bool       `json:"permanent"`
}

func blockEntryToResponse(e defense.BlockEntry) BlockEntryResponse {
	resp := BlockEntryResponse{
		Identity:  e.Identity,
		Reason:    e.Reason,
		BlockedAt: e.BlockedAt.UTC(),
		Permanent: e.Permanent(),
	}
	if !e.Permanent() {
		exp := e.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	return resp
}
