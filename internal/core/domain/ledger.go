package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide parses a side case-insensitively.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// TradeStatus is the lifecycle state of a recorded trade.
type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusFilled   TradeStatus = "filled"
	TradeStatusRejected TradeStatus = "rejected"
)

// Trade source values.
const (
	SourceManual  = "manual"
	SourceWebhook = "tradingview_webhook"
)

// Trade is one order recorded for a user.
type Trade struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Exchange  string          `json:"exchange"`
	Status    TradeStatus     `json:"status"`
	Source    string          `json:"source"`
	CreatedAt int64           `json:"created_at"` // Unix ms
}

// NewTrade creates a pending trade with a zero price; the fill price is
// reported later by the exchange integration.
func NewTrade(userID, symbol string, side Side, quantity decimal.Decimal, exchange, source string) (*Trade, error) {
	if err := ValidateOrder(symbol, side, quantity, exchange); err != nil {
		return nil, err
	}
	id, err := NewID(TradeIDPrefix)
	if err != nil {
		return nil, err
	}
	return &Trade{
		ID:        id,
		UserID:    userID,
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Side:      side,
		Quantity:  quantity,
		Price:     decimal.Zero,
		Exchange:  NormalizeExchange(exchange),
		Status:    TradeStatusPending,
		Source:    source,
		CreatedAt: currentTimeMillis(),
	}, nil
}

// ValidateOrder checks the fields of an order request.
func ValidateOrder(symbol string, side Side, quantity decimal.Decimal, exchange string) error {
	if strings.TrimSpace(symbol) == "" {
		return ErrTradeValidation.WithDetails("symbol is required")
	}
	if side != SideBuy && side != SideSell {
		return ErrTradeValidation.WithDetails("side must be BUY or SELL")
	}
	if !quantity.IsPositive() {
		return ErrTradeValidation.WithDetails("quantity must be positive")
	}
	if !IsSupportedExchange(exchange) {
		return ErrTradeValidation.WithDetails("unsupported exchange: " + exchange)
	}
	return nil
}

// Deposit is an incoming transfer on an exchange account.
type Deposit struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Exchange  string          `json:"exchange"`
	TxID      string          `json:"tx_id,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// Withdrawal is an outgoing transfer from an exchange account.
type Withdrawal struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Exchange  string          `json:"exchange"`
	Address   string          `json:"address,omitempty"`
	TxID      string          `json:"tx_id,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// Clone returns a copy of the trade.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// NewDeposit creates a deposit record.
func NewDeposit(userID, asset string, amount decimal.Decimal, exchange, txID string) (*Deposit, error) {
	if err := validateTransfer(asset, amount, exchange); err != nil {
		return nil, err
	}
	id, err := NewID(DepositIDPrefix)
	if err != nil {
		return nil, err
	}
	return &Deposit{
		ID:        id,
		UserID:    userID,
		Asset:     strings.ToUpper(strings.TrimSpace(asset)),
		Amount:    amount,
		Exchange:  NormalizeExchange(exchange),
		TxID:      txID,
		CreatedAt: currentTimeMillis(),
	}, nil
}

// NewWithdrawal creates a withdrawal record.
func NewWithdrawal(userID, asset string, amount decimal.Decimal, exchange, address, txID string) (*Withdrawal, error) {
	if err := validateTransfer(asset, amount, exchange); err != nil {
		return nil, err
	}
	id, err := NewID(WithdrawalIDPrefix)
	if err != nil {
		return nil, err
	}
	return &Withdrawal{
		ID:        id,
		UserID:    userID,
		Asset:     strings.ToUpper(strings.TrimSpace(asset)),
		Amount:    amount,
		Exchange:  NormalizeExchange(exchange),
		Address:   address,
		TxID:      txID,
		CreatedAt: currentTimeMillis(),
	}, nil
}

func validateTransfer(asset string, amount decimal.Decimal, exchange string) error {
	if strings.TrimSpace(asset) == "" {
		return ErrTradeValidation.WithDetails("asset is required")
	}
	if !amount.IsPositive() {
		return ErrTradeValidation.WithDetails("amount must be positive")
	}
	if !IsSupportedExchange(exchange) {
		return ErrTradeValidation.WithDetails("unsupported exchange: " + exchange)
	}
	return nil
}
