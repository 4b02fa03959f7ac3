package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/infra/eventbus"
)

// OrderRequest is the input of LedgerService.Execute.
type OrderRequest struct {
	UserID   string
	Symbol   string
	Side     string
	Quantity decimal.Decimal
	Exchange string
	Source   string
}

// TransferRequest is the input of RecordDeposit and RecordWithdrawal.
type TransferRequest struct {
	UserID   string
	Asset    string
	Amount   decimal.Decimal
	Exchange string
	Address  string // withdrawals only
	TxID     string
}

// LedgerService records and lists trades and transfers.
type LedgerService struct {
	repo      LedgerRepository
	publisher eventbus.Publisher
	metrics   Metrics
	logger    *slog.Logger
}

// NewLedgerService creates a LedgerService. A nil publisher drops events.
func NewLedgerService(repo LedgerRepository, publisher eventbus.Publisher, opts ...Option) *LedgerService {
	o := applyOptions(opts)
	if publisher == nil {
		publisher = eventbus.Discard{}
	}
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		metrics:   o.metrics,
		logger:    o.logger,
	}
}

// Trades returns the user's trades, newest first.
func (s *LedgerService) Trades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	trades, err := s.repo.ListTrades(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	return trades, nil
}

// Deposits returns the user's deposits, newest first.
func (s *LedgerService) Deposits(ctx context.Context, userID string) ([]*domain.Deposit, error) {
	deposits, err := s.repo.ListDeposits(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	return deposits, nil
}

// Withdrawals returns the user's withdrawals, newest first.
func (s *LedgerService) Withdrawals(ctx context.Context, userID string) ([]*domain.Withdrawal, error) {
	withdrawals, err := s.repo.ListWithdrawals(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	return withdrawals, nil
}

// Execute records a pending trade and publishes an order.requested event
// for the exchange router. A failed publish is logged; the trade stays
// recorded.
func (s *LedgerService) Execute(ctx context.Context, req OrderRequest) (*domain.Trade, error) {
	side, ok := domain.ParseSide(req.Side)
	if !ok {
		return nil, domain.ErrTradeValidation.WithDetails("side must be BUY or SELL")
	}
	exchange := req.Exchange
	if strings.TrimSpace(exchange) == "" {
		exchange = domain.DefaultSignalExchange
	}
	source := req.Source
	if source == "" {
		source = domain.SourceManual
	}

	trade, err := domain.NewTrade(req.UserID, req.Symbol, side, req.Quantity, exchange, source)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateTrade(ctx, trade); err != nil {
		return nil, storageErr(err)
	}

	err = s.publisher.Publish(ctx, eventbus.TopicOrderRequested, eventbus.OrderRequested{Trade: trade})
	s.metrics.RecordEvent(eventbus.TopicOrderRequested, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order", "trade_id", trade.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "order requested",
		"trade_id", trade.ID,
		"symbol", trade.Symbol,
		"side", trade.Side,
		"quantity", trade.Quantity.String(),
		"exchange", trade.Exchange,
	)
	return trade, nil
}

// RecordDeposit stores a deposit.
func (s *LedgerService) RecordDeposit(ctx context.Context, req TransferRequest) (*domain.Deposit, error) {
	d, err := domain.NewDeposit(req.UserID, req.Asset, req.Amount, req.Exchange, req.TxID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateDeposit(ctx, d); err != nil {
		return nil, storageErr(err)
	}
	return d, nil
}

// RecordWithdrawal stores a withdrawal.
func (s *LedgerService) RecordWithdrawal(ctx context.Context, req TransferRequest) (*domain.Withdrawal, error) {
	w, err := domain.NewWithdrawal(req.UserID, req.Asset, req.Amount, req.Exchange, req.Address, req.TxID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateWithdrawal(ctx, w); err != nil {
		return nil, storageErr(err)
	}
	return w, nil
}
