package handler

import (
	"net/http"

	"github.com/yndnr/tradegate-go/internal/core/service"
)

// handleListTrades handles GET /trading/trades.
func (h *Handler) handleListTrades(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	trades, err := h.ledger.Trades(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, newList(trades))
}

// handleListDeposits handles GET /trading/deposits.
func (h *Handler) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	deposits, err := h.ledger.Deposits(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, newList(deposits))
}

// handleListWithdrawals handles GET /trading/withdrawals.
func (h *Handler) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	withdrawals, err := h.ledger.Withdrawals(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, newList(withdrawals))
}

// handleExecute handles POST /trading/execute.
func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	trade, err := h.ledger.Execute(r.Context(), service.OrderRequest{
		UserID:   user.ID,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Exchange: req.Exchange,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, trade)
}

// handleRecordDeposit handles POST /trading/deposits.
func (h *Handler) handleRecordDeposit(w http.ResponseWriter, r *http.Request) {
	user, req, ok := h.transferRequest(w, r)
	if !ok {
		return
	}
	d, err := h.ledger.RecordDeposit(r.Context(), service.TransferRequest{
		UserID:   user,
		Asset:    req.Asset,
		Amount:   req.Amount,
		Exchange: req.Exchange,
		TxID:     req.TxID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, d)
}

// handleRecordWithdrawal handles POST /trading/withdrawals.
func (h *Handler) handleRecordWithdrawal(w http.ResponseWriter, r *http.Request) {
	user, req, ok := h.transferRequest(w, r)
	if !ok {
		return
	}
	wd, err := h.ledger.RecordWithdrawal(r.Context(), service.TransferRequest{
		UserID:   user,
		Asset:    req.Asset,
		Amount:   req.Amount,
		Exchange: req.Exchange,
		Address:  req.Address,
		TxID:     req.TxID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, wd)
}

func (h *Handler) transferRequest(w http.ResponseWriter, r *http.Request) (string, *TransferRequest, bool) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return "", nil, false
	}
	var req TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return "", nil, false
	}
	return user.ID, &req, true
}
