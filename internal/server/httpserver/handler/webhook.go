package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, body)).
const SignatureHeader = "X-Signature"

// handleTradingView handles POST /webhook/tradingview.
func (h *Handler) handleTradingView(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleServiceError(w, r, domain.ErrPayloadTooLarge)
			return
		}
		h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("unreadable body"))
		return
	}

	sig, err := h.webhook.Handle(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, SignalAcceptedResponse{
		Status: "accepted",
		Signal: sig,
	})
}
