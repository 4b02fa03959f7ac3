package handler

import (
	"net/http"
)

// handleListCredentials handles GET /api-keys.
func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	views, err := h.creds.List(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, newList(views))
}

// handleCreateCredential handles POST /api-keys.
func (h *Handler) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	view, err := h.creds.Create(r.Context(), user.ID, req.Exchange, req.APIKey, req.APISecret)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, view)
}

// handleDeleteCredential handles DELETE /api-keys/{id}.
func (h *Handler) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.creds.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
