package handler

import (
	"net/http"
)

// handleListBlocked handles GET /admin/blocklist.
func (h *Handler) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	entries, err := h.security.Blocked(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]BlockEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, blockEntryToResponse(e))
	}
	h.writeJSON(w, r, http.StatusOK, newList(items))
}

// handleUnblock handles DELETE /admin/blocklist/{identity}.
func (h *Handler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	if err := h.security.Unblock(r.Context(), r.PathValue("identity")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListUsers handles GET /admin/users.
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, userToResponse(u))
	}
	h.writeJSON(w, r, http.StatusOK, newList(items))
}
