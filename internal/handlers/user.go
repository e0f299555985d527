package handlers

import (
	"net/http"

	"github.com/crucial707/ledger/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Users repo.UserStore
}

// ==========================
// Me: the caller's own profile
// ==========================
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	user, err := h.Users.GetByID(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
