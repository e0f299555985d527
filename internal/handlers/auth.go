package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crucial707/ledger/internal/auth"
	"github.com/crucial707/ledger/internal/metrics"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Service *auth.Service
}

// ==========================
// Register
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,max=72"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Service.Register(r.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if err := validateStruct(input); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.Service.Login(r.Context(), input.Username, input.Password)
	switch {
	case err == nil:
		metrics.IncLogin("success")
	case errors.Is(err, auth.ErrInvalidCredentials):
		metrics.IncLogin("invalid")
		writeError(w, r, err)
		return
	default:
		metrics.IncLogin("error")
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}
