package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crucial707/ledger/internal/ledger"
	"github.com/crucial707/ledger/internal/middleware"
	"github.com/crucial707/ledger/internal/models"
	"github.com/go-chi/chi/v5"
)

// TransactionHandler serves the ledger routes. Every route sits behind
// middleware.Authenticate; the owner always comes from the token, never the body.
type TransactionHandler struct {
	Ledger *ledger.Service
}

type createTransactionInput struct {
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category" validate:"required,max=100"`
	Type     string          `json:"type" validate:"omitempty,oneof=income expense"`
	Date     string          `json:"date"`
}

func (in createTransactionInput) fields() (models.TransactionFields, error) {
	var verr *models.ValidationError
	if err := validateStruct(in); err != nil {
		ve, ok := err.(*models.ValidationError)
		if !ok {
			return models.TransactionFields{}, err
		}
		verr = ve
	}

	f := models.TransactionFields{Category: in.Category, Type: models.TxType(in.Type)}
	if amount, msg := parseAmount(in.Amount); msg == "" {
		f.Amount = amount
	} else {
		verr = mergeFields(verr, "amount", msg)
	}
	if in.Date != "" {
		d, ok := parseDate(in.Date)
		if !ok {
			verr = mergeFields(verr, "date", "must be RFC 3339 or YYYY-MM-DD")
		}
		f.Date = d
	}

	if verr != nil {
		return models.TransactionFields{}, verr
	}
	return f, nil
}

type patchTransactionInput struct {
	Amount   json.RawMessage `json:"amount"`
	Category *string         `json:"category" validate:"omitempty,max=100"`
	Type     *string         `json:"type" validate:"omitempty,oneof=income expense"`
	Date     *string         `json:"date"`
}

func (in patchTransactionInput) patch() (models.TransactionPatch, error) {
	var verr *models.ValidationError
	if err := validateStruct(in); err != nil {
		ve, ok := err.(*models.ValidationError)
		if !ok {
			return models.TransactionPatch{}, err
		}
		verr = ve
	}

	var p models.TransactionPatch
	if len(in.Amount) > 0 {
		if amount, msg := parseAmount(in.Amount); msg == "" {
			p.Amount = &amount
		} else {
			verr = mergeFields(verr, "amount", msg)
		}
	}
	p.Category = in.Category
	if in.Type != nil {
		t := models.TxType(*in.Type)
		p.Type = &t
	}
	if in.Date != nil {
		if d, ok := parseDate(*in.Date); ok {
			p.Date = &d
		} else {
			verr = mergeFields(verr, "date", "must be RFC 3339 or YYYY-MM-DD")
		}
	}

	if verr != nil {
		return models.TransactionPatch{}, verr
	}
	return p, nil
}

// owner returns the authenticated user id. Routes are always mounted behind
// Authenticate, so a missing identity is a wiring fault.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok || id.UserID == "" {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return id.UserID, true
}

//
// ==========================
// Create Transaction
// ==========================
//

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var input createTransactionInput
	if !decodeJSON(w, r, &input) {
		return
	}
	fields, err := input.fields()
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Ledger.Create(r.Context(), ownerID, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "transaction recorded",
		"transaction": t,
	})
}

//
// ==========================
// List Transactions
// ==========================
//

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	txs, err := h.Ledger.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, txs)
}

//
// ==========================
// Get Transaction By ID
// ==========================
//

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	t, err := h.Ledger.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

//
// ==========================
// Update Transaction
// ==========================
//

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var input patchTransactionInput
	if !decodeJSON(w, r, &input) {
		return
	}
	patch, err := input.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Ledger.Update(r.Context(), ownerID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

//
// ==========================
// Delete Transaction
// ==========================
//

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
