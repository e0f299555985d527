package handlers

import (
	"net/http"
	"time"

	"github.com/crucial707/ledger/internal/ledger"
	"github.com/crucial707/ledger/internal/models"
)

// SummaryHandler serves the aggregate views of the caller's ledger.
type SummaryHandler struct {
	Ledger *ledger.Service
	Now    func() time.Time
}

type categoriesResponse struct {
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Categories []models.CategoryTotal `json:"categories"`
}

// Categories answers GET /summary/categories?from=YYYY-MM-DD&to=YYYY-MM-DD. Both bounds are
// inclusive. Missing bounds default to the last 30 days ending today.
func (h *SummaryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	rng, err := h.dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	totals, err := h.Ledger.Categorize(r.Context(), ownerID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categoriesResponse{
		From:       rng.From.Format(time.DateOnly),
		To:         rng.To.Format(time.DateOnly),
		Categories: totals,
	})
}

func (h *SummaryHandler) dateRange(r *http.Request) (ledger.DateRange, error) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	def := ledger.DefaultRange(now())
	from, to := def.From, def.To

	q := r.URL.Query()
	var verr *models.ValidationError
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			verr = mergeFields(verr, "to", "must be YYYY-MM-DD")
		}
		to = t
		from = t.AddDate(0, 0, -(ledger.DefaultRangeDays - 1))
	}
	if s := q.Get("from"); s != "" {
		f, err := time.Parse(time.DateOnly, s)
		if err != nil {
			verr = mergeFields(verr, "from", "must be YYYY-MM-DD")
		}
		from = f
	}
	if verr != nil {
		return ledger.DateRange{}, verr
	}
	return ledger.NewDateRange(from, to)
}

// Balance answers GET /summary/balance with income, expense and net over all time.
func (h *SummaryHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	b, err := h.Ledger.Balance(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}
