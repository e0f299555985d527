// Package ledger records an owner's transactions and derives summaries from them.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/crucial707/ledger/internal/events"
	"github.com/crucial707/ledger/internal/metrics"
	"github.com/crucial707/ledger/internal/models"
	"github.com/crucial707/ledger/internal/repo"
)

// DefaultRangeDays is the width of the categorize window when the caller gives none.
const DefaultRangeDays = 30

// DateRange is an inclusive range of calendar days in UTC.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange truncates both ends to their UTC day. From after To is a ValidationError.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: startOfDay(from), To: startOfDay(to)}
	if r.From.After(r.To) {
		return DateRange{}, models.NewValidationError("from", "must not be after to")
	}
	return r, nil
}

// DefaultRange covers the DefaultRangeDays days ending on now's day.
func DefaultRange(now time.Time) DateRange {
	to := startOfDay(now)
	return DateRange{From: to.AddDate(0, 0, -(DefaultRangeDays - 1)), To: to}
}

// bounds returns the half-open interval [From, To+1day).
func (r DateRange) bounds() (time.Time, time.Time) {
	return r.From, r.To.AddDate(0, 0, 1)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Service applies ledger rules on top of a TransactionStore. The owner passed to every
// method must come from a validated identity.
type Service struct {
	Store     repo.TransactionStore
	Publisher events.Publisher
	Log       *slog.Logger
	Now       func() time.Time
}

// NewService wires a Service. A nil publisher disables events.
func NewService(store repo.TransactionStore, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{Store: store, Publisher: pub, Log: log, Now: time.Now}
}

// Create records a transaction for ownerID. Type defaults to expense and date to now.
func (s *Service) Create(ctx context.Context, ownerID string, f models.TransactionFields) (*models.Transaction, error) {
	f.Category = strings.TrimSpace(f.Category)
	if f.Type == "" {
		f.Type = models.TypeExpense
	}
	if f.Date.IsZero() {
		f.Date = s.Now()
	}
	f.Date = f.Date.UTC()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	t, err := s.Store.Create(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	metrics.IncTransactionsWritten("create", string(t.Type))
	s.publish(ctx, events.TransactionCreated, t)
	return t, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]models.Transaction, error) {
	return s.Store.ListByOwner(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	return s.Store.GetByID(ctx, ownerID, id)
}

// Update applies a partial change. The owner is never modified.
func (s *Service) Update(ctx context.Context, ownerID, id string, p models.TransactionPatch) (*models.Transaction, error) {
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		p.Category = &c
	}
	if p.Date != nil {
		d := p.Date.UTC()
		p.Date = &d
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	t, err := s.Store.UpdateByID(ctx, ownerID, id, p)
	if err != nil {
		return nil, err
	}
	metrics.IncTransactionsWritten("update", string(t.Type))
	s.publish(ctx, events.TransactionUpdated, t)
	return t, nil
}

// Delete removes a transaction. A missing or foreign id is repo.ErrNotFound.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	t, err := s.Store.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteByID(ctx, ownerID, id); err != nil {
		return err
	}
	metrics.IncTransactionsWritten("delete", string(t.Type))
	s.publish(ctx, events.TransactionDeleted, t)
	return nil
}

// Categorize loads the owner's transactions in r and groups them. Always computed fresh.
func (s *Service) Categorize(ctx context.Context, ownerID string, r DateRange) ([]models.CategoryTotal, error) {
	from, to := r.bounds()
	txs, err := s.Store.ListByOwnerInRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return Categorize(txs), nil
}

// Balance sums every transaction the owner has.
func (s *Service) Balance(ctx context.Context, ownerID string) (models.Balance, error) {
	txs, err := s.Store.ListByOwner(ctx, ownerID)
	if err != nil {
		return models.Balance{}, err
	}
	return Summarize(txs), nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, t *models.Transaction) {
	err := s.Publisher.Publish(ctx, events.Event{
		Type:          typ,
		TransactionID: t.ID,
		OwnerID:       t.OwnerID,
		OccurredAt:    s.Now().UTC(),
	})
	if err != nil {
		s.Log.WarnContext(ctx, "publish ledger event", "type", typ, "transaction_id", t.ID, "error", err)
	}
}
