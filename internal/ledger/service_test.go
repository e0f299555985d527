package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crucial707/ledger/internal/events"
	"github.com/crucial707/ledger/internal/models"
	"github.com/crucial707/ledger/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingStore struct{ repo.TransactionStore }

func (failingStore) ListByOwnerInRange(context.Context, string, time.Time, time.Time) ([]models.Transaction, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) ListByOwner(context.Context, string) ([]models.Transaction, error) {
	return nil, errors.New("connection reset")
}

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestService(pub events.Publisher) *Service {
	svc := NewService(repo.NewMemoryTransactionRepo(), pub, nil)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func TestService_CreateDefaults(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)

	got, err := svc.Create(context.Background(), "alice", models.TransactionFields{
		Amount:   decimal.NewFromInt(20),
		Category: "  food ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TypeExpense, got.Type)
	assert.Equal(t, "food", got.Category)
	assert.True(t, got.Date.Equal(testNow))
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, []events.Type{events.TransactionCreated}, pub.types())
}

func TestService_CreateValidation(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)

	_, err := svc.Create(context.Background(), "alice", models.TransactionFields{
		Amount:   decimal.NewFromInt(-5),
		Category: "",
		Type:     "transfer",
	})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "category")
	assert.Contains(t, verr.Fields, "type")
	assert.Empty(t, pub.types())
}

func TestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc := newTestService(&recordingPublisher{err: errors.New("broker down")})

	got, err := svc.Create(context.Background(), "alice", models.TransactionFields{
		Amount: decimal.NewFromInt(1), Category: "misc",
	})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, got.ID, list[0].ID)
}

func TestService_UpdateAndDelete(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", models.TransactionFields{
		Amount: decimal.NewFromInt(20), Category: "food", Type: models.TypeExpense,
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", created.ID, models.TransactionPatch{})
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))

	income := models.TypeIncome
	updated, err := svc.Update(ctx, "alice", created.ID, models.TransactionPatch{Type: &income})
	require.NoError(t, err)
	assert.Equal(t, models.TypeIncome, updated.Type)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(20)))

	_, err = svc.Update(ctx, "bob", created.ID, models.TransactionPatch{Type: &income})
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "bob", created.ID), repo.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "alice", created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", created.ID), repo.ErrNotFound)

	assert.Equal(t, []events.Type{
		events.TransactionCreated,
		events.TransactionUpdated,
		events.TransactionDeleted,
	}, pub.types())
}

func TestService_CategorizeRangeIsInclusive(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	add := func(owner string, day int, typ models.TxType, category, amount string) {
		_, err := svc.Create(ctx, owner, models.TransactionFields{
			Amount:   decimal.RequireFromString(amount),
			Category: category,
			Type:     typ,
			Date:     time.Date(2024, 3, day, 18, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	add("alice", 1, models.TypeExpense, "food", "10")
	add("alice", 10, models.TypeExpense, "food", "5")
	add("alice", 10, models.TypeIncome, "salary", "100")
	add("alice", 11, models.TypeExpense, "food", "1000")
	add("bob", 5, models.TypeExpense, "food", "1")

	r, err := NewDateRange(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	got, err := svc.Categorize(ctx, "alice", r)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "salary", got[0].Category)
	assert.True(t, got[1].Total.Equal(decimal.NewFromInt(15)))
}

func TestService_CategorizeEmpty(t *testing.T) {
	svc := newTestService(nil)
	got, err := svc.Categorize(context.Background(), "nobody", DefaultRange(testNow))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_StoreErrorsPropagate(t *testing.T) {
	svc := NewService(failingStore{}, nil, nil)

	_, err := svc.Categorize(context.Background(), "alice", DefaultRange(testNow))
	assert.Error(t, err)
	_, err = svc.Balance(context.Background(), "alice")
	assert.Error(t, err)
}

func TestNewDateRange(t *testing.T) {
	_, err := NewDateRange(testNow, testNow.AddDate(0, 0, -1))
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))

	r := DefaultRange(testNow)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.To)
}
