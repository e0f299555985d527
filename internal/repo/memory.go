package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crucial707/ledger/internal/models"
	"github.com/google/uuid"
)

// MemoryUserRepo is a process-local UserStore. Data is lost on restart.
type MemoryUserRepo struct {
	mu   sync.RWMutex
	byID map[string]models.User
	now  func() time.Time
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{byID: make(map[string]models.User), now: time.Now}
}

func (r *MemoryUserRepo) Create(_ context.Context, username, email, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == username || u.Email == email {
			return nil, ErrDuplicateIdentity
		}
	}
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	r.byID[u.ID] = u
	return &u, nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// MemoryTransactionRepo is a process-local TransactionStore.
type MemoryTransactionRepo struct {
	mu   sync.RWMutex
	byID map[string]models.Transaction
	now  func() time.Time
}

func NewMemoryTransactionRepo() *MemoryTransactionRepo {
	return &MemoryTransactionRepo{byID: make(map[string]models.Transaction), now: time.Now}
}

func (r *MemoryTransactionRepo) Create(_ context.Context, ownerID string, f models.TransactionFields) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := models.Transaction{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Amount:    f.Amount,
		Category:  f.Category,
		Type:      f.Type,
		Date:      f.Date.UTC(),
		CreatedAt: r.now().UTC(),
	}
	r.byID[t.ID] = t
	return &t, nil
}

func (r *MemoryTransactionRepo) GetByID(_ context.Context, ownerID, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *MemoryTransactionRepo) UpdateByID(_ context.Context, ownerID, id string, p models.TransactionPatch) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	t = p.Apply(t)
	t.Date = t.Date.UTC()
	r.byID[id] = t
	return &t, nil
}

func (r *MemoryTransactionRepo) DeleteByID(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryTransactionRepo) ListByOwner(_ context.Context, ownerID string) ([]models.Transaction, error) {
	return r.list(func(t models.Transaction) bool { return t.OwnerID == ownerID }), nil
}

func (r *MemoryTransactionRepo) ListByOwnerInRange(_ context.Context, ownerID string, from, to time.Time) ([]models.Transaction, error) {
	return r.list(func(t models.Transaction) bool {
		return t.OwnerID == ownerID && !t.Date.Before(from) && t.Date.Before(to)
	}), nil
}

func (r *MemoryTransactionRepo) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// list returns matching entries ordered like the database backends: by date, then creation.
func (r *MemoryTransactionRepo) list(keep func(models.Transaction) bool) []models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Transaction, 0)
	for _, t := range r.byID {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// NewMemoryBackend returns a Backend with empty in-memory stores.
func NewMemoryBackend() *Backend {
	return &Backend{
		Users:        NewMemoryUserRepo(),
		Transactions: NewMemoryTransactionRepo(),
	}
}
