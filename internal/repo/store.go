package repo

import (
	"context"
	"errors"
	"time"

	"github.com/crucial707/ledger/internal/models"
)

// DefaultTimeout bounds every single store operation.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNotFound is returned when the target row/document does not exist for the owner.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIdentity is returned when a username or email is already registered.
	ErrDuplicateIdentity = errors.New("username or email already registered")
)

// UserStore persists user identities.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// TransactionStore persists ledger entries. Every lookup and mutation is scoped by owner.
type TransactionStore interface {
	Create(ctx context.Context, ownerID string, f models.TransactionFields) (*models.Transaction, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Transaction, error)
	UpdateByID(ctx context.Context, ownerID, id string, p models.TransactionPatch) (*models.Transaction, error)
	DeleteByID(ctx context.Context, ownerID, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Transaction, error)
	// ListByOwnerInRange returns entries with from <= date < to.
	ListByOwnerInRange(ctx context.Context, ownerID string, from, to time.Time) ([]models.Transaction, error)
	Count(ctx context.Context) (int64, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
