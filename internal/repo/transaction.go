package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/ledger/internal/models"
	"github.com/google/uuid"
)

// ========================
// REPOSITORY STRUCT
// ========================

type TransactionRepo struct {
	DB      *sql.DB
	Timeout time.Duration
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{DB: db, Timeout: DefaultTimeout}
}

const transactionColumns = `id, owner_id, amount, category, type, occurred_at, created_at`

// ========================
// CREATE TRANSACTION
// ========================

func (r *TransactionRepo) Create(ctx context.Context, ownerID string, f models.TransactionFields) (*models.Transaction, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	tx := &models.Transaction{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Amount:   f.Amount,
		Category: f.Category,
		Type:     f.Type,
		Date:     f.Date,
	}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO transactions (id, owner_id, amount, category, type, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		tx.ID, ownerID, f.Amount, f.Category, string(f.Type), f.Date,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// ========================
// GET TRANSACTION BY ID
// ========================

func (r *TransactionRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	if !validUUIDs(ownerID, id) {
		return nil, ErrNotFound
	}
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	row := r.DB.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction: %w", err)
	}
	return tx, nil
}

// ========================
// UPDATE TRANSACTION BY ID
// ========================

// UpdateByID applies the non-nil patch fields in a single statement.
func (r *TransactionRepo) UpdateByID(ctx context.Context, ownerID, id string, p models.TransactionPatch) (*models.Transaction, error) {
	if !validUUIDs(ownerID, id) {
		return nil, ErrNotFound
	}
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	var typ *string
	if p.Type != nil {
		s := string(*p.Type)
		typ = &s
	}

	row := r.DB.QueryRowContext(ctx,
		`UPDATE transactions
		 SET amount = COALESCE($3, amount),
		     category = COALESCE($4, category),
		     type = COALESCE($5, type),
		     occurred_at = COALESCE($6, occurred_at)
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+transactionColumns,
		id, ownerID, p.Amount, p.Category, typ, p.Date,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return tx, nil
}

// ========================
// DELETE TRANSACTION BY ID
// ========================

func (r *TransactionRepo) DeleteByID(ctx context.Context, ownerID, id string) error {
	if !validUUIDs(ownerID, id) {
		return ErrNotFound
	}
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ========================
// LIST BY OWNER
// ========================

func (r *TransactionRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Transaction, error) {
	if !validUUIDs(ownerID) {
		return []models.Transaction{}, nil
	}
	return r.list(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE owner_id = $1
		 ORDER BY occurred_at, created_at`,
		ownerID,
	)
}

func (r *TransactionRepo) ListByOwnerInRange(ctx context.Context, ownerID string, from, to time.Time) ([]models.Transaction, error) {
	if !validUUIDs(ownerID) {
		return []models.Transaction{}, nil
	}
	return r.list(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		 ORDER BY occurred_at, created_at`,
		ownerID, from, to,
	)
}

func (r *TransactionRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	ctx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (*models.Transaction, error) {
	var (
		tx  models.Transaction
		typ string
	)
	if err := s.Scan(&tx.ID, &tx.OwnerID, &tx.Amount, &tx.Category, &typ, &tx.Date, &tx.CreatedAt); err != nil {
		return nil, err
	}
	tx.Type = models.TxType(typ)
	return &tx, nil
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
