package repo

import (
	"context"
	"database/sql"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Backend is the process-wide storage handle: both stores plus lifecycle hooks.
type Backend struct {
	Users        UserStore
	Transactions TransactionStore

	prepare func(ctx context.Context) error
	ping    func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// NewPostgresBackend wraps an open *sql.DB.
func NewPostgresBackend(db *sql.DB, timeout time.Duration) *Backend {
	users := NewUserRepo(db)
	users.Timeout = timeout
	txs := NewTransactionRepo(db)
	txs.Timeout = timeout
	return &Backend{
		Users:        users,
		Transactions: txs,
		ping:         db.PingContext,
		close:        func(context.Context) error { return db.Close() },
	}
}

// NewMongoBackend wraps a connected client and uses the named database.
func NewMongoBackend(client *mongo.Client, database string, timeout time.Duration) *Backend {
	db := client.Database(database)
	users := NewMongoUserRepo(db)
	users.Timeout = timeout
	txs := NewMongoTransactionRepo(db)
	txs.Timeout = timeout
	return &Backend{
		Users:        users,
		Transactions: txs,
		prepare: func(ctx context.Context) error {
			if err := users.EnsureIndexes(ctx); err != nil {
				return err
			}
			return txs.EnsureIndexes(ctx)
		},
		ping:  func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		close: client.Disconnect,
	}
}

// Prepare creates whatever the backend needs before serving, such as Mongo indexes.
// Postgres schema is handled by db.Migrate instead.
func (b *Backend) Prepare(ctx context.Context) error {
	if b.prepare == nil {
		return nil
	}
	return b.prepare(ctx)
}

// Ping checks that the storage is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the storage handle.
func (b *Backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}
