package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-ticket-desk/internal/database"
)

// Store is the Postgres-backed persistence layer. Methods join the
// transaction carried by ctx when called inside WithTx.
type Store struct {
	db     *sql.DB
	txOpts database.TxOptions
}

func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		txOpts: database.DefaultTxOptions(),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.InTx(ctx, s.db, s.txOpts, fn)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) database.Querier {
	return database.Conn(ctx, s.db)
}
