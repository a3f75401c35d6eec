// Package postgres implements the persistence contracts over pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollandwest/skadi/internal/domain"
)

// Store implements domain.SkuImageStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time check that Store implements domain.SkuImageStore.
var _ domain.SkuImageStore = (*Store)(nil)

// NewStore creates a new PostgreSQL-backed store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx domain.SkuImageTx) error) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&skuImageTx{tx: tx})
	})
	if err != nil {
		if domain.IsDomainError(err) {
			return err
		}
		return domain.Internal(err, "postgres.tx", "transaction failed")
	}
	return nil
}
