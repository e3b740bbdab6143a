package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path when calling a repository directly.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Use-case interfaces stay clean (no driver types leak out), while
// repository methods that accept a Tx can detect the handle and run their
// statements on it. Repositories MUST gracefully accept a nil Tx and fall
// back to the pool.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		code, err := codes.FindByCode(ctx, tx, norm)
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
