package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wisonline/woec/core"
)

type txKey struct{}

// Queryer is implemented by both *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txManager struct {
	db *sqlx.DB
}

var _ core.TxManager = (*txManager)(nil)

func NewTxManager(db *sqlx.DB) core.TxManager {
	return &txManager{db: db}
}

// RunInTx runs fn in a transaction. Nested calls join the outer transaction.
func (m *txManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			// the connection state is unknown: stop serving
			return core.NewShutdownError(fmt.Sprintf("rollback failed: %v (after: %v)", rbErr, err))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Conn returns the transaction carried by ctx, or db.
func Conn(ctx context.Context, db *sqlx.DB) Queryer {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}
