package inmemdb

import (
	"context"

	"github.com/wisonline/woec/core"
)

type (
	txKey struct{}

	// tx records how to revert each write made through it.
	tx struct {
		undo []func()
	}

	txManager struct {
		db *DB
	}
)

var _ core.TxManager = (*txManager)(nil)

func NewTxManager(db *DB) core.TxManager {
	return &txManager{db: db}
}

// RunInTx serializes transactions on the DB. When fn fails, the writes it made are reverted
// in reverse order. Nested calls join the outer transaction.
func (m *txManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}

	m.db.txMutex.Lock()
	defer m.db.txMutex.Unlock()

	t := &tx{}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

// onRollback registers undo with the transaction carried by ctx, if any.
func onRollback(ctx context.Context, undo func()) {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.undo = append(t.undo, undo)
	}
}
