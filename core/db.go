package core

import "context"

// TxManager runs units of work atomically.
type TxManager interface {
	// RunInTx calls fn with a context carrying the transaction.
	// The transaction is committed if fn returns nil and rolled back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
