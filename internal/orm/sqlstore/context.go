package sqlstore

import (
	"context"
	"database/sql"
)

type contextKey string

const contextKeyTx contextKey = "modelkit:tx"

// FromContext retrieves the transaction started by WithTransaction
func FromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(contextKeyTx).(*sql.Tx)
	return tx, ok
}

// WithContext returns a new context carrying tx. Store operations called
// with that context run inside tx.
func WithContext(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, contextKeyTx, tx)
}
