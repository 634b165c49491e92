package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const txKey contextKey = "db_tx"

// WithTx returns a context carrying an open transaction. Repositories prefer
// the transaction over the tenant connection or pool, so multi-statement
// operations stay atomic without the repository knowing about transaction
// boundaries.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFromContext retrieves the transaction bound to the context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}
