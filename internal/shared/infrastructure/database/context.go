package database

import "context"

type txKey struct{}

// TxInfo is the transaction carried in a context. Owned is false when a
// nested unit of work joined a transaction started further up the stack.
type TxInfo struct {
	Tx    Transaction
	Owned bool
}

// WithTx returns a copy of ctx carrying tx.
func WithTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, TxInfo{Tx: tx, Owned: owned})
}

// TxInfoFromContext returns the transaction carried by ctx, if any.
func TxInfoFromContext(ctx context.Context) (TxInfo, bool) {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// ExecutorFromContext returns the active transaction or, outside one, conn.
// Repositories call it on every statement so they join a surrounding unit of
// work without knowing about it.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if info, ok := TxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return conn
}
