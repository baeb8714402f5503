package datasource

import (
	"context"
	"log/slog"

	"github.com/roach88/dacore/internal/capability"
)

// noCopy makes go vet's copylocks check flag copies of the embedding struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// ScopedTransaction ties a transaction to a lexical scope: it begins on
// construction and rolls back on Release unless Commit succeeded.
//
//	st, err := datasource.NewScopedTransaction(ctx, ds)
//	if err != nil {
//		return err
//	}
//	defer st.Release(ctx)
//	// ... work ...
//	return st.Commit(ctx)
//
// When the source is already in a transaction the scope defers to the
// outer owner: it neither begins, commits nor rolls back.
//
// A ScopedTransaction must not be copied.
type ScopedTransaction struct {
	_ noCopy

	ds       Transactional
	rollback bool
}

// NewScopedTransaction opens a scope on ds. It returns an
// unsupported-operation error when ds does not support transactions and a
// transaction error when Begin fails.
func NewScopedTransaction(ctx context.Context, ds Transactional) (*ScopedTransaction, error) {
	if err := ds.Capabilities().Require(ds.Type(), capability.FeatureTransactions); err != nil {
		return nil, err
	}

	st := &ScopedTransaction{ds: ds}
	if ds.IsInTransaction() {
		slog.Debug("scoped transaction joins outer transaction", "backend", ds.Type())
		return st, nil
	}

	if err := ds.Begin(ctx); err != nil {
		return nil, err
	}
	st.rollback = true
	return st, nil
}

// Owns reports whether this scope began the transaction and has not yet
// committed or rolled it back.
func (st *ScopedTransaction) Owns() bool {
	return st.rollback
}

// Commit commits the transaction this scope began. It is a no-op for a
// deferring scope and after a successful commit. On failure the scope
// keeps ownership; Release rolls back only if the source still reports the
// transaction, since some backends finish it even when commit fails.
func (st *ScopedTransaction) Commit(ctx context.Context) error {
	if !st.rollback {
		return nil
	}
	if err := st.ds.Commit(ctx); err != nil {
		return err
	}
	st.rollback = false
	return nil
}

// TryRollback rolls back the owned transaction and returns the rollback
// error. After it returns the scope no longer owns the transaction.
func (st *ScopedTransaction) TryRollback(ctx context.Context) error {
	if !st.rollback {
		return nil
	}
	st.rollback = false
	if !st.ds.IsInTransaction() {
		return nil
	}
	return st.ds.Rollback(ctx)
}

// Release rolls back the owned transaction, if any. Rollback failures are
// logged and swallowed. Release runs even when ctx is already canceled.
func (st *ScopedTransaction) Release(ctx context.Context) {
	if !st.rollback {
		return
	}
	st.rollback = false
	if !st.ds.IsInTransaction() {
		slog.Debug("scoped transaction already finished", "backend", st.ds.Type())
		return
	}
	if err := st.ds.Rollback(context.WithoutCancel(ctx)); err != nil {
		slog.Error("scoped transaction rollback failed",
			"backend", st.ds.Type(),
			"error", err,
		)
	}
}

// RunInTransaction runs fn inside a scoped transaction. The transaction is
// committed when fn returns nil and rolled back otherwise; fn's error is
// returned unchanged.
func RunInTransaction(ctx context.Context, ds Transactional, fn func(ctx context.Context) error) error {
	st, err := NewScopedTransaction(ctx, ds)
	if err != nil {
		return err
	}
	defer st.Release(ctx)

	if err := fn(ctx); err != nil {
		return err
	}
	return st.Commit(ctx)
}
