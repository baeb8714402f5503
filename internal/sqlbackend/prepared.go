package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/expr"
)

// Prepare renders stmt with its parameters left open and prepares it on the
// backend. Parameters bound by name at each execution fill the open slots.
func (t *Transactor) Prepare(ctx context.Context, stmt expr.Statement) (datasource.PreparedQuery, error) {
	if err := t.require(capability.FeaturePreparedQuery); err != nil {
		return nil, err
	}
	_, isSelect := stmt.(*expr.Select)
	if isSelect {
		if err := t.require(capability.FeatureRead, capability.FeatureSelect); err != nil {
			return nil, err
		}
	} else {
		features, err := statementFeatures(stmt)
		if err != nil {
			return nil, err
		}
		if err := t.require(features...); err != nil {
			return nil, err
		}
	}

	query, args, err := t.ds.dialect.Render(stmt, dialect.Options{Defer: true})
	if err != nil {
		return nil, err
	}
	if t.closed {
		return nil, dberr.NewNotOpenError(t.ds.typ, "prepare")
	}
	native, owner, err := t.ds.prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	var params []string
	for _, a := range args {
		if d, ok := a.(dialect.Deferred); ok {
			params = append(params, d.Name)
		}
	}
	slog.Debug("prepared", "type", t.ds.typ, "sql", query, "params", params)
	return &preparedQuery{
		t:        t,
		query:    query,
		stmt:     native,
		owner:    owner,
		args:     args,
		params:   params,
		isSelect: isSelect,
	}, nil
}

type preparedQuery struct {
	t        *Transactor
	query    string
	args     []any
	params   []string
	isSelect bool

	mu    sync.Mutex
	stmt  *sql.Stmt
	owner *sql.Tx // transaction stmt was prepared in; nil for the pool
}

func (p *preparedQuery) Parameters() []string {
	return append([]string(nil), p.params...)
}

// bind fills the deferred slots from bindings.
func (p *preparedQuery) bind(bindings map[string]any) ([]any, error) {
	out := make([]any, len(p.args))
	for i, a := range p.args {
		d, ok := a.(dialect.Deferred)
		if !ok {
			out[i] = a
			continue
		}
		raw, ok := bindings[d.Name]
		if !ok {
			return nil, dberr.NewInvalidExpressionError("prepared query", fmt.Sprintf("parameter %q is not bound", d.Name))
		}
		v, err := expr.ValueOf(raw)
		if err != nil {
			return nil, dberr.NewInvalidExpressionError("prepared query", fmt.Sprintf("parameter %q: %v", d.Name, err))
		}
		native, err := expr.Native(v)
		if err != nil {
			return nil, dberr.NewInvalidExpressionError("prepared query", fmt.Sprintf("parameter %q: %v", d.Name, err))
		}
		out[i] = native
	}
	return out, nil
}

// current returns the statement bound to the source's active transaction.
// A statement prepared in a transaction is closed when that transaction
// ends, so it is prepared again for whatever runs next.
func (p *preparedQuery) current(ctx context.Context) (*sql.Stmt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := p.t.ds.activeTx()
	if p.owner != nil && p.owner != tx {
		stmt, owner, err := p.t.ds.prepare(ctx, p.query)
		if err != nil {
			return nil, err
		}
		p.stmt, p.owner = stmt, owner
		slog.Debug("re-prepared", "type", p.t.ds.typ, "sql", p.query)
		return stmt, nil
	}
	if tx != nil && p.owner == nil {
		return tx.StmtContext(ctx, p.stmt), nil
	}
	return p.stmt, nil
}

func (p *preparedQuery) Query(ctx context.Context, bindings map[string]any, opts datasource.QueryOptions) (datasource.DataSet, error) {
	if !p.isSelect {
		return nil, dberr.NewInvalidExpressionError("prepared query", "statement is not a select")
	}
	if err := p.t.require(p.t.queryFeatures(opts)...); err != nil {
		return nil, err
	}
	args, err := p.bind(bindings)
	if err != nil {
		return nil, err
	}
	stmt, err := p.current(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, dberr.NewQueryError(p.t.ds.typ, "prepared query", err)
	}
	return newDataSet(p.t.ds, rows, opts)
}

func (p *preparedQuery) Execute(ctx context.Context, bindings map[string]any) (int64, error) {
	if p.isSelect {
		return 0, dberr.NewInvalidExpressionError("prepared execute", "select statements run through Query")
	}
	args, err := p.bind(bindings)
	if err != nil {
		return 0, err
	}
	stmt, err := p.current(ctx)
	if err != nil {
		return 0, err
	}
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, dberr.NewQueryError(p.t.ds.typ, "prepared execute", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (p *preparedQuery) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stmt.Close()
}

// Batch returns an executor that runs queued statements as one unit.
func (t *Transactor) Batch() (datasource.BatchExecutor, error) {
	if err := t.require(capability.FeatureBatchExecutor); err != nil {
		return nil, err
	}
	return &batch{t: t}, nil
}

type queued struct {
	sql  string
	args []any
}

type batch struct {
	t     *Transactor
	queue []queued
}

func (b *batch) Add(stmt expr.Statement, bindings map[string]any) error {
	features, err := statementFeatures(stmt)
	if err != nil {
		return err
	}
	if err := b.t.require(features...); err != nil {
		return err
	}
	query, args, err := b.t.ds.dialect.Render(stmt, dialect.Options{Bindings: bindings})
	if err != nil {
		return err
	}
	b.queue = append(b.queue, queued{sql: query, args: args})
	return nil
}

func (b *batch) Len() int { return len(b.queue) }

// Execute runs the queue in order, stopping at the first failure. With
// transactions the whole batch is rolled back on failure.
func (b *batch) Execute(ctx context.Context) (int64, error) {
	queue := b.queue
	b.queue = nil

	var total int64
	err := b.t.atomic(ctx, func(ctx context.Context) error {
		for i, q := range queue {
			n, err := b.t.exec(ctx, q.sql, q.args)
			if err != nil {
				return fmt.Errorf("batch statement %d: %w", i+1, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.Debug("batch executed", "type", b.t.ds.typ, "statements", len(queue), "rows", total)
	return total, nil
}
