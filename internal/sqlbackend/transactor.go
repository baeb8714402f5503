package sqlbackend

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

// Transactor runs statements on its DataSource, inside the source's active
// transaction when there is one. Every operation is checked against the
// source's capabilities before anything is sent to the backend.
type Transactor struct {
	ds     *DataSource
	closed bool
}

var _ datasource.Transactor = (*Transactor)(nil)

func (t *Transactor) DataSource() datasource.DataSource { return t.ds }

func (t *Transactor) require(features ...capability.Feature) error {
	return t.ds.caps.Require(t.ds.typ, features...)
}

func (t *Transactor) querier(op string) (Querier, error) {
	if t.closed {
		return nil, dberr.NewNotOpenError(t.ds.typ, op)
	}
	return t.ds.querier(op)
}

// statementFeatures lists the capabilities a data modification needs.
func statementFeatures(stmt expr.Statement) ([]capability.Feature, error) {
	switch stmt.(type) {
	case *expr.Insert:
		return []capability.Feature{capability.FeatureWrite, capability.FeatureInsert}, nil
	case *expr.Update:
		return []capability.Feature{capability.FeatureWrite, capability.FeatureUpdate}, nil
	case *expr.Delete:
		return []capability.Feature{capability.FeatureWrite, capability.FeatureDelete}, nil
	case *expr.Select:
		return nil, dberr.NewInvalidExpressionError("execute", "select statements run through Query")
	default:
		return nil, dberr.NewInvalidExpressionError("execute", fmt.Sprintf("unknown statement %T", stmt))
	}
}

func (t *Transactor) queryFeatures(opts datasource.QueryOptions) []capability.Feature {
	features := []capability.Feature{capability.FeatureRead}
	if opts.Traverse == datasource.Bidirectional {
		features = append(features, capability.FeatureBidirectional)
	}
	if opts.Access.CanWrite() {
		features = append(features, capability.FeatureWrite)
	}
	return features
}

// Query renders sel and runs it.
func (t *Transactor) Query(ctx context.Context, sel *expr.Select, opts datasource.QueryOptions) (datasource.DataSet, error) {
	if err := t.require(append(t.queryFeatures(opts), capability.FeatureSelect)...); err != nil {
		return nil, err
	}
	query, args, err := t.ds.dialect.Render(sel, dialect.Options{Bindings: opts.Bindings})
	if err != nil {
		return nil, err
	}
	return t.query(ctx, query, args, opts)
}

// QuerySQL runs query text as is.
func (t *Transactor) QuerySQL(ctx context.Context, query string, args []any, opts datasource.QueryOptions) (datasource.DataSet, error) {
	if err := t.require(t.queryFeatures(opts)...); err != nil {
		return nil, err
	}
	return t.query(ctx, query, args, opts)
}

func (t *Transactor) query(ctx context.Context, query string, args []any, opts datasource.QueryOptions) (datasource.DataSet, error) {
	q, err := t.querier("query")
	if err != nil {
		return nil, err
	}
	slog.Debug("query", "type", t.ds.typ, "sql", query, "args", len(args))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewQueryError(t.ds.typ, "query", err)
	}
	return newDataSet(t.ds, rows, opts)
}

// Execute renders a data modification and runs it.
func (t *Transactor) Execute(ctx context.Context, stmt expr.Statement, bindings map[string]any) (int64, error) {
	features, err := statementFeatures(stmt)
	if err != nil {
		return 0, err
	}
	if err := t.require(features...); err != nil {
		return 0, err
	}
	query, args, err := t.ds.dialect.Render(stmt, dialect.Options{Bindings: bindings})
	if err != nil {
		return 0, err
	}
	return t.exec(ctx, query, args)
}

// ExecuteSQL runs statement text as is.
func (t *Transactor) ExecuteSQL(ctx context.Context, query string, args ...any) (int64, error) {
	if err := t.require(capability.FeatureWrite); err != nil {
		return 0, err
	}
	return t.exec(ctx, query, args)
}

func (t *Transactor) exec(ctx context.Context, query string, args []any) (int64, error) {
	q, err := t.querier("execute")
	if err != nil {
		return 0, err
	}
	slog.Debug("execute", "type", t.ds.typ, "sql", query, "args", len(args))
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dberr.NewQueryError(t.ds.typ, "execute", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot count rows for DDL.
		return 0, nil
	}
	return n, nil
}

// DataSet opens a data set by name.
func (t *Transactor) DataSet(ctx context.Context, name string, opts datasource.QueryOptions) (datasource.DataSet, error) {
	return t.Query(ctx, expr.SelectFrom(name), opts)
}

func (t *Transactor) introspector(op string) (Introspector, error) {
	if t.ds.intro == nil {
		return nil, dberr.NewUnsupportedError(t.ds.typ, op)
	}
	return t.ds.intro, nil
}

// DataSetNames lists data sets, sorted.
func (t *Transactor) DataSetNames(ctx context.Context) ([]string, error) {
	if err := t.require(capability.FeatureRead); err != nil {
		return nil, err
	}
	intro, err := t.introspector("data set listing")
	if err != nil {
		return nil, err
	}
	q, err := t.querier("data set names")
	if err != nil {
		return nil, err
	}
	names, err := intro.DataSetNames(ctx, q)
	if err != nil {
		return nil, dberr.NewQueryError(t.ds.typ, "data set names", err)
	}
	slices.Sort(names)
	return names, nil
}

// DataSetExists reports whether name is listed, case-insensitively.
func (t *Transactor) DataSetExists(ctx context.Context, name string) (bool, error) {
	names, err := t.DataSetNames(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, name) }), nil
}

// DataSetType introspects a data set.
func (t *Transactor) DataSetType(ctx context.Context, name string) (*schema.DataSetType, error) {
	if err := t.require(capability.FeatureRead); err != nil {
		return nil, err
	}
	intro, err := t.introspector("schema introspection")
	if err != nil {
		return nil, err
	}
	q, err := t.querier("data set type")
	if err != nil {
		return nil, err
	}
	dt, err := intro.DataSetType(ctx, q, name)
	if err != nil {
		return nil, dberr.NewQueryError(t.ds.typ, "data set type", err)
	}
	if dt == nil {
		return nil, dberr.NewQueryError(t.ds.typ, "data set type", fmt.Errorf("data set %q does not exist", name))
	}
	return dt, nil
}

// checkCreate verifies every feature creating dt depends on.
func (t *Transactor) checkCreate(dt *schema.DataSetType) error {
	features := []capability.Feature{
		capability.FeatureWrite,
		capability.FeatureDataSetTypePersistence,
		capability.FeatureCreate,
	}
	if dt.PrimaryKey != nil {
		features = append(features, capability.FeaturePrimaryKey)
	}
	if len(dt.UniqueKeys) > 0 {
		features = append(features, capability.FeatureUniqueKey)
	}
	if len(dt.ForeignKeys) > 0 {
		features = append(features, capability.FeatureForeignKey)
	}
	if len(dt.CheckConstraints) > 0 {
		features = append(features, capability.FeatureCheckConstraint)
	}
	if len(dt.Sequences) > 0 {
		features = append(features, capability.FeatureSequence)
	}
	if err := t.require(features...); err != nil {
		return err
	}
	for _, p := range dt.Properties {
		if err := t.ds.caps.RequireDataType(t.ds.typ, p.Type); err != nil {
			return err
		}
	}
	for _, idx := range dt.Indexes {
		if err := t.ds.caps.RequireIndex(t.ds.typ, idx.Type); err != nil {
			return err
		}
	}
	return nil
}

// CreateDataSet creates dt with its constraints, indexes and sequences, as
// one unit when the backend supports transactions.
func (t *Transactor) CreateDataSet(ctx context.Context, dt *schema.DataSetType) error {
	if dt == nil {
		return dberr.NewInvalidExpressionError("create data set", "nil data set type")
	}
	if err := t.checkCreate(dt); err != nil {
		return err
	}
	stmts, err := t.ds.dialect.RenderCreateDataSet(dt)
	if err != nil {
		return err
	}
	err = t.atomic(ctx, func(ctx context.Context) error {
		for _, s := range stmts {
			if _, err := t.exec(ctx, s, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("data set created", "type", t.ds.typ, "name", dt.Name)
	return nil
}

// DropDataSet removes a data set.
func (t *Transactor) DropDataSet(ctx context.Context, name string) error {
	err := t.require(capability.FeatureWrite, capability.FeatureDataSetTypePersistence, capability.FeatureDrop)
	if err != nil {
		return err
	}
	stmt, err := t.ds.dialect.RenderDropDataSet(name)
	if err != nil {
		return err
	}
	if _, err := t.exec(ctx, stmt, nil); err != nil {
		return err
	}
	slog.Info("data set dropped", "type", t.ds.typ, "name", name)
	return nil
}

// atomic runs fn in a scoped transaction when the backend has them, joining
// the caller's transaction if one is active.
func (t *Transactor) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.ds.caps.Transactions {
		return fn(ctx)
	}
	return datasource.RunInTransaction(ctx, t.ds, fn)
}

// Close invalidates the transactor. The source stays open.
func (t *Transactor) Close() error {
	t.closed = true
	return nil
}
