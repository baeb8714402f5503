package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

type sourceOpts struct {
	caps     func(*capability.DataSourceCapabilities)
	info     datasource.ConnectionInfo
	maxConns int
}

func newTestSource(t *testing.T, o sourceOpts) *DataSource {
	t.Helper()

	var caps capability.DataSourceCapabilities
	caps.SetSupportAll()
	if o.caps != nil {
		o.caps(&caps)
	}
	path := filepath.Join(t.TempDir(), "test.db")
	info := datasource.ConnectionInfo{datasource.KeyPath: path}
	for k, v := range o.info {
		info[k] = v
	}

	ds, err := New(Config{
		Params: datasource.Params{
			ID:           "test-1",
			Type:         "SQLITE",
			Info:         info,
			Capabilities: caps,
		},
		Dialect: dialect.NewSQLite(dialect.NewFunctionCatalogManager()),
		Connect: func(ctx context.Context) (*sql.DB, error) {
			return sql.Open("sqlite3", path)
		},
		MaxOpenConns: o.maxConns,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func openTestSource(t *testing.T, o sourceOpts) (*DataSource, datasource.Transactor) {
	t.Helper()
	ctx := context.Background()
	ds := newTestSource(t, o)
	require.NoError(t, ds.Open(ctx))

	// Bypasses capability checks so read-only sources get the table too.
	q, err := ds.querier("setup")
	require.NoError(t, err)
	_, err = q.ExecContext(ctx, `CREATE TABLE cities (id INTEGER PRIMARY KEY, name TEXT NOT NULL, population BIGINT, area REAL, geom GEOMETRY)`)
	require.NoError(t, err)

	tr, err := ds.Transactor(ctx)
	require.NoError(t, err)
	return ds, tr
}

func countRows(t *testing.T, tr datasource.Transactor, table string) int64 {
	t.Helper()
	set, err := tr.QuerySQL(context.Background(), "SELECT COUNT(*) FROM "+table, nil, datasource.QueryOptions{})
	require.NoError(t, err)
	defer set.Close()
	require.True(t, set.MoveNext())
	n, err := set.Int64(0)
	require.NoError(t, err)
	return n
}

func insertCity(id int64, name string, pop int64) *expr.Insert {
	return &expr.Insert{
		Into:    "cities",
		Columns: []string{"id", "name", "population"},
		Values:  [][]expr.Expression{{expr.Lit(id), expr.Lit(name), expr.Lit(pop)}},
	}
}

func TestDataSource_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ds := newTestSource(t, sourceOpts{})

	assert.False(t, ds.IsOpened())
	assert.Equal(t, "test-1", ds.ID())
	assert.Equal(t, "SQLITE", ds.Type())

	_, err := ds.Transactor(ctx)
	assert.True(t, dberr.IsNotOpenError(err))
	assert.True(t, dberr.IsNotOpenError(ds.Begin(ctx)))

	require.NoError(t, ds.Open(ctx))
	require.NoError(t, ds.Open(ctx), "open is idempotent")
	assert.True(t, ds.IsOpened())

	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close(), "closing a closed source is a no-op")
	assert.False(t, ds.IsOpened())
}

func TestDataSource_OpenFailureKeepsNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("connect", func(t *testing.T) {
		ds, err := New(Config{
			Params:  datasource.Params{Type: "SQLITE"},
			Dialect: dialect.NewSQLite(dialect.NewFunctionCatalogManager()),
			Connect: func(ctx context.Context) (*sql.DB, error) { return nil, errors.New("no route") },
		})
		require.NoError(t, err)

		err = ds.Open(ctx)
		assert.True(t, dberr.IsConnectionError(err))
		assert.ErrorContains(t, err, "no route")
		assert.False(t, ds.IsOpened())
	})

	t.Run("ping", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "x.db")
		ds, err := New(Config{
			Params:  datasource.Params{Type: "SQLITE"},
			Dialect: dialect.NewSQLite(dialect.NewFunctionCatalogManager()),
			Connect: func(ctx context.Context) (*sql.DB, error) { return sql.Open("sqlite3", path) },
		})
		require.NoError(t, err)

		assert.True(t, dberr.IsConnectionError(ds.Open(ctx)))
		assert.False(t, ds.IsOpened())
	})

	t.Run("setup", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "x.db")
		ds, err := New(Config{
			Params:  datasource.Params{Type: "SQLITE"},
			Dialect: dialect.NewSQLite(dialect.NewFunctionCatalogManager()),
			Connect: func(ctx context.Context) (*sql.DB, error) { return sql.Open("sqlite3", path) },
			Setup:   func(ctx context.Context, db *sql.DB) error { return errors.New("extension missing") },
		})
		require.NoError(t, err)

		assert.True(t, dberr.IsConnectionError(ds.Open(ctx)))
		assert.False(t, ds.IsOpened())
	})
}

func TestDataSource_Transactions(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})

	assert.True(t, dberr.IsTransactionError(ds.Commit(ctx)))
	assert.True(t, dberr.IsTransactionError(ds.Rollback(ctx)))

	require.NoError(t, ds.Begin(ctx))
	assert.True(t, ds.IsInTransaction())
	assert.True(t, dberr.IsTransactionError(ds.Begin(ctx)), "nested begin")

	_, err := tr.Execute(ctx, insertCity(1, "Oslo", 700000), nil)
	require.NoError(t, err)
	require.NoError(t, ds.Rollback(ctx))
	assert.False(t, ds.IsInTransaction())
	assert.Zero(t, countRows(t, tr, "cities"))

	require.NoError(t, ds.Begin(ctx))
	_, err = tr.Execute(ctx, insertCity(1, "Oslo", 700000), nil)
	require.NoError(t, err)
	require.NoError(t, ds.Commit(ctx))
	assert.EqualValues(t, 1, countRows(t, tr, "cities"))
}

func TestDataSource_CloseRollsBack(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})

	require.NoError(t, ds.Begin(ctx))
	_, err := tr.Execute(ctx, insertCity(1, "Oslo", 1), nil)
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	assert.False(t, ds.IsInTransaction())

	require.NoError(t, ds.Open(ctx))
	tr, err = ds.Transactor(ctx)
	require.NoError(t, err)
	assert.Zero(t, countRows(t, tr, "cities"))
}

func TestScopedTransaction_OnBackend(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})

	func() {
		st, err := datasource.NewScopedTransaction(ctx, ds)
		require.NoError(t, err)
		defer st.Release(ctx)
		_, err = tr.Execute(ctx, insertCity(1, "Oslo", 1), nil)
		require.NoError(t, err)
	}()
	assert.Zero(t, countRows(t, tr, "cities"), "released scope rolls back")

	func() {
		st, err := datasource.NewScopedTransaction(ctx, ds)
		require.NoError(t, err)
		defer st.Release(ctx)
		_, err = tr.Execute(ctx, insertCity(1, "Oslo", 1), nil)
		require.NoError(t, err)
		require.NoError(t, st.Commit(ctx))
	}()
	assert.EqualValues(t, 1, countRows(t, tr, "cities"), "committed scope persists")
	assert.False(t, ds.IsInTransaction())
}

func TestTransactor_QueryExpressionTree(t *testing.T) {
	ctx := context.Background()
	_, tr := openTestSource(t, sourceOpts{})

	for i, c := range []struct {
		name string
		pop  int64
	}{{"Oslo", 700000}, {"Bergen", 285000}, {"Tromsø", 77000}} {
		_, err := tr.Execute(ctx, insertCity(int64(i+1), c.name, c.pop), nil)
		require.NoError(t, err)
	}
	_, err := tr.ExecuteSQL(ctx, `UPDATE cities SET area = 454.0, geom = 'POINT(10.75 59.91)' WHERE id = 1`)
	require.NoError(t, err)

	sel := &expr.Select{
		Fields: []expr.Field{
			{Expr: expr.Prop("name")},
			{Expr: expr.Prop("population")},
			{Expr: expr.Prop("area")},
			{Expr: expr.Prop("geom")},
		},
		From:    []expr.Source{&expr.DataSetName{Name: "cities"}},
		Where:   expr.Gt(expr.Prop("population"), expr.Param("min")),
		OrderBy: []expr.OrderBy{{Expr: expr.Prop("population"), Descending: true}},
	}
	set, err := tr.Query(ctx, sel, datasource.QueryOptions{
		Traverse: datasource.Bidirectional,
		Bindings: map[string]any{"min": 100000},
	})
	require.NoError(t, err)
	defer set.Close()

	assert.Equal(t, datasource.Bidirectional, set.TraverseType())
	assert.Equal(t, capability.ReadOnly, set.AccessPolicy())
	require.Equal(t, 4, set.NumProperties())
	assert.Equal(t, "population", set.PropertyName(1))
	assert.Equal(t, schema.Int64, set.PropertyDataType(1))
	assert.Equal(t, schema.Geometry, set.PropertyDataType(3))

	size, err := set.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	require.True(t, set.MoveNext())
	name, err := set.String(0)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", name)
	pop, err := set.Int32(1)
	require.NoError(t, err)
	assert.EqualValues(t, 700000, pop)
	area, err := set.Double(2)
	require.NoError(t, err)
	assert.InDelta(t, 454.0, area, 1e-9)
	geom, err := set.Geometry(3)
	require.NoError(t, err)
	assert.Equal(t, expr.Geometry{WKT: "POINT(10.75 59.91)"}, geom)
	_, err = set.Int16(1)
	assert.ErrorContains(t, err, "out of range")

	require.True(t, set.MoveNext())
	assert.True(t, set.IsNull(3))
	v, err := set.Value(3)
	require.NoError(t, err)
	assert.Equal(t, expr.Null{}, v)
	_, err = set.String(3)
	assert.ErrorContains(t, err, "is null")

	assert.False(t, set.MoveNext())
	require.True(t, set.MovePrevious())
	v, err = set.Value(0)
	require.NoError(t, err)
	assert.Equal(t, expr.String("Bergen"), v)

	require.True(t, set.MoveFirst())
	v, err = set.Value(1)
	require.NoError(t, err)
	assert.Equal(t, expr.Int64(700000), v)
	require.NoError(t, set.Err())
}

func TestTransactor_ForwardOnlyDataSet(t *testing.T) {
	ctx := context.Background()
	_, tr := openTestSource(t, sourceOpts{})
	_, err := tr.Execute(ctx, insertCity(1, "Oslo", 1), nil)
	require.NoError(t, err)

	set, err := tr.DataSet(ctx, "cities", datasource.QueryOptions{})
	require.NoError(t, err)
	defer set.Close()

	assert.Equal(t, datasource.ForwardOnly, set.TraverseType())
	require.NoError(t, set.MoveBeforeFirst(), "rewinding an untouched cursor is allowed")
	_, err = set.Size()
	assert.True(t, dberr.IsUnsupportedError(err))

	require.True(t, set.MoveNext())
	assert.False(t, set.MovePrevious())
	assert.True(t, dberr.IsUnsupportedError(set.Err()))
	assert.True(t, dberr.IsUnsupportedError(set.MoveBeforeFirst()))
}

func TestTransactor_ForwardOnlySingleConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, tr := openTestSource(t, sourceOpts{maxConns: 1})
	for i, name := range []string{"Oslo", "Bergen"} {
		_, err := tr.Execute(ctx, insertCity(int64(i+1), name, 1), nil)
		require.NoError(t, err)
	}

	set, err := tr.DataSet(ctx, "cities", datasource.QueryOptions{})
	require.NoError(t, err)
	defer set.Close()
	require.True(t, set.MoveNext())

	// The open cursor must not hold the only connection.
	n, err := tr.ExecuteSQL(ctx, "UPDATE cities SET population = population + 1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.True(t, set.MoveNext())
	assert.False(t, set.MoveNext())
	require.NoError(t, set.Err())
	assert.Equal(t, datasource.ForwardOnly, set.TraverseType())
	_, err = set.Size()
	assert.True(t, dberr.IsUnsupportedError(err))
	assert.True(t, dberr.IsUnsupportedError(set.MoveBeforeFirst()))
}

func TestTransactor_ExecuteRejectsSelect(t *testing.T) {
	_, tr := openTestSource(t, sourceOpts{})
	_, err := tr.Execute(context.Background(), expr.SelectFrom("cities"), nil)
	assert.True(t, dberr.IsInvalidExpressionError(err))
}

func TestTransactor_QueryErrors(t *testing.T) {
	ctx := context.Background()
	_, tr := openTestSource(t, sourceOpts{})

	_, err := tr.QuerySQL(ctx, "SELECT * FROM nowhere", nil, datasource.QueryOptions{})
	assert.True(t, dberr.IsQueryError(err))

	_, err = tr.Query(ctx, &expr.Select{
		From:  []expr.Source{&expr.DataSetName{Name: "cities"}},
		Where: expr.Eq(expr.Prop("id"), expr.Param("id")),
	}, datasource.QueryOptions{})
	assert.True(t, dberr.IsInvalidExpressionError(err), "unbound parameter")

	_, err = tr.Query(ctx, &expr.Select{
		From:  []expr.Source{&expr.DataSetName{Name: "cities"}},
		Where: expr.Func("FROBNICATE", expr.Prop("id")),
	}, datasource.QueryOptions{})
	assert.True(t, dberr.IsUnsupportedError(err))
	assert.ErrorContains(t, err, "FROBNICATE")
}

func TestTransactor_ClosedTransactor(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})
	require.NoError(t, tr.Close())

	_, err := tr.ExecuteSQL(ctx, "DELETE FROM cities")
	assert.True(t, dberr.IsNotOpenError(err))
	assert.True(t, ds.IsOpened())
}

func TestTransactor_CapabilityEnforcement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		caps func(*capability.DataSourceCapabilities)
		run  func(tr datasource.Transactor) error
	}{
		{
			name: "read only rejects writes",
			caps: func(c *capability.DataSourceCapabilities) { c.AccessPolicy = capability.ReadOnly },
			run: func(tr datasource.Transactor) error {
				_, err := tr.Execute(ctx, insertCity(1, "Oslo", 1), nil)
				return err
			},
		},
		{
			name: "write only rejects reads",
			caps: func(c *capability.DataSourceCapabilities) { c.AccessPolicy = capability.WriteOnly },
			run: func(tr datasource.Transactor) error {
				_, err := tr.DataSet(ctx, "cities", datasource.QueryOptions{})
				return err
			},
		},
		{
			name: "no delete",
			caps: func(c *capability.DataSourceCapabilities) { c.Query.Delete = false },
			run: func(tr datasource.Transactor) error {
				_, err := tr.Execute(ctx, &expr.Delete{From: "cities"}, nil)
				return err
			},
		},
		{
			name: "no bidirectional cursors",
			caps: func(c *capability.DataSourceCapabilities) { c.DataSet.Bidirectional = false },
			run: func(tr datasource.Transactor) error {
				_, err := tr.DataSet(ctx, "cities", datasource.QueryOptions{Traverse: datasource.Bidirectional})
				return err
			},
		},
		{
			name: "no prepared queries",
			caps: func(c *capability.DataSourceCapabilities) { c.PreparedQueryAPI = false },
			run: func(tr datasource.Transactor) error {
				_, err := tr.Prepare(ctx, insertCity(1, "Oslo", 1))
				return err
			},
		},
		{
			name: "no batch execution",
			caps: func(c *capability.DataSourceCapabilities) { c.BatchExecutorAPI = false },
			run: func(tr datasource.Transactor) error {
				_, err := tr.Batch()
				return err
			},
		},
		{
			name: "no foreign keys",
			caps: func(c *capability.DataSourceCapabilities) { c.DataSetType.ForeignKey = false },
			run: func(tr datasource.Transactor) error {
				return tr.CreateDataSet(ctx, &schema.DataSetType{
					Name:       "roads",
					Properties: []schema.Property{{Name: "city_id", Type: schema.Int64}},
					ForeignKeys: []schema.ForeignKey{{
						Columns: []string{"city_id"}, ReferencedDataSet: "cities", ReferencedColumns: []string{"id"},
					}},
				})
			},
		},
		{
			name: "no rtree index",
			caps: func(c *capability.DataSourceCapabilities) { c.DataSetType.RTreeIndex = false },
			run: func(tr datasource.Transactor) error {
				return tr.CreateDataSet(ctx, &schema.DataSetType{
					Name:       "roads",
					Properties: []schema.Property{{Name: "geom", Type: schema.Geometry}},
					Indexes:    []schema.Index{{Name: "idx_geom", Type: schema.RTreeIndex, Columns: []string{"geom"}}},
				})
			},
		},
		{
			name: "no raster type",
			caps: func(c *capability.DataSourceCapabilities) { c.DataType.Raster = false },
			run: func(tr datasource.Transactor) error {
				return tr.CreateDataSet(ctx, &schema.DataSetType{
					Name:       "tiles",
					Properties: []schema.Property{{Name: "r", Type: schema.Raster}},
				})
			},
		},
		{
			name: "no drop",
			caps: func(c *capability.DataSourceCapabilities) { c.Query.Drop = false },
			run:  func(tr datasource.Transactor) error { return tr.DropDataSet(ctx, "cities") },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, tr := openTestSource(t, sourceOpts{caps: tc.caps})
			for range 2 {
				err := tc.run(tr)
				require.Error(t, err)
				assert.True(t, dberr.IsUnsupportedError(err), "got %v", err)
			}
		})
	}
}

func TestTransactor_PreparedQuery(t *testing.T) {
	ctx := context.Background()
	_, tr := openTestSource(t, sourceOpts{})

	ins, err := tr.Prepare(ctx, &expr.Insert{
		Into:    "cities",
		Columns: []string{"id", "name", "population"},
		Values:  [][]expr.Expression{{expr.Param("id"), expr.Param("name"), expr.Lit(int64(0))}},
	})
	require.NoError(t, err)
	defer ins.Close()
	assert.Equal(t, []string{"id", "name"}, ins.Parameters())

	for i, name := range []string{"Oslo", "Bergen"} {
		n, err := ins.Execute(ctx, map[string]any{"id": i + 1, "name": name})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	}
	_, err = ins.Execute(ctx, map[string]any{"id": 3})
	assert.True(t, dberr.IsInvalidExpressionError(err))
	assert.ErrorContains(t, err, `parameter "name" is not bound`)

	_, err = ins.Query(ctx, nil, datasource.QueryOptions{})
	assert.True(t, dberr.IsInvalidExpressionError(err))

	sel, err := tr.Prepare(ctx, &expr.Select{
		Fields: []expr.Field{{Expr: expr.Prop("name")}},
		From:   []expr.Source{&expr.DataSetName{Name: "cities"}},
		Where:  expr.Eq(expr.Prop("id"), expr.Param("id")),
	})
	require.NoError(t, err)
	defer sel.Close()

	set, err := sel.Query(ctx, map[string]any{"id": 2}, datasource.QueryOptions{})
	require.NoError(t, err)
	defer set.Close()
	require.True(t, set.MoveNext())
	name, err := set.String(0)
	require.NoError(t, err)
	assert.Equal(t, "Bergen", name)
}

func TestTransactor_PreparedInsideTransaction(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})

	ins, err := tr.Prepare(ctx, insertCity(1, "Oslo", 1))
	require.NoError(t, err)
	defer ins.Close()

	require.NoError(t, ds.Begin(ctx))
	_, err = ins.Execute(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, ds.Rollback(ctx))

	assert.Zero(t, countRows(t, tr, "cities"))
}

func TestTransactor_PreparedOutlivesTransaction(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})

	require.NoError(t, ds.Begin(ctx))
	ins, err := tr.Prepare(ctx, &expr.Insert{
		Into:    "cities",
		Columns: []string{"id", "name", "population"},
		Values:  [][]expr.Expression{{expr.Param("id"), expr.Lit("Oslo"), expr.Lit(int64(1))}},
	})
	require.NoError(t, err)
	defer ins.Close()

	_, err = ins.Execute(ctx, map[string]any{"id": 1})
	require.NoError(t, err)
	require.NoError(t, ds.Commit(ctx))

	_, err = ins.Execute(ctx, map[string]any{"id": 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, countRows(t, tr, "cities"))

	require.NoError(t, ds.Begin(ctx))
	_, err = ins.Execute(ctx, map[string]any{"id": 3})
	require.NoError(t, err)
	require.NoError(t, ds.Rollback(ctx))
	assert.EqualValues(t, 2, countRows(t, tr, "cities"))

	require.NoError(t, datasource.RunInTransaction(ctx, ds, func(ctx context.Context) error {
		_, err := ins.Execute(ctx, map[string]any{"id": 4})
		return err
	}))
	_, err = ins.Execute(ctx, map[string]any{"id": 5})
	require.NoError(t, err)
	assert.EqualValues(t, 4, countRows(t, tr, "cities"))
}

func TestTransactor_Batch(t *testing.T) {
	ctx := context.Background()
	ds, tr := openTestSource(t, sourceOpts{})

	b, err := tr.Batch()
	require.NoError(t, err)
	require.NoError(t, b.Add(insertCity(1, "Oslo", 1), nil))
	require.NoError(t, b.Add(insertCity(2, "Bergen", 2), nil))
	require.NoError(t, b.Add(&expr.Update{
		DataSet: "cities",
		Set:     []expr.Assignment{{Column: "population", Value: expr.Param("p")}},
	}, map[string]any{"p": 5}))
	assert.Equal(t, 3, b.Len())
	assert.True(t, dberr.IsInvalidExpressionError(b.Add(expr.SelectFrom("cities"), nil)))

	n, err := b.Execute(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.Zero(t, b.Len())
	assert.False(t, ds.IsInTransaction())

	require.NoError(t, b.Add(insertCity(3, "Tromsø", 3), nil))
	require.NoError(t, b.Add(insertCity(1, "Duplicate", 0), nil))
	_, err = b.Execute(ctx)
	assert.True(t, dberr.IsQueryError(err))
	assert.EqualValues(t, 2, countRows(t, tr, "cities"), "failed batch rolls back")
}

func TestTransactor_CreateAndDropDataSet(t *testing.T) {
	ctx := context.Background()
	_, tr := openTestSource(t, sourceOpts{})

	zero := "0"
	dt := &schema.DataSetType{
		Name: "roads",
		Properties: []schema.Property{
			{Name: "id", Type: schema.Int64, Required: true},
			{Name: "name", Type: schema.String, Size: 80},
			{Name: "lanes", Type: schema.Int16, Default: &zero},
			{Name: "city_id", Type: schema.Int64},
		},
		PrimaryKey:       &schema.PrimaryKey{Columns: []string{"id"}},
		UniqueKeys:       []schema.UniqueKey{{Columns: []string{"name"}}},
		ForeignKeys:      []schema.ForeignKey{{Columns: []string{"city_id"}, ReferencedDataSet: "cities", ReferencedColumns: []string{"id"}}},
		CheckConstraints: []schema.CheckConstraint{{Expression: "lanes >= 0"}},
		Indexes:          []schema.Index{{Name: "idx_roads_city", Columns: []string{"city_id"}}},
	}
	require.NoError(t, tr.CreateDataSet(ctx, dt))

	_, err := tr.ExecuteSQL(ctx, `INSERT INTO roads (id, name, lanes) VALUES (1, 'E6', -1)`)
	assert.True(t, dberr.IsQueryError(err), "check constraint enforced")

	_, err = tr.ExecuteSQL(ctx, `INSERT INTO roads (id, name) VALUES (1, 'E6')`)
	require.NoError(t, err)
	assert.EqualValues(t, 1, countRows(t, tr, "roads"))

	require.NoError(t, tr.DropDataSet(ctx, "roads"))
	_, err = tr.QuerySQL(ctx, "SELECT * FROM roads", nil, datasource.QueryOptions{})
	assert.True(t, dberr.IsQueryError(err))
}

func TestTransactor_NoIntrospector(t *testing.T) {
	_, tr := openTestSource(t, sourceOpts{})
	_, err := tr.DataSetNames(context.Background())
	assert.True(t, dberr.IsUnsupportedError(err))
	_, err = tr.DataSetType(context.Background(), "cities")
	assert.True(t, dberr.IsUnsupportedError(err))
}

func TestDataSource_ClientEncoding(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes text", func(t *testing.T) {
		_, tr := openTestSource(t, sourceOpts{info: datasource.ConnectionInfo{KeyClientEncoding: "ISO-8859-1"}})
		set, err := tr.QuerySQL(ctx, "SELECT CAST(X'54726F6D73F8' AS TEXT)", nil, datasource.QueryOptions{})
		require.NoError(t, err)
		defer set.Close()
		require.True(t, set.MoveNext())
		s, err := set.String(0)
		require.NoError(t, err)
		assert.Equal(t, "Tromsø", s)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := New(Config{
			Params: datasource.Params{
				Type: "SQLITE",
				Info: datasource.ConnectionInfo{KeyClientEncoding: "no-such-charset"},
			},
			Dialect: dialect.NewSQLite(dialect.NewFunctionCatalogManager()),
			Connect: func(ctx context.Context) (*sql.DB, error) { return nil, nil },
		})
		assert.ErrorContains(t, err, "client encoding")
	})

	t.Run("encoding not listed", func(t *testing.T) {
		caps := capability.DataSourceCapabilities{Encodings: []string{"UTF-8"}}
		_, err := New(Config{
			Params: datasource.Params{
				Type:         "SQLITE",
				Info:         datasource.ConnectionInfo{KeyClientEncoding: "ISO-8859-1"},
				Capabilities: caps,
			},
			Dialect: dialect.NewSQLite(dialect.NewFunctionCatalogManager()),
			Connect: func(ctx context.Context) (*sql.DB, error) { return nil, nil },
		})
		assert.True(t, dberr.IsUnsupportedError(err))
	})
}
