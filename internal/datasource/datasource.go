package datasource

import (
	"context"
	"time"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

// TraverseType is the cursor movement a DataSet supports.
type TraverseType int

const (
	ForwardOnly TraverseType = iota
	Bidirectional
)

// String returns "FORWARDONLY" or "BIDIRECTIONAL".
func (t TraverseType) String() string {
	if t == Bidirectional {
		return "BIDIRECTIONAL"
	}
	return "FORWARDONLY"
}

// QueryOptions controls how a query result is exposed.
type QueryOptions struct {
	// Traverse requests a forward-only or bidirectional cursor.
	// Bidirectional requires the backend's DataSet capabilities.
	Traverse TraverseType

	// Access is the access policy of the result. The zero value is
	// treated as read-only.
	Access capability.AccessPolicy

	// Bindings supplies values for named parameters of the query.
	Bindings map[string]any
}

// Transactional is the transaction surface of a DataSource, the part
// ScopedTransaction depends on.
type Transactional interface {
	Type() string
	Capabilities() capability.DataSourceCapabilities
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	IsInTransaction() bool
}

// DataSource is one configured connection target, open or not.
type DataSource interface {
	Transactional

	// ID identifies this instance.
	ID() string

	// ConnectionInfo returns the parameters the source was created with.
	ConnectionInfo() ConnectionInfo

	// Open establishes the native connection. On failure it returns a
	// connection error and keeps no native handle.
	Open(ctx context.Context) error

	// Close releases the native connection and rolls back an open
	// transaction. Closing a closed source is a no-op.
	Close() error

	// IsOpened reports whether the native connection is held.
	IsOpened() bool

	// Dialect returns the encoder for this backend's query language.
	Dialect() *dialect.Dialect

	// Transactor returns a unit-of-work handle. Calling it on a closed
	// source returns a not-open error.
	Transactor(ctx context.Context) (Transactor, error)
}

// Transactor is a unit-of-work handle bound to an open DataSource. It must
// not outlive its source.
type Transactor interface {
	// DataSource returns the source the transactor is bound to.
	DataSource() DataSource

	// Query renders sel with the source's dialect and runs it.
	Query(ctx context.Context, sel *expr.Select, opts QueryOptions) (DataSet, error)

	// QuerySQL runs backend query text with positional arguments.
	QuerySQL(ctx context.Context, query string, args []any, opts QueryOptions) (DataSet, error)

	// Execute renders and runs a data modification statement, returning
	// the number of affected rows.
	Execute(ctx context.Context, stmt expr.Statement, bindings map[string]any) (int64, error)

	// ExecuteSQL runs backend statement text.
	ExecuteSQL(ctx context.Context, query string, args ...any) (int64, error)

	// DataSet opens the named data set for reading.
	DataSet(ctx context.Context, name string, opts QueryOptions) (DataSet, error)

	// DataSetNames lists the data sets of the source, sorted.
	DataSetNames(ctx context.Context) ([]string, error)

	// DataSetExists reports whether the named data set exists.
	DataSetExists(ctx context.Context, name string) (bool, error)

	// DataSetType describes the named data set.
	DataSetType(ctx context.Context, name string) (*schema.DataSetType, error)

	// CreateDataSet creates a data set with its keys, constraints and
	// indexes.
	CreateDataSet(ctx context.Context, t *schema.DataSetType) error

	// DropDataSet removes the named data set.
	DropDataSet(ctx context.Context, name string) error

	// Prepare renders stmt once, keeping its parameters for execution.
	Prepare(ctx context.Context, stmt expr.Statement) (PreparedQuery, error)

	// Batch returns an executor that runs statements together.
	Batch() (BatchExecutor, error)

	// Close releases resources held by the transactor.
	Close() error
}

// PreparedQuery is a statement rendered once and executed many times with
// different parameter values.
type PreparedQuery interface {
	// Parameters returns the parameter names in placeholder order.
	Parameters() []string

	// Query runs a prepared Select.
	Query(ctx context.Context, bindings map[string]any, opts QueryOptions) (DataSet, error)

	// Execute runs a prepared data modification statement.
	Execute(ctx context.Context, bindings map[string]any) (int64, error)

	// Close releases the native statement.
	Close() error
}

// BatchExecutor accumulates statements and runs them in one transaction.
type BatchExecutor interface {
	// Add renders stmt and queues it.
	Add(stmt expr.Statement, bindings map[string]any) error

	// Len returns the number of queued statements.
	Len() int

	// Execute runs the queued statements and clears the queue, returning
	// the total number of affected rows.
	Execute(ctx context.Context) (int64, error)
}

// DataSet is a row cursor over a query or data set result.
//
// The cursor starts before the first row. Typed getters are keyed by
// column position and are valid after a successful move.
type DataSet interface {
	TraverseType() TraverseType
	AccessPolicy() capability.AccessPolicy

	NumProperties() int
	PropertyName(i int) string
	PropertyDataType(i int) schema.DataType

	// MoveNext advances to the next row, returning false at the end or
	// on error. Check Err after a false return.
	MoveNext() bool

	// MovePrevious steps back one row. Forward-only sets report an
	// unsupported-operation error through Err.
	MovePrevious() bool

	// MoveBeforeFirst rewinds the cursor.
	MoveBeforeFirst() error

	// MoveFirst positions on the first row.
	MoveFirst() bool

	// Size returns the number of rows.
	Size() (int, error)

	IsNull(i int) bool
	Int16(i int) (int16, error)
	Int32(i int) (int32, error)
	Int64(i int) (int64, error)
	Double(i int) (float64, error)
	String(i int) (string, error)
	Bool(i int) (bool, error)
	ByteArray(i int) ([]byte, error)
	DateTime(i int) (time.Time, error)
	Geometry(i int) (expr.Geometry, error)
	Value(i int) (expr.Value, error)

	// Err returns the first error met while moving.
	Err() error

	Close() error
}
