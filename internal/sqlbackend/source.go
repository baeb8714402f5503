// Package sqlbackend implements the datasource contract on top of
// database/sql. Concrete drivers supply a connection function, a dialect
// and a catalog introspector; everything else (state machine, transaction
// tracking, capability enforcement, rendering and cursors) lives here.
package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/schema"
)

// KeyClientEncoding names the character encoding of text the backend
// returns. Values are IANA names; text is decoded to UTF-8 on read.
const KeyClientEncoding = "CLIENT_ENCODING"

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Introspector answers catalog questions for one backend.
type Introspector interface {
	// DataSetNames lists user data sets, in any order.
	DataSetNames(ctx context.Context, q Querier) ([]string, error)

	// DataSetType describes a data set. It returns nil, nil when the data
	// set does not exist.
	DataSetType(ctx context.Context, q Querier, name string) (*schema.DataSetType, error)
}

// Config is what a driver provides to build a DataSource.
type Config struct {
	Params  datasource.Params
	Dialect *dialect.Dialect

	// Connect returns an unopened pool; Open pings it.
	Connect func(ctx context.Context) (*sql.DB, error)

	// Setup runs once after a successful ping: pragmas, extensions.
	Setup func(ctx context.Context, db *sql.DB) error

	Introspector Introspector

	// TypeOf maps native column type names to property types. Defaults to
	// DataTypeOf.
	TypeOf func(native string) schema.DataType

	// MaxOpenConns caps the pool when positive.
	MaxOpenConns int
}

// DataSource is a database/sql backed datasource.DataSource.
type DataSource struct {
	id      string
	typ     string
	info    datasource.ConnectionInfo
	caps    capability.DataSourceCapabilities
	dialect *dialect.Dialect
	intro   Introspector
	typeOf  func(string) schema.DataType
	decoder *encoding.Decoder

	connect  func(ctx context.Context) (*sql.DB, error)
	setup    func(ctx context.Context, db *sql.DB) error
	maxConns int

	mu sync.Mutex
	db *sql.DB
	tx *sql.Tx
}

var _ datasource.DataSource = (*DataSource)(nil)

// New builds a closed DataSource. It fails when the connection declares a
// client encoding the backend does not list.
func New(cfg Config) (*DataSource, error) {
	if cfg.Connect == nil {
		return nil, fmt.Errorf("sqlbackend: nil Connect")
	}
	if cfg.Dialect == nil {
		return nil, fmt.Errorf("sqlbackend: nil Dialect")
	}
	p := cfg.Params
	ds := &DataSource{
		id:       p.ID,
		typ:      p.Type,
		info:     p.Info.Clone(),
		caps:     p.Capabilities.Clone(),
		dialect:  cfg.Dialect,
		intro:    cfg.Introspector,
		typeOf:   cfg.TypeOf,
		connect:  cfg.Connect,
		setup:    cfg.Setup,
		maxConns: cfg.MaxOpenConns,
	}

	if ds.typeOf == nil {
		ds.typeOf = DataTypeOf
	}
	if name := ds.info.Get(KeyClientEncoding); name != "" {
		dec, err := clientDecoder(p.Type, p.Capabilities, name)
		if err != nil {
			return nil, err
		}
		ds.decoder = dec
	}
	return ds, nil
}

func clientDecoder(backend string, caps capability.DataSourceCapabilities, name string) (*encoding.Decoder, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("client encoding: %w", err)
	}
	canon, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canon = name
	}
	if len(caps.Encodings) > 0 && !caps.SupportsEncoding(canon) {
		return nil, dberr.NewUnsupportedError(backend, "client encoding "+canon)
	}
	if enc == nil || strings.EqualFold(canon, "UTF-8") {
		return nil, nil
	}
	return enc.NewDecoder(), nil
}

func (d *DataSource) ID() string                                      { return d.id }
func (d *DataSource) Type() string                                    { return d.typ }
func (d *DataSource) ConnectionInfo() datasource.ConnectionInfo       { return d.info.Clone() }
func (d *DataSource) Capabilities() capability.DataSourceCapabilities { return d.caps.Clone() }
func (d *DataSource) Dialect() *dialect.Dialect                       { return d.dialect }

// Open connects, pings and runs driver setup. On failure nothing is kept.
func (d *DataSource) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return nil
	}

	db, err := d.connect(ctx)
	if err != nil {
		return dberr.NewConnectionError(d.typ, "open", err)
	}
	if d.maxConns > 0 {
		db.SetMaxOpenConns(d.maxConns)
		db.SetMaxIdleConns(d.maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return dberr.NewConnectionError(d.typ, "open", err)
	}
	if d.setup != nil {
		if err := d.setup(ctx, db); err != nil {
			db.Close()
			return dberr.NewConnectionError(d.typ, "setup", err)
		}
	}

	d.db = db
	slog.Info("data source opened", "type", d.typ, "id", d.id)
	return nil
}

// Close rolls back an active transaction and closes the pool.
func (d *DataSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	if d.tx != nil {
		if err := d.tx.Rollback(); err != nil {
			slog.Warn("rollback on close failed", "type", d.typ, "id", d.id, "error", err)
		}
		d.tx = nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return dberr.NewConnectionError(d.typ, "close", err)
	}
	slog.Info("data source closed", "type", d.typ, "id", d.id)
	return nil
}

func (d *DataSource) IsOpened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db != nil
}

func (d *DataSource) IsInTransaction() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tx != nil
}

// Begin starts a transaction. Nested transactions are not supported.
func (d *DataSource) Begin(ctx context.Context) error {
	if err := d.caps.Require(d.typ, capability.FeatureTransactions); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return dberr.NewNotOpenError(d.typ, "begin")
	}
	if d.tx != nil {
		return dberr.NewTransactionError(d.typ, "begin", "transaction already active", nil)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return dberr.NewTransactionError(d.typ, "begin", "begin failed", err)
	}
	d.tx = tx
	slog.Debug("transaction begun", "type", d.typ, "id", d.id)
	return nil
}

// Commit commits the active transaction. The transaction is finished even
// when the commit fails.
func (d *DataSource) Commit(ctx context.Context) error {
	tx, err := d.takeTx("commit")
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dberr.NewTransactionError(d.typ, "commit", "commit failed", err)
	}
	slog.Debug("transaction committed", "type", d.typ, "id", d.id)
	return nil
}

// Rollback aborts the active transaction.
func (d *DataSource) Rollback(ctx context.Context) error {
	tx, err := d.takeTx("rollback")
	if err != nil {
		return err
	}
	if err := tx.Rollback(); err != nil {
		return dberr.NewTransactionError(d.typ, "rollback", "rollback failed", err)
	}
	slog.Debug("transaction rolled back", "type", d.typ, "id", d.id)
	return nil
}

func (d *DataSource) takeTx(op string) (*sql.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, dberr.NewNotOpenError(d.typ, op)
	}
	if d.tx == nil {
		return nil, dberr.NewTransactionError(d.typ, op, "no active transaction", nil)
	}
	tx := d.tx
	d.tx = nil
	return tx, nil
}

// Transactor returns a handle for running statements.
func (d *DataSource) Transactor(ctx context.Context) (datasource.Transactor, error) {
	if !d.IsOpened() {
		return nil, dberr.NewNotOpenError(d.typ, "transactor")
	}
	return &Transactor{ds: d}, nil
}

// querier returns the active transaction, or the pool outside one.
func (d *DataSource) querier(op string) (Querier, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, dberr.NewNotOpenError(d.typ, op)
	}
	if d.tx != nil {
		return d.tx, nil
	}
	return d.db, nil
}

// prepare prepares query in the active transaction, or on the pool outside
// one. It returns the owning transaction, nil for the pool.
func (d *DataSource) prepare(ctx context.Context, query string) (*sql.Stmt, *sql.Tx, error) {
	d.mu.Lock()
	db, tx := d.db, d.tx
	d.mu.Unlock()

	if db == nil {
		return nil, nil, dberr.NewNotOpenError(d.typ, "prepare")
	}
	var (
		stmt *sql.Stmt
		err  error
	)
	if tx != nil {
		stmt, err = tx.PrepareContext(ctx, query)
	} else {
		stmt, err = db.PrepareContext(ctx, query)
	}
	if err != nil {
		return nil, nil, dberr.NewQueryError(d.typ, "prepare", err)
	}
	return stmt, tx, nil
}

// activeTx returns the active transaction or nil.
func (d *DataSource) activeTx() *sql.Tx {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tx
}
