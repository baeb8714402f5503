// Package sqlite is the SQLITE data source driver, built on
// github.com/mattn/go-sqlite3.
//
// Connection info:
//
//	PATH        database file, or ":memory:"
//	SPATIALITE  "true" loads mod_spatialite on every connection
//
// SQLite allows a single writer, so the pool holds one connection. Every
// connection runs with WAL journaling, NORMAL synchronous mode, a five
// second busy timeout and foreign key enforcement.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/schema"
	"github.com/roach88/dacore/internal/sqlbackend"
)

// Type is the registry key of this driver.
const Type = dialect.SQLite

// KeySpatiaLite enables the mod_spatialite extension.
const KeySpatiaLite = "SPATIALITE"

const spatialiteDriver = "sqlite3_spatialite"

func init() {
	sql.Register(spatialiteDriver, &sqlite3.SQLiteDriver{
		Extensions: []string{"mod_spatialite"},
	})
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Register adds the SQLITE driver to r.
func Register(r *datasource.Registry) error {
	return r.Register(datasource.Driver{
		Type:         Type,
		Capabilities: Capabilities(),
		Factory:      New,
	})
}

// Capabilities returns the published capabilities of SQLite.
func Capabilities() capability.DataSourceCapabilities {
	d := dialect.NewSQLite(dialect.NewFunctionCatalogManager())
	return capability.DataSourceCapabilities{
		AccessPolicy:              capability.ReadWrite,
		Transactions:              true,
		DataSetPersistenceAPI:     true,
		DataSetTypePersistenceAPI: true,
		PreparedQueryAPI:          true,
		BatchExecutorAPI:          true,
		DataType: capability.DataTypeCapabilities{
			Boolean:   true,
			Int16:     true,
			Int32:     true,
			Int64:     true,
			Float:     true,
			Double:    true,
			Numeric:   true,
			String:    true,
			ByteArray: true,
			DateTime:  true,
			Geometry:  true,
			Hints: map[schema.DataType]schema.DataType{
				schema.Array:     schema.String,
				schema.Composite: schema.String,
				schema.Raster:    schema.ByteArray,
			},
		},
		DataSetType: capability.DataSetTypeCapabilities{
			PrimaryKey:      true,
			UniqueKey:       true,
			ForeignKey:      true,
			CheckConstraint: true,
			Index:           true,
			BTreeIndex:      true,
		},
		DataSet: capability.DataSetCapabilities{
			Bidirectional:            true,
			EfficientMoveBeforeFirst: true,
		},
		Query:     sqlbackend.QueryVocabulary(d),
		Specific:  map[string]string{"spatial_extension": "mod_spatialite"},
		Encodings: []string{"UTF-8"},
	}
}

// New builds a closed SQLite data source from p.
func New(p datasource.Params) (datasource.DataSource, error) {
	path := p.Info.Get(datasource.KeyPath)
	if path == "" {
		return nil, fmt.Errorf("sqlite: connection info has no %s", datasource.KeyPath)
	}
	driver := "sqlite3"
	if strings.EqualFold(p.Info.Get(KeySpatiaLite), "true") {
		driver = spatialiteDriver
	}

	ds, err := sqlbackend.New(sqlbackend.Config{
		Params:  p,
		Dialect: dialect.NewSQLite(p.Catalogs),
		Connect: func(ctx context.Context) (*sql.DB, error) {
			return sql.Open(driver, path)
		},
		Setup:        applyPragmas,
		Introspector: Introspector{},
		TypeOf:       TypeOf,
		MaxOpenConns: 1,
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// applyPragmas sets the connection pragmas. The pool holds one
// connection, so they hold for its lifetime.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// TypeOf maps SQLite declared types to property types. INTEGER is the
// 64-bit rowid type; INT stays 32-bit so DDL round-trips.
func TypeOf(native string) schema.DataType {
	if strings.EqualFold(strings.TrimSpace(native), "INTEGER") {
		return schema.Int64
	}
	return sqlbackend.DataTypeOf(native)
}
