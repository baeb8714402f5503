// Package duckdb is the DUCKDB data source driver, built on
// github.com/duckdb/duckdb-go/v2.
//
// Connection info:
//
//	PATH     database file; empty or ":memory:" for an in-memory database
//	SPATIAL  "true" installs and loads the spatial extension on open
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/schema"
	"github.com/roach88/dacore/internal/sqlbackend"
)

// Type is the registry key of this driver.
const Type = dialect.DuckDB

// KeySpatial enables the spatial extension.
const KeySpatial = "SPATIAL"

// Register adds the DUCKDB driver to r.
func Register(r *datasource.Registry) error {
	return r.Register(datasource.Driver{
		Type:         Type,
		Capabilities: Capabilities(),
		Factory:      New,
	})
}

// Capabilities returns the published capabilities of DuckDB with the
// spatial extension.
func Capabilities() capability.DataSourceCapabilities {
	d := dialect.NewDuckDB(dialect.NewFunctionCatalogManager())
	caps := capability.DataSourceCapabilities{
		AccessPolicy:              capability.ReadWrite,
		Transactions:              true,
		DataSetPersistenceAPI:     true,
		DataSetTypePersistenceAPI: true,
		PreparedQueryAPI:          true,
		BatchExecutorAPI:          true,
		DataSetType: capability.DataSetTypeCapabilities{
			PrimaryKey:      true,
			UniqueKey:       true,
			ForeignKey:      true,
			Sequence:        true,
			CheckConstraint: true,
			Index:           true,
			BTreeIndex:      true,
			RTreeIndex:      true,
		},
		DataSet: capability.DataSetCapabilities{
			Bidirectional:            true,
			EfficientMoveBeforeFirst: true,
		},
		Query:     sqlbackend.QueryVocabulary(d),
		Specific:  map[string]string{"spatial_extension": "spatial"},
		Encodings: []string{"UTF-8"},
	}
	caps.DataType.SetSupportAll()
	caps.DataType.Raster = false
	caps.DataType.Hints = map[schema.DataType]schema.DataType{schema.Raster: schema.ByteArray}
	return caps
}

// New builds a closed DuckDB data source from p.
func New(p datasource.Params) (datasource.DataSource, error) {
	path := p.Info.Get(datasource.KeyPath)
	if path == ":memory:" {
		path = ""
	}
	spatial := strings.EqualFold(p.Info.Get(KeySpatial), "true")

	ds, err := sqlbackend.New(sqlbackend.Config{
		Params:  p,
		Dialect: dialect.NewDuckDB(p.Catalogs),
		Connect: func(ctx context.Context) (*sql.DB, error) {
			return sql.Open("duckdb", path)
		},
		Setup: func(ctx context.Context, db *sql.DB) error {
			if !spatial {
				return nil
			}
			for _, stmt := range []string{"INSTALL spatial", "LOAD spatial"} {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute %q: %w", stmt, err)
				}
			}
			return nil
		},
		Introspector: sqlbackend.InformationSchema{
			Schema:      "main",
			Placeholder: dialect.QuestionMark,
			Refine:      refine,
		},
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// refine adds explicitly created indexes, which information_schema does
// not list.
func refine(ctx context.Context, q sqlbackend.Querier, dt *schema.DataSetType) error {
	rows, err := q.QueryContext(ctx,
		"SELECT index_name, is_unique, sql FROM duckdb_indexes() WHERE schema_name = 'main' AND table_name = ? ORDER BY index_name",
		dt.Name)
	if err != nil {
		return fmt.Errorf("list indexes of %s: %w", dt.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name   string
			unique bool
			def    sql.NullString
		)
		if err := rows.Scan(&name, &unique, &def); err != nil {
			return fmt.Errorf("scan index of %s: %w", dt.Name, err)
		}
		idx := schema.Index{
			Name:    name,
			Type:    schema.BTreeIndex,
			Columns: sqlbackend.IndexColumns(def.String),
			Unique:  unique,
		}
		if strings.Contains(strings.ToUpper(def.String), "USING RTREE") {
			idx.Type = schema.RTreeIndex
		}
		dt.Indexes = append(dt.Indexes, idx)
	}
	return rows.Err()
}
