// Package postgis is the POSTGIS data source driver for PostgreSQL with the
// PostGIS extension, built on github.com/jackc/pgx/v5 through its
// database/sql adapter.
//
// Connection strings are postgres:// URIs. HOST, PORT, USER, PASSWORD and
// PATH (the database name) map to libpq keywords; SCHEMA selects the
// schema introspection reads (default "public"); every other key is passed
// to pgx as a runtime parameter or connection keyword.
package postgis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/schema"
	"github.com/roach88/dacore/internal/sqlbackend"
)

// Type is the registry key of this driver.
const Type = dialect.PostGIS

// KeySchema selects the schema holding user data sets.
const KeySchema = "SCHEMA"

var keywords = map[string]string{
	datasource.KeyHost:     "host",
	datasource.KeyPort:     "port",
	datasource.KeyUser:     "user",
	datasource.KeyPassword: "password",
	datasource.KeyPath:     "dbname",
}

// skipped never reach pgx.
var skipped = map[string]bool{
	datasource.KeyScheme:         true,
	KeySchema:                    true,
	sqlbackend.KeyClientEncoding: true,
}

// Register adds the POSTGIS driver to r.
func Register(r *datasource.Registry) error {
	return r.Register(datasource.Driver{
		Type:         Type,
		Capabilities: Capabilities(),
		Factory:      New,
	})
}

// Capabilities returns the published capabilities of PostgreSQL with
// PostGIS.
func Capabilities() capability.DataSourceCapabilities {
	d := dialect.NewPostGIS(dialect.NewFunctionCatalogManager())
	caps := capability.DataSourceCapabilities{
		AccessPolicy:              capability.ReadWrite,
		Transactions:              true,
		DataSetPersistenceAPI:     true,
		DataSetTypePersistenceAPI: true,
		PreparedQueryAPI:          true,
		BatchExecutorAPI:          true,
		DataSet: capability.DataSetCapabilities{
			Bidirectional:            true,
			EfficientMoveBeforeFirst: true,
		},
		Query:     sqlbackend.QueryVocabulary(d),
		Specific:  map[string]string{"spatial_extension": "postgis"},
		Encodings: []string{"UTF-8"},
	}
	caps.Query.SelectInto = true
	caps.DataType.SetSupportAll()
	caps.DataType.Raster = false
	caps.DataType.Hints = map[schema.DataType]schema.DataType{schema.Raster: schema.ByteArray}
	caps.DataSetType.SetSupportAll()
	caps.DataSetType.QuadTreeIndex = false
	return caps
}

// DSN renders info as a libpq keyword/value connection string, keys sorted.
func DSN(info datasource.ConnectionInfo) string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(info)) {
		up := strings.ToUpper(k)
		if skipped[up] {
			continue
		}
		v := info[k]
		kw, ok := keywords[up]
		if !ok {
			kw = k
		}
		if kw == "dbname" {
			v = strings.TrimPrefix(v, "/")
		}
		parts = append(parts, kw+"="+quoteValue(v))
	}
	return strings.Join(parts, " ")
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// New builds a closed PostGIS data source from p. The connection string is
// parsed here; nothing is dialed until Open.
func New(p datasource.Params) (datasource.DataSource, error) {
	cfg, err := pgx.ParseConfig(DSN(p.Info))
	if err != nil {
		return nil, fmt.Errorf("postgis: %w", err)
	}
	schemaName := p.Info.Get(KeySchema)
	if schemaName == "" {
		schemaName = "public"
	}

	ds, err := sqlbackend.New(sqlbackend.Config{
		Params:  p,
		Dialect: dialect.NewPostGIS(p.Catalogs),
		Connect: func(ctx context.Context) (*sql.DB, error) {
			return stdlib.OpenDB(*cfg), nil
		},
		Setup: checkExtension,
		Introspector: sqlbackend.InformationSchema{
			Schema:      schemaName,
			Placeholder: dialect.DollarNumbered,
			Refine:      refiner(schemaName),
		},
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// checkExtension warns when the database lacks PostGIS. Plain SQL keeps
// working; spatial functions fail at query time.
func checkExtension(ctx context.Context, db *sql.DB) error {
	var version string
	err := db.QueryRowContext(ctx, "SELECT extversion FROM pg_extension WHERE extname = 'postgis'").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		slog.Warn("postgis extension not installed")
		return nil
	case err != nil:
		return fmt.Errorf("check postgis extension: %w", err)
	}
	slog.Debug("postgis extension found", "version", version)
	return nil
}
