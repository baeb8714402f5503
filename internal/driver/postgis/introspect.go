package postgis

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/dacore/internal/schema"
	"github.com/roach88/dacore/internal/sqlbackend"
)

// refiner completes information_schema results with geometry_columns and
// pg_indexes for tables in schemaName.
func refiner(schemaName string) func(context.Context, sqlbackend.Querier, *schema.DataSetType) error {
	return func(ctx context.Context, q sqlbackend.Querier, dt *schema.DataSetType) error {
		for i := range dt.Properties {
			if strings.EqualFold(dt.Properties[i].NativeType, "ARRAY") {
				dt.Properties[i].Type = schema.Array
			}
		}
		if err := geometryColumns(ctx, q, schemaName, dt); err != nil {
			return err
		}
		return indexes(ctx, q, schemaName, dt)
	}
}

func geometryColumns(ctx context.Context, q sqlbackend.Querier, schemaName string, dt *schema.DataSetType) error {
	rows, err := q.QueryContext(ctx,
		"SELECT f_geometry_column, type, srid FROM geometry_columns WHERE f_table_schema = $1 AND f_table_name = $2",
		schemaName, dt.Name)
	if err != nil {
		return fmt.Errorf("list geometry columns of %s: %w", dt.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col, typ string
			srid     int
		)
		if err := rows.Scan(&col, &typ, &srid); err != nil {
			return fmt.Errorf("scan geometry column of %s: %w", dt.Name, err)
		}
		p, ok := dt.Property(col)
		if !ok {
			continue
		}
		p.Type = schema.Geometry
		p.SRID = srid
		if !strings.EqualFold(typ, "GEOMETRY") {
			p.GeometryType = strings.ToUpper(typ)
		}
	}
	return rows.Err()
}

func indexes(ctx context.Context, q sqlbackend.Querier, schemaName string, dt *schema.DataSetType) error {
	rows, err := q.QueryContext(ctx,
		"SELECT indexname, indexdef FROM pg_indexes WHERE schemaname = $1 AND tablename = $2 ORDER BY indexname",
		schemaName, dt.Name)
	if err != nil {
		return fmt.Errorf("list indexes of %s: %w", dt.Name, err)
	}
	defer rows.Close()

	constraints := map[string]bool{}
	if dt.PrimaryKey != nil {
		constraints[dt.PrimaryKey.Name] = true
	}
	for _, u := range dt.UniqueKeys {
		constraints[u.Name] = true
	}

	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return fmt.Errorf("scan index of %s: %w", dt.Name, err)
		}
		if constraints[name] {
			continue
		}
		dt.Indexes = append(dt.Indexes, ParseIndexDef(name, def))
	}
	return rows.Err()
}

// ParseIndexDef reads a pg_indexes definition such as
//
//	CREATE UNIQUE INDEX idx ON public.t USING btree (a, b)
func ParseIndexDef(name, def string) schema.Index {
	up := strings.ToUpper(def)
	idx := schema.Index{
		Name:    name,
		Type:    schema.BTreeIndex,
		Columns: sqlbackend.IndexColumns(def),
		Unique:  strings.HasPrefix(up, "CREATE UNIQUE "),
	}
	switch {
	case strings.Contains(up, "USING GIST"), strings.Contains(up, "USING SPGIST"):
		idx.Type = schema.RTreeIndex
	case strings.Contains(up, "USING HASH"):
		idx.Type = schema.HashIndex
	}
	return idx
}
