package sqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/schema"
)

// InformationSchema introspects backends exposing the standard
// information_schema views.
type InformationSchema struct {
	// Schema is the catalog schema holding user data sets.
	Schema string

	// Placeholder is the backend's bind style for catalog queries.
	Placeholder dialect.PlaceholderStyle

	// Refine adds what the standard views do not carry: geometry
	// details and indexes. Optional.
	Refine func(ctx context.Context, q Querier, dt *schema.DataSetType) error
}

var _ Introspector = InformationSchema{}

func (s InformationSchema) arg(n int) string {
	if s.Placeholder == dialect.DollarNumbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s InformationSchema) DataSetNames(ctx context.Context, q Querier) ([]string, error) {
	query := "SELECT table_name FROM information_schema.tables WHERE table_schema = " + s.arg(1) +
		" AND table_type IN ('BASE TABLE', 'VIEW')"
	rows, err := q.QueryContext(ctx, query, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s InformationSchema) DataSetType(ctx context.Context, q Querier, name string) (*schema.DataSetType, error) {
	props, err := s.columns(ctx, q, name)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}
	dt := &schema.DataSetType{Name: name, Properties: props}
	if err := s.keys(ctx, q, dt); err != nil {
		return nil, err
	}
	if s.Refine != nil {
		if err := s.Refine(ctx, q, dt); err != nil {
			return nil, err
		}
	}
	return dt, nil
}

func (s InformationSchema) columns(ctx context.Context, q Querier, table string) ([]schema.Property, error) {
	query := "SELECT column_name, data_type, is_nullable, column_default, character_maximum_length" +
		" FROM information_schema.columns WHERE table_schema = " + s.arg(1) +
		" AND table_name = " + s.arg(2) + " ORDER BY ordinal_position"
	rows, err := q.QueryContext(ctx, query, s.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var props []schema.Property
	for rows.Next() {
		var (
			name, native, nullable string
			def                    sql.NullString
			size                   sql.NullInt64
		)
		if err := rows.Scan(&name, &native, &nullable, &def, &size); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		p := schema.Property{
			Name:       name,
			Type:       DataTypeOf(native),
			NativeType: native,
			Required:   strings.EqualFold(nullable, "NO"),
		}
		if def.Valid {
			d := def.String
			p.Default = &d
			if strings.HasPrefix(strings.ToLower(d), "nextval(") {
				p.AutoNumber = true
			}
		}
		if size.Valid {
			p.Size = int(size.Int64)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

func (s InformationSchema) keys(ctx context.Context, q Querier, dt *schema.DataSetType) error {
	query := "SELECT tc.constraint_name, tc.constraint_type, kcu.column_name" +
		" FROM information_schema.table_constraints tc" +
		" JOIN information_schema.key_column_usage kcu" +
		" ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name" +
		" WHERE tc.table_schema = " + s.arg(1) + " AND tc.table_name = " + s.arg(2) +
		" AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')" +
		" ORDER BY tc.constraint_name, kcu.ordinal_position"
	rows, err := q.QueryContext(ctx, query, s.Schema, dt.Name)
	if err != nil {
		return fmt.Errorf("list keys of %s: %w", dt.Name, err)
	}
	defer rows.Close()

	uniques := map[string]int{}
	for rows.Next() {
		var name, kind, col string
		if err := rows.Scan(&name, &kind, &col); err != nil {
			return fmt.Errorf("scan key of %s: %w", dt.Name, err)
		}
		if kind == "PRIMARY KEY" {
			if dt.PrimaryKey == nil {
				dt.PrimaryKey = &schema.PrimaryKey{Name: name}
			}
			dt.PrimaryKey.Columns = append(dt.PrimaryKey.Columns, col)
			continue
		}
		i, ok := uniques[name]
		if !ok {
			i = len(dt.UniqueKeys)
			uniques[name] = i
			dt.UniqueKeys = append(dt.UniqueKeys, schema.UniqueKey{Name: name})
		}
		dt.UniqueKeys[i].Columns = append(dt.UniqueKeys[i].Columns, col)
	}
	return rows.Err()
}

// IndexColumns extracts the column list of a CREATE INDEX statement or
// index definition, the text between the last pair of parentheses.
func IndexColumns(def string) []string {
	end := strings.LastIndexByte(def, ')')
	if end < 0 {
		return nil
	}
	start := strings.LastIndexByte(def[:end], '(')
	if start < 0 {
		return nil
	}
	var cols []string
	for _, c := range strings.Split(def[start+1:end], ",") {
		c = strings.Trim(strings.TrimSpace(c), `"`)
		if c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
