package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/dacore/internal/schema"
	"github.com/roach88/dacore/internal/sqlbackend"
)

// Introspector reads the SQLite catalog: sqlite_master and the table_info,
// index_list, index_info and foreign_key_list pragmas.
type Introspector struct{}

var _ sqlbackend.Introspector = Introspector{}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Introspector) DataSetNames(ctx context.Context, q sqlbackend.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
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

func (in Introspector) DataSetType(ctx context.Context, q sqlbackend.Querier, name string) (*schema.DataSetType, error) {
	dt := &schema.DataSetType{Name: name}
	if err := in.columns(ctx, q, dt); err != nil {
		return nil, err
	}
	if len(dt.Properties) == 0 {
		return nil, nil
	}
	if err := in.indexes(ctx, q, dt); err != nil {
		return nil, err
	}
	if err := in.foreignKeys(ctx, q, dt); err != nil {
		return nil, err
	}
	return dt, nil
}

func (Introspector) columns(ctx context.Context, q sqlbackend.Querier, dt *schema.DataSetType) error {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+quote(dt.Name)+")")
	if err != nil {
		return fmt.Errorf("list columns of %s: %w", dt.Name, err)
	}
	defer rows.Close()

	type pkCol struct {
		seq  int
		name string
	}
	var pk []pkCol
	for rows.Next() {
		var (
			cid, notNull, pkSeq int
			name, native        string
			def                 sql.NullString
		)
		if err := rows.Scan(&cid, &name, &native, &notNull, &def, &pkSeq); err != nil {
			return fmt.Errorf("scan column of %s: %w", dt.Name, err)
		}
		p := schema.Property{
			Name:       name,
			Type:       TypeOf(native),
			NativeType: native,
			Required:   notNull == 1,
			Size:       declaredSize(native),
		}
		if def.Valid {
			d := def.String
			p.Default = &d
		}
		dt.Properties = append(dt.Properties, p)
		if pkSeq > 0 {
			pk = append(pk, pkCol{seq: pkSeq, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pk) == 0 {
		return nil
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].seq < pk[j].seq })
	dt.PrimaryKey = &schema.PrimaryKey{}
	for _, c := range pk {
		dt.PrimaryKey.Columns = append(dt.PrimaryKey.Columns, c.name)
	}
	// A single INTEGER primary key aliases the rowid.
	if len(pk) == 1 {
		if p, ok := dt.Property(pk[0].name); ok && strings.EqualFold(p.NativeType, "INTEGER") {
			p.AutoNumber = true
		}
	}
	return nil
}

// declaredSize returns n for declared types like VARCHAR(n).
func declaredSize(native string) int {
	open := strings.IndexByte(native, '(')
	end := strings.IndexByte(native, ')')
	if open < 0 || end < open {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(native[open+1 : end]))
	if err != nil {
		return 0
	}
	return n
}

func (in Introspector) indexes(ctx context.Context, q sqlbackend.Querier, dt *schema.DataSetType) error {
	rows, err := q.QueryContext(ctx, "PRAGMA index_list("+quote(dt.Name)+")")
	if err != nil {
		return fmt.Errorf("list indexes of %s: %w", dt.Name, err)
	}

	type entry struct {
		name   string
		unique bool
		origin string
	}
	var entries []entry
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return fmt.Errorf("scan index of %s: %w", dt.Name, err)
		}
		entries = append(entries, entry{name: name, unique: unique == 1, origin: origin})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// index_list reports newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.origin == "pk" {
			continue
		}
		cols, err := in.indexColumns(ctx, q, e.name)
		if err != nil {
			return err
		}
		if e.origin == "u" {
			dt.UniqueKeys = append(dt.UniqueKeys, schema.UniqueKey{Name: e.name, Columns: cols})
			continue
		}
		dt.Indexes = append(dt.Indexes, schema.Index{
			Name:    e.name,
			Type:    schema.BTreeIndex,
			Columns: cols,
			Unique:  e.unique,
		})
	}
	return nil
}

func (Introspector) indexColumns(ctx context.Context, q sqlbackend.Querier, index string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA index_info("+quote(index)+")")
	if err != nil {
		return nil, fmt.Errorf("list columns of index %s: %w", index, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("scan column of index %s: %w", index, err)
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

func (Introspector) foreignKeys(ctx context.Context, q sqlbackend.Querier, dt *schema.DataSetType) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_list("+quote(dt.Name)+")")
	if err != nil {
		return fmt.Errorf("list foreign keys of %s: %w", dt.Name, err)
	}
	defer rows.Close()

	byID := map[int]int{}
	for rows.Next() {
		var (
			id, seq                            int
			table, from, onUpdate, onDelete, m string
			to                                 sql.NullString
		)
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &m); err != nil {
			return fmt.Errorf("scan foreign key of %s: %w", dt.Name, err)
		}
		i, ok := byID[id]
		if !ok {
			i = len(dt.ForeignKeys)
			byID[id] = i
			dt.ForeignKeys = append(dt.ForeignKeys, schema.ForeignKey{
				ReferencedDataSet: table,
				OnDelete:          action(onDelete),
				OnUpdate:          action(onUpdate),
			})
		}
		fk := &dt.ForeignKeys[i]
		fk.Columns = append(fk.Columns, from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, to.String)
	}
	return rows.Err()
}

// action drops SQLite's implicit NO ACTION.
func action(a string) string {
	if strings.EqualFold(a, "NO ACTION") {
		return ""
	}
	return a
}
