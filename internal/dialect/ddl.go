package dialect

import (
	"strconv"
	"strings"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/schema"
)

// RenderCreateDataSet returns the statements creating t: the table with its
// keys and check constraints, then one statement per index and sequence.
func (d *Dialect) RenderCreateDataSet(t *schema.DataSetType) ([]string, error) {
	if !d.Statements {
		return nil, dberr.NewUnsupportedError(d.Name, "data set definition")
	}
	if t == nil {
		return nil, dberr.NewInvalidExpressionError("create data set", "nil data set type")
	}
	if err := t.Validate(); err != nil {
		return nil, dberr.NewInvalidExpressionError("create data set", err.Error())
	}

	v := d.newVisitor(Options{})
	parts := make([]string, 0, len(t.Properties)+4)
	for _, p := range t.Properties {
		col, err := d.columnDef(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, col)
	}

	if t.PrimaryKey != nil {
		parts = append(parts, d.constraintName(t.PrimaryKey.Name)+"PRIMARY KEY "+v.columns(t.PrimaryKey.Columns))
	}
	for _, u := range t.UniqueKeys {
		parts = append(parts, d.constraintName(u.Name)+"UNIQUE "+v.columns(u.Columns))
	}
	for _, fk := range t.ForeignKeys {
		def := d.constraintName(fk.Name) + "FOREIGN KEY " + v.columns(fk.Columns) +
			" REFERENCES " + d.QuoteIdent(fk.ReferencedDataSet) + " " + v.columns(fk.ReferencedColumns)
		if fk.OnDelete != "" {
			def += " ON DELETE " + strings.ToUpper(fk.OnDelete)
		}
		if fk.OnUpdate != "" {
			def += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
		}
		parts = append(parts, def)
	}
	for _, c := range t.CheckConstraints {
		parts = append(parts, d.constraintName(c.Name)+"CHECK ("+c.Expression+")")
	}

	stmts := []string{"CREATE TABLE " + d.QuoteIdent(t.Name) + " (" + strings.Join(parts, ", ") + ")"}

	for _, idx := range t.Indexes {
		method, ok := d.IndexMethods[idx.Type]
		if !ok {
			return nil, dberr.NewUnsupportedError(d.Name, idx.Type.String()+" index")
		}
		s := "CREATE "
		if idx.Unique {
			s += "UNIQUE "
		}
		s += "INDEX " + d.QuoteIdent(idx.Name) + " ON " + d.QuoteIdent(t.Name)
		if method != "" {
			s += " USING " + method
		}
		stmts = append(stmts, s+" "+v.columns(idx.Columns))
	}

	for _, seq := range t.Sequences {
		if !d.Sequences {
			return nil, dberr.NewUnsupportedError(d.Name, "sequences")
		}
		s := "CREATE SEQUENCE " + d.QuoteIdent(seq.Name)
		if seq.Start != 0 {
			s += " START WITH " + strconv.FormatInt(seq.Start, 10)
		}
		if seq.Increment != 0 {
			s += " INCREMENT BY " + strconv.FormatInt(seq.Increment, 10)
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// RenderDropDataSet returns the statement dropping the named data set.
func (d *Dialect) RenderDropDataSet(name string) (string, error) {
	if !d.Statements {
		return "", dberr.NewUnsupportedError(d.Name, "data set definition")
	}
	if name == "" {
		return "", dberr.NewInvalidExpressionError("drop data set", "empty data set name")
	}
	return "DROP TABLE " + d.QuoteIdent(name), nil
}

func (d *Dialect) constraintName(name string) string {
	if name == "" {
		return ""
	}
	return "CONSTRAINT " + d.QuoteIdent(name) + " "
}

func (d *Dialect) columnDef(p schema.Property) (string, error) {
	typ, err := d.ColumnType(p)
	if err != nil {
		return "", err
	}
	def := d.QuoteIdent(p.Name) + " " + typ
	if p.Required {
		def += " NOT NULL"
	}
	if p.Default != nil {
		def += " DEFAULT " + *p.Default
	}
	return def, nil
}

// ColumnType returns the column type used for p in DDL.
func (d *Dialect) ColumnType(p schema.Property) (string, error) {
	if p.AutoNumber {
		t, ok := d.AutoNumberTypes[p.Type]
		if !ok {
			return "", dberr.NewUnsupportedError(d.Name, "auto-numbered "+p.Type.String()+" properties")
		}
		return t, nil
	}

	switch {
	case p.Type == schema.String && p.Size > 0 && !d.SizedString.IsZero():
		f, err := d.SizedString.Apply([]Fragment{Raw(strconv.Itoa(p.Size))})
		return f.SQL, err
	case p.Type == schema.Geometry && p.GeometryType != "" && !d.GeometryColumn.IsZero():
		f, err := d.GeometryColumn.Apply([]Fragment{
			Raw(strings.ToUpper(p.GeometryType)),
			Raw(strconv.Itoa(p.SRID)),
		})
		return f.SQL, err
	}

	t, ok := d.TypeNames[p.Type]
	if !ok {
		return "", dberr.NewUnsupportedError(d.Name, p.Type.String()+" properties")
	}
	return t, nil
}
