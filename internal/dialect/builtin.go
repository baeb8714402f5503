package dialect

import (
	"fmt"
	"strings"

	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

// Built-in dialect names.
const (
	SQLite  = "SQLITE"
	PostGIS = "POSTGIS"
	DuckDB  = "DUCKDB"
	WFS     = "WFS"
)

// BuiltinNames returns the names accepted by Builtin, sorted.
func BuiltinNames() []string {
	return []string{DuckDB, PostGIS, SQLite, WFS}
}

// Builtin returns the named built-in dialect, registering its function
// catalog with m on first use.
func Builtin(name string, m *FunctionCatalogManager) (*Dialect, error) {
	switch strings.ToUpper(name) {
	case SQLite:
		return NewSQLite(m), nil
	case PostGIS:
		return NewPostGIS(m), nil
	case DuckDB:
		return NewDuckDB(m), nil
	case WFS:
		return NewWFS(m), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (known: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
}

// binaryPredicates are the two-argument spatial predicates every SQL
// backend spells the same way.
var binaryPredicates = []string{
	expr.FuncSTContains,
	expr.FuncSTIntersects,
	expr.FuncSTWithin,
	expr.FuncSTCrosses,
	expr.FuncSTTouches,
	expr.FuncSTOverlaps,
	expr.FuncSTDisjoint,
	expr.FuncSTEquals,
}

func registerBinaryPredicates(c *FunctionCatalog) {
	for _, name := range binaryPredicates {
		c.Register(name, MustTemplate(name+"({0}, {1})", 2))
	}
}

// NewSQLite returns the SQLite dialect with SpatiaLite function names.
func NewSQLite(m *FunctionCatalogManager) *Dialect {
	m.ensure(SQLite, func(c *FunctionCatalog) {
		registerBinaryPredicates(c)
		c.Register(expr.FuncSTDWithin, MustTemplate("ST_Distance({0}, {1}) <= {2}", 3).WithPrec(4))
		c.Register(expr.FuncSTBeyond, MustTemplate("ST_Distance({0}, {1}) > {2}", 3).WithPrec(4))
		c.Register(expr.FuncSTRelate, MustTemplate("ST_Relate({0}, {1}, {2})", 3))
		c.Register(expr.FuncSTTransform, MustTemplate("ST_Transform({0}, {1})", 2))
		c.Register("IFNULL", Call{Name: "IFNULL", Min: 2, Max: 2})
	})
	return &Dialect{
		Name:            SQLite,
		Placeholder:     QuestionMark,
		IdentQuote:      `"`,
		GeometryLiteral: MustTemplate("GeomFromText({0}, {1})", 2),
		EnvelopeLiteral: MustTemplate("BuildMbr({0}, {1}, {2}, {3}, {4})", 5),
		GenericFallback: true,
		Statements:      true,
		LimitAll:        "-1",
		TypeNames: map[schema.DataType]string{
			schema.Boolean:   "BOOLEAN",
			schema.Int16:     "SMALLINT",
			schema.Int32:     "INT",
			schema.Int64:     "INTEGER",
			schema.Float:     "REAL",
			schema.Double:    "DOUBLE",
			schema.Numeric:   "NUMERIC",
			schema.String:    "TEXT",
			schema.ByteArray: "BLOB",
			schema.DateTime:  "TIMESTAMP",
			schema.Geometry:  "GEOMETRY",
		},
		AutoNumberTypes: map[schema.DataType]string{
			schema.Int32: "INTEGER",
			schema.Int64: "INTEGER",
		},
		IndexMethods: map[schema.IndexType]string{
			schema.BTreeIndex: "",
		},
		Functions: m,
	}
}

// NewPostGIS returns the PostgreSQL/PostGIS dialect.
func NewPostGIS(m *FunctionCatalogManager) *Dialect {
	m.ensure(PostGIS, func(c *FunctionCatalog) {
		registerBinaryPredicates(c)
		c.Register(expr.FuncSTDWithin, MustTemplate("ST_DWithin({0}, {1}, {2})", 3))
		c.Register(expr.FuncSTBeyond, MustTemplate("NOT ST_DWithin({0}, {1}, {2})", 3).WithPrec(3))
		c.Register(expr.FuncSTRelate, MustTemplate("ST_Relate({0}, {1}, {2})", 3))
		c.Register(expr.FuncSTTransform, MustTemplate("ST_Transform({0}, {1})", 2))
		c.Register("ILIKE", MustTemplate("{0} ILIKE {1}", 2).WithPrec(4))
	})
	return &Dialect{
		Name:            PostGIS,
		Placeholder:     DollarNumbered,
		IdentQuote:      `"`,
		GeometryLiteral: MustTemplate("ST_GeomFromText({0}, {1})", 2),
		EnvelopeLiteral: MustTemplate("ST_MakeEnvelope({0}, {1}, {2}, {3}, {4})", 5),
		GenericFallback: true,
		Statements:      true,
		TypeNames: map[schema.DataType]string{
			schema.Boolean:   "BOOLEAN",
			schema.Int16:     "SMALLINT",
			schema.Int32:     "INTEGER",
			schema.Int64:     "BIGINT",
			schema.Float:     "REAL",
			schema.Double:    "DOUBLE PRECISION",
			schema.Numeric:   "NUMERIC",
			schema.String:    "TEXT",
			schema.ByteArray: "BYTEA",
			schema.DateTime:  "TIMESTAMP",
			schema.Geometry:  "geometry",
		},
		SizedString:    MustTemplate("VARCHAR({0})", 1),
		GeometryColumn: MustTemplate("geometry({0}, {1})", 2),
		AutoNumberTypes: map[schema.DataType]string{
			schema.Int16: "SMALLSERIAL",
			schema.Int32: "SERIAL",
			schema.Int64: "BIGSERIAL",
		},
		IndexMethods: map[schema.IndexType]string{
			schema.BTreeIndex: "",
			schema.RTreeIndex: "GIST",
			schema.HashIndex:  "HASH",
		},
		Sequences: true,
		Functions: m,
	}
}

// NewDuckDB returns the DuckDB dialect with spatial extension functions.
func NewDuckDB(m *FunctionCatalogManager) *Dialect {
	m.ensure(DuckDB, func(c *FunctionCatalog) {
		registerBinaryPredicates(c)
		c.Register(expr.FuncSTDWithin, MustTemplate("ST_DWithin({0}, {1}, {2})", 3))
		c.Register(expr.FuncSTBeyond, MustTemplate("NOT ST_DWithin({0}, {1}, {2})", 3).WithPrec(3))
	})
	return &Dialect{
		Name:            DuckDB,
		Placeholder:     QuestionMark,
		IdentQuote:      `"`,
		GeometryLiteral: MustTemplate("ST_GeomFromText({0})", 2),
		EnvelopeLiteral: MustTemplate("ST_MakeEnvelope({0}, {1}, {2}, {3})", 5),
		GenericFallback: true,
		Statements:      true,
		TypeNames: map[schema.DataType]string{
			schema.Boolean:   "BOOLEAN",
			schema.Int16:     "SMALLINT",
			schema.Int32:     "INTEGER",
			schema.Int64:     "BIGINT",
			schema.Float:     "REAL",
			schema.Double:    "DOUBLE",
			schema.Numeric:   "DECIMAL",
			schema.String:    "VARCHAR",
			schema.ByteArray: "BLOB",
			schema.DateTime:  "TIMESTAMP",
			schema.Geometry:  "GEOMETRY",
		},
		SizedString: MustTemplate("VARCHAR({0})", 1),
		IndexMethods: map[schema.IndexType]string{
			schema.BTreeIndex: "",
			schema.RTreeIndex: "RTREE",
		},
		Sequences: true,
		Functions: m,
	}
}

// NewWFS returns the OGC WFS dialect. It encodes filters as ECQL text with
// inline literals and does not render SQL statements.
func NewWFS(m *FunctionCatalogManager) *Dialect {
	m.ensure(WFS, func(c *FunctionCatalog) {
		for _, name := range binaryPredicates {
			ecql := strings.ToUpper(strings.TrimPrefix(name, "ST_"))
			c.Register(name, MustTemplate(ecql+"({0}, {1})", 2))
		}
		c.Register(expr.FuncSTDWithin, MustTemplate("DWITHIN({0}, {1}, {2}, meters)", 3))
		c.Register(expr.FuncSTBeyond, MustTemplate("BEYOND({0}, {1}, {2}, meters)", 3))
	})
	return &Dialect{
		Name:            WFS,
		Placeholder:     Inline,
		GeometryLiteral: MustTemplate("{0}", 2),
		EnvelopeLiteral: MustTemplate("POLYGON(({0} {1}, {2} {1}, {2} {3}, {0} {3}, {0} {1}))", 5),
		Functions:       m,
	}
}
