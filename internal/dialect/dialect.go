package dialect

import (
	"strconv"
	"strings"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

// PlaceholderStyle selects how bound values appear in rendered text.
type PlaceholderStyle int

const (
	// QuestionMark renders every value as "?".
	QuestionMark PlaceholderStyle = iota

	// DollarNumbered renders values as $1, $2, ... in textual order.
	DollarNumbered

	// Inline renders values as literals. Only web-service dialects use it;
	// no argument list is produced.
	Inline
)

// Dialect is a backend-specific mapping from expression trees to query text.
//
// A Dialect is immutable after construction and safe for concurrent use.
type Dialect struct {
	// Name is the backend key, e.g. "POSTGIS".
	Name string

	Placeholder PlaceholderStyle

	// IdentQuote wraps identifiers; empty leaves them bare.
	IdentQuote string

	// GeometryLiteral takes {0} WKT and {1} SRID.
	GeometryLiteral Template

	// EnvelopeLiteral takes {0} min x, {1} min y, {2} max x, {3} max y, {4} SRID.
	EnvelopeLiteral Template

	// GenericFallback allows functions missing from the backend catalog to
	// resolve through the generic catalog.
	GenericFallback bool

	// Statements is false for dialects that only encode filter expressions.
	Statements bool

	// LimitAll is the LIMIT value emitted when only OFFSET is set, for
	// backends that do not accept a bare OFFSET.
	LimitAll string

	// TypeNames maps property types to column types for DDL.
	TypeNames map[schema.DataType]string

	// SizedString renders a bounded string column from {0} size.
	SizedString Template

	// GeometryColumn renders a typed geometry column from {0} geometry type
	// and {1} SRID.
	GeometryColumn Template

	// AutoNumberTypes maps property types to auto-numbered column types.
	AutoNumberTypes map[schema.DataType]string

	// IndexMethods maps supported index types to the USING clause method;
	// an empty method means the backend default.
	IndexMethods map[schema.IndexType]string

	// Sequences reports whether CREATE SEQUENCE is available.
	Sequences bool

	// Functions resolves function names.
	Functions *FunctionCatalogManager
}

// Options controls parameter handling during rendering.
type Options struct {
	// Bindings supplies values for named parameters.
	Bindings map[string]any

	// Defer leaves unbound parameters as placeholders. Their argument slots
	// hold Deferred markers to be filled at execution time.
	Defer bool
}

// Deferred marks the argument slot of a parameter bound at execution time.
type Deferred struct {
	Name string
}

// Render encodes a statement, returning the query text and the values for
// its placeholders in order. Values are never interpolated into the text
// except by Inline dialects.
func (d *Dialect) Render(stmt expr.Statement, opts Options) (string, []any, error) {
	if !d.Statements {
		return "", nil, dberr.NewUnsupportedError(d.Name, "SQL statements")
	}
	if err := expr.Validate(stmt).Err(); err != nil {
		return "", nil, dberr.NewInvalidExpressionError("render", err.Error())
	}

	v := d.newVisitor(opts)
	frag, err := v.statement(stmt)
	if err != nil {
		return "", nil, err
	}
	return d.finish(frag)
}

// RenderExpression encodes a single expression, typically a filter.
func (d *Dialect) RenderExpression(e expr.Expression, opts Options) (string, []any, error) {
	if err := expr.ValidateExpression(e).Err(); err != nil {
		return "", nil, dberr.NewInvalidExpressionError("render", err.Error())
	}

	v := d.newVisitor(opts)
	frag, err := v.expr(e)
	if err != nil {
		return "", nil, err
	}
	return d.finish(frag)
}

func (d *Dialect) finish(f Fragment) (string, []any, error) {
	switch d.Placeholder {
	case DollarNumbered:
		return renumber(f.SQL), f.Args, nil
	case Inline:
		return f.SQL, nil, nil
	default:
		return f.SQL, f.Args, nil
	}
}

// QuoteIdent quotes a possibly qualified identifier ("t.col"). A "*" part
// is left bare.
func (d *Dialect) QuoteIdent(name string) string {
	if d.IdentQuote == "" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = d.IdentQuote + strings.ReplaceAll(p, d.IdentQuote, d.IdentQuote+d.IdentQuote) + d.IdentQuote
	}
	return strings.Join(parts, ".")
}

// renumber rewrites "?" placeholders outside quoted text to $1, $2, ...
func renumber(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// quoteString renders s as a single-quoted literal.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
