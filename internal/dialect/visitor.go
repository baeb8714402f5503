package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/expr"
)

var binaryText = map[expr.Operator]string{
	expr.OpAdd:                  "+",
	expr.OpSub:                  "-",
	expr.OpMul:                  "*",
	expr.OpDiv:                  "/",
	expr.OpAnd:                  "AND",
	expr.OpOr:                   "OR",
	expr.OpEqualTo:              "=",
	expr.OpNotEqualTo:           "<>",
	expr.OpLessThan:             "<",
	expr.OpGreaterThan:          ">",
	expr.OpLessThanOrEqualTo:    "<=",
	expr.OpGreaterThanOrEqualTo: ">=",
	expr.OpLike:                 "LIKE",
}

// sqlVisitor renders an expression tree bottom-up. Each Visit method leaves
// the fragment for its node in out.
type sqlVisitor struct {
	d    *Dialect
	opts Options
	out  Fragment
}

var _ expr.Visitor = (*sqlVisitor)(nil)

func (d *Dialect) newVisitor(opts Options) *sqlVisitor {
	return &sqlVisitor{d: d, opts: opts}
}

func (v *sqlVisitor) expr(e expr.Expression) (Fragment, error) {
	if err := e.Accept(v); err != nil {
		return Fragment{}, err
	}
	return v.out, nil
}

func (v *sqlVisitor) inline() bool { return v.d.Placeholder == Inline }

func (v *sqlVisitor) VisitLiteral(l *expr.Literal) error {
	f, err := v.value(l.Value)
	v.out = f
	return err
}

func (v *sqlVisitor) VisitPropertyName(p *expr.PropertyName) error {
	v.out = Raw(v.d.QuoteIdent(p.Name))
	return nil
}

func (v *sqlVisitor) VisitParameter(p *expr.Parameter) error {
	if raw, ok := v.opts.Bindings[p.Name]; ok {
		val, err := expr.ValueOf(raw)
		if err != nil {
			return dberr.NewInvalidExpressionError("bind parameter", fmt.Sprintf("parameter %q: %v", p.Name, err))
		}
		f, err := v.value(val)
		v.out = f
		return err
	}
	if v.opts.Defer && !v.inline() {
		v.out = Fragment{SQL: "?", Args: []any{Deferred{Name: p.Name}}, Prec: PrecAtom}
		return nil
	}
	return dberr.NewInvalidExpressionError("bind parameter", fmt.Sprintf("parameter %q is not bound", p.Name))
}

func (v *sqlVisitor) VisitBinaryOp(b *expr.BinaryOp) error {
	left, err := v.expr(b.Left)
	if err != nil {
		return err
	}
	right, err := v.expr(b.Right)
	if err != nil {
		return err
	}

	p := b.Op.Precedence()
	if left.Prec < p || (left.Prec == p && b.Op.IsComparison()) {
		left = paren(left)
	}
	if right.Prec < p || (right.Prec == p && !(b.Op.Associative() && right.op == b.Op)) {
		right = paren(right)
	}

	var bld builder
	bld.frag(left)
	bld.text(" " + binaryText[b.Op] + " ")
	bld.frag(right)
	out := bld.fragment()
	out.Prec = p
	out.op = b.Op
	v.out = out
	return nil
}

func (v *sqlVisitor) VisitUnaryOp(u *expr.UnaryOp) error {
	operand, err := v.expr(u.Operand)
	if err != nil {
		return err
	}

	p := u.Op.Precedence()
	var bld builder
	switch u.Op {
	case expr.OpNot:
		if operand.Prec < p {
			operand = paren(operand)
		}
		bld.text("NOT ")
		bld.frag(operand)
	case expr.OpNegate:
		if operand.Prec < p || strings.HasPrefix(operand.SQL, "-") {
			operand = paren(operand)
		}
		bld.text("-")
		bld.frag(operand)
	case expr.OpIsNull, expr.OpIsNotNull:
		if operand.Prec <= p {
			operand = paren(operand)
		}
		bld.frag(operand)
		if u.Op == expr.OpIsNull {
			bld.text(" IS NULL")
		} else {
			bld.text(" IS NOT NULL")
		}
	default:
		return dberr.NewInvalidExpressionError("render", "unknown unary operator "+u.Op.String())
	}
	out := bld.fragment()
	out.Prec = p
	v.out = out
	return nil
}

func (v *sqlVisitor) VisitFunction(f *expr.Function) error {
	if v.d.Functions == nil {
		return dberr.NewUnsupportedFunctionError(v.d.Name, f.Name)
	}
	enc, err := v.d.Functions.Find(v.d.Name, f.Name, v.d.GenericFallback)
	if err != nil {
		return err
	}

	args := make([]Fragment, len(f.Args))
	for i, a := range f.Args {
		if args[i], err = v.expr(a); err != nil {
			return err
		}
	}
	out, err := enc.EncodeFunction(args)
	if err != nil {
		return err
	}
	v.out = out
	return nil
}

func (v *sqlVisitor) VisitSelectExpression(s *expr.SelectExpression) error {
	if s.Select == nil {
		return dberr.NewInvalidExpressionError("render", "select expression holds no select")
	}
	if !v.d.Statements {
		return dberr.NewUnsupportedError(v.d.Name, "sub-queries")
	}
	inner, err := v.selectStmt(s.Select)
	if err != nil {
		return err
	}
	v.out = paren(inner)
	return nil
}

// value renders a typed constant.
func (v *sqlVisitor) value(val expr.Value) (Fragment, error) {
	switch x := val.(type) {
	case nil, expr.Null:
		return Raw("NULL"), nil
	case expr.Geometry:
		if v.d.GeometryLiteral.IsZero() {
			return Fragment{}, dberr.NewUnsupportedError(v.d.Name, "geometry literals")
		}
		wkt, srid := v.bind(x.WKT), v.bind(int64(x.SRID))
		if v.inline() {
			wkt, srid = Raw(x.WKT), Raw(strconv.Itoa(x.SRID))
		}
		return v.d.GeometryLiteral.Apply([]Fragment{wkt, srid})
	case expr.Envelope:
		if v.d.EnvelopeLiteral.IsZero() {
			return Fragment{}, dberr.NewUnsupportedError(v.d.Name, "envelope literals")
		}
		return v.d.EnvelopeLiteral.Apply([]Fragment{
			v.number(x.MinX), v.number(x.MinY), v.number(x.MaxX), v.number(x.MaxY),
			v.bindInt(int64(x.SRID)),
		})
	}

	if v.inline() {
		s, err := inlineValue(v.d.Name, val)
		return Raw(s), err
	}
	native, err := expr.Native(val)
	if err != nil {
		return Fragment{}, dberr.NewInvalidExpressionError("render", err.Error())
	}
	return v.bind(native), nil
}

func (v *sqlVisitor) bind(native any) Fragment {
	return Fragment{SQL: "?", Args: []any{native}, Prec: PrecAtom}
}

func (v *sqlVisitor) number(f float64) Fragment {
	if v.inline() {
		return Raw(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return v.bind(f)
}

func (v *sqlVisitor) bindInt(n int64) Fragment {
	if v.inline() {
		return Raw(strconv.FormatInt(n, 10))
	}
	return v.bind(n)
}

// inlineValue renders a scalar as a literal for Inline dialects.
func inlineValue(backend string, val expr.Value) (string, error) {
	switch x := val.(type) {
	case expr.Int16:
		return strconv.FormatInt(int64(x), 10), nil
	case expr.Int32:
		return strconv.FormatInt(int64(x), 10), nil
	case expr.Int64:
		return strconv.FormatInt(int64(x), 10), nil
	case expr.Double:
		return strconv.FormatFloat(float64(x), 'f', -1, 64), nil
	case expr.String:
		return quoteString(string(x)), nil
	case expr.Bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case expr.DateTime:
		return x.Time.UTC().Format(time.RFC3339), nil
	case expr.Bytes:
		return "", dberr.NewUnsupportedError(backend, "binary literals")
	default:
		return "", dberr.NewInvalidExpressionError("render", fmt.Sprintf("unsupported literal %T", val))
	}
}

// statement dispatches on the statement kind.
func (v *sqlVisitor) statement(stmt expr.Statement) (Fragment, error) {
	switch s := stmt.(type) {
	case *expr.Select:
		return v.selectStmt(s)
	case *expr.Insert:
		return v.insertStmt(s)
	case *expr.Update:
		return v.updateStmt(s)
	case *expr.Delete:
		return v.deleteStmt(s)
	default:
		return Fragment{}, dberr.NewInvalidExpressionError("render", fmt.Sprintf("unsupported statement %T", stmt))
	}
}

func (v *sqlVisitor) selectStmt(s *expr.Select) (Fragment, error) {
	var b builder
	b.text("SELECT ")
	if s.Distinct {
		b.text("DISTINCT ")
	}

	if len(s.Fields) == 0 {
		b.text("*")
	}
	for i, f := range s.Fields {
		if i > 0 {
			b.text(", ")
		}
		frag, err := v.expr(f.Expr)
		if err != nil {
			return Fragment{}, err
		}
		b.frag(frag)
		if f.Alias != "" {
			b.text(" AS " + v.d.QuoteIdent(f.Alias))
		}
	}

	if len(s.From) > 0 {
		b.text(" FROM ")
		for i, src := range s.From {
			if i > 0 {
				b.text(", ")
			}
			frag, err := v.source(src)
			if err != nil {
				return Fragment{}, err
			}
			b.frag(frag)
		}
	}

	if err := v.clause(&b, " WHERE ", s.Where); err != nil {
		return Fragment{}, err
	}
	if err := v.list(&b, " GROUP BY ", s.GroupBy); err != nil {
		return Fragment{}, err
	}
	if err := v.clause(&b, " HAVING ", s.Having); err != nil {
		return Fragment{}, err
	}

	for i, o := range s.OrderBy {
		if i == 0 {
			b.text(" ORDER BY ")
		} else {
			b.text(", ")
		}
		frag, err := v.expr(o.Expr)
		if err != nil {
			return Fragment{}, err
		}
		b.frag(frag)
		if o.Descending {
			b.text(" DESC")
		}
	}

	switch {
	case s.Limit > 0:
		b.text(" LIMIT " + strconv.FormatInt(s.Limit, 10))
	case s.Offset > 0 && v.d.LimitAll != "":
		b.text(" LIMIT " + v.d.LimitAll)
	}
	if s.Offset > 0 {
		b.text(" OFFSET " + strconv.FormatInt(s.Offset, 10))
	}
	return b.fragment(), nil
}

func (v *sqlVisitor) clause(b *builder, keyword string, e expr.Expression) error {
	if e == nil {
		return nil
	}
	frag, err := v.expr(e)
	if err != nil {
		return err
	}
	b.text(keyword)
	b.frag(frag)
	return nil
}

func (v *sqlVisitor) list(b *builder, keyword string, es []expr.Expression) error {
	for i, e := range es {
		if i == 0 {
			b.text(keyword)
		} else {
			b.text(", ")
		}
		frag, err := v.expr(e)
		if err != nil {
			return err
		}
		b.frag(frag)
	}
	return nil
}

func (v *sqlVisitor) source(src expr.Source) (Fragment, error) {
	var b builder
	switch s := src.(type) {
	case *expr.DataSetName:
		b.text(v.d.QuoteIdent(s.Name))
		v.alias(&b, s.Alias)
	case *expr.SubSelect:
		inner, err := v.selectStmt(s.Select)
		if err != nil {
			return Fragment{}, err
		}
		b.frag(paren(inner))
		v.alias(&b, s.Alias)
	case *expr.Join:
		left, err := v.source(s.Left)
		if err != nil {
			return Fragment{}, err
		}
		right, err := v.source(s.Right)
		if err != nil {
			return Fragment{}, err
		}
		if _, nested := s.Right.(*expr.Join); nested {
			right = paren(right)
		}
		b.frag(left)
		b.text(" " + s.Type.String() + " ")
		b.frag(right)
		if s.Type != expr.CrossJoin {
			if err := v.clause(&b, " ON ", s.On); err != nil {
				return Fragment{}, err
			}
		}
	default:
		return Fragment{}, dberr.NewInvalidExpressionError("render", fmt.Sprintf("unsupported source %T", src))
	}
	return b.fragment(), nil
}

func (v *sqlVisitor) alias(b *builder, alias string) {
	if alias != "" {
		b.text(" AS " + v.d.QuoteIdent(alias))
	}
}

func (v *sqlVisitor) columns(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = v.d.QuoteIdent(n)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func (v *sqlVisitor) insertStmt(s *expr.Insert) (Fragment, error) {
	var b builder
	b.text("INSERT INTO " + v.d.QuoteIdent(s.Into))
	if len(s.Columns) > 0 {
		b.text(" " + v.columns(s.Columns))
	}

	if s.Select != nil {
		inner, err := v.selectStmt(s.Select)
		if err != nil {
			return Fragment{}, err
		}
		b.text(" ")
		b.frag(inner)
		return b.fragment(), nil
	}

	b.text(" VALUES ")
	for r, row := range s.Values {
		if r > 0 {
			b.text(", ")
		}
		b.text("(")
		for c, e := range row {
			if c > 0 {
				b.text(", ")
			}
			frag, err := v.expr(e)
			if err != nil {
				return Fragment{}, err
			}
			b.frag(frag)
		}
		b.text(")")
	}
	return b.fragment(), nil
}

func (v *sqlVisitor) updateStmt(s *expr.Update) (Fragment, error) {
	var b builder
	b.text("UPDATE " + v.d.QuoteIdent(s.DataSet) + " SET ")
	for i, a := range s.Set {
		if i > 0 {
			b.text(", ")
		}
		frag, err := v.expr(a.Value)
		if err != nil {
			return Fragment{}, err
		}
		b.text(v.d.QuoteIdent(a.Column) + " = ")
		b.frag(frag)
	}
	if err := v.clause(&b, " WHERE ", s.Where); err != nil {
		return Fragment{}, err
	}
	return b.fragment(), nil
}

func (v *sqlVisitor) deleteStmt(s *expr.Delete) (Fragment, error) {
	var b builder
	b.text("DELETE FROM " + v.d.QuoteIdent(s.From))
	if err := v.clause(&b, " WHERE ", s.Where); err != nil {
		return Fragment{}, err
	}
	return b.fragment(), nil
}
