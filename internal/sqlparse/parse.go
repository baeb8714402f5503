// Package sqlparse turns SQL text into expression tree statements, so SQL
// written for one backend can be re-rendered for another.
//
// Parsing uses github.com/xwb1989/sqlparser, a MySQL grammar: identifiers
// are quoted with backticks and double-quoted text is a string. Bind
// variables become Parameters: ":name" keeps its name, and each "?" is
// named v1, v2, ... in textual order.
//
// Geometry and envelope constructors with constant arguments
// (ST_GeomFromText, ST_MakeEnvelope and their SpatiaLite spellings) become
// Geometry and Envelope literals so every dialect can encode them its own
// way.
package sqlparse

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/expr"
)

// Parse reads one SELECT, INSERT, UPDATE or DELETE statement.
func Parse(sql string) (expr.Statement, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, dberr.NewInvalidExpressionError("parse", err.Error())
	}
	var c converter
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return c.selectStmt(s)
	case *sqlparser.Insert:
		return c.insert(s)
	case *sqlparser.Update:
		return c.update(s)
	case *sqlparser.Delete:
		return c.delete(s)
	default:
		return nil, unsupported("statement", stmt)
	}
}

// ParseSelect is Parse restricted to queries.
func ParseSelect(sql string) (*expr.Select, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*expr.Select)
	if !ok {
		return nil, dberr.NewInvalidExpressionError("parse", "not a select statement")
	}
	return sel, nil
}

// ParseExpression reads a standalone filter such as a WHERE clause body.
func ParseExpression(filter string) (expr.Expression, error) {
	sel, err := ParseSelect("select 1 from dual where " + filter)
	if err != nil {
		return nil, err
	}
	return sel.Where, nil
}

func unsupported(what string, node any) error {
	return dberr.NewInvalidExpressionError("parse", fmt.Sprintf("unsupported %s %T", what, node))
}

type converter struct{}

func (c converter) selectStmt(s *sqlparser.Select) (*expr.Select, error) {
	if s.Lock != "" {
		return nil, dberr.NewInvalidExpressionError("parse", "unsupported lock clause"+s.Lock)
	}
	out := &expr.Select{Distinct: s.Distinct != ""}

	for _, se := range s.SelectExprs {
		switch f := se.(type) {
		case *sqlparser.StarExpr:
			if !f.TableName.IsEmpty() || len(s.SelectExprs) > 1 {
				return nil, dberr.NewInvalidExpressionError("parse", "only a lone * is supported in select lists")
			}
		case *sqlparser.AliasedExpr:
			e, err := c.expr(f.Expr)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, expr.Field{Expr: e, Alias: f.As.String()})
		default:
			return nil, unsupported("select expression", se)
		}
	}

	for _, te := range s.From {
		src, err := c.source(te)
		if err != nil {
			return nil, err
		}
		if src != nil {
			out.From = append(out.From, src)
		}
	}

	var err error
	if out.Where, err = c.where(s.Where); err != nil {
		return nil, err
	}
	for _, g := range s.GroupBy {
		e, err := c.expr(g)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, e)
	}
	if out.Having, err = c.where(s.Having); err != nil {
		return nil, err
	}
	for _, o := range s.OrderBy {
		e, err := c.expr(o.Expr)
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, expr.OrderBy{Expr: e, Descending: o.Direction == sqlparser.DescScr})
	}
	if s.Limit != nil {
		if out.Limit, err = c.count("limit", s.Limit.Rowcount); err != nil {
			return nil, err
		}
		if out.Offset, err = c.count("offset", s.Limit.Offset); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c converter) where(w *sqlparser.Where) (expr.Expression, error) {
	if w == nil || w.Expr == nil {
		return nil, nil
	}
	return c.expr(w.Expr)
}

// count reads a LIMIT or OFFSET value, which must be an integer literal.
func (c converter) count(what string, e sqlparser.Expr) (int64, error) {
	if e == nil {
		return 0, nil
	}
	v, ok := e.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, dberr.NewInvalidExpressionError("parse", what+" must be an integer literal")
	}
	return strconv.ParseInt(string(v.Val), 10, 64)
}

// source converts a FROM entry. The placeholder table "dual" yields nil.
func (c converter) source(te sqlparser.TableExpr) (expr.Source, error) {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		alias := t.As.String()
		switch inner := t.Expr.(type) {
		case sqlparser.TableName:
			name := tableName(inner)
			if name == "dual" {
				return nil, nil
			}
			return &expr.DataSetName{Name: name, Alias: alias}, nil
		case *sqlparser.Subquery:
			sel, err := c.subselect(inner)
			if err != nil {
				return nil, err
			}
			return &expr.SubSelect{Select: sel, Alias: alias}, nil
		default:
			return nil, unsupported("table expression", inner)
		}
	case *sqlparser.ParenTableExpr:
		if len(t.Exprs) != 1 {
			return nil, dberr.NewInvalidExpressionError("parse", "parenthesized table lists are not supported")
		}
		return c.source(t.Exprs[0])
	case *sqlparser.JoinTableExpr:
		return c.join(t)
	default:
		return nil, unsupported("table expression", te)
	}
}

var joinTypes = map[string]expr.JoinType{
	sqlparser.JoinStr:      expr.InnerJoin,
	sqlparser.LeftJoinStr:  expr.LeftJoin,
	sqlparser.RightJoinStr: expr.RightJoin,
}

func (c converter) join(j *sqlparser.JoinTableExpr) (expr.Source, error) {
	typ, ok := joinTypes[j.Join]
	if !ok {
		return nil, dberr.NewInvalidExpressionError("parse", "unsupported join "+j.Join)
	}
	if len(j.Condition.Using) > 0 {
		return nil, dberr.NewInvalidExpressionError("parse", "join ... using is not supported")
	}
	left, err := c.source(j.LeftExpr)
	if err != nil {
		return nil, err
	}
	right, err := c.source(j.RightExpr)
	if err != nil {
		return nil, err
	}
	out := &expr.Join{Type: typ, Left: left, Right: right}
	if j.Condition.On == nil {
		if typ == expr.InnerJoin {
			out.Type = expr.CrossJoin
		}
		return out, nil
	}
	if out.On, err = c.expr(j.Condition.On); err != nil {
		return nil, err
	}
	return out, nil
}

func (c converter) subselect(sq *sqlparser.Subquery) (*expr.Select, error) {
	sel, ok := sq.Select.(*sqlparser.Select)
	if !ok {
		return nil, unsupported("subquery", sq.Select)
	}
	return c.selectStmt(sel)
}

func tableName(t sqlparser.TableName) string {
	if t.Qualifier.IsEmpty() {
		return t.Name.String()
	}
	return t.Qualifier.String() + "." + t.Name.String()
}

func colName(col *sqlparser.ColName) string {
	if col.Qualifier.IsEmpty() {
		return col.Name.String()
	}
	return tableName(col.Qualifier) + "." + col.Name.String()
}

func (c converter) insert(s *sqlparser.Insert) (*expr.Insert, error) {
	if s.Action != sqlparser.InsertStr || len(s.OnDup) > 0 {
		return nil, dberr.NewInvalidExpressionError("parse", "only plain INSERT is supported")
	}
	out := &expr.Insert{Into: tableName(s.Table)}
	for _, col := range s.Columns {
		out.Columns = append(out.Columns, col.String())
	}
	switch rows := s.Rows.(type) {
	case sqlparser.Values:
		for _, tuple := range rows {
			row, err := c.exprs(sqlparser.Exprs(tuple))
			if err != nil {
				return nil, err
			}
			out.Values = append(out.Values, row)
		}
	case *sqlparser.Select:
		sel, err := c.selectStmt(rows)
		if err != nil {
			return nil, err
		}
		out.Select = sel
	default:
		return nil, unsupported("insert rows", rows)
	}
	return out, nil
}

func (c converter) update(s *sqlparser.Update) (*expr.Update, error) {
	if len(s.TableExprs) != 1 || len(s.OrderBy) > 0 || s.Limit != nil {
		return nil, dberr.NewInvalidExpressionError("parse", "only single-table UPDATE without ORDER BY or LIMIT is supported")
	}
	src, err := c.source(s.TableExprs[0])
	if err != nil {
		return nil, err
	}
	ds, ok := src.(*expr.DataSetName)
	if !ok {
		return nil, dberr.NewInvalidExpressionError("parse", "UPDATE target must be a data set")
	}
	out := &expr.Update{DataSet: ds.Name}
	for _, ue := range s.Exprs {
		v, err := c.expr(ue.Expr)
		if err != nil {
			return nil, err
		}
		out.Set = append(out.Set, expr.Assignment{Column: ue.Name.Name.String(), Value: v})
	}
	if out.Where, err = c.where(s.Where); err != nil {
		return nil, err
	}
	return out, nil
}

func (c converter) delete(s *sqlparser.Delete) (*expr.Delete, error) {
	if len(s.Targets) > 0 || len(s.TableExprs) != 1 || len(s.OrderBy) > 0 || s.Limit != nil {
		return nil, dberr.NewInvalidExpressionError("parse", "only single-table DELETE without ORDER BY or LIMIT is supported")
	}
	src, err := c.source(s.TableExprs[0])
	if err != nil {
		return nil, err
	}
	ds, ok := src.(*expr.DataSetName)
	if !ok {
		return nil, dberr.NewInvalidExpressionError("parse", "DELETE target must be a data set")
	}
	out := &expr.Delete{From: ds.Name}
	if out.Where, err = c.where(s.Where); err != nil {
		return nil, err
	}
	return out, nil
}

func (c converter) exprs(es sqlparser.Exprs) ([]expr.Expression, error) {
	out := make([]expr.Expression, 0, len(es))
	for _, e := range es {
		x, err := c.expr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

var comparisons = map[string]expr.Operator{
	sqlparser.EqualStr:        expr.OpEqualTo,
	sqlparser.NotEqualStr:     expr.OpNotEqualTo,
	sqlparser.LessThanStr:     expr.OpLessThan,
	sqlparser.GreaterThanStr:  expr.OpGreaterThan,
	sqlparser.LessEqualStr:    expr.OpLessThanOrEqualTo,
	sqlparser.GreaterEqualStr: expr.OpGreaterThanOrEqualTo,
	sqlparser.LikeStr:         expr.OpLike,
}

var arithmetic = map[string]expr.Operator{
	sqlparser.PlusStr:  expr.OpAdd,
	sqlparser.MinusStr: expr.OpSub,
	sqlparser.MultStr:  expr.OpMul,
	sqlparser.DivStr:   expr.OpDiv,
}

func (c converter) expr(e sqlparser.Expr) (expr.Expression, error) {
	switch n := e.(type) {
	case *sqlparser.ParenExpr:
		return c.expr(n.Expr)
	case *sqlparser.AndExpr:
		return c.binary(expr.OpAnd, n.Left, n.Right)
	case *sqlparser.OrExpr:
		return c.binary(expr.OpOr, n.Left, n.Right)
	case *sqlparser.NotExpr:
		x, err := c.expr(n.Expr)
		if err != nil {
			return nil, err
		}
		return expr.Not(x), nil
	case *sqlparser.ComparisonExpr:
		return c.comparison(n)
	case *sqlparser.RangeCond:
		return c.between(n)
	case *sqlparser.IsExpr:
		x, err := c.expr(n.Expr)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case sqlparser.IsNullStr:
			return expr.IsNull(x), nil
		case sqlparser.IsNotNullStr:
			return expr.IsNotNull(x), nil
		}
		return nil, dberr.NewInvalidExpressionError("parse", "unsupported operator "+n.Operator)
	case *sqlparser.BinaryExpr:
		op, ok := arithmetic[n.Operator]
		if !ok {
			return nil, dberr.NewInvalidExpressionError("parse", "unsupported operator "+n.Operator)
		}
		return c.binary(op, n.Left, n.Right)
	case *sqlparser.UnaryExpr:
		return c.unary(n)
	case *sqlparser.ColName:
		return expr.Prop(colName(n)), nil
	case *sqlparser.SQLVal:
		return c.value(n)
	case *sqlparser.NullVal:
		return expr.NewLiteral(expr.Null{}), nil
	case sqlparser.BoolVal:
		return expr.NewLiteral(expr.Bool(n)), nil
	case *sqlparser.FuncExpr:
		return c.function(n)
	case *sqlparser.Subquery:
		sel, err := c.subselect(n)
		if err != nil {
			return nil, err
		}
		return expr.Subquery(sel), nil
	default:
		return nil, unsupported("expression", e)
	}
}

func (c converter) binary(op expr.Operator, l, r sqlparser.Expr) (expr.Expression, error) {
	left, err := c.expr(l)
	if err != nil {
		return nil, err
	}
	right, err := c.expr(r)
	if err != nil {
		return nil, err
	}
	return expr.NewBinaryOp(op, left, right), nil
}

func (c converter) comparison(n *sqlparser.ComparisonExpr) (expr.Expression, error) {
	if n.Escape != nil {
		return nil, dberr.NewInvalidExpressionError("parse", "LIKE ... ESCAPE is not supported")
	}
	if op, ok := comparisons[n.Operator]; ok {
		return c.binary(op, n.Left, n.Right)
	}
	switch n.Operator {
	case sqlparser.NotLikeStr:
		x, err := c.binary(expr.OpLike, n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return expr.Not(x), nil
	case sqlparser.InStr, sqlparser.NotInStr:
		x, err := c.in(n)
		if err != nil {
			return nil, err
		}
		if n.Operator == sqlparser.NotInStr {
			return expr.Not(x), nil
		}
		return x, nil
	}
	return nil, dberr.NewInvalidExpressionError("parse", "unsupported operator "+n.Operator)
}

// in expands "x IN (a, b)" to "x = a OR x = b".
func (c converter) in(n *sqlparser.ComparisonExpr) (expr.Expression, error) {
	tuple, ok := n.Right.(sqlparser.ValTuple)
	if !ok {
		return nil, dberr.NewInvalidExpressionError("parse", "IN requires a value list")
	}
	left, err := c.expr(n.Left)
	if err != nil {
		return nil, err
	}
	vals, err := c.exprs(sqlparser.Exprs(tuple))
	if err != nil {
		return nil, err
	}
	eqs := make([]expr.Expression, len(vals))
	for i, v := range vals {
		l := left
		if i > 0 {
			l = left.Clone()
		}
		eqs[i] = expr.Eq(l, v)
	}
	return expr.AnyOf(eqs...), nil
}

// between expands "x BETWEEN a AND b" to "x >= a AND x <= b".
func (c converter) between(n *sqlparser.RangeCond) (expr.Expression, error) {
	left, err := c.expr(n.Left)
	if err != nil {
		return nil, err
	}
	from, err := c.expr(n.From)
	if err != nil {
		return nil, err
	}
	to, err := c.expr(n.To)
	if err != nil {
		return nil, err
	}
	x := expr.And(expr.Ge(left, from), expr.Le(left.Clone(), to))
	if n.Operator == sqlparser.NotBetweenStr {
		return expr.Not(x), nil
	}
	return x, nil
}

func (c converter) unary(n *sqlparser.UnaryExpr) (expr.Expression, error) {
	x, err := c.expr(n.Expr)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case sqlparser.UPlusStr:
		return x, nil
	case sqlparser.UMinusStr:
		if lit, ok := x.(*expr.Literal); ok {
			switch v := lit.Value.(type) {
			case expr.Int64:
				return expr.NewLiteral(-v), nil
			case expr.Double:
				return expr.NewLiteral(-v), nil
			}
		}
		return expr.Neg(x), nil
	}
	return nil, dberr.NewInvalidExpressionError("parse", "unsupported operator "+n.Operator)
}

func (c converter) value(v *sqlparser.SQLVal) (expr.Expression, error) {
	s := string(v.Val)
	switch v.Type {
	case sqlparser.StrVal:
		return expr.NewLiteral(expr.String(s)), nil
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, dberr.NewInvalidExpressionError("parse", err.Error())
		}
		return expr.NewLiteral(expr.Int64(n)), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, dberr.NewInvalidExpressionError("parse", err.Error())
		}
		return expr.NewLiteral(expr.Double(f)), nil
	case sqlparser.HexVal:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, dberr.NewInvalidExpressionError("parse", err.Error())
		}
		return expr.NewLiteral(expr.Bytes(b)), nil
	case sqlparser.ValArg:
		return expr.Param(strings.TrimPrefix(s, ":")), nil
	default:
		return nil, dberr.NewInvalidExpressionError("parse", "unsupported literal "+s)
	}
}

func (c converter) function(f *sqlparser.FuncExpr) (expr.Expression, error) {
	if f.Distinct {
		return nil, dberr.NewInvalidExpressionError("parse", "DISTINCT in function calls is not supported")
	}
	name := f.Name.String()
	if !f.Qualifier.IsEmpty() {
		name = f.Qualifier.String() + "." + name
	}
	var args []expr.Expression
	for _, se := range f.Exprs {
		switch a := se.(type) {
		case *sqlparser.AliasedExpr:
			x, err := c.expr(a.Expr)
			if err != nil {
				return nil, err
			}
			args = append(args, x)
		case *sqlparser.StarExpr:
			// count(*)
			args = append(args, expr.NewLiteral(expr.Int64(1)))
		default:
			return nil, unsupported("function argument", se)
		}
	}
	if lit, ok := constructor(name, args); ok {
		return lit, nil
	}
	return expr.Func(canonical(name), args...), nil
}
