package expr

import "fmt"

// ValidationResult contains the structural problems found in a tree.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems lists every issue found, in visit order.
	Problems []string
}

// Err returns nil for a valid result, otherwise an error summarizing the
// first problem and the count of the rest.
func (r ValidationResult) Err() error {
	switch len(r.Problems) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s", r.Problems[0])
	default:
		return fmt.Errorf("%s (and %d more)", r.Problems[0], len(r.Problems)-1)
	}
}

// Validate checks a statement for structural problems:
//   - nil operands, arguments, fields or sources
//   - empty property, function, parameter or data set names
//   - unknown operators
//   - well-known spatial functions called with the wrong argument count
//   - SelectExpressions holding no Select
//   - Insert rows whose width differs from the column list
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateStatement(stmt)
	return v.result()
}

// ValidateExpression checks a single expression tree. See Validate.
func ValidateExpression(e Expression) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateExpr("expression", e)
	return v.result()
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) result() ValidationResult {
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(stmt Statement) {
	switch s := stmt.(type) {
	case nil:
		v.addProblem("nil statement")
	case *Select:
		v.validateSelect(s)
	case *Insert:
		v.validateInsert(s)
	case *Update:
		if s.DataSet == "" {
			v.addProblem("update: empty data set name")
		}
		if len(s.Set) == 0 {
			v.addProblem("update: no assignments")
		}
		for i, a := range s.Set {
			if a.Column == "" {
				v.addProblem("update: assignment %d has empty column", i)
			}
			v.validateExpr(fmt.Sprintf("update set %q", a.Column), a.Value)
		}
		v.validateOptional("update where", s.Where)
	case *Delete:
		if s.From == "" {
			v.addProblem("delete: empty data set name")
		}
		v.validateOptional("delete where", s.Where)
	default:
		v.addProblem("unknown statement type: %T", stmt)
	}
}

func (v *validator) validateSelect(s *Select) {
	if s == nil {
		v.addProblem("nil select")
		return
	}
	for i, f := range s.Fields {
		v.validateExpr(fmt.Sprintf("field %d", i), f.Expr)
	}
	for _, src := range s.From {
		v.validateSource(src)
	}
	v.validateOptional("where", s.Where)
	for i, g := range s.GroupBy {
		v.validateExpr(fmt.Sprintf("group by %d", i), g)
	}
	v.validateOptional("having", s.Having)
	for i, o := range s.OrderBy {
		v.validateExpr(fmt.Sprintf("order by %d", i), o.Expr)
	}
	if s.Limit < 0 {
		v.addProblem("negative limit %d", s.Limit)
	}
	if s.Offset < 0 {
		v.addProblem("negative offset %d", s.Offset)
	}
}

func (v *validator) validateInsert(s *Insert) {
	if s.Into == "" {
		v.addProblem("insert: empty data set name")
	}
	if (s.Select == nil) == (len(s.Values) == 0) {
		v.addProblem("insert: exactly one of values or select is required")
	}
	for r, row := range s.Values {
		if len(s.Columns) > 0 && len(row) != len(s.Columns) {
			v.addProblem("insert: row %d has %d values for %d columns", r, len(row), len(s.Columns))
		}
		for c, e := range row {
			v.validateExpr(fmt.Sprintf("insert row %d value %d", r, c), e)
		}
	}
	if s.Select != nil {
		v.validateSelect(s.Select)
	}
}

func (v *validator) validateSource(src Source) {
	switch s := src.(type) {
	case nil:
		v.addProblem("nil source")
	case *DataSetName:
		if s.Name == "" {
			v.addProblem("empty data set name")
		}
	case *SubSelect:
		if s.Select == nil {
			v.addProblem("sub-select source without select")
			return
		}
		v.validateSelect(s.Select)
	case *Join:
		v.validateSource(s.Left)
		v.validateSource(s.Right)
		if s.Type != CrossJoin && s.On == nil {
			v.addProblem("%s without ON condition", s.Type)
		}
		v.validateOptional("join on", s.On)
	default:
		v.addProblem("unknown source type: %T", src)
	}
}

func (v *validator) validateOptional(where string, e Expression) {
	if e != nil {
		v.validateExpr(where, e)
	}
}

// validateExpr recursively validates an expression node.
func (v *validator) validateExpr(where string, e Expression) {
	switch n := e.(type) {
	case nil:
		v.addProblem("%s: nil expression", where)
	case *Literal:
		if n.Value == nil {
			v.addProblem("%s: literal without value", where)
		}
	case *PropertyName:
		if n.Name == "" {
			v.addProblem("%s: empty property name", where)
		}
	case *Parameter:
		if n.Name == "" {
			v.addProblem("%s: empty parameter name", where)
		}
	case *BinaryOp:
		if !n.Op.Valid() {
			v.addProblem("%s: unknown operator %s", where, n.Op)
		}
		v.validateExpr(where, n.Left)
		v.validateExpr(where, n.Right)
	case *UnaryOp:
		if !n.Op.Valid() {
			v.addProblem("%s: unknown operator %s", where, n.Op)
		}
		v.validateExpr(where, n.Operand)
	case *Function:
		if n.Name == "" {
			v.addProblem("%s: empty function name", where)
		}
		if want, ok := SpatialArity(n.Name); ok && len(n.Args) != want {
			v.addProblem("%s: %s expects %d arguments, got %d", where, n.Name, want, len(n.Args))
		}
		for _, a := range n.Args {
			v.validateExpr(where, a)
		}
	case *SelectExpression:
		if n.Select == nil {
			v.addProblem("%s: select expression holds no select", where)
			return
		}
		v.validateSelect(n.Select)
	default:
		v.addProblem("%s: unknown expression type %T", where, e)
	}
}
