package expr

// Expression is a node of the query expression tree.
//
// This is a sealed interface: only types in this package implement it.
type Expression interface {
	// Clone returns a deep, independent copy of the node and its subtree.
	Clone() Expression

	// Accept dispatches to the Visitor method matching the concrete node type.
	Accept(v Visitor) error

	exprNode()
}

// Visitor walks an expression tree with double dispatch.
//
// Each node's Accept calls exactly one Visit method. Visitors decide whether
// and in which order to descend into children; encoders must visit operands
// left to right.
type Visitor interface {
	VisitLiteral(*Literal) error
	VisitPropertyName(*PropertyName) error
	VisitParameter(*Parameter) error
	VisitBinaryOp(*BinaryOp) error
	VisitUnaryOp(*UnaryOp) error
	VisitFunction(*Function) error
	VisitSelectExpression(*SelectExpression) error
}

// Literal is a typed constant.
type Literal struct {
	Value Value
}

// NewLiteral creates a literal node holding v.
func NewLiteral(v Value) *Literal {
	return &Literal{Value: v}
}

// Lit creates a literal from a Go native value.
// Panics on unsupported types; use ValueOf to handle the error.
func Lit(v any) *Literal {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return &Literal{Value: val}
}

func (*Literal) exprNode() {}

// Clone implements Expression.
func (l *Literal) Clone() Expression {
	if l.Value == nil {
		return &Literal{}
	}
	return &Literal{Value: l.Value.CloneValue()}
}

// Accept implements Expression.
func (l *Literal) Accept(v Visitor) error { return v.VisitLiteral(l) }

// PropertyName references a column, optionally qualified ("t.col").
type PropertyName struct {
	Name string
}

// Prop creates a property reference.
func Prop(name string) *PropertyName {
	return &PropertyName{Name: name}
}

func (*PropertyName) exprNode() {}

// Clone implements Expression.
func (p *PropertyName) Clone() Expression { return &PropertyName{Name: p.Name} }

// Accept implements Expression.
func (p *PropertyName) Accept(v Visitor) error { return v.VisitPropertyName(p) }

// Parameter is a named binding slot.
//
// Its value is supplied when the statement is rendered (bound values) or when
// a prepared query executes.
type Parameter struct {
	Name string
}

// Param creates a named parameter.
func Param(name string) *Parameter {
	return &Parameter{Name: name}
}

func (*Parameter) exprNode() {}

// Clone implements Expression.
func (p *Parameter) Clone() Expression { return &Parameter{Name: p.Name} }

// Accept implements Expression.
func (p *Parameter) Accept(v Visitor) error { return v.VisitParameter(p) }

// BinaryOp applies an infix operator to exactly two operands.
type BinaryOp struct {
	Op    Operator
	Left  Expression
	Right Expression
}

// NewBinaryOp creates a binary operator node.
func NewBinaryOp(op Operator, left, right Expression) *BinaryOp {
	return &BinaryOp{Op: op, Left: left, Right: right}
}

func (*BinaryOp) exprNode() {}

// Clone implements Expression.
func (b *BinaryOp) Clone() Expression {
	return &BinaryOp{Op: b.Op, Left: cloneExpr(b.Left), Right: cloneExpr(b.Right)}
}

// Accept implements Expression.
func (b *BinaryOp) Accept(v Visitor) error { return v.VisitBinaryOp(b) }

// UnaryOp applies a prefix or postfix operator to exactly one operand.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Expression
}

// NewUnaryOp creates a unary operator node.
func NewUnaryOp(op UnaryOperator, operand Expression) *UnaryOp {
	return &UnaryOp{Op: op, Operand: operand}
}

func (*UnaryOp) exprNode() {}

// Clone implements Expression.
func (u *UnaryOp) Clone() Expression {
	return &UnaryOp{Op: u.Op, Operand: cloneExpr(u.Operand)}
}

// Accept implements Expression.
func (u *UnaryOp) Accept(v Visitor) error { return v.VisitUnaryOp(u) }

// Function is a named, N-ary function call.
type Function struct {
	Name string
	Args []Expression
}

// Func creates a function call node.
func Func(name string, args ...Expression) *Function {
	return &Function{Name: name, Args: args}
}

func (*Function) exprNode() {}

// Clone implements Expression.
func (f *Function) Clone() Expression {
	return &Function{Name: f.Name, Args: cloneExprs(f.Args)}
}

// Accept implements Expression.
func (f *Function) Accept(v Visitor) error { return v.VisitFunction(f) }

// SelectExpression is a nested Select used as a scalar or table source.
// It owns Select exclusively; Select may be nil.
type SelectExpression struct {
	Select *Select
}

// Subquery wraps s in a SelectExpression. Ownership of s moves to the node.
func Subquery(s *Select) *SelectExpression {
	return &SelectExpression{Select: s}
}

func (*SelectExpression) exprNode() {}

// Clone implements Expression. A nil-held node clones to a nil-held node.
func (s *SelectExpression) Clone() Expression {
	if s.Select == nil {
		return &SelectExpression{}
	}
	return &SelectExpression{Select: s.Select.CloneSelect()}
}

// Accept implements Expression.
func (s *SelectExpression) Accept(v Visitor) error { return v.VisitSelectExpression(s) }

// Take moves the held Select out, leaving the node empty.
func (s *SelectExpression) Take() *Select {
	sel := s.Select
	s.Select = nil
	return sel
}

func cloneExpr(e Expression) Expression {
	if e == nil {
		return nil
	}
	return e.Clone()
}

func cloneExprs(es []Expression) []Expression {
	if es == nil {
		return nil
	}
	out := make([]Expression, len(es))
	for i, e := range es {
		out[i] = cloneExpr(e)
	}
	return out
}
