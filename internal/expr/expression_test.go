package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTree builds a tree touching every node kind.
func sampleTree() Expression {
	inner := SelectFrom("parcels", Prop("id"))
	inner.Where = STIntersects(Prop("geom"), NewLiteral(Envelope{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10, SRID: 4326}))

	return AllOf(
		Ge(Prop("population"), Lit(int64(1000))),
		Not(Like(Prop("name"), Lit("San%"))),
		Eq(Sub(Prop("a"), Prop("b")), Param("delta")),
		STContains(Prop("geom"), NewLiteral(Geometry{WKT: "POINT(1 2)", SRID: 4326})),
		Func("IN_SET", Prop("id"), Subquery(inner)),
		IsNotNull(NewLiteral(Bytes{0x01, 0x02})),
	)
}

func TestClone_StructurallyEqual(t *testing.T) {
	e := sampleTree()

	c1 := e.Clone()
	c2 := c1.Clone()

	assert.Equal(t, e, c1)
	assert.Equal(t, e, c2)
}

func TestClone_Independence(t *testing.T) {
	e := sampleTree()
	snapshot := sampleTree()

	c := e.Clone()

	// Mutate every reachable piece of the clone.
	and := c.(*BinaryOp)
	and.Op = OpOr
	and.Right.(*UnaryOp).Operand.(*Literal).Value.(Bytes)[0] = 0xFF
	and.Right = Lit("replaced")

	left := and.Left.(*BinaryOp)
	fn := left.Right.(*Function)
	fn.Args[1].(*SelectExpression).Select.From[0].(*DataSetName).Name = "mutated"
	fn.Args[0].(*PropertyName).Name = "mutated"

	assert.Equal(t, snapshot, e, "mutating the clone must not affect the original")
}

func TestClone_BytesLiteralDeepCopy(t *testing.T) {
	orig := NewLiteral(Bytes{1, 2, 3})
	c := orig.Clone().(*Literal)

	c.Value.(Bytes)[0] = 9

	assert.Equal(t, Bytes{1, 2, 3}, orig.Value)
}

func TestSelectExpression_NilHeldClone(t *testing.T) {
	se := &SelectExpression{}

	c, ok := se.Clone().(*SelectExpression)
	require.True(t, ok)
	assert.Nil(t, c.Select)
	assert.NotSame(t, se, c)
}

func TestSelectExpression_CloneCopiesSelect(t *testing.T) {
	s := SelectFrom("roads", Prop("name"))
	se := Subquery(s)

	c := se.Clone().(*SelectExpression)
	require.NotNil(t, c.Select)
	assert.NotSame(t, s, c.Select)
	assert.Equal(t, s, c.Select)
}

func TestSelectExpression_Take(t *testing.T) {
	s := SelectFrom("roads")
	se := Subquery(s)

	got := se.Take()

	assert.Same(t, s, got)
	assert.Nil(t, se.Select)
}

func TestStatements_CloneIndependence(t *testing.T) {
	tests := []struct {
		name   string
		build  func() Statement
		mutate func(Statement)
	}{
		{
			name: "select",
			build: func() Statement {
				s := SelectFrom("cities", Prop("name"))
				s.From = []Source{&Join{
					Type:  LeftJoin,
					Left:  &DataSetName{Name: "cities", Alias: "c"},
					Right: &SubSelect{Select: SelectFrom("states"), Alias: "s"},
					On:    Eq(Prop("c.state_id"), Prop("s.id")),
				}}
				s.GroupBy = []Expression{Prop("name")}
				s.OrderBy = []OrderBy{{Expr: Prop("name"), Descending: true}}
				s.Limit = 10
				return s
			},
			mutate: func(st Statement) {
				s := st.(*Select)
				s.Fields[0].Alias = "x"
				j := s.From[0].(*Join)
				j.Right.(*SubSelect).Select.From[0].(*DataSetName).Name = "x"
				j.On.(*BinaryOp).Left.(*PropertyName).Name = "x"
				s.OrderBy[0].Descending = false
				s.GroupBy[0].(*PropertyName).Name = "x"
			},
		},
		{
			name: "insert",
			build: func() Statement {
				return &Insert{
					Into:    "cities",
					Columns: []string{"name", "pop"},
					Values:  [][]Expression{{Lit("Lisbon"), Lit(int64(545000))}},
				}
			},
			mutate: func(st Statement) {
				s := st.(*Insert)
				s.Columns[0] = "x"
				s.Values[0][0].(*Literal).Value = String("x")
			},
		},
		{
			name: "update",
			build: func() Statement {
				return &Update{
					DataSet: "cities",
					Set:     []Assignment{{Column: "pop", Value: Add(Prop("pop"), Lit(int64(1)))}},
					Where:   Eq(Prop("name"), Lit("Porto")),
				}
			},
			mutate: func(st Statement) {
				s := st.(*Update)
				s.Set[0].Column = "x"
				s.Where.(*BinaryOp).Op = OpNotEqualTo
			},
		},
		{
			name: "delete",
			build: func() Statement {
				return &Delete{From: "cities", Where: IsNull(Prop("name"))}
			},
			mutate: func(st Statement) {
				st.(*Delete).Where.(*UnaryOp).Op = OpIsNotNull
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orig := tc.build()
			c := orig.CloneStatement()
			assert.Equal(t, orig, c.CloneStatement())

			tc.mutate(c)
			assert.Equal(t, tc.build(), orig)
		})
	}
}

func TestValueOf(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null{}},
		{true, Bool(true)},
		{42, Int64(42)},
		{int16(7), Int16(7)},
		{int32(7), Int32(7)},
		{int64(7), Int64(7)},
		{float32(1.5), Double(1.5)},
		{2.25, Double(2.25)},
		{"abc", String("abc")},
		{[]byte{1}, Bytes{1}},
		{now, DateTime{Time: now}},
		{Geometry{WKT: "POINT(0 0)"}, Geometry{WKT: "POINT(0 0)"}},
	}

	for _, tc := range tests {
		got, err := ValueOf(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ValueOf(struct{}{})
	assert.Error(t, err)
}

func TestNative(t *testing.T) {
	got, err := Native(Int16(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	got, err = Native(Geometry{WKT: "POINT(1 1)", SRID: 4326})
	require.NoError(t, err)
	assert.Equal(t, "POINT(1 1)", got)

	got, err = Native(Null{})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = Native(Envelope{})
	assert.Error(t, err)
}

func TestLit_PanicsOnUnsupported(t *testing.T) {
	assert.Panics(t, func() { Lit(struct{}{}) })
}

func TestAllOf(t *testing.T) {
	assert.Nil(t, AllOf())

	single := Prop("a")
	assert.Same(t, single, AllOf(single))

	got := AllOf(Prop("a"), nil, Prop("b"), Prop("c"))
	want := And(And(Prop("a"), Prop("b")), Prop("c"))
	assert.Equal(t, want, got)

	assert.Equal(t, Or(Prop("a"), Prop("b")), AnyOf(Prop("a"), Prop("b")))
}

func TestOperator_Properties(t *testing.T) {
	assert.Equal(t, "EqualTo", OpEqualTo.String())
	assert.Equal(t, "Operator(99)", Operator(99).String())
	assert.False(t, Operator(99).Valid())

	assert.Greater(t, OpMul.Precedence(), OpAdd.Precedence())
	assert.Greater(t, OpAdd.Precedence(), OpEqualTo.Precedence())
	assert.Greater(t, OpEqualTo.Precedence(), OpNot.Precedence())
	assert.Greater(t, OpNot.Precedence(), OpAnd.Precedence())
	assert.Greater(t, OpAnd.Precedence(), OpOr.Precedence())

	assert.True(t, OpAdd.Associative())
	assert.False(t, OpSub.Associative())
	assert.False(t, OpDiv.Associative())

	assert.True(t, OpLike.IsComparison())
	assert.True(t, OpOr.IsLogical())
	assert.True(t, OpDiv.IsArithmetic())
	assert.False(t, OpAnd.IsArithmetic())
}

func TestAccept_DispatchesByType(t *testing.T) {
	rec := &recordingVisitor{}

	nodes := []Expression{
		Lit(1), Prop("a"), Param("p"), Eq(Prop("a"), Lit(1)),
		Not(Prop("b")), Func("f"), Subquery(nil),
	}
	for _, n := range nodes {
		require.NoError(t, n.Accept(rec))
	}

	assert.Equal(t, []string{
		"literal", "property", "parameter", "binary", "unary", "function", "select",
	}, rec.visits)
}

type recordingVisitor struct {
	visits []string
}

func (r *recordingVisitor) VisitLiteral(*Literal) error {
	r.visits = append(r.visits, "literal")
	return nil
}

func (r *recordingVisitor) VisitPropertyName(*PropertyName) error {
	r.visits = append(r.visits, "property")
	return nil
}

func (r *recordingVisitor) VisitParameter(*Parameter) error {
	r.visits = append(r.visits, "parameter")
	return nil
}

func (r *recordingVisitor) VisitBinaryOp(*BinaryOp) error {
	r.visits = append(r.visits, "binary")
	return nil
}

func (r *recordingVisitor) VisitUnaryOp(*UnaryOp) error {
	r.visits = append(r.visits, "unary")
	return nil
}

func (r *recordingVisitor) VisitFunction(*Function) error {
	r.visits = append(r.visits, "function")
	return nil
}

func (r *recordingVisitor) VisitSelectExpression(*SelectExpression) error {
	r.visits = append(r.visits, "select")
	return nil
}
