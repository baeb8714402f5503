package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ValidSelect(t *testing.T) {
	s := SelectFrom("parcels", Prop("id"), Prop("geom"))
	s.Where = And(
		STDWithin(Prop("geom"), NewLiteral(Geometry{WKT: "POINT(0 0)"}), Lit(100.0)),
		Gt(Prop("area"), Param("minArea")),
	)

	result := Validate(s)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name     string
		stmt     Statement
		contains string
	}{
		{
			name:     "nil statement",
			stmt:     nil,
			contains: "nil statement",
		},
		{
			name:     "nil operand",
			stmt:     &Select{From: []Source{&DataSetName{Name: "t"}}, Where: Eq(Prop("a"), nil)},
			contains: "where: nil expression",
		},
		{
			name:     "empty property",
			stmt:     SelectFrom("t", Prop("")),
			contains: "empty property name",
		},
		{
			name:     "spatial arity",
			stmt:     &Select{From: []Source{&DataSetName{Name: "t"}}, Where: Func(FuncSTDWithin, Prop("a"), Prop("b"))},
			contains: "ST_DWithin expects 3 arguments, got 2",
		},
		{
			name:     "nil-held select expression",
			stmt:     &Select{From: []Source{&DataSetName{Name: "t"}}, Where: Eq(Prop("a"), &SelectExpression{})},
			contains: "holds no select",
		},
		{
			name:     "join without on",
			stmt:     &Select{From: []Source{&Join{Left: &DataSetName{Name: "a"}, Right: &DataSetName{Name: "b"}}}},
			contains: "INNER JOIN without ON condition",
		},
		{
			name:     "unknown operator",
			stmt:     &Select{From: []Source{&DataSetName{Name: "t"}}, Where: NewBinaryOp(Operator(99), Prop("a"), Prop("b"))},
			contains: "unknown operator",
		},
		{
			name:     "insert width mismatch",
			stmt:     &Insert{Into: "t", Columns: []string{"a", "b"}, Values: [][]Expression{{Lit(1)}}},
			contains: "row 0 has 1 values for 2 columns",
		},
		{
			name:     "insert without rows",
			stmt:     &Insert{Into: "t", Columns: []string{"a"}},
			contains: "exactly one of values or select",
		},
		{
			name:     "update without set",
			stmt:     &Update{DataSet: "t"},
			contains: "no assignments",
		},
		{
			name:     "delete without table",
			stmt:     &Delete{},
			contains: "delete: empty data set name",
		},
		{
			name:     "negative limit",
			stmt:     &Select{From: []Source{&DataSetName{Name: "t"}}, Limit: -1},
			contains: "negative limit",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.stmt)

			assert.False(t, result.Valid)
			assert.NotEmpty(t, result.Problems)
			assert.Contains(t, result.Err().Error(), tc.contains)
		})
	}
}

func TestValidate_MultipleProblemsSummarized(t *testing.T) {
	s := SelectFrom("t", Prop(""), Param(""))

	result := Validate(s)

	assert.Len(t, result.Problems, 2)
	assert.Contains(t, result.Err().Error(), "(and 1 more)")
}

func TestValidateExpression(t *testing.T) {
	assert.True(t, ValidateExpression(Not(Prop("a"))).Valid)
	assert.False(t, ValidateExpression(Not(nil)).Valid)
	assert.False(t, ValidateExpression(Func("")).Valid)
}
