package expr

import "fmt"

// Operator identifies a binary operator.
type Operator int

const (
	OpAdd Operator = iota + 1
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpEqualTo
	OpNotEqualTo
	OpLessThan
	OpGreaterThan
	OpLessThanOrEqualTo
	OpGreaterThanOrEqualTo
	OpLike
)

var operatorNames = map[Operator]string{
	OpAdd:                  "Add",
	OpSub:                  "Sub",
	OpMul:                  "Mul",
	OpDiv:                  "Div",
	OpAnd:                  "And",
	OpOr:                   "Or",
	OpEqualTo:              "EqualTo",
	OpNotEqualTo:           "NotEqualTo",
	OpLessThan:             "LessThan",
	OpGreaterThan:          "GreaterThan",
	OpLessThanOrEqualTo:    "LessThanOrEqualTo",
	OpGreaterThanOrEqualTo: "GreaterThanOrEqualTo",
	OpLike:                 "Like",
}

// String returns the operator name (e.g. "EqualTo").
func (o Operator) String() string {
	if n, ok := operatorNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// Precedence returns the binding strength of o; higher binds tighter.
//
//	6  * /
//	5  + -
//	4  comparisons, LIKE
//	2  AND
//	1  OR
//
// NOT binds at 3 (see UnaryOperator.Precedence).
func (o Operator) Precedence() int {
	switch o {
	case OpMul, OpDiv:
		return 6
	case OpAdd, OpSub:
		return 5
	case OpEqualTo, OpNotEqualTo, OpLessThan, OpGreaterThan,
		OpLessThanOrEqualTo, OpGreaterThanOrEqualTo, OpLike:
		return 4
	case OpAnd:
		return 2
	case OpOr:
		return 1
	default:
		return 0
	}
}

// Associative reports whether (a o b) o c == a o (b o c).
// Encoders may drop parentheses around a right operand only for these.
func (o Operator) Associative() bool {
	switch o {
	case OpAdd, OpMul, OpAnd, OpOr:
		return true
	default:
		return false
	}
}

// IsComparison reports whether o yields a boolean from two values.
func (o Operator) IsComparison() bool {
	return o.Precedence() == 4
}

// IsLogical reports whether o is AND or OR.
func (o Operator) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

// IsArithmetic reports whether o is + - * /.
func (o Operator) IsArithmetic() bool {
	p := o.Precedence()
	return p == 5 || p == 6
}

// UnaryOperator identifies a unary operator.
type UnaryOperator int

const (
	OpNot UnaryOperator = iota + 1
	OpNegate
	OpIsNull
	OpIsNotNull
)

var unaryNames = map[UnaryOperator]string{
	OpNot:       "Not",
	OpNegate:    "Negate",
	OpIsNull:    "IsNull",
	OpIsNotNull: "IsNotNull",
}

// String returns the operator name.
func (o UnaryOperator) String() string {
	if n, ok := unaryNames[o]; ok {
		return n
	}
	return fmt.Sprintf("UnaryOperator(%d)", int(o))
}

// Valid reports whether o is a known operator.
func (o UnaryOperator) Valid() bool {
	_, ok := unaryNames[o]
	return ok
}

// Precedence returns the binding strength of o, on the Operator scale.
func (o UnaryOperator) Precedence() int {
	switch o {
	case OpNegate:
		return 7
	case OpIsNull, OpIsNotNull:
		return 4
	case OpNot:
		return 3
	default:
		return 0
	}
}
