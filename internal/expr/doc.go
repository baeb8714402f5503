// Package expr provides the backend-independent query expression tree.
//
// Callers build predicates, computed fields and whole statements from the
// node types in this package, hand them to a Transactor, and the backend's
// dialect encoder (internal/dialect) renders them to native query text.
//
// # Sealed Interfaces
//
// Expression, Value, Statement and Source are sealed with unexported marker
// methods. Only types in this package implement them, so encoders can rely on
// exhaustive type switches or on the Visitor interface:
//
//	switch e := node.(type) {
//	case *Literal:
//	case *PropertyName:
//	case *Parameter:
//	case *BinaryOp:
//	case *UnaryOp:
//	case *Function:
//	case *SelectExpression:
//	}
//
// # Ownership
//
// Trees are owned top-down. A parent owns its children exclusively; there are
// no shared or back references, so a tree is always acyclic. Clone returns a
// deep, independent copy: mutating the copy never affects the original, and
// e.Clone().Clone() is structurally equal to e.
//
// BinaryOp always has exactly two operands and UnaryOp exactly one; the
// constructors make other arities unrepresentable. Function arguments are
// N-ary; arity of the well-known spatial predicates is checked by Validate.
//
// SelectExpression owns its nested Select. A SelectExpression holding no
// Select is a legal value: cloning it yields another empty SelectExpression.
// Encoders reject it at render time.
package expr
