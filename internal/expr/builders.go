package expr

// Spatial function names. Dialects key their function catalogs on these.
const (
	FuncSTContains   = "ST_Contains"
	FuncSTIntersects = "ST_Intersects"
	FuncSTWithin     = "ST_Within"
	FuncSTCrosses    = "ST_Crosses"
	FuncSTTouches    = "ST_Touches"
	FuncSTOverlaps   = "ST_Overlaps"
	FuncSTDisjoint   = "ST_Disjoint"
	FuncSTEquals     = "ST_Equals"
	FuncSTBeyond     = "ST_Beyond"
	FuncSTDWithin    = "ST_DWithin"
	FuncSTRelate     = "ST_Relate"
	FuncSTTransform  = "ST_Transform"
)

// spatialArity is the argument count of each well-known spatial function.
var spatialArity = map[string]int{
	FuncSTContains:   2,
	FuncSTIntersects: 2,
	FuncSTWithin:     2,
	FuncSTCrosses:    2,
	FuncSTTouches:    2,
	FuncSTOverlaps:   2,
	FuncSTDisjoint:   2,
	FuncSTEquals:     2,
	FuncSTBeyond:     3,
	FuncSTDWithin:    3,
	FuncSTRelate:     3,
	FuncSTTransform:  2,
}

// SpatialArity returns the expected argument count of a well-known spatial
// function, or false if name is not one.
func SpatialArity(name string) (int, bool) {
	n, ok := spatialArity[name]
	return n, ok
}

func Add(l, r Expression) *BinaryOp  { return NewBinaryOp(OpAdd, l, r) }
func Sub(l, r Expression) *BinaryOp  { return NewBinaryOp(OpSub, l, r) }
func Mul(l, r Expression) *BinaryOp  { return NewBinaryOp(OpMul, l, r) }
func Div(l, r Expression) *BinaryOp  { return NewBinaryOp(OpDiv, l, r) }
func And(l, r Expression) *BinaryOp  { return NewBinaryOp(OpAnd, l, r) }
func Or(l, r Expression) *BinaryOp   { return NewBinaryOp(OpOr, l, r) }
func Eq(l, r Expression) *BinaryOp   { return NewBinaryOp(OpEqualTo, l, r) }
func Ne(l, r Expression) *BinaryOp   { return NewBinaryOp(OpNotEqualTo, l, r) }
func Lt(l, r Expression) *BinaryOp   { return NewBinaryOp(OpLessThan, l, r) }
func Gt(l, r Expression) *BinaryOp   { return NewBinaryOp(OpGreaterThan, l, r) }
func Le(l, r Expression) *BinaryOp   { return NewBinaryOp(OpLessThanOrEqualTo, l, r) }
func Ge(l, r Expression) *BinaryOp   { return NewBinaryOp(OpGreaterThanOrEqualTo, l, r) }
func Like(l, r Expression) *BinaryOp { return NewBinaryOp(OpLike, l, r) }

func Not(e Expression) *UnaryOp       { return NewUnaryOp(OpNot, e) }
func Neg(e Expression) *UnaryOp       { return NewUnaryOp(OpNegate, e) }
func IsNull(e Expression) *UnaryOp    { return NewUnaryOp(OpIsNull, e) }
func IsNotNull(e Expression) *UnaryOp { return NewUnaryOp(OpIsNotNull, e) }

// AllOf folds exprs into a left-deep AND chain.
// Returns nil for no arguments and the sole argument for one.
func AllOf(exprs ...Expression) Expression {
	return fold(OpAnd, exprs)
}

// AnyOf folds exprs into a left-deep OR chain.
func AnyOf(exprs ...Expression) Expression {
	return fold(OpOr, exprs)
}

func fold(op Operator, exprs []Expression) Expression {
	var acc Expression
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if acc == nil {
			acc = e
			continue
		}
		acc = NewBinaryOp(op, acc, e)
	}
	return acc
}

func STContains(a, b Expression) *Function   { return Func(FuncSTContains, a, b) }
func STIntersects(a, b Expression) *Function { return Func(FuncSTIntersects, a, b) }
func STWithin(a, b Expression) *Function     { return Func(FuncSTWithin, a, b) }
func STCrosses(a, b Expression) *Function    { return Func(FuncSTCrosses, a, b) }
func STTouches(a, b Expression) *Function    { return Func(FuncSTTouches, a, b) }
func STOverlaps(a, b Expression) *Function   { return Func(FuncSTOverlaps, a, b) }
func STDisjoint(a, b Expression) *Function   { return Func(FuncSTDisjoint, a, b) }
func STEquals(a, b Expression) *Function     { return Func(FuncSTEquals, a, b) }

// STBeyond is true when a and b are farther apart than distance.
func STBeyond(a, b, distance Expression) *Function { return Func(FuncSTBeyond, a, b, distance) }

// STDWithin is true when a and b are within distance of each other.
func STDWithin(a, b, distance Expression) *Function { return Func(FuncSTDWithin, a, b, distance) }

// STRelate tests a and b against a DE-9IM intersection pattern.
func STRelate(a, b, pattern Expression) *Function { return Func(FuncSTRelate, a, b, pattern) }

// STTransform reprojects g to the SRID given by srid.
func STTransform(g, srid Expression) *Function { return Func(FuncSTTransform, g, srid) }
