package sqlbackend

import (
	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/dialect"
	"github.com/roach88/dacore/internal/expr"
)

var (
	topologic = []string{
		expr.FuncSTContains, expr.FuncSTCrosses, expr.FuncSTDisjoint, expr.FuncSTEquals,
		expr.FuncSTIntersects, expr.FuncSTOverlaps, expr.FuncSTRelate, expr.FuncSTTouches,
		expr.FuncSTWithin,
	}
	metric = []string{expr.FuncSTBeyond, expr.FuncSTDWithin}
)

// QueryVocabulary returns the query capabilities of a SQL dialect: every
// statement kind plus the operators and functions its catalog encodes.
// Spatial names are listed only when the backend catalog has them.
func QueryVocabulary(d *dialect.Dialect) capability.QueryCapabilities {
	q := capability.QueryCapabilities{
		SQLDialect: true,
		Select:     true,
		Insert:     true,
		Update:     true,
		Delete:     true,
		Create:     true,
		Drop:       true,
		Alter:      true,
	}
	for op := expr.OpAdd; op.Valid(); op++ {
		switch {
		case op.IsComparison():
			q.ComparisonOperators = append(q.ComparisonOperators, op.String())
		case op.IsLogical():
			q.LogicalOperators = append(q.LogicalOperators, op.String())
		case op.IsArithmetic():
			q.ArithmeticOperators = append(q.ArithmeticOperators, op.String())
		}
	}

	cat, ok := d.Functions.Catalog(d.Name)
	if !ok {
		return q
	}
	for _, name := range topologic {
		if _, ok := cat.Lookup(name); ok {
			q.SpatialTopologicOperators = append(q.SpatialTopologicOperators, name)
		}
	}
	for _, name := range metric {
		if _, ok := cat.Lookup(name); ok {
			q.SpatialMetricOperators = append(q.SpatialMetricOperators, name)
		}
	}
	q.Functions = cat.Names()
	if d.GenericFallback {
		q.Functions = append(q.Functions, d.Functions.Generic().Names()...)
	}
	q.GeometryOperands = []string{"Point", "LineString", "Polygon", "MultiPoint", "MultiLineString", "MultiPolygon", "Envelope"}
	return q
}
