package sqlparse

import (
	"strings"

	"github.com/roach88/dacore/internal/expr"
)

var spatialNames = []string{
	expr.FuncSTContains,
	expr.FuncSTIntersects,
	expr.FuncSTWithin,
	expr.FuncSTCrosses,
	expr.FuncSTTouches,
	expr.FuncSTOverlaps,
	expr.FuncSTDisjoint,
	expr.FuncSTEquals,
	expr.FuncSTBeyond,
	expr.FuncSTDWithin,
	expr.FuncSTRelate,
	expr.FuncSTTransform,
}

// canonical spells well-known spatial functions the way the catalogs
// register them; other names pass through.
func canonical(name string) string {
	for _, n := range spatialNames {
		if strings.EqualFold(n, name) {
			return n
		}
	}
	return name
}

var (
	geometryConstructors = []string{"ST_GeomFromText", "ST_GeometryFromText", "GeomFromText"}
	envelopeConstructors = []string{"ST_MakeEnvelope", "BuildMbr"}
)

func isOneOf(name string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// constructor folds a geometry or envelope constructor with literal
// arguments into a literal.
func constructor(name string, args []expr.Expression) (expr.Expression, bool) {
	switch {
	case isOneOf(name, geometryConstructors):
		if len(args) < 1 || len(args) > 2 {
			return nil, false
		}
		wkt, ok := literal(args[0]).(expr.String)
		if !ok {
			return nil, false
		}
		g := expr.Geometry{WKT: string(wkt)}
		if len(args) == 2 {
			srid, ok := literal(args[1]).(expr.Int64)
			if !ok {
				return nil, false
			}
			g.SRID = int(srid)
		}
		return expr.NewLiteral(g), true

	case isOneOf(name, envelopeConstructors):
		if len(args) < 4 || len(args) > 5 {
			return nil, false
		}
		var coords [4]float64
		for i := range coords {
			f, ok := number(args[i])
			if !ok {
				return nil, false
			}
			coords[i] = f
		}
		env := expr.Envelope{MinX: coords[0], MinY: coords[1], MaxX: coords[2], MaxY: coords[3]}
		if len(args) == 5 {
			srid, ok := literal(args[4]).(expr.Int64)
			if !ok {
				return nil, false
			}
			env.SRID = int(srid)
		}
		return expr.NewLiteral(env), true
	}
	return nil, false
}

func literal(e expr.Expression) expr.Value {
	if lit, ok := e.(*expr.Literal); ok {
		return lit.Value
	}
	return nil
}

func number(e expr.Expression) (float64, bool) {
	switch v := literal(e).(type) {
	case expr.Int64:
		return float64(v), true
	case expr.Double:
		return float64(v), true
	default:
		return 0, false
	}
}
