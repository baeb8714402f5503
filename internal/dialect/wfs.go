package dialect

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/expr"
)

// EncodeWFSGetFeature encodes a single-source Select as WFS 2.0 GetFeature
// key-value parameters. The filter becomes CQL_FILTER; fields, ordering,
// limit and offset map to PROPERTYNAME, SORTBY, COUNT and STARTINDEX.
//
// Only plain property references may appear in fields and ORDER BY.
// DISTINCT, GROUP BY, HAVING, joins and sub-selects are rejected.
func (d *Dialect) EncodeWFSGetFeature(sel *expr.Select) (url.Values, error) {
	if d.Placeholder != Inline {
		return nil, dberr.NewUnsupportedError(d.Name, "WFS GetFeature encoding")
	}
	if err := expr.Validate(sel).Err(); err != nil {
		return nil, dberr.NewInvalidExpressionError("encode GetFeature", err.Error())
	}
	if sel.Distinct || len(sel.GroupBy) > 0 || sel.Having != nil {
		return nil, dberr.NewUnsupportedError(d.Name, "aggregation in GetFeature")
	}
	if len(sel.From) != 1 {
		return nil, dberr.NewUnsupportedError(d.Name, "GetFeature over multiple sources")
	}
	typeName, ok := sel.From[0].(*expr.DataSetName)
	if !ok {
		return nil, dberr.NewUnsupportedError(d.Name, "joins and sub-selects in GetFeature")
	}

	q := url.Values{}
	q.Set("SERVICE", "WFS")
	q.Set("VERSION", "2.0.0")
	q.Set("REQUEST", "GetFeature")
	q.Set("TYPENAMES", typeName.Name)

	if len(sel.Fields) > 0 {
		names := make([]string, len(sel.Fields))
		for i, f := range sel.Fields {
			p, ok := f.Expr.(*expr.PropertyName)
			if !ok {
				return nil, dberr.NewUnsupportedError(d.Name, "computed fields in GetFeature")
			}
			names[i] = p.Name
		}
		q.Set("PROPERTYNAME", strings.Join(names, ","))
	}

	if sel.Where != nil {
		filter, _, err := d.RenderExpression(sel.Where, Options{})
		if err != nil {
			return nil, err
		}
		q.Set("CQL_FILTER", filter)
	}

	if len(sel.OrderBy) > 0 {
		keys := make([]string, len(sel.OrderBy))
		for i, o := range sel.OrderBy {
			p, ok := o.Expr.(*expr.PropertyName)
			if !ok {
				return nil, dberr.NewUnsupportedError(d.Name, "computed sort keys in GetFeature")
			}
			dir := " ASC"
			if o.Descending {
				dir = " DESC"
			}
			keys[i] = p.Name + dir
		}
		q.Set("SORTBY", strings.Join(keys, ","))
	}

	if sel.Limit > 0 {
		q.Set("COUNT", strconv.FormatInt(sel.Limit, 10))
	}
	if sel.Offset > 0 {
		q.Set("STARTINDEX", strconv.FormatInt(sel.Offset, 10))
	}
	return q, nil
}
