package sqlbackend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"

	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

// DataTypeOf maps a native column type name, as reported by
// sql.ColumnType.DatabaseTypeName or information_schema, to a property
// type. Unrecognized names map to schema.Unknown.
func DataTypeOf(native string) schema.DataType {
	t := strings.ToUpper(strings.TrimSpace(native))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "BOOL", "BOOLEAN":
		return schema.Boolean
	case "SMALLINT", "INT2", "INT16", "SMALLSERIAL", "TINYINT", "UTINYINT":
		return schema.Int16
	case "INT", "INT4", "INT32", "INTEGER", "SERIAL", "MEDIUMINT", "USMALLINT":
		return schema.Int32
	case "BIGINT", "INT8", "INT64", "BIGSERIAL", "UINTEGER", "LONG":
		return schema.Int64
	case "REAL", "FLOAT4", "FLOAT":
		return schema.Float
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT8":
		return schema.Double
	case "NUMERIC", "DECIMAL":
		return schema.Numeric
	case "TEXT", "VARCHAR", "CHAR", "CHARACTER", "CHARACTER VARYING", "BPCHAR", "NAME", "STRING", "CLOB", "UUID":
		return schema.String
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return schema.ByteArray
	case "DATE", "TIME", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ",
		"TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS":
		return schema.DateTime
	case "GEOMETRY", "GEOGRAPHY", "POINT", "LINESTRING", "POLYGON",
		"MULTIPOINT", "MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION":
		return schema.Geometry
	}
	if strings.HasSuffix(t, "[]") || strings.HasPrefix(t, "_") {
		return schema.Array
	}
	return schema.Unknown
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not integral", n)
		}
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case []byte:
		return strconv.ParseFloat(string(n), 64)
	case string:
		return strconv.ParseFloat(n, 64)
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to double", v)
	}
	return float64(i), nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case []byte:
		return strconv.ParseBool(string(b))
	case string:
		return strconv.ParseBool(b)
	}
	i, err := toInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
	return i != 0, nil
}

// timeLayouts are tried in order when a backend returns dates as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func toTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to date-time", v)
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as date-time", s)
}

// toText converts v to a string, decoding byte and string values with dec
// when the connection declares a client encoding.
func toText(v any, dec *encoding.Decoder) (string, error) {
	switch s := v.(type) {
	case string:
		if dec != nil {
			return dec.String(s)
		}
		return s, nil
	case []byte:
		if dec != nil {
			b, err := dec.Bytes(s)
			return string(b), err
		}
		return string(s), nil
	case time.Time:
		return s.UTC().Format(time.RFC3339Nano), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// looksLikeWKT reports whether s starts with a WKT geometry tag, possibly
// preceded by an EWKT SRID prefix.
func looksLikeWKT(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if strings.HasPrefix(s, "SRID=") {
		if i := strings.IndexByte(s, ';'); i > 0 {
			s = s[i+1:]
		}
	}
	for _, tag := range []string{"POINT", "LINESTRING", "POLYGON", "MULTI", "GEOMETRYCOLLECTION"} {
		if strings.HasPrefix(s, tag) {
			return true
		}
	}
	return false
}

// toGeometry reads a geometry carried as WKT or EWKT text.
func toGeometry(v any) (expr.Geometry, error) {
	var s string
	switch g := v.(type) {
	case string:
		s = g
	case []byte:
		s = string(g)
	default:
		return expr.Geometry{}, fmt.Errorf("cannot convert %T to geometry", v)
	}
	if !looksLikeWKT(s) {
		return expr.Geometry{}, fmt.Errorf("geometry value is not WKT text; select it through ST_AsText")
	}
	s = strings.TrimSpace(s)
	var srid int
	if len(s) > 5 && strings.EqualFold(s[:5], "SRID=") {
		i := strings.IndexByte(s, ';')
		n, err := strconv.Atoi(s[5:i])
		if err != nil {
			return expr.Geometry{}, fmt.Errorf("bad EWKT SRID prefix %q", s[:i])
		}
		srid, s = n, s[i+1:]
	}
	return expr.Geometry{WKT: s, SRID: srid}, nil
}

// toValue wraps a scanned native value as an expression value, guided by
// the column's property type.
func toValue(v any, dt schema.DataType, dec *encoding.Decoder) (expr.Value, error) {
	if v == nil {
		return expr.Null{}, nil
	}
	switch dt {
	case schema.Geometry:
		if g, err := toGeometry(v); err == nil {
			return g, nil
		}
	case schema.Boolean:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		return expr.Bool(b), nil
	case schema.Int16:
		i, err := toInt64(v)
		if err == nil && i >= math.MinInt16 && i <= math.MaxInt16 {
			return expr.Int16(i), nil
		}
	case schema.Int32:
		i, err := toInt64(v)
		if err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
			return expr.Int32(i), nil
		}
	case schema.DateTime:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return expr.DateTime{Time: t}, nil
	}

	switch n := v.(type) {
	case string:
		s, err := toText(n, dec)
		if err != nil {
			return nil, err
		}
		return expr.String(s), nil
	case []byte:
		if dt == schema.String {
			s, err := toText(n, dec)
			if err != nil {
				return nil, err
			}
			return expr.String(s), nil
		}
		return expr.Bytes(n).CloneValue(), nil
	case int8, int16, int32, int, uint8, uint16, uint32, uint64:
		i, err := toInt64(n)
		if err != nil {
			return nil, err
		}
		return expr.Int64(i), nil
	case float32:
		return expr.Double(n), nil
	}
	return expr.ValueOf(v)
}
