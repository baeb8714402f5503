package expr

import (
	"fmt"
	"time"
)

// Value is a sealed interface for typed literal constants.
// Only the types in this file implement it.
type Value interface {
	// CloneValue returns an independent copy of the value.
	CloneValue() Value
	exprValue()
}

// Null is the SQL NULL literal.
type Null struct{}

func (Null) exprValue()          {}
func (v Null) CloneValue() Value { return v }

// Int16 is a 16-bit integer literal.
type Int16 int16

func (Int16) exprValue()          {}
func (v Int16) CloneValue() Value { return v }

// Int32 is a 32-bit integer literal.
type Int32 int32

func (Int32) exprValue()          {}
func (v Int32) CloneValue() Value { return v }

// Int64 is a 64-bit integer literal.
type Int64 int64

func (Int64) exprValue()          {}
func (v Int64) CloneValue() Value { return v }

// Double is a floating point literal.
type Double float64

func (Double) exprValue()          {}
func (v Double) CloneValue() Value { return v }

// String is a character string literal.
type String string

func (String) exprValue()          {}
func (v String) CloneValue() Value { return v }

// Bool is a boolean literal.
type Bool bool

func (Bool) exprValue()          {}
func (v Bool) CloneValue() Value { return v }

// Bytes is a byte array literal.
type Bytes []byte

func (Bytes) exprValue() {}

// CloneValue copies the underlying array.
func (v Bytes) CloneValue() Value {
	if v == nil {
		return Bytes(nil)
	}
	out := make(Bytes, len(v))
	copy(out, v)
	return out
}

// DateTime is a date-time literal.
type DateTime struct {
	Time time.Time
}

func (DateTime) exprValue()          {}
func (v DateTime) CloneValue() Value { return v }

// Geometry is a geometry literal carried as Well-Known Text.
// SRID 0 means "unspecified".
type Geometry struct {
	WKT  string
	SRID int
}

func (Geometry) exprValue()          {}
func (v Geometry) CloneValue() Value { return v }

// Envelope is an axis-aligned bounding box literal.
type Envelope struct {
	MinX, MinY float64
	MaxX, MaxY float64
	SRID       int
}

func (Envelope) exprValue()          {}
func (v Envelope) CloneValue() Value { return v }

// ValueOf converts a Go native value to a Value.
//
// Supported: nil, bool, int, int16, int32, int64, float32, float64, string,
// []byte, time.Time, and any Value (returned as a clone).
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val.CloneValue(), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int64(val), nil
	case int16:
		return Int16(val), nil
	case int32:
		return Int32(val), nil
	case int64:
		return Int64(val), nil
	case float32:
		return Double(val), nil
	case float64:
		return Double(val), nil
	case string:
		return String(val), nil
	case []byte:
		return Bytes(val).CloneValue(), nil
	case time.Time:
		return DateTime{Time: val}, nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

// Native converts a Value to the Go type a database/sql driver accepts.
// Geometry converts to its WKT; Envelope has no single native form.
func Native(v Value) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case Int16:
		return int64(val), nil
	case Int32:
		return int64(val), nil
	case Int64:
		return int64(val), nil
	case Double:
		return float64(val), nil
	case String:
		return string(val), nil
	case Bool:
		return bool(val), nil
	case Bytes:
		return []byte(val), nil
	case DateTime:
		return val.Time, nil
	case Geometry:
		return val.WKT, nil
	case Envelope:
		return nil, fmt.Errorf("envelope has no native parameter form")
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}
