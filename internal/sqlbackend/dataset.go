package sqlbackend

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/encoding"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

// dataSet is a cursor over query results. Forward-only sets stream from
// the open rows; bidirectional sets read every row up front and release
// the rows immediately. On a single-connection source forward-only sets
// are read up front too, since open rows would hold the only connection.
type dataSet struct {
	backend  string
	names    []string
	types    []schema.DataType
	traverse datasource.TraverseType
	access   capability.AccessPolicy
	decoder  *encoding.Decoder

	rows *sql.Rows // streaming only
	buf  [][]any   // buffered only

	pos    int // -1 before first; len(buf) after last
	cur    []any
	err    error
	closed bool
}

var _ datasource.DataSet = (*dataSet)(nil)

func newDataSet(ds *DataSource, rows *sql.Rows, opts datasource.QueryOptions) (*dataSet, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, dberr.NewQueryError(ds.typ, "columns", err)
	}
	set := &dataSet{
		backend:  ds.typ,
		names:    make([]string, len(cols)),
		types:    make([]schema.DataType, len(cols)),
		traverse: opts.Traverse,
		access:   opts.Access,
		decoder:  ds.decoder,
		pos:      -1,
	}
	if set.access == capability.NoAccess {
		set.access = capability.ReadOnly
	}
	for i, c := range cols {
		set.names[i] = c.Name()
		set.types[i] = ds.typeOf(c.DatabaseTypeName())
	}

	if opts.Traverse == datasource.ForwardOnly && ds.maxConns != 1 {
		set.rows = rows
		return set, nil
	}

	defer rows.Close()
	for rows.Next() {
		row, err := scanRow(rows, len(cols))
		if err != nil {
			return nil, dberr.NewQueryError(ds.typ, "fetch", err)
		}
		set.buf = append(set.buf, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewQueryError(ds.typ, "fetch", err)
	}
	return set, nil
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	// Drivers may reuse byte buffers between rows.
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = append([]byte(nil), b...)
		}
	}
	return vals, nil
}

func (s *dataSet) TraverseType() datasource.TraverseType  { return s.traverse }
func (s *dataSet) AccessPolicy() capability.AccessPolicy  { return s.access }
func (s *dataSet) NumProperties() int                     { return len(s.names) }
func (s *dataSet) Err() error                             { return s.err }
func (s *dataSet) PropertyName(i int) string              { return s.names[i] }
func (s *dataSet) PropertyDataType(i int) schema.DataType { return s.types[i] }

func (s *dataSet) forwardOnly() bool { return s.traverse == datasource.ForwardOnly }

func (s *dataSet) unsupported(op string) error {
	return dberr.NewUnsupportedError(s.backend, op+" on a forward-only data set")
}

func (s *dataSet) MoveNext() bool {
	if s.closed || s.err != nil {
		return false
	}
	if s.rows == nil {
		if s.pos < len(s.buf) {
			s.pos++
		}
		return s.settle()
	}

	if !s.rows.Next() {
		s.cur = nil
		if err := s.rows.Err(); err != nil {
			s.err = dberr.NewQueryError(s.backend, "fetch", err)
		}
		return false
	}
	row, err := scanRow(s.rows, len(s.names))
	if err != nil {
		s.err = dberr.NewQueryError(s.backend, "fetch", err)
		s.cur = nil
		return false
	}
	s.pos++
	s.cur = row
	return true
}

// settle sets the current row from pos in a buffered set.
func (s *dataSet) settle() bool {
	if s.pos < 0 || s.pos >= len(s.buf) {
		s.cur = nil
		return false
	}
	s.cur = s.buf[s.pos]
	return true
}

func (s *dataSet) MovePrevious() bool {
	if s.closed {
		return false
	}
	if s.forwardOnly() {
		s.err = s.unsupported("move previous")
		return false
	}
	if s.pos >= 0 {
		s.pos--
	}
	return s.settle()
}

func (s *dataSet) MoveBeforeFirst() error {
	if s.forwardOnly() {
		if s.pos == -1 {
			return nil
		}
		return s.unsupported("move before first")
	}
	s.pos = -1
	s.cur = nil
	return nil
}

func (s *dataSet) MoveFirst() bool {
	if err := s.MoveBeforeFirst(); err != nil {
		s.err = err
		return false
	}
	return s.MoveNext()
}

func (s *dataSet) Size() (int, error) {
	if s.forwardOnly() {
		return 0, s.unsupported("size")
	}
	return len(s.buf), nil
}

func (s *dataSet) value(i int) (any, error) {
	if s.cur == nil {
		return nil, fmt.Errorf("data set has no current row")
	}
	if i < 0 || i >= len(s.cur) {
		return nil, fmt.Errorf("property index %d out of range [0, %d)", i, len(s.cur))
	}
	return s.cur[i], nil
}

// get reads column i, refusing NULL for typed getters.
func (s *dataSet) get(i int) (any, error) {
	v, err := s.value(i)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("property %q is null", s.names[i])
	}
	return v, nil
}

func (s *dataSet) IsNull(i int) bool {
	v, err := s.value(i)
	return err == nil && v == nil
}

func (s *dataSet) intIn(i int, lo, hi int64) (int64, error) {
	v, err := s.get(i)
	if err != nil {
		return 0, err
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", s.names[i], err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("property %q: value %d out of range", s.names[i], n)
	}
	return n, nil
}

func (s *dataSet) Int16(i int) (int16, error) {
	n, err := s.intIn(i, math.MinInt16, math.MaxInt16)
	return int16(n), err
}

func (s *dataSet) Int32(i int) (int32, error) {
	n, err := s.intIn(i, math.MinInt32, math.MaxInt32)
	return int32(n), err
}

func (s *dataSet) Int64(i int) (int64, error) {
	return s.intIn(i, math.MinInt64, math.MaxInt64)
}

func (s *dataSet) Double(i int) (float64, error) {
	v, err := s.get(i)
	if err != nil {
		return 0, err
	}
	return toFloat64(v)
}

func (s *dataSet) String(i int) (string, error) {
	v, err := s.get(i)
	if err != nil {
		return "", err
	}
	return toText(v, s.decoder)
}

func (s *dataSet) Bool(i int) (bool, error) {
	v, err := s.get(i)
	if err != nil {
		return false, err
	}
	return toBool(v)
}

func (s *dataSet) ByteArray(i int) ([]byte, error) {
	v, err := s.get(i)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("property %q: cannot convert %T to bytes", s.names[i], v)
	}
}

func (s *dataSet) DateTime(i int) (time.Time, error) {
	v, err := s.get(i)
	if err != nil {
		return time.Time{}, err
	}
	return toTime(v)
}

func (s *dataSet) Geometry(i int) (expr.Geometry, error) {
	v, err := s.get(i)
	if err != nil {
		return expr.Geometry{}, err
	}
	return toGeometry(v)
}

func (s *dataSet) Value(i int) (expr.Value, error) {
	v, err := s.value(i)
	if err != nil {
		return nil, err
	}
	return toValue(v, s.types[i], s.decoder)
}

func (s *dataSet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cur = nil
	s.buf = nil
	if s.rows != nil {
		return s.rows.Close()
	}
	return nil
}
