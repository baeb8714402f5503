package sqlbackend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/roach88/dacore/internal/expr"
	"github.com/roach88/dacore/internal/schema"
)

func TestDataTypeOf(t *testing.T) {
	tests := map[string]schema.DataType{
		"INTEGER":                      schema.Int32,
		"bigint":                       schema.Int64,
		"int2":                         schema.Int16,
		"VARCHAR(80)":                  schema.String,
		"character varying":            schema.String,
		"double precision":             schema.Double,
		"REAL":                         schema.Float,
		"NUMERIC(10,2)":                schema.Numeric,
		"bytea":                        schema.ByteArray,
		"BLOB":                         schema.ByteArray,
		"timestamp with time zone":     schema.DateTime,
		"GEOMETRY":                     schema.Geometry,
		"MultiPolygon":                 schema.Geometry,
		"boolean":                      schema.Boolean,
		"INTEGER[]":                    schema.Array,
		"_int4":                        schema.Array,
		"":                             schema.Unknown,
		"STRUCT(a INTEGER, b VARCHAR)": schema.Unknown,
	}
	for native, want := range tests {
		assert.Equal(t, want, DataTypeOf(native), native)
	}
}

func TestToInt64(t *testing.T) {
	for _, v := range []any{int64(7), int32(7), int(7), uint16(7), float64(7), []byte("7"), "7"} {
		n, err := toInt64(v)
		require.NoError(t, err, "%T", v)
		assert.EqualValues(t, 7, n)
	}
	_, err := toInt64(7.5)
	assert.ErrorContains(t, err, "not integral")
	_, err = toInt64(uint64(1 << 63))
	assert.ErrorContains(t, err, "overflows")
	_, err = toInt64(time.Now())
	assert.Error(t, err)
}

func TestToTime(t *testing.T) {
	want := time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{"2024-05-17T12:30:00Z", "2024-05-17 12:30:00"} {
		got, err := toTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}
	d, err := toTime([]byte("2024-05-17"))
	require.NoError(t, err)
	assert.Equal(t, 17, d.Day())

	_, err = toTime("yesterday")
	assert.Error(t, err)
}

func TestToText_Decoder(t *testing.T) {
	dec := charmap.ISO8859_1.NewDecoder()
	s, err := toText([]byte{'T', 'r', 'o', 'm', 's', 0xF8}, dec)
	require.NoError(t, err)
	assert.Equal(t, "Tromsø", s)

	s, err = toText(2.5, nil)
	require.NoError(t, err)
	assert.Equal(t, "2.5", s)
}

func TestToGeometry(t *testing.T) {
	g, err := toGeometry("SRID=4326;POINT(1 2)")
	require.NoError(t, err)
	assert.Equal(t, expr.Geometry{WKT: "POINT(1 2)", SRID: 4326}, g)

	g, err = toGeometry([]byte("MULTIPOLYGON(((0 0,1 0,1 1,0 0)))"))
	require.NoError(t, err)
	assert.Zero(t, g.SRID)

	_, err = toGeometry([]byte{0x01, 0x01, 0x00, 0x00})
	assert.ErrorContains(t, err, "ST_AsText")
}

func TestToValue(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		dt   schema.DataType
		want expr.Value
	}{
		{"null", nil, schema.Int64, expr.Null{}},
		{"int64", int64(3), schema.Int64, expr.Int64(3)},
		{"int16 column", int64(3), schema.Int16, expr.Int16(3)},
		{"int32 column", int64(3), schema.Int32, expr.Int32(3)},
		{"bool from int", int64(1), schema.Boolean, expr.Bool(true)},
		{"double", 2.5, schema.Double, expr.Double(2.5)},
		{"string", "x", schema.String, expr.String("x")},
		{"text bytes", []byte("x"), schema.String, expr.String("x")},
		{"blob", []byte{1, 2}, schema.ByteArray, expr.Bytes{1, 2}},
		{"geometry", "POINT(1 2)", schema.Geometry, expr.Geometry{WKT: "POINT(1 2)"}},
		{"untyped int32", int32(9), schema.Unknown, expr.Int64(9)},
		{"datetime text", "2024-05-17", schema.DateTime, expr.DateTime{Time: time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := toValue(tc.raw, tc.dt, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIndexColumns(t *testing.T) {
	assert.Equal(t, []string{"name", "population"},
		IndexColumns(`CREATE INDEX idx ON cities USING btree (name, "population")`))
	assert.Equal(t, []string{"geom"}, IndexColumns(`CREATE INDEX idx ON cities USING RTREE (geom);`))
	assert.Nil(t, IndexColumns("no columns"))
}
