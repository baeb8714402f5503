package capability

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/schema"
)

// boolFields returns the path and value of every bool field reachable from v.
func boolFields(prefix string, v reflect.Value) map[string]bool {
	out := map[string]bool{}
	switch v.Kind() {
	case reflect.Bool:
		out[prefix] = v.Bool()
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			name := prefix + "." + v.Type().Field(i).Name
			for k, b := range boolFields(name, v.Field(i)) {
				out[k] = b
			}
		}
	}
	return out
}

func TestSetSupportAll_EveryFlagTrue(t *testing.T) {
	var c DataSourceCapabilities
	c.SetSupportAll()

	flags := boolFields("caps", reflect.ValueOf(c))
	require.NotEmpty(t, flags)
	for name, v := range flags {
		assert.True(t, v, "%s should be true after SetSupportAll", name)
	}
	assert.Equal(t, ReadWrite, c.AccessPolicy)
}

func TestSetSupportAll_FlagCount(t *testing.T) {
	// Guards against a new flag being added without SetSupportAll support.
	var zero DataSourceCapabilities
	flags := boolFields("caps", reflect.ValueOf(zero))
	assert.Len(t, flags, 5+14+10+9+9)
}

func TestDataTypeCapabilities_SupportsEveryType(t *testing.T) {
	var c DataTypeCapabilities
	c.SetSupportAll()
	for _, dt := range schema.AllDataTypes() {
		assert.True(t, c.Supports(dt), dt.String())
	}
	assert.False(t, c.Supports(schema.Unknown))
}

func TestDataTypeCapabilities_Hint(t *testing.T) {
	c := DataTypeCapabilities{
		String: true,
		Hints:  map[schema.DataType]schema.DataType{schema.DateTime: schema.String},
	}

	got, ok := c.Hint(schema.String)
	assert.True(t, ok)
	assert.Equal(t, schema.String, got)

	got, ok = c.Hint(schema.DateTime)
	assert.True(t, ok)
	assert.Equal(t, schema.String, got)

	_, ok = c.Hint(schema.Geometry)
	assert.False(t, ok)
}

func TestSupportsIndex_RequiresGenericIndexFlag(t *testing.T) {
	c := DataSetTypeCapabilities{RTreeIndex: true}
	assert.False(t, c.SupportsIndex(schema.RTreeIndex))

	c.Index = true
	assert.True(t, c.SupportsIndex(schema.RTreeIndex))
	assert.False(t, c.SupportsIndex(schema.BTreeIndex))
}

func TestClone_Independent(t *testing.T) {
	orig := DataSourceCapabilities{
		Specific:  map[string]string{"version": "3"},
		Encodings: []string{"UTF-8"},
		Query:     QueryCapabilities{Functions: []string{"UPPER"}},
		DataType:  DataTypeCapabilities{Hints: map[schema.DataType]schema.DataType{schema.Int16: schema.Int64}},
	}

	c := orig.Clone()
	c.Specific["version"] = "4"
	c.Encodings[0] = "ISO-8859-1"
	c.Query.Functions[0] = "LOWER"
	c.DataType.Hints[schema.Int16] = schema.Int32
	c.Transactions = true

	assert.Equal(t, "3", orig.Specific["version"])
	assert.Equal(t, "UTF-8", orig.Encodings[0])
	assert.Equal(t, "UPPER", orig.Query.Functions[0])
	assert.Equal(t, schema.Int64, orig.DataType.Hints[schema.Int16])
	assert.False(t, orig.Transactions)
}

func TestRequire(t *testing.T) {
	c := DataSourceCapabilities{Transactions: true}

	assert.NoError(t, c.Require("SQLITE", FeatureTransactions))

	err := c.Require("SQLITE", FeatureTransactions, FeaturePreparedQuery)
	require.Error(t, err)
	assert.True(t, dberr.IsUnsupportedError(err))
	assert.Contains(t, err.Error(), "prepared queries")

	// Deterministic across repeated calls.
	assert.Equal(t, err.Error(), c.Require("SQLITE", FeaturePreparedQuery).Error())
}

func TestRequireIndexAndDataType(t *testing.T) {
	var c DataSourceCapabilities
	c.DataSetType.Index = true
	c.DataSetType.BTreeIndex = true
	c.DataType.String = true

	assert.NoError(t, c.RequireIndex("X", schema.BTreeIndex))
	err := c.RequireIndex("X", schema.RTreeIndex)
	assert.True(t, dberr.IsUnsupportedError(err))
	assert.Contains(t, err.Error(), "RTREE index")

	assert.NoError(t, c.RequireDataType("X", schema.String))
	assert.True(t, dberr.IsUnsupportedError(c.RequireDataType("X", schema.Geometry)))
}

func TestSupports_AllFeaturesAfterSupportAll(t *testing.T) {
	var c DataSourceCapabilities
	c.SetSupportAll()

	features := []Feature{
		FeatureTransactions, FeatureDataSetPersistence, FeatureDataSetTypePersistence,
		FeaturePreparedQuery, FeatureBatchExecutor, FeatureRead, FeatureWrite,
		FeatureSelect, FeatureInsert, FeatureUpdate, FeatureDelete, FeatureCreate,
		FeatureDrop, FeaturePrimaryKey, FeatureUniqueKey, FeatureForeignKey,
		FeatureSequence, FeatureCheckConstraint, FeatureBidirectional,
	}
	for _, f := range features {
		assert.True(t, c.Supports(f), string(f))
	}
	assert.False(t, c.Supports(Feature("teleportation")))
}

func TestAccessPolicy(t *testing.T) {
	assert.True(t, ReadOnly.CanRead())
	assert.False(t, ReadOnly.CanWrite())
	assert.True(t, WriteOnly.CanWrite())
	assert.False(t, NoAccess.CanRead())

	var a AccessPolicy
	require.NoError(t, a.UnmarshalText([]byte("write_only")))
	assert.Equal(t, WriteOnly, a)
	assert.Error(t, a.UnmarshalText([]byte("sometimes")))
}

func TestSupportsEncoding(t *testing.T) {
	c := DataSourceCapabilities{Encodings: []string{"UTF-8"}}
	assert.True(t, c.SupportsEncoding("utf-8"))
	assert.False(t, c.SupportsEncoding("ISO-8859-1"))
}

func TestLoadProfiles(t *testing.T) {
	doc := `
sqlite:
  access_policy: read_write
  transactions: true
  dataset_type:
    primary_key: true
    index: true
    btree_index: true
  query:
    select: true
    functions: [UPPER, LOWER]
  specific:
    extension: none
  encodings: [UTF-8, utf-8]
wfs:
  access_policy: read_only
`
	profiles, err := LoadProfiles(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	sqlite := profiles["SQLITE"]
	assert.Equal(t, ReadWrite, sqlite.AccessPolicy)
	assert.True(t, sqlite.Transactions)
	assert.True(t, sqlite.DataSetType.SupportsIndex(schema.BTreeIndex))
	assert.False(t, sqlite.DataSetType.ForeignKey)
	assert.Equal(t, []string{"UPPER", "LOWER"}, sqlite.Query.Functions)
	assert.Equal(t, "none", sqlite.Specific["extension"])
	assert.Equal(t, []string{"UTF-8"}, sqlite.Encodings)

	assert.Equal(t, ReadOnly, profiles["WFS"].AccessPolicy)
}

func TestLoadProfiles_Empty(t *testing.T) {
	profiles, err := LoadProfiles(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestLoadProfiles_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"misspelled flag", "sqlite:\n  transaction: true\n"},
		{"wrong type", "sqlite:\n  transactions: yes please\n"},
		{"bad access policy", "sqlite:\n  access_policy: sometimes\n"},
		{"nested unknown flag", "sqlite:\n  dataset_type:\n    gist_index: true\n"},
		{"unknown encoding", "sqlite:\n  encodings: [KLINGON-8]\n"},
		{"invalid yaml", "sqlite: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadProfiles(strings.NewReader(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestCanonicalEncodings(t *testing.T) {
	got, err := CanonicalEncodings([]string{"latin1", "UTF-8"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ISO-8859-1", "UTF-8"}, got)

	got, err = CanonicalEncodings(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
