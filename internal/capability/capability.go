// Package capability describes what a backend supports.
//
// A DataSourceCapabilities value is published once per driver type at
// registration and queried by callers before issuing operations the backend
// may not support (transactions, prepared queries, a given index type...).
// Published values are never mutated: the registry hands out clones.
package capability

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/schema"
)

// AccessPolicy is the kind of access a data source grants.
type AccessPolicy int

const (
	NoAccess AccessPolicy = iota
	ReadOnly
	WriteOnly
	ReadWrite
)

var accessPolicyNames = []string{
	NoAccess:  "no_access",
	ReadOnly:  "read_only",
	WriteOnly: "write_only",
	ReadWrite: "read_write",
}

// String returns the snake_case policy name.
func (a AccessPolicy) String() string {
	if a >= 0 && int(a) < len(accessPolicyNames) {
		return accessPolicyNames[a]
	}
	return fmt.Sprintf("AccessPolicy(%d)", int(a))
}

// CanRead reports whether reads are allowed.
func (a AccessPolicy) CanRead() bool { return a == ReadOnly || a == ReadWrite }

// CanWrite reports whether writes are allowed.
func (a AccessPolicy) CanWrite() bool { return a == WriteOnly || a == ReadWrite }

// MarshalText implements encoding.TextMarshaler.
func (a AccessPolicy) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccessPolicy) UnmarshalText(b []byte) error {
	for i, n := range accessPolicyNames {
		if n == string(b) {
			*a = AccessPolicy(i)
			return nil
		}
	}
	return fmt.Errorf("unknown access policy %q", string(b))
}

// DataTypeCapabilities lists the property types a backend can store.
type DataTypeCapabilities struct {
	Boolean   bool `yaml:"boolean" json:"boolean"`
	Int16     bool `yaml:"int16" json:"int16"`
	Int32     bool `yaml:"int32" json:"int32"`
	Int64     bool `yaml:"int64" json:"int64"`
	Float     bool `yaml:"float" json:"float"`
	Double    bool `yaml:"double" json:"double"`
	Numeric   bool `yaml:"numeric" json:"numeric"`
	String    bool `yaml:"string" json:"string"`
	ByteArray bool `yaml:"byte_array" json:"byte_array"`
	DateTime  bool `yaml:"datetime" json:"datetime"`
	Geometry  bool `yaml:"geometry" json:"geometry"`
	Raster    bool `yaml:"raster" json:"raster"`
	Array     bool `yaml:"array" json:"array"`
	Composite bool `yaml:"composite" json:"composite"`

	// Hints maps an unsupported type to the type the backend stores it as.
	Hints map[schema.DataType]schema.DataType `yaml:"-" json:"hints,omitempty"`
}

// Supports reports whether dt can be stored natively.
func (c DataTypeCapabilities) Supports(dt schema.DataType) bool {
	switch dt {
	case schema.Boolean:
		return c.Boolean
	case schema.Int16:
		return c.Int16
	case schema.Int32:
		return c.Int32
	case schema.Int64:
		return c.Int64
	case schema.Float:
		return c.Float
	case schema.Double:
		return c.Double
	case schema.Numeric:
		return c.Numeric
	case schema.String:
		return c.String
	case schema.ByteArray:
		return c.ByteArray
	case schema.DateTime:
		return c.DateTime
	case schema.Geometry:
		return c.Geometry
	case schema.Raster:
		return c.Raster
	case schema.Array:
		return c.Array
	case schema.Composite:
		return c.Composite
	default:
		return false
	}
}

// Hint returns the storage type for dt: dt itself when supported, else the
// registered hint. ok is false when neither applies.
func (c DataTypeCapabilities) Hint(dt schema.DataType) (schema.DataType, bool) {
	if c.Supports(dt) {
		return dt, true
	}
	h, ok := c.Hints[dt]
	return h, ok
}

// DataSetTypeCapabilities lists the constraints and indexes a backend can
// create on a data set.
type DataSetTypeCapabilities struct {
	PrimaryKey      bool `yaml:"primary_key" json:"primary_key"`
	UniqueKey       bool `yaml:"unique_key" json:"unique_key"`
	ForeignKey      bool `yaml:"foreign_key" json:"foreign_key"`
	Sequence        bool `yaml:"sequence" json:"sequence"`
	CheckConstraint bool `yaml:"check_constraint" json:"check_constraint"`
	Index           bool `yaml:"index" json:"index"`
	RTreeIndex      bool `yaml:"rtree_index" json:"rtree_index"`
	BTreeIndex      bool `yaml:"btree_index" json:"btree_index"`
	HashIndex       bool `yaml:"hash_index" json:"hash_index"`
	QuadTreeIndex   bool `yaml:"quadtree_index" json:"quadtree_index"`
}

// SupportsIndex reports whether an index of type t can be created.
func (c DataSetTypeCapabilities) SupportsIndex(t schema.IndexType) bool {
	if !c.Index {
		return false
	}
	switch t {
	case schema.RTreeIndex:
		return c.RTreeIndex
	case schema.QuadTreeIndex:
		return c.QuadTreeIndex
	case schema.HashIndex:
		return c.HashIndex
	default:
		return c.BTreeIndex
	}
}

// DataSetCapabilities lists cursor features of result data sets.
type DataSetCapabilities struct {
	Bidirectional            bool `yaml:"bidirectional" json:"bidirectional"`
	RandomTraversing         bool `yaml:"random_traversing" json:"random_traversing"`
	Indexed                  bool `yaml:"indexed" json:"indexed"`
	EfficientMovePrevious    bool `yaml:"efficient_move_previous" json:"efficient_move_previous"`
	EfficientMoveBeforeFirst bool `yaml:"efficient_move_before_first" json:"efficient_move_before_first"`
	EfficientMoveLast        bool `yaml:"efficient_move_last" json:"efficient_move_last"`
	EfficientMoveAfterLast   bool `yaml:"efficient_move_after_last" json:"efficient_move_after_last"`
	EfficientMove            bool `yaml:"efficient_move" json:"efficient_move"`
	EfficientSize            bool `yaml:"efficient_size" json:"efficient_size"`
}

// QueryCapabilities lists statement kinds and query vocabulary.
type QueryCapabilities struct {
	SQLDialect bool `yaml:"sql_dialect" json:"sql_dialect"`
	Select     bool `yaml:"select" json:"select"`
	SelectInto bool `yaml:"select_into" json:"select_into"`
	Insert     bool `yaml:"insert" json:"insert"`
	Update     bool `yaml:"update" json:"update"`
	Delete     bool `yaml:"delete" json:"delete"`
	Create     bool `yaml:"create" json:"create"`
	Drop       bool `yaml:"drop" json:"drop"`
	Alter      bool `yaml:"alter" json:"alter"`

	SpatialTopologicOperators []string `yaml:"spatial_topologic_operators,omitempty" json:"spatial_topologic_operators,omitempty"`
	SpatialMetricOperators    []string `yaml:"spatial_metric_operators,omitempty" json:"spatial_metric_operators,omitempty"`
	ComparisonOperators       []string `yaml:"comparison_operators,omitempty" json:"comparison_operators,omitempty"`
	ArithmeticOperators       []string `yaml:"arithmetic_operators,omitempty" json:"arithmetic_operators,omitempty"`
	LogicalOperators          []string `yaml:"logical_operators,omitempty" json:"logical_operators,omitempty"`
	Functions                 []string `yaml:"functions,omitempty" json:"functions,omitempty"`
	GeometryOperands          []string `yaml:"geometry_operands,omitempty" json:"geometry_operands,omitempty"`
}

// DataSourceCapabilities is the full capability descriptor of a backend.
type DataSourceCapabilities struct {
	AccessPolicy              AccessPolicy `yaml:"access_policy" json:"access_policy"`
	Transactions              bool         `yaml:"transactions" json:"transactions"`
	DataSetPersistenceAPI     bool         `yaml:"dataset_persistence_api" json:"dataset_persistence_api"`
	DataSetTypePersistenceAPI bool         `yaml:"dataset_type_persistence_api" json:"dataset_type_persistence_api"`
	PreparedQueryAPI          bool         `yaml:"prepared_query_api" json:"prepared_query_api"`
	BatchExecutorAPI          bool         `yaml:"batch_executor_api" json:"batch_executor_api"`

	DataType    DataTypeCapabilities    `yaml:"data_types" json:"data_types"`
	DataSetType DataSetTypeCapabilities `yaml:"dataset_type" json:"dataset_type"`
	DataSet     DataSetCapabilities     `yaml:"dataset" json:"dataset"`
	Query       QueryCapabilities       `yaml:"query" json:"query"`

	// Specific holds backend-specific key/value pairs.
	Specific map[string]string `yaml:"specific,omitempty" json:"specific,omitempty"`

	// Encodings lists the supported character encodings (IANA names).
	Encodings []string `yaml:"encodings,omitempty" json:"encodings,omitempty"`
}

// SetSupportAll turns on every flag in every group and grants read-write
// access. Used for test and in-memory backends.
func (c *DataSourceCapabilities) SetSupportAll() {
	c.AccessPolicy = ReadWrite
	c.Transactions = true
	c.DataSetPersistenceAPI = true
	c.DataSetTypePersistenceAPI = true
	c.PreparedQueryAPI = true
	c.BatchExecutorAPI = true

	c.DataType.SetSupportAll()
	c.DataSetType.SetSupportAll()
	c.DataSet.SetSupportAll()
	c.Query.SetSupportAll()
}

// SetSupportAll turns on every type flag.
func (c *DataTypeCapabilities) SetSupportAll() {
	c.Boolean = true
	c.Int16 = true
	c.Int32 = true
	c.Int64 = true
	c.Float = true
	c.Double = true
	c.Numeric = true
	c.String = true
	c.ByteArray = true
	c.DateTime = true
	c.Geometry = true
	c.Raster = true
	c.Array = true
	c.Composite = true
}

// SetSupportAll turns on every constraint and index flag.
func (c *DataSetTypeCapabilities) SetSupportAll() {
	c.PrimaryKey = true
	c.UniqueKey = true
	c.ForeignKey = true
	c.Sequence = true
	c.CheckConstraint = true
	c.Index = true
	c.RTreeIndex = true
	c.BTreeIndex = true
	c.HashIndex = true
	c.QuadTreeIndex = true
}

// SetSupportAll turns on every cursor flag.
func (c *DataSetCapabilities) SetSupportAll() {
	c.Bidirectional = true
	c.RandomTraversing = true
	c.Indexed = true
	c.EfficientMovePrevious = true
	c.EfficientMoveBeforeFirst = true
	c.EfficientMoveLast = true
	c.EfficientMoveAfterLast = true
	c.EfficientMove = true
	c.EfficientSize = true
}

// SetSupportAll turns on every statement flag. Vocabulary lists are left
// untouched.
func (c *QueryCapabilities) SetSupportAll() {
	c.SQLDialect = true
	c.Select = true
	c.SelectInto = true
	c.Insert = true
	c.Update = true
	c.Delete = true
	c.Create = true
	c.Drop = true
	c.Alter = true
}

// Clone returns an independent copy.
func (c DataSourceCapabilities) Clone() DataSourceCapabilities {
	out := c
	out.DataType.Hints = maps.Clone(c.DataType.Hints)
	out.Specific = maps.Clone(c.Specific)
	out.Encodings = slices.Clone(c.Encodings)
	q := &out.Query
	q.SpatialTopologicOperators = slices.Clone(q.SpatialTopologicOperators)
	q.SpatialMetricOperators = slices.Clone(q.SpatialMetricOperators)
	q.ComparisonOperators = slices.Clone(q.ComparisonOperators)
	q.ArithmeticOperators = slices.Clone(q.ArithmeticOperators)
	q.LogicalOperators = slices.Clone(q.LogicalOperators)
	q.Functions = slices.Clone(q.Functions)
	q.GeometryOperands = slices.Clone(q.GeometryOperands)
	return out
}

// SupportsEncoding reports whether name is listed, case-insensitively.
func (c DataSourceCapabilities) SupportsEncoding(name string) bool {
	for _, e := range c.Encodings {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}

// Feature names an operation gated by capabilities.
type Feature string

const (
	FeatureTransactions           Feature = "transactions"
	FeatureDataSetPersistence     Feature = "dataset persistence"
	FeatureDataSetTypePersistence Feature = "dataset type persistence"
	FeaturePreparedQuery          Feature = "prepared queries"
	FeatureBatchExecutor          Feature = "batch execution"
	FeatureRead                   Feature = "read access"
	FeatureWrite                  Feature = "write access"
	FeatureSelect                 Feature = "select"
	FeatureInsert                 Feature = "insert"
	FeatureUpdate                 Feature = "update"
	FeatureDelete                 Feature = "delete"
	FeatureCreate                 Feature = "create"
	FeatureDrop                   Feature = "drop"
	FeaturePrimaryKey             Feature = "primary keys"
	FeatureUniqueKey              Feature = "unique keys"
	FeatureForeignKey             Feature = "foreign keys"
	FeatureSequence               Feature = "sequences"
	FeatureCheckConstraint        Feature = "check constraints"
	FeatureBidirectional          Feature = "bidirectional data sets"
)

// Supports reports whether f is granted.
func (c DataSourceCapabilities) Supports(f Feature) bool {
	switch f {
	case FeatureTransactions:
		return c.Transactions
	case FeatureDataSetPersistence:
		return c.DataSetPersistenceAPI
	case FeatureDataSetTypePersistence:
		return c.DataSetTypePersistenceAPI
	case FeaturePreparedQuery:
		return c.PreparedQueryAPI
	case FeatureBatchExecutor:
		return c.BatchExecutorAPI
	case FeatureRead:
		return c.AccessPolicy.CanRead()
	case FeatureWrite:
		return c.AccessPolicy.CanWrite()
	case FeatureSelect:
		return c.Query.Select
	case FeatureInsert:
		return c.Query.Insert
	case FeatureUpdate:
		return c.Query.Update
	case FeatureDelete:
		return c.Query.Delete
	case FeatureCreate:
		return c.Query.Create
	case FeatureDrop:
		return c.Query.Drop
	case FeaturePrimaryKey:
		return c.DataSetType.PrimaryKey
	case FeatureUniqueKey:
		return c.DataSetType.UniqueKey
	case FeatureForeignKey:
		return c.DataSetType.ForeignKey
	case FeatureSequence:
		return c.DataSetType.Sequence
	case FeatureCheckConstraint:
		return c.DataSetType.CheckConstraint
	case FeatureBidirectional:
		return c.DataSet.Bidirectional
	default:
		return false
	}
}

// Require returns an unsupported-operation error naming backend when any of
// features is denied.
func (c DataSourceCapabilities) Require(backend string, features ...Feature) error {
	for _, f := range features {
		if !c.Supports(f) {
			return dberr.NewUnsupportedError(backend, string(f))
		}
	}
	return nil
}

// RequireIndex is Require for an index access method.
func (c DataSourceCapabilities) RequireIndex(backend string, t schema.IndexType) error {
	if !c.DataSetType.SupportsIndex(t) {
		return dberr.NewUnsupportedError(backend, t.String()+" index")
	}
	return nil
}

// RequireDataType is Require for a property type.
func (c DataSourceCapabilities) RequireDataType(backend string, dt schema.DataType) error {
	if _, ok := c.DataType.Hint(dt); !ok {
		return dberr.NewUnsupportedError(backend, dt.String()+" properties")
	}
	return nil
}
