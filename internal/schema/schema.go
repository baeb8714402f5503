// Package schema describes data set structure: property lists, keys,
// indexes and constraints.
//
// Backends produce these read-only descriptors during introspection and
// consume them when creating data sets.
package schema

import (
	"fmt"
	"strings"
)

// DataType identifies the type of a property.
type DataType int

const (
	Unknown DataType = iota
	Boolean
	Int16
	Int32
	Int64
	Float
	Double
	Numeric
	String
	ByteArray
	DateTime
	Geometry
	Raster
	Array
	Composite
)

var dataTypeNames = []string{
	Unknown:   "UNKNOWN",
	Boolean:   "BOOLEAN",
	Int16:     "INT16",
	Int32:     "INT32",
	Int64:     "INT64",
	Float:     "FLOAT",
	Double:    "DOUBLE",
	Numeric:   "NUMERIC",
	String:    "STRING",
	ByteArray: "BYTE_ARRAY",
	DateTime:  "DATETIME",
	Geometry:  "GEOMETRY",
	Raster:    "RASTER",
	Array:     "ARRAY",
	Composite: "COMPOSITE",
}

// AllDataTypes lists every known type except Unknown, in declaration order.
func AllDataTypes() []DataType {
	out := make([]DataType, 0, len(dataTypeNames)-1)
	for dt := Boolean; int(dt) < len(dataTypeNames); dt++ {
		out = append(out, dt)
	}
	return out
}

// String returns the upper-case type name.
func (d DataType) String() string {
	if d >= 0 && int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// ParseDataType is the inverse of DataType.String (case-insensitive).
func ParseDataType(s string) (DataType, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range dataTypeNames {
		if n == up {
			return DataType(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown data type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(b []byte) error {
	dt, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

// Property is a column of a data set.
type Property struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	NativeType string   `json:"native_type,omitempty"`
	Required   bool     `json:"required,omitempty"`
	AutoNumber bool     `json:"auto_number,omitempty"`
	Default    *string  `json:"default,omitempty"`

	// Size is the maximum length for strings, 0 for unbounded.
	Size int `json:"size,omitempty"`

	// SRID and GeometryType apply to Geometry properties.
	SRID         int    `json:"srid,omitempty"`
	GeometryType string `json:"geometry_type,omitempty"`
}

// PrimaryKey identifies rows uniquely.
type PrimaryKey struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// UniqueKey forbids duplicate values over its columns.
type UniqueKey struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ForeignKey references another data set.
type ForeignKey struct {
	Name              string   `json:"name,omitempty"`
	Columns           []string `json:"columns"`
	ReferencedDataSet string   `json:"referenced_data_set"`
	ReferencedColumns []string `json:"referenced_columns"`
	OnDelete          string   `json:"on_delete,omitempty"`
	OnUpdate          string   `json:"on_update,omitempty"`
}

// IndexType is the access method of an index.
type IndexType int

const (
	BTreeIndex IndexType = iota
	RTreeIndex
	QuadTreeIndex
	HashIndex
)

// String returns the index type name.
func (t IndexType) String() string {
	switch t {
	case RTreeIndex:
		return "RTREE"
	case QuadTreeIndex:
		return "QUADTREE"
	case HashIndex:
		return "HASH"
	default:
		return "BTREE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t IndexType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Index speeds up lookups on its columns.
type Index struct {
	Name    string    `json:"name"`
	Type    IndexType `json:"type"`
	Columns []string  `json:"columns"`
	Unique  bool      `json:"unique,omitempty"`
}

// CheckConstraint restricts rows by a boolean SQL expression.
type CheckConstraint struct {
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression"`
}

// Sequence generates numbers, typically for auto-numbered keys.
type Sequence struct {
	Name      string `json:"name"`
	Start     int64  `json:"start"`
	Increment int64  `json:"increment"`
	Owner     string `json:"owner,omitempty"`
}

// DataSetType is the full description of a data set.
type DataSetType struct {
	Name             string            `json:"name"`
	Title            string            `json:"title,omitempty"`
	Properties       []Property        `json:"properties"`
	PrimaryKey       *PrimaryKey       `json:"primary_key,omitempty"`
	UniqueKeys       []UniqueKey       `json:"unique_keys,omitempty"`
	ForeignKeys      []ForeignKey      `json:"foreign_keys,omitempty"`
	Indexes          []Index           `json:"indexes,omitempty"`
	CheckConstraints []CheckConstraint `json:"check_constraints,omitempty"`
	Sequences        []Sequence        `json:"sequences,omitempty"`
}

// Property returns the named property, case-insensitively.
func (d *DataSetType) Property(name string) (*Property, bool) {
	for i := range d.Properties {
		if strings.EqualFold(d.Properties[i].Name, name) {
			return &d.Properties[i], true
		}
	}
	return nil, false
}

// PropertyNames returns property names in declaration order.
func (d *DataSetType) PropertyNames() []string {
	out := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		out[i] = p.Name
	}
	return out
}

// HasGeometry reports whether any property is a Geometry.
func (d *DataSetType) HasGeometry() bool {
	for _, p := range d.Properties {
		if p.Type == Geometry {
			return true
		}
	}
	return false
}

// Validate checks that d can be created: a name, at least one property,
// unique property names, and key/index columns that exist.
func (d *DataSetType) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("data set type has no name")
	}
	if len(d.Properties) == 0 {
		return fmt.Errorf("data set type %q has no properties", d.Name)
	}
	seen := make(map[string]bool, len(d.Properties))
	for _, p := range d.Properties {
		if p.Name == "" {
			return fmt.Errorf("data set type %q has a property without name", d.Name)
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return fmt.Errorf("data set type %q has duplicate property %q", d.Name, p.Name)
		}
		seen[key] = true
	}

	check := func(kind string, cols []string) error {
		if len(cols) == 0 {
			return fmt.Errorf("%s of %q has no columns", kind, d.Name)
		}
		for _, c := range cols {
			if !seen[strings.ToLower(c)] {
				return fmt.Errorf("%s of %q references unknown property %q", kind, d.Name, c)
			}
		}
		return nil
	}

	if d.PrimaryKey != nil {
		if err := check("primary key", d.PrimaryKey.Columns); err != nil {
			return err
		}
	}
	for _, u := range d.UniqueKeys {
		if err := check("unique key", u.Columns); err != nil {
			return err
		}
	}
	for _, fk := range d.ForeignKeys {
		if err := check("foreign key", fk.Columns); err != nil {
			return err
		}
		if fk.ReferencedDataSet == "" || len(fk.ReferencedColumns) != len(fk.Columns) {
			return fmt.Errorf("foreign key of %q has an invalid reference", d.Name)
		}
	}
	for _, idx := range d.Indexes {
		if err := check("index "+idx.Name, idx.Columns); err != nil {
			return err
		}
	}
	return nil
}
