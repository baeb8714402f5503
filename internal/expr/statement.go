package expr

// Statement is a complete query or data modification.
//
// This is a sealed interface: Select, Insert, Update and Delete.
type Statement interface {
	// CloneStatement returns a deep, independent copy.
	CloneStatement() Statement
	stmtNode()
}

// Source is an entry of a FROM clause.
//
// This is a sealed interface: DataSetName, SubSelect and Join.
type Source interface {
	cloneSource() Source
	sourceNode()
}

// Field is one item of a select list.
type Field struct {
	Expr  Expression
	Alias string
}

// OrderBy is one item of an ORDER BY clause.
type OrderBy struct {
	Expr       Expression
	Descending bool
}

// Select is a query.
//
// Semantics:
//
//	SELECT [DISTINCT] <fields> FROM <from> WHERE <where>
//	GROUP BY <group_by> HAVING <having> ORDER BY <order_by>
//	LIMIT <limit> OFFSET <offset>
//
// Empty Fields means all columns. Limit and Offset of 0 are omitted.
type Select struct {
	Distinct bool
	Fields   []Field
	From     []Source
	Where    Expression
	GroupBy  []Expression
	Having   Expression
	OrderBy  []OrderBy
	Limit    int64
	Offset   int64
}

func (*Select) stmtNode() {}

// CloneStatement implements Statement.
func (s *Select) CloneStatement() Statement { return s.CloneSelect() }

// CloneSelect returns a deep copy of s. A nil s clones to nil.
func (s *Select) CloneSelect() *Select {
	if s == nil {
		return nil
	}
	out := &Select{
		Distinct: s.Distinct,
		Where:    cloneExpr(s.Where),
		GroupBy:  cloneExprs(s.GroupBy),
		Having:   cloneExpr(s.Having),
		Limit:    s.Limit,
		Offset:   s.Offset,
	}
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = Field{Expr: cloneExpr(f.Expr), Alias: f.Alias}
		}
	}
	if s.From != nil {
		out.From = make([]Source, len(s.From))
		for i, src := range s.From {
			out.From[i] = cloneSource(src)
		}
	}
	if s.OrderBy != nil {
		out.OrderBy = make([]OrderBy, len(s.OrderBy))
		for i, o := range s.OrderBy {
			out.OrderBy[i] = OrderBy{Expr: cloneExpr(o.Expr), Descending: o.Descending}
		}
	}
	return out
}

// SelectFrom starts a Select over a single data set.
func SelectFrom(dataSet string, fields ...Expression) *Select {
	s := &Select{From: []Source{&DataSetName{Name: dataSet}}}
	for _, f := range fields {
		s.Fields = append(s.Fields, Field{Expr: f})
	}
	return s
}

// DataSetName is a table (data set) reference.
type DataSetName struct {
	Name  string
	Alias string
}

func (*DataSetName) sourceNode() {}
func (d *DataSetName) cloneSource() Source {
	return &DataSetName{Name: d.Name, Alias: d.Alias}
}

// SubSelect is a derived table.
type SubSelect struct {
	Select *Select
	Alias  string
}

func (*SubSelect) sourceNode() {}
func (s *SubSelect) cloneSource() Source {
	return &SubSelect{Select: s.Select.CloneSelect(), Alias: s.Alias}
}

// JoinType selects the join semantics.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

// String returns the SQL keyword sequence for the join type.
func (j JoinType) String() string {
	switch j {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return "INNER JOIN"
	}
}

// Join combines two sources. On is ignored for CrossJoin.
type Join struct {
	Type  JoinType
	Left  Source
	Right Source
	On    Expression
}

func (*Join) sourceNode() {}
func (j *Join) cloneSource() Source {
	return &Join{Type: j.Type, Left: cloneSource(j.Left), Right: cloneSource(j.Right), On: cloneExpr(j.On)}
}

func cloneSource(s Source) Source {
	if s == nil {
		return nil
	}
	return s.cloneSource()
}

// Insert adds rows to a data set, either from literal Values or a Select.
type Insert struct {
	Into    string
	Columns []string
	Values  [][]Expression
	Select  *Select
}

func (*Insert) stmtNode() {}

// CloneStatement implements Statement.
func (i *Insert) CloneStatement() Statement {
	out := &Insert{Into: i.Into, Select: i.Select.CloneSelect()}
	if i.Columns != nil {
		out.Columns = append([]string(nil), i.Columns...)
	}
	if i.Values != nil {
		out.Values = make([][]Expression, len(i.Values))
		for r, row := range i.Values {
			out.Values[r] = cloneExprs(row)
		}
	}
	return out
}

// Assignment is one SET item of an Update.
type Assignment struct {
	Column string
	Value  Expression
}

// Update modifies rows of a data set.
type Update struct {
	DataSet string
	Set     []Assignment
	Where   Expression
}

func (*Update) stmtNode() {}

// CloneStatement implements Statement.
func (u *Update) CloneStatement() Statement {
	out := &Update{DataSet: u.DataSet, Where: cloneExpr(u.Where)}
	if u.Set != nil {
		out.Set = make([]Assignment, len(u.Set))
		for i, a := range u.Set {
			out.Set[i] = Assignment{Column: a.Column, Value: cloneExpr(a.Value)}
		}
	}
	return out
}

// Delete removes rows of a data set.
type Delete struct {
	From  string
	Where Expression
}

func (*Delete) stmtNode() {}

// CloneStatement implements Statement.
func (d *Delete) CloneStatement() Statement {
	return &Delete{From: d.From, Where: cloneExpr(d.Where)}
}
