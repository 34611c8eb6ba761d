package dataset

import (
	"math"
	"strconv"
)

// AttributeKind is the declared type of a column
type AttributeKind string

const (
	KindNumeric AttributeKind = "numeric"
	KindNominal AttributeKind = "nominal"
	KindString  AttributeKind = "string"
	KindDate    AttributeKind = "date"
)

// Attribute describes one column of a Table
type Attribute struct {
	Name          string
	Kind          AttributeKind
	Integer       bool     // declared INTEGER rather than NUMERIC/REAL
	NominalValues []string // only for KindNominal
	DateFormat    string   // only for KindDate
}

// IsNumeric reports whether values of this attribute are stored as numbers
func (a Attribute) IsNumeric() bool {
	return a.Kind == KindNumeric
}

// Value is a single cell. Numeric attributes use Num, everything else uses Str.
type Value struct {
	Num     float64
	Str     string
	Missing bool
}

// NumberValue builds a numeric cell
func NumberValue(v float64) Value {
	return Value{Num: v}
}

// StringValue builds a textual cell
func StringValue(s string) Value {
	return Value{Str: s}
}

// MissingValue builds an absent cell
func MissingValue() Value {
	return Value{Missing: true}
}

// Key renders the cell the way it appears in value counts. Whole numbers in a
// float column keep a trailing ".0", integer-stored columns print without one.
func (v Value) Key(kind AttributeKind, integer bool) string {
	if v.Missing {
		return "?"
	}
	if kind != KindNumeric {
		return v.Str
	}
	if integer {
		return strconv.FormatFloat(v.Num, 'f', 0, 64)
	}
	if v.Num == math.Trunc(v.Num) && !math.IsInf(v.Num, 0) {
		return strconv.FormatFloat(v.Num, 'f', 1, 64)
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// Table is an immutable, row-oriented dataset.
// Rows[i] always has len(Attributes) values, in attribute order.
type Table struct {
	Relation   string
	Attributes []Attribute
	Rows       [][]Value
	// Origin[i] is the position of Rows[i] in the source file
	Origin []int

	// intStorage is fixed when the source table is built and shared by its subsets
	intStorage []bool
}

// NewTable builds a Table whose Origin is the identity
func NewTable(relation string, attrs []Attribute, rows [][]Value) *Table {
	origin := make([]int, len(rows))
	for i := range origin {
		origin[i] = i
	}
	intStorage := make([]bool, len(attrs))
	for col, attr := range attrs {
		intStorage[col] = attr.IsNumeric() && attr.Integer
		for _, row := range rows {
			if !intStorage[col] {
				break
			}
			if row[col].Missing {
				intStorage[col] = false
			}
		}
	}
	return &Table{Relation: relation, Attributes: attrs, Rows: rows, Origin: origin, intStorage: intStorage}
}

// IntegerStorage reports whether a column holds whole numbers only: declared INTEGER
// with no missing value anywhere in the source table
func (t *Table) IntegerStorage(col int) bool {
	return col < len(t.intStorage) && t.intStorage[col]
}

// CellKey returns the value-count key of one cell
func (t *Table) CellKey(row, col int) string {
	return t.Rows[row][col].Key(t.Attributes[col].Kind, t.IntegerStorage(col))
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnNames returns attribute names in declaration order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Attributes))
	for i, a := range t.Attributes {
		names[i] = a.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, a := range t.Attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ColumnKeys returns the value-count key of every row for one column
func (t *Table) ColumnKeys(col int) []string {
	keys := make([]string, len(t.Rows))
	for i := range t.Rows {
		keys[i] = t.CellKey(i, col)
	}
	return keys
}

// NumericColumn returns the non-missing numbers of a numeric column
func (t *Table) NumericColumn(col int) []float64 {
	values := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if !row[col].Missing {
			values = append(values, row[col].Num)
		}
	}
	return values
}

// Subset returns a new Table holding the given rows, in the given order.
// Row storage is shared with the receiver.
func (t *Table) Subset(indices []int) *Table {
	rows := make([][]Value, len(indices))
	origin := make([]int, len(indices))
	for i, idx := range indices {
		rows[i] = t.Rows[idx]
		origin[i] = t.Origin[idx]
	}
	return &Table{Relation: t.Relation, Attributes: t.Attributes, Rows: rows, Origin: origin, intStorage: t.intStorage}
}
