// file: result.go
package dbconnector

import (
	"errors"
	"fmt"
	"strconv"
)

type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

// Value is a single tagged cell of a QueryResult.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

func Null() Value { return Value{Kind: KindNull} }

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	default:
		return "NULL"
	}
}

type Column struct {
	Name         string
	DatabaseType string
	Values       []Value
}

// Numeric reports whether the column holds numbers only. A column with no
// numeric value at all (empty or all null) is not numeric.
func (c Column) Numeric() bool {
	seen := false
	for _, v := range c.Values {
		switch v.Kind {
		case KindText:
			return false
		case KindNumber:
			seen = true
		}
	}
	return seen
}

// QueryResult is the materialized, immutable output of one query.
type QueryResult struct {
	columns []Column
	index   map[string]int
	rows    int
}

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different lengths")
)

func NewQueryResult(columns []Column) (*QueryResult, error) {
	res := &QueryResult{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if _, dup := res.index[col.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		if i > 0 && len(col.Values) != res.rows {
			return nil, fmt.Errorf("%w: %q has %d values, want %d", ErrRaggedColumns, col.Name, len(col.Values), res.rows)
		}
		res.rows = len(col.Values)
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		res.columns[i] = Column{Name: col.Name, DatabaseType: col.DatabaseType, Values: values}
		res.index[col.Name] = i
	}
	return res, nil
}

func (r *QueryResult) RowCount() int { return r.rows }

func (r *QueryResult) Empty() bool { return r.rows == 0 }

func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, col := range r.columns {
		names[i] = col.Name
	}
	return names
}

func (r *QueryResult) Column(name string) (Column, bool) {
	i, ok := r.index[name]
	if !ok {
		return Column{}, false
	}
	return r.columns[i], true
}

func (r *QueryResult) Columns() []Column {
	return append([]Column(nil), r.columns...)
}

func (r *QueryResult) NumericColumns() []Column {
	out := []Column{}
	for _, col := range r.columns {
		if col.Numeric() {
			out = append(out, col)
		}
	}
	return out
}

// Row returns the cells of row i in column order.
func (r *QueryResult) Row(i int) []Value {
	row := make([]Value, len(r.columns))
	for c, col := range r.columns {
		row[c] = col.Values[i]
	}
	return row
}
