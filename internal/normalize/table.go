// Package normalize flattens JSON document collections into tables with
// dotted column names and applies the receipt-specific cleanup rules.
package normalize

import (
	"encoding/json"
	"sort"
)

// Row maps a column name to its value. A missing key means NULL.
type Row map[string]any

// Table is a flat projection of one document collection.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Kind is the storage class inferred for a column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindReal
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBoolean:
		return "boolean"
	default:
		return "text"
	}
}

// Flatten turns records into a table. Nested objects become dotted columns
// ("_id.$oid"), lists stay as values, scalars at the top level land in column "0".
// Columns are ordered by first appearance.
func Flatten(name string, records []any) *Table {
	t := &Table{Name: name, Rows: make([]Row, 0, len(records))}
	seen := map[string]bool{}

	for _, rec := range records {
		row := Row{}
		var order []string
		if obj, ok := rec.(map[string]any); ok {
			order = flattenInto(row, "", obj)
		} else {
			row["0"] = rec
			order = []string{"0"}
		}
		for _, col := range order {
			if !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

// flattenInto writes obj into row under prefix and returns the produced
// column names. Keys of a JSON object carry no order once decoded into a map,
// so siblings are visited alphabetically to keep column order deterministic.
func flattenInto(row Row, prefix string, obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var cols []string
	for _, k := range keys {
		col := k
		if prefix != "" {
			col = prefix + "." + k
		}
		if nested, ok := obj[k].(map[string]any); ok {
			cols = append(cols, flattenInto(row, col, nested)...)
			continue
		}
		row[col] = obj[k]
		cols = append(cols, col)
	}
	return cols
}

// HasColumn reports whether col is one of the table's columns.
func (t *Table) HasColumn(col string) bool {
	return t.columnIndex(col) >= 0
}

// RenameColumn moves the values of from into to. The renamed column is placed
// last. It returns false when from does not exist.
func (t *Table) RenameColumn(from, to string) bool {
	if !t.HasColumn(from) {
		return false
	}
	for _, row := range t.Rows {
		if v, ok := row[from]; ok {
			row[to] = v
			delete(row, from)
		} else {
			delete(row, to)
		}
	}
	t.DropColumn(from)
	t.DropColumn(to)
	t.Columns = append(t.Columns, to)
	return true
}

// DropColumn removes col from the column list and from every row.
func (t *Table) DropColumn(col string) {
	i := t.columnIndex(col)
	if i < 0 {
		return
	}
	t.Columns = append(t.Columns[:i:i], t.Columns[i+1:]...)
	for _, row := range t.Rows {
		delete(row, col)
	}
}

// Head returns at most n rows.
func (t *Table) Head(n int) []Row {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// Kinds infers the storage class of every column from its non-null values:
// only booleans -> boolean, only integral numbers -> integer, only numbers ->
// real, anything else (strings, lists, objects, mixes) -> text.
func (t *Table) Kinds() map[string]Kind {
	kinds := make(map[string]Kind, len(t.Columns))
	for _, col := range t.Columns {
		kinds[col] = t.kindOf(col)
	}
	return kinds
}

func (t *Table) kindOf(col string) Kind {
	var bools, ints, reals, others int
	for _, row := range t.Rows {
		switch v := row[col].(type) {
		case nil:
		case bool:
			bools++
		case int, int32, int64:
			ints++
		case float32, float64:
			reals++
		case json.Number:
			if _, err := v.Int64(); err == nil {
				ints++
			} else if _, err := v.Float64(); err == nil {
				reals++
			} else {
				others++
			}
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return KindText
	case bools > 0 && ints+reals > 0:
		return KindText
	case bools > 0:
		return KindBoolean
	case reals > 0:
		return KindReal
	case ints > 0:
		return KindInteger
	default:
		return KindText
	}
}

func (t *Table) columnIndex(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}
