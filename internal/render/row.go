package render

import (
	"net/url"
	"strings"
)

// Record is an opaque server-defined resource record
type Record map[string]interface{}

// Column maps one record field to one displayed column
type Column struct {
	Header string
	Field  string
	Status bool // displayed through StatusBadge
}

// ActionSpec describes a per-row control. Path is relative to the page and
// may contain {id}, which is replaced by the escaped record identity.
type ActionSpec struct {
	Name   string
	Label  string
	Method string
	Path   string
	Style  string
}

// Template describes how records of one kind are displayed
type Template struct {
	Columns []Column
	Actions []ActionSpec
}

// Headers returns the column headers in order
func (t Template) Headers() []string {
	headers := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		headers = append(headers, c.Header)
	}
	return headers
}

// Cell is one displayed value
type Cell struct {
	Field string
	Text  string
	Badge *Badge
}

// Action is a per-row control bound to one record
type Action struct {
	Name   string
	Label  string
	Method string
	Path   string
	Style  string
}

// Row is the structured, sanitized form of one record
type Row struct {
	Key     string
	Cells   []Cell
	Actions []Action
}

// MapRecord maps a record to a row. It is pure: the same record and
// template always give the same row. A value carrying a script tag fails
// the mapping with a *errors.ValidationError.
func MapRecord(tpl Template, keyField string, rec Record) (Row, error) {
	key, err := SanitizeVal(keyField, rec[keyField])
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Key:   key,
		Cells: make([]Cell, 0, len(tpl.Columns)),
	}

	for _, col := range tpl.Columns {
		text, err := SanitizeVal(col.Field, rec[col.Field])
		if err != nil {
			return Row{}, err
		}
		cell := Cell{Field: col.Field, Text: text}
		if col.Status {
			badge := StatusBadge(rec[col.Field])
			cell.Badge = &badge
		}
		row.Cells = append(row.Cells, cell)
	}

	escaped := url.PathEscape(key)
	for _, spec := range tpl.Actions {
		row.Actions = append(row.Actions, Action{
			Name:   spec.Name,
			Label:  spec.Label,
			Method: spec.Method,
			Path:   strings.ReplaceAll(spec.Path, "{id}", escaped),
			Style:  spec.Style,
		})
	}

	return row, nil
}

// MapRecords maps a whole snapshot. It fails without returning any rows
// when a single record fails.
func MapRecords(tpl Template, keyField string, recs []Record) ([]Row, error) {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		row, err := MapRecord(tpl, keyField, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
