package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Table renders key/value panels and summaries that are not resource lists.
type Table struct {
	headers table.Row
	rows    []table.Row
	writer  io.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	row := make(table.Row, 0, len(headers))
	for _, h := range headers {
		row = append(row, h)
	}
	return &Table{
		headers: row,
		writer:  stdout,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	row := make(table.Row, 0, len(cols))
	for _, c := range cols {
		row = append(row, c)
	}
	t.rows = append(t.rows, row)
}

// Render writes the table to stdout.
func (t *Table) Render() {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	if len(t.headers) > 0 {
		w.AppendHeader(t.headers)
	}
	w.AppendRows(t.rows)
	fmt.Fprintln(t.writer, w.Render())
}

// printOutput prints data in the requested structured format.
func printOutput(data interface{}) error {
	switch getOutputFormat() {
	case "yaml":
		return printYAML(data)
	default:
		return printJSON(data)
	}
}

// structured reports whether the output format is machine-readable
func structured() bool {
	switch getOutputFormat() {
	case "json", "yaml":
		return true
	default:
		return false
	}
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(data interface{}) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}
