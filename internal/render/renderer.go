package render

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Renderer turns mapped rows into output. Rendering the same rows twice
// writes identical bytes.
type Renderer interface {
	Render(w io.Writer, tpl Template, rows []Row) error
}

// NewRenderer returns the renderer for an output format. Unknown formats
// fall back to the text table.
func NewRenderer(format string) Renderer {
	switch strings.ToLower(format) {
	case "json":
		return JSONRenderer{}
	case "yaml":
		return YAMLRenderer{}
	case "html":
		return &HTMLRenderer{}
	default:
		return TextRenderer{}
	}
}

// TextRenderer writes a plain-text table
type TextRenderer struct{}

// Render implements Renderer
func (TextRenderer) Render(w io.Writer, tpl Template, rows []Row) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(headerRow(tpl.Headers()))

	for _, row := range rows {
		out := make(table.Row, 0, len(row.Cells))
		for _, cell := range row.Cells {
			if cell.Badge != nil {
				out = append(out, cell.Badge.Text())
				continue
			}
			out = append(out, cell.Text)
		}
		t.AppendRow(out)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// HTMLRenderer writes an HTML table with one form per row action, or a
// link for actions that only read.
// ActionBase is prefixed to every action path; CSRFToken is embedded in
// each form.
type HTMLRenderer struct {
	ActionBase string
	CSRFToken  string
	CSSClass   string
}

// Render implements Renderer
func (r *HTMLRenderer) Render(w io.Writer, tpl Template, rows []Row) error {
	t := table.NewWriter()
	t.Style().HTML = table.HTMLOptions{
		CSSClass:    r.cssClass(),
		EmptyColumn: "&nbsp;",
		EscapeText:  false,
		Newline:     "<br/>",
	}

	headers := tpl.Headers()
	if len(tpl.Actions) > 0 {
		headers = append(headers, "Actions")
	}
	t.AppendHeader(headerRow(headers))

	for _, row := range rows {
		out := make(table.Row, 0, len(row.Cells)+1)
		for _, cell := range row.Cells {
			if cell.Badge != nil {
				out = append(out, badgeHTML(*cell.Badge))
				continue
			}
			out = append(out, html.EscapeString(cell.Text))
		}
		if len(tpl.Actions) > 0 {
			forms := make([]string, 0, len(row.Actions))
			for _, a := range row.Actions {
				forms = append(forms, r.actionHTML(a))
			}
			out = append(out, strings.Join(forms, " "))
		}
		t.AppendRow(out)
	}

	_, err := fmt.Fprintln(w, t.RenderHTML())
	return err
}

func (r *HTMLRenderer) cssClass() string {
	if r.CSSClass != "" {
		return r.CSSClass
	}
	return "table table-sm table-striped"
}

func (r *HTMLRenderer) actionHTML(a Action) string {
	target := strings.TrimSuffix(r.ActionBase, "/") + "/" + a.Path
	style := a.Style
	if style == "" {
		style = "secondary"
	}
	if strings.EqualFold(a.Method, "GET") {
		return fmt.Sprintf(`<a href="%s" class="btn btn-sm btn-%s">%s</a>`,
			html.EscapeString(target), html.EscapeString(style), html.EscapeString(a.Label))
	}
	return fmt.Sprintf(
		`<form method="post" action="%s" class="d-inline">`+
			`<input type="hidden" name="csrf_token" value="%s">`+
			`<button type="submit" class="btn btn-sm btn-%s">%s</button></form>`,
		html.EscapeString(target),
		html.EscapeString(r.CSRFToken),
		html.EscapeString(style),
		html.EscapeString(a.Label),
	)
}

func badgeHTML(b Badge) string {
	return fmt.Sprintf(`<span class="badge bg-%s">%s</span>`,
		html.EscapeString(b.Class), html.EscapeString(b.Label))
}

func headerRow(headers []string) table.Row {
	row := make(table.Row, 0, len(headers))
	for _, h := range headers {
		row = append(row, h)
	}
	return row
}

// JSONRenderer writes rows as a JSON array of field/text objects
type JSONRenderer struct{}

// Render implements Renderer
func (JSONRenderer) Render(w io.Writer, _ Template, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plainRows(rows))
}

// YAMLRenderer writes rows as a YAML sequence of field/text mappings
type YAMLRenderer struct{}

// Render implements Renderer
func (YAMLRenderer) Render(w io.Writer, _ Template, rows []Row) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(plainRows(rows))
}

// plainRows flattens rows for the structured encoders. Status cells carry
// their badge label.
func plainRows(rows []Row) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string, len(row.Cells))
		for _, cell := range row.Cells {
			if cell.Badge != nil {
				m[cell.Field] = cell.Badge.Label
				continue
			}
			m[cell.Field] = cell.Text
		}
		out = append(out, m)
	}
	return out
}
