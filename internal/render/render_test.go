package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

var serverTemplate = Template{
	Columns: []Column{
		{Header: "Host", Field: "host"},
		{Header: "User", Field: "user"},
		{Header: "Status", Field: "active", Status: true},
		{Header: "Last Check", Field: "last_check"},
	},
	Actions: []ActionSpec{
		{Name: "delete", Label: "Delete", Method: "DELETE", Path: "delete/{id}", Style: "danger"},
	},
}

func servers() []Record {
	return []Record{
		{"host": "web-1", "user": "deploy", "active": true, "last_check": "2026-10-16 09:00"},
		{"host": "web-2", "user": "deploy", "active": "retry", "last_check": nil},
		{"host": "db-1", "user": "root", "active": false, "last_check": "2026-10-15 23:00"},
	}
}

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  Badge
	}{
		{"true", true, BadgeActive},
		{"false", false, BadgeInactive},
		{"retry", "retry", BadgeRetry},
		{"active state wrapper", client.NewActiveState("retry"), BadgeRetry},
		{"nil", nil, BadgeUnknown},
		{"other string", "RETRY", BadgeUnknown},
		{"number", float64(1), BadgeUnknown},
		{"map", map[string]interface{}{"a": 1}, BadgeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusBadge(tt.input)
			if got != tt.want {
				t.Errorf("StatusBadge(%v) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Label == "" || got.Class == "" {
				t.Errorf("StatusBadge(%v) returned an empty token", tt.input)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{nil, ""},
		{"main", "main"},
		{true, "true"},
		{float64(42), "42"},
		{float64(1.5), "1.5"},
		{[]interface{}{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.input); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMapRecord_EscapesIdentityOnce(t *testing.T) {
	tpl := Template{
		Columns: []Column{{Header: "Name", Field: "name"}},
		Actions: []ActionSpec{{Name: "delete", Label: "Delete", Path: "delete/{id}"}},
	}

	row, err := MapRecord(tpl, "name", Record{"name": "acme/api"})
	require.NoError(t, err)

	assert.Equal(t, "acme/api", row.Key)
	require.Len(t, row.Actions, 1)
	assert.Equal(t, "delete/acme%2Fapi", row.Actions[0].Path)
}

func TestMapRecord_RejectsScriptTag(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"<SCRIPT>alert(1)</SCRIPT>",
		"prefix <ScRiPt src=x>",
	}

	for _, in := range inputs {
		_, err := MapRecord(serverTemplate, "host", Record{"host": "web-1", "user": in, "active": true})
		require.Error(t, err, in)

		v, ok := errors.AsValidation(err)
		require.True(t, ok, "expected ValidationError for %q", in)
		assert.Equal(t, "user", v.Field)
	}
}

func TestMapRecords_FailsAtomically(t *testing.T) {
	recs := servers()
	recs = append(recs, Record{"host": "<script>", "active": true})

	rows, err := MapRecords(serverTemplate, "host", recs)
	require.Error(t, err)
	assert.Nil(t, rows)
}

func TestMapRecords_KeepsServerOrder(t *testing.T) {
	rows, err := MapRecords(serverTemplate, "host", servers())
	require.NoError(t, err)

	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"web-1", "web-2", "db-1"}, keys)
}

func TestRenderers_Idempotent(t *testing.T) {
	rows, err := MapRecords(serverTemplate, "host", servers())
	require.NoError(t, err)

	renderers := map[string]Renderer{
		"text": TextRenderer{},
		"html": &HTMLRenderer{ActionBase: "/servers/view", CSRFToken: "tok"},
		"json": JSONRenderer{},
		"yaml": YAMLRenderer{},
	}

	for name, r := range renderers {
		t.Run(name, func(t *testing.T) {
			var first, second bytes.Buffer
			require.NoError(t, r.Render(&first, serverTemplate, rows))
			require.NoError(t, r.Render(&second, serverTemplate, rows))
			assert.Equal(t, first.Bytes(), second.Bytes())
			assert.NotEmpty(t, first.String())
		})
	}
}

func TestTextRenderer(t *testing.T) {
	rows, err := MapRecords(serverTemplate, "host", servers())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, TextRenderer{}.Render(&buf, serverTemplate, rows))

	out := buf.String()
	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "[+] active")
	assert.Contains(t, out, "[~] retry")
	assert.Contains(t, out, "[-] inactive")
}

func TestHTMLRenderer(t *testing.T) {
	rows, err := MapRecords(serverTemplate, "host", []Record{
		{"host": "10.0.0.1/admin", "user": "a&b", "active": "maybe"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	r := &HTMLRenderer{ActionBase: "/servers/view/", CSRFToken: "tok-1"}
	require.NoError(t, r.Render(&buf, serverTemplate, rows))

	out := buf.String()
	assert.Contains(t, out, `<span class="badge bg-dark">unknown</span>`)
	assert.Contains(t, out, "a&amp;b")
	assert.Contains(t, out, `action="/servers/view/delete/10.0.0.1%2Fadmin"`)
	assert.Contains(t, out, `name="csrf_token" value="tok-1"`)
	assert.Equal(t, 1, strings.Count(out, "<form"))
}

func TestHTMLRenderer_ReadOnlyActionIsLink(t *testing.T) {
	tpl := Template{
		Columns: []Column{{Header: "ID", Field: "id"}},
		Actions: []ActionSpec{
			{Name: "secrets", Label: "Secrets", Method: "GET", Path: "secrets/{id}"},
			{Name: "run", Label: "Run", Method: "POST", Path: "run/{id}", Style: "primary"},
		},
	}
	rows, err := MapRecords(tpl, "id", []Record{{"id": "7"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&HTMLRenderer{ActionBase: "/commands/view"}).Render(&buf, tpl, rows))

	out := buf.String()
	assert.Contains(t, out, `<a href="/commands/view/secrets/7" class="btn btn-sm btn-secondary">Secrets</a>`)
	assert.Contains(t, out, `action="/commands/view/run/7"`)
	assert.Equal(t, 1, strings.Count(out, "<form"))
}

func TestJSONRenderer_UsesBadgeLabels(t *testing.T) {
	rows, err := MapRecords(serverTemplate, "host", servers()[:1])
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&buf, serverTemplate, rows))
	assert.JSONEq(t, `[{"host":"web-1","user":"deploy","active":"active","last_check":"2026-10-16 09:00"}]`, buf.String())
}

func TestNewRenderer(t *testing.T) {
	assert.IsType(t, JSONRenderer{}, NewRenderer("json"))
	assert.IsType(t, YAMLRenderer{}, NewRenderer("YAML"))
	assert.IsType(t, &HTMLRenderer{}, NewRenderer("html"))
	assert.IsType(t, TextRenderer{}, NewRenderer("table"))
	assert.IsType(t, TextRenderer{}, NewRenderer(""))
}
