package resourcelist

import (
	"net/url"

	"github.com/pratik-mahalle/pullrunner/internal/render"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// Kind describes one resource type managed by a Synchronizer
type Kind struct {
	Name      string
	Title     string
	ListPath  string
	KeyField  string
	Template  render.Template
	CheckPath string // empty when the kind has no check sweep
	RunAction string // empty when records cannot be run
}

// ItemPath returns the backend path of one record. The identity is
// percent-encoded exactly once.
func (k Kind) ItemPath(id string) string {
	return k.ListPath + "/" + url.PathEscape(id)
}

// RunPath returns the run endpoint of one record
func (k Kind) RunPath(id string) string {
	return k.ItemPath(id) + "/" + k.RunAction
}

// Checkable reports whether the kind has a check sweep
func (k Kind) Checkable() bool {
	return k.CheckPath != ""
}

// Runnable reports whether records of the kind can be run
func (k Kind) Runnable() bool {
	return k.RunAction != ""
}

var deleteAction = render.ActionSpec{
	Name:   "delete",
	Label:  "Delete",
	Method: "DELETE",
	Path:   "delete/{id}",
	Style:  "danger",
}

// Repos is the repository kind
var Repos = Kind{
	Name:     "repos",
	Title:    "Repositories",
	ListPath: client.ReposPath,
	KeyField: "name",
	Template: render.Template{
		Columns: []render.Column{
			{Header: "Name", Field: "name"},
			{Header: "Branch", Field: "branch"},
			{Header: "Status", Field: "active", Status: true},
			{Header: "Last Check", Field: "last_check"},
			{Header: "Last Commit", Field: "last_commit"},
		},
		Actions: []render.ActionSpec{deleteAction},
	},
	CheckPath: client.CheckReposPath,
}

// Servers is the server kind
var Servers = Kind{
	Name:     "servers",
	Title:    "Servers",
	ListPath: client.ServersPath,
	KeyField: "host",
	Template: render.Template{
		Columns: []render.Column{
			{Header: "Host", Field: "host"},
			{Header: "User", Field: "user"},
			{Header: "Status", Field: "active", Status: true},
			{Header: "Last Check", Field: "last_check"},
		},
		Actions: []render.ActionSpec{deleteAction},
	},
	CheckPath: client.CheckServersPath,
}

// Commands is the scheduled command kind
var Commands = Kind{
	Name:     "commands",
	Title:    "Commands",
	ListPath: client.CommandsPath,
	KeyField: "id",
	Template: render.Template{
		Columns: []render.Column{
			{Header: "ID", Field: "id"},
			{Header: "Repo", Field: "repo"},
			{Header: "Server", Field: "server"},
			{Header: "Command", Field: "command"},
			{Header: "Status", Field: "active", Status: true},
			{Header: "Last Run", Field: "last_run"},
		},
		Actions: []render.ActionSpec{
			{Name: "run", Label: "Run", Method: "POST", Path: "run/{id}", Style: "primary"},
			{Name: "secrets", Label: "Secrets", Method: "GET", Path: "secrets/{id}", Style: "secondary"},
			deleteAction,
		},
	},
	RunAction: "run",
}

// Secrets returns the kind of the secrets scoped to one command
func Secrets(commandID string) Kind {
	return Kind{
		Name:     "secrets",
		Title:    "Secrets",
		ListPath: client.CommandPath(commandID) + "/secrets",
		KeyField: "id",
		Template: render.Template{
			Columns: []render.Column{
				{Header: "ID", Field: "id"},
				{Header: "Name", Field: "name"},
				{Header: "Value", Field: "value"},
			},
			Actions: []render.ActionSpec{deleteAction},
		},
	}
}
