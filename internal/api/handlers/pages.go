package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pratik-mahalle/pullrunner/internal/api/middleware"
	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/metrics"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/utils"
	"github.com/pratik-mahalle/pullrunner/internal/render"
	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// navigation lists the pages in menu order
var navigation = []struct {
	Route string
	Label string
}{
	{controller.RouteRepos, "Repositories"},
	{controller.RouteServers, "Servers"},
	{controller.RouteCommands, "Commands"},
	{controller.RouteLogs, "Logs"},
	{controller.RouteSettings, "Settings"},
}

// Form fields that are never echoed back into a page
var secretFields = []string{"token", "key", "value", middleware.CSRFField}

type navItem struct {
	Route  string
	Label  string
	Active bool
}

type tableView struct {
	Title string
	Count int
	HTML  template.HTML
}

type checkView struct {
	Action string
	Label  string
	Busy   bool
}

type logView struct {
	Title string
	Text  string
}

type secretsView struct {
	CommandID string
	Action    string
}

// pageData is what the page templates render
type pageData struct {
	Title     string
	Route     string
	CSRFToken string
	LoggedIn  bool
	Nav       []navItem
	Notes     []string
	Tables    []tableView
	Check     *checkView
	Schedule  []string
	FormName  string
	Form      map[string]string
	Options   map[string][]string
	Logs      []logView
	Settings  *client.Settings
	Secrets   *secretsView
}

type checker interface {
	Sweep(ctx context.Context) error
	CheckControl() *resourcelist.ActionControl
}

type deleter interface {
	Delete(ctx context.Context, id string) error
}

// PageHandler serves the dashboard pages and their form actions. Every
// action runs through the session's dispatch, then redirects back to its
// page.
type PageHandler struct {
	logger *logger.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(log *logger.Logger) *PageHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PageHandler{logger: log}
}

// open returns the session and its page for route
func (h *PageHandler) open(w http.ResponseWriter, r *http.Request, route string) (*session.Session, controller.Page, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return nil, nil, false
	}
	page, err := sess.Open(route)
	if err != nil {
		utils.WriteError(w, errors.NotFound("Page"))
		return nil, nil, false
	}
	middleware.AddLogField(w, "page", route)
	return sess, page, true
}

// View renders a page, loading it first unless the action that redirected
// here already left it current
func (h *PageHandler) View(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, page, ok := h.open(w, r, route)
		if !ok {
			return
		}

		if !sess.TakeCurrent(route) {
			sess.Dispatch(func() {
				_ = page.Load(r.Context())
				sess.MarkLoaded(route)
			})
		}

		h.renderPage(w, sess, page)
	}
}

// AddRepo enrolls a repository
func (h *PageHandler) AddRepo(w http.ResponseWriter, r *http.Request) {
	sess, page, ok := h.open(w, r, controller.RouteRepos)
	if !ok {
		return
	}
	repos, ok := page.(*controller.ReposPage)
	if !ok {
		utils.WriteError(w, errors.NotFound("Page"))
		return
	}

	form := h.fill(sess, controller.RouteRepos, r)
	req := client.CreateRepoRequest{
		Name:   strings.TrimSpace(r.PostFormValue("name")),
		Branch: strings.TrimSpace(r.PostFormValue("branch")),
		Token:  r.PostFormValue("token"),
	}
	sess.Dispatch(func() {
		_ = repos.Add(r.Context(), req, form)
		sess.MarkCurrent(controller.RouteRepos)
	})
	seeOther(w, r, controller.RouteRepos)
}

// AddServer enrolls a server
func (h *PageHandler) AddServer(w http.ResponseWriter, r *http.Request) {
	sess, page, ok := h.open(w, r, controller.RouteServers)
	if !ok {
		return
	}
	servers, ok := page.(*controller.ServersPage)
	if !ok {
		utils.WriteError(w, errors.NotFound("Page"))
		return
	}

	form := h.fill(sess, controller.RouteServers, r)
	user := strings.TrimSpace(r.PostFormValue("user"))
	if user == "" {
		user = "root"
	}
	req := client.CreateServerRequest{
		Host: strings.TrimSpace(r.PostFormValue("host")),
		User: user,
		Key:  r.PostFormValue("key"),
	}
	sess.Dispatch(func() {
		_ = servers.Add(r.Context(), req, form)
		sess.MarkCurrent(controller.RouteServers)
	})
	seeOther(w, r, controller.RouteServers)
}

// AddCommand enrolls a command
func (h *PageHandler) AddCommand(w http.ResponseWriter, r *http.Request) {
	sess, page, ok := h.open(w, r, controller.RouteCommands)
	if !ok {
		return
	}
	commands, ok := page.(*controller.CommandsPage)
	if !ok {
		utils.WriteError(w, errors.NotFound("Page"))
		return
	}

	form := h.fill(sess, controller.RouteCommands, r)
	req := client.CreateCommandRequest{
		Repo:    r.PostFormValue("repo"),
		Server:  r.PostFormValue("server"),
		Command: strings.TrimSpace(r.PostFormValue("command")),
	}
	sess.Dispatch(func() {
		_ = commands.Add(r.Context(), req, form)
		sess.MarkCurrent(controller.RouteCommands)
	})
	seeOther(w, r, controller.RouteCommands)
}

// Delete removes the record named in the URL from the page's list
func (h *PageHandler) Delete(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, page, ok := h.open(w, r, route)
		if !ok {
			return
		}
		d, ok := page.(deleter)
		if !ok {
			utils.WriteError(w, errors.NotFound("Action"))
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		sess.Dispatch(func() {
			_ = d.Delete(r.Context(), id)
			sess.MarkCurrent(route)
		})
		seeOther(w, r, route)
	}
}

// Check triggers the page's check sweep. The control is claimed before
// waiting on the dispatch, so a second trigger is turned away even while an
// earlier action still holds it.
func (h *PageHandler) Check(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, page, ok := h.open(w, r, route)
		if !ok {
			return
		}
		c, ok := page.(checker)
		if !ok {
			utils.WriteError(w, errors.NotFound("Action"))
			return
		}

		release, err := c.CheckControl().Claim(resourcelist.CheckingLabel)
		if err != nil {
			sess.Surface.Notify(errors.Message(err))
			seeOther(w, r, route)
			return
		}

		kind := page.Kinds()[0].Name
		sess.Dispatch(func() {
			var err error
			defer func() { release(err) }()
			err = c.Sweep(r.Context())
			metrics.RecordCheckTrigger(kind, err)
			sess.MarkCurrent(route)
		})
		seeOther(w, r, route)
	}
}

// Run executes a command. The backend's reply is shown as a notification.
func (h *PageHandler) Run(w http.ResponseWriter, r *http.Request) {
	sess, page, ok := h.open(w, r, controller.RouteCommands)
	if !ok {
		return
	}
	commands, ok := page.(*controller.CommandsPage)
	if !ok {
		utils.WriteError(w, errors.NotFound("Page"))
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sess.Dispatch(func() {
		fields := map[string]interface{}{"command": id}
		if rec, ok := commands.Synchronizer().Find(id); ok {
			fields["repo"] = render.FormatValue(rec["repo"])
			fields["server"] = render.FormatValue(rec["server"])
		}
		if result, err := commands.Run(r.Context(), id); err == nil {
			fields["status"] = result.Status
			fields["commit"] = result.Commit
			h.logger.WithFields(fields).Info("command executed")
		}
		sess.MarkCurrent(controller.RouteCommands)
	})
	seeOther(w, r, controller.RouteCommands)
}

// UpdateSettings stores new check intervals
func (h *PageHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, page, ok := h.open(w, r, controller.RouteSettings)
	if !ok {
		return
	}
	settings, ok := page.(*controller.SettingsPage)
	if !ok {
		utils.WriteError(w, errors.NotFound("Page"))
		return
	}

	// Unparsable values become zero and fail validation
	repo, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("repo_interval")))
	server, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("server_interval")))

	sess.Dispatch(func() {
		_ = settings.Update(r.Context(), client.Settings{RepoInterval: repo, ServerInterval: server})
		sess.MarkCurrent(controller.RouteSettings)
	})
	seeOther(w, r, controller.RouteSettings)
}

// fill keeps the posted values of a create form, minus secrets
func (h *PageHandler) fill(sess *session.Session, route string, r *http.Request) *session.Form {
	form := sess.Surface.Form(route)
	form.Fill(r.PostForm, secretFields...)
	return form
}

func newPageData(sess *session.Session, route, title string) pageData {
	nav := make([]navItem, 0, len(navigation))
	for _, n := range navigation {
		nav = append(nav, navItem{Route: n.Route, Label: n.Label, Active: n.Route == route})
	}
	return pageData{
		Title:     title,
		Route:     route,
		CSRFToken: sess.FormToken(),
		LoggedIn:  sess.LoggedIn(),
		Nav:       nav,
	}
}

func (h *PageHandler) renderPage(w http.ResponseWriter, sess *session.Session, page controller.Page) {
	route := page.Route()
	data := newPageData(sess, route, pageTitle(route))
	data.Form = sess.Surface.Form(route).Values()

	tables, err := renderTables(sess, page.Kinds(), route)
	if err != nil {
		utils.WriteError(w, errors.Internal("Failed to render table", err))
		return
	}
	data.Tables = tables

	if c, ok := page.(checker); ok {
		ctrl := c.CheckControl()
		view := &checkView{Action: route + "/check", Label: ctrl.Label()}
		if ctrl.Busy() {
			view.Label = resourcelist.CheckingLabel
			view.Busy = true
		}
		data.Check = view
	}

	switch p := page.(type) {
	case *controller.ReposPage, *controller.ServersPage:
		data.FormName = p.Kinds()[0].Name
		data.Schedule = scheduleLines(sess)
	case *controller.CommandsPage:
		data.FormName = p.Kinds()[0].Name
		data.Options = map[string][]string{
			"repo":   sess.Surface.Options("repo"),
			"server": sess.Surface.Options("server"),
		}
		data.Schedule = scheduleLines(sess)
	case *controller.LogsPage:
		for _, l := range []struct{ name, title string }{
			{controller.LogActivity, "Activity log"},
			{controller.LogConnectivity, "Connectivity log"},
		} {
			if text, ok := sess.Surface.Log(l.name); ok {
				data.Logs = append(data.Logs, logView{Title: l.title, Text: text})
			}
		}
	case *controller.SettingsPage:
		if s, ok := sess.Surface.Settings(); ok {
			data.Settings = &s
		}
		data.Schedule = scheduleLines(sess)
	}

	data.Notes = sess.Surface.TakeNotes()
	respondHTML(w, http.StatusOK, "page", data)
}

// renderTables renders the lists of kinds shown on the surface. Row
// actions post back under base.
func renderTables(sess *session.Session, kinds []resourcelist.Kind, base string) ([]tableView, error) {
	var out []tableView
	for _, kind := range kinds {
		tbl, ok := sess.Surface.Table(kind)
		if !ok {
			continue
		}
		var buf bytes.Buffer
		r := &render.HTMLRenderer{ActionBase: base, CSRFToken: sess.FormToken()}
		if err := r.Render(&buf, kind.Template, tbl.Rows); err != nil {
			return nil, err
		}
		// The renderer escapes every cell and attribute it writes
		out = append(out, tableView{Title: kind.Title, Count: len(tbl.Rows), HTML: template.HTML(buf.String())})
	}
	return out, nil
}

func scheduleLines(sess *session.Session) []string {
	s, ok := sess.Surface.Schedule()
	if !ok {
		return nil
	}
	return controller.ScheduleLines(s)
}

func pageTitle(route string) string {
	for _, n := range navigation {
		if n.Route == route {
			return n.Label
		}
	}
	return strings.Trim(route, "/")
}

// secretsBase is the page of one command's secrets
func secretsBase(commandID string) string {
	return controller.RouteCommands + "/secrets/" + url.PathEscape(commandID)
}
