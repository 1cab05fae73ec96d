package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/utils"
	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
)

// dialog opens the secrets dialog of the command named in the URL
func (h *PageHandler) dialog(w http.ResponseWriter, r *http.Request) (*session.Session, *controller.SecretsDialog, bool) {
	sess, page, ok := h.open(w, r, controller.RouteCommands)
	if !ok {
		return nil, nil, false
	}
	commands, ok := page.(*controller.CommandsPage)
	if !ok {
		utils.WriteError(w, errors.NotFound("Page"))
		return nil, nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, nil, false
	}
	return sess, commands.Secrets(id, nil), true
}

// Secrets renders the secrets of one command
func (h *PageHandler) Secrets(w http.ResponseWriter, r *http.Request) {
	sess, dialog, ok := h.dialog(w, r)
	if !ok {
		return
	}
	base := secretsBase(dialog.CommandID())

	if !sess.TakeCurrent(base) {
		sess.Dispatch(func() {
			_ = dialog.Load(r.Context())
			sess.MarkLoaded(base)
		})
	}

	data := newPageData(sess, controller.RouteCommands, "Secrets")
	data.Secrets = &secretsView{CommandID: dialog.CommandID(), Action: base}
	data.Form = sess.Surface.Form(base).Values()

	tables, err := renderTables(sess, []resourcelist.Kind{resourcelist.Secrets(dialog.CommandID())}, base)
	if err != nil {
		utils.WriteError(w, errors.Internal("Failed to render table", err))
		return
	}
	data.Tables = tables
	data.Notes = sess.Surface.TakeNotes()

	respondHTML(w, http.StatusOK, "secrets", data)
}

// AddSecret stores a secret on a command
func (h *PageHandler) AddSecret(w http.ResponseWriter, r *http.Request) {
	sess, dialog, ok := h.dialog(w, r)
	if !ok {
		return
	}
	base := secretsBase(dialog.CommandID())
	form := h.fill(sess, base, r)

	sess.Dispatch(func() {
		if err := dialog.Add(r.Context(), r.PostFormValue("name"), r.PostFormValue("value")); err == nil {
			form.Reset()
		}
		sess.MarkCurrent(base)
	})
	seeOther(w, r, base)
}

// DeleteSecret removes a secret from a command
func (h *PageHandler) DeleteSecret(w http.ResponseWriter, r *http.Request) {
	sess, dialog, ok := h.dialog(w, r)
	if !ok {
		return
	}
	secretID, ok := pathID(w, r, "secret")
	if !ok {
		return
	}
	base := secretsBase(dialog.CommandID())

	sess.Dispatch(func() {
		_ = dialog.Delete(r.Context(), secretID)
		sess.MarkCurrent(base)
	})
	seeOther(w, r, base)
}
