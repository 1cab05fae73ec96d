package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Epoch is the last-check value the backend gives new records
const Epoch = "1970-01-01T00:00:00"

// RecordedRequest is one request seen by the fake backend
type RecordedRequest struct {
	Method     string
	RequestURI string
	AuthToken  string
	CSRFToken  string
	Body       string
}

// Backend is an in-memory stand-in for the Remote Pull Runner REST API.
// Records are kept as raw JSON objects in insertion order.
type Backend struct {
	Token string // required on mutations when non-empty
	CSRF  string // required on non-GET requests when non-empty

	// Failure switches
	FailCheck    bool
	FailSchedule bool
	FailList     bool

	// OnRequest, when set, sees every request before it is handled
	OnRequest func(RecordedRequest)

	mu       sync.Mutex
	repos    []map[string]interface{}
	servers  []map[string]interface{}
	commands []map[string]interface{}
	secrets  map[string][]map[string]interface{}
	settings map[string]int
	requests []RecordedRequest
	checks   map[string]int

	ActivityLog     string
	ConnectivityLog string

	server *httptest.Server
}

// NewBackend starts a fake backend that is closed with the test
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		secrets:         make(map[string][]map[string]interface{}),
		settings:        map[string]int{"repo_interval": 24, "server_interval": 12},
		checks:          make(map[string]int),
		ActivityLog:     "No activity logs",
		ConnectivityLog: "No connectivity logs",
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the base URL of the fake backend
func (b *Backend) URL() string {
	return b.server.URL
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(escapedPath)
	r.Use(b.record)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/repos", b.list(&b.repos))
		r.Get("/servers", b.list(&b.servers))
		r.Get("/commands", b.list(&b.commands))
		r.Get("/schedule", b.schedule)
		r.Get("/settings", b.getSettings)

		r.Group(func(r chi.Router) {
			r.Use(b.requireToken)

			r.Post("/repos", b.addRepo)
			r.Delete("/repos/{id}", b.remove(&b.repos, "name"))
			r.Post("/servers", b.addServer)
			r.Delete("/servers/{id}", b.remove(&b.servers, "host"))
			r.Post("/commands", b.addCommand)
			r.Delete("/commands/{id}", b.remove(&b.commands, "id"))
			r.Post("/commands/{id}/run", b.run)
			r.Get("/commands/{id}/secrets", b.listSecrets)
			r.Post("/commands/{id}/secrets", b.addSecret)
			r.Delete("/commands/{id}/secrets/{sid}", b.deleteSecret)
			r.Post("/check/{kind}", b.check)
			r.Post("/settings", b.updateSettings)
		})
	})

	r.Get("/logs/activity", func(w http.ResponseWriter, r *http.Request) {
		writeLog(w, b.ActivityLog)
	})
	r.Get("/logs/connectivity", func(w http.ResponseWriter, r *http.Request) {
		writeLog(w, b.ConnectivityLog)
	})

	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			body = string(raw)
		}

		rec := RecordedRequest{
			Method:     r.Method,
			RequestURI: r.RequestURI,
			AuthToken:  r.Header.Get("X-Auth-Token"),
			CSRFToken:  r.Header.Get("X-CSRFToken"),
			Body:       body,
		}
		b.mu.Lock()
		b.requests = append(b.requests, rec)
		hook := b.OnRequest
		b.mu.Unlock()

		if hook != nil {
			hook(rec)
		}

		if b.CSRF != "" && r.Method != http.MethodGet && r.Method != http.MethodHead &&
			r.Header.Get("X-CSRFToken") != b.CSRF {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "The CSRF token is missing."})
			return
		}

		r.Body = io.NopCloser(strings.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Token != "" && r.Header.Get("X-Auth-Token") != b.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) list(records *[]map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.FailList {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list unavailable"})
			return
		}
		b.mu.Lock()
		out := make([]map[string]interface{}, len(*records))
		copy(out, *records)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

func (b *Backend) remove(records *[]map[string]interface{}, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := urlParam(r, "id")

		b.mu.Lock()
		defer b.mu.Unlock()

		kept := (*records)[:0:0]
		for _, rec := range *records {
			if rec[key] != id {
				kept = append(kept, rec)
			}
		}
		if len(kept) == len(*records) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		*records = kept
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (b *Backend) addRepo(w http.ResponseWriter, r *http.Request) {
	var data map[string]string
	_ = json.NewDecoder(r.Body).Decode(&data)

	branch := data["branch"]
	if branch == "" {
		branch = "main"
	}
	b.AddRepo(map[string]interface{}{
		"name":       data["name"],
		"token":      data["token"],
		"branch":     branch,
		"active":     true,
		"last_check": Epoch,
	})
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (b *Backend) addServer(w http.ResponseWriter, r *http.Request) {
	var data map[string]string
	_ = json.NewDecoder(r.Body).Decode(&data)

	b.AddServer(map[string]interface{}{
		"host":       data["host"],
		"user":       data["user"],
		"key":        data["key"],
		"active":     true,
		"last_check": Epoch,
	})
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (b *Backend) addCommand(w http.ResponseWriter, r *http.Request) {
	var data map[string]string
	_ = json.NewDecoder(r.Body).Decode(&data)

	cmd := map[string]interface{}{
		"id":       strings.ReplaceAll(uuid.New().String(), "-", ""),
		"repo":     data["repo"],
		"server":   data["server"],
		"command":  data["command"],
		"active":   true,
		"last_run": Epoch,
	}
	b.AddCommand(cmd)
	writeJSON(w, http.StatusCreated, cmd)
}

func (b *Backend) run(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if b.find(&b.commands, "id", id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("Command %s not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"commit":   "abc1234",
		"output":   "Already up to date.",
		"error":    "",
		"last_run": time.Now().UTC().Format("2006-01-02T15:04:05"),
	})
}

func (b *Backend) check(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != "repos" && kind != "servers" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if b.FailCheck {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "check failed"})
		return
	}
	b.mu.Lock()
	b.checks[kind]++
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "checked_at": time.Now().UTC().Format(time.RFC3339)})
}

func (b *Backend) schedule(w http.ResponseWriter, r *http.Request) {
	if b.FailSchedule {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "scheduler stopped"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"next_repo":   "2026-10-17T00:00:00+00:00",
		"next_server": nil,
	})
}

func (b *Backend) getSettings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.settings)
}

func (b *Backend) updateSettings(w http.ResponseWriter, r *http.Request) {
	var data map[string]int
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settings"})
		return
	}
	b.mu.Lock()
	b.settings = data
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Backend) listSecrets(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(b.secrets[id]))
	for _, s := range b.secrets[id] {
		out = append(out, map[string]interface{}{
			"id":    s["id"],
			"name":  s["name"],
			"value": MaskSecret(s["value"].(string)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) addSecret(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	var data map[string]string
	_ = json.NewDecoder(r.Body).Decode(&data)

	secret := map[string]interface{}{
		"id":    strings.ReplaceAll(uuid.New().String(), "-", ""),
		"name":  data["name"],
		"value": data["value"],
	}
	b.mu.Lock()
	b.secrets[id] = append(b.secrets[id], secret)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    secret["id"],
		"name":  secret["name"],
		"value": MaskSecret(data["value"]),
	})
}

func (b *Backend) deleteSecret(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	sid := urlParam(r, "sid")

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.secrets[id][:0:0]
	for _, s := range b.secrets[id] {
		if s["id"] != sid {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(b.secrets[id]) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	b.secrets[id] = kept
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddRepo seeds a repository record
func (b *Backend) AddRepo(rec map[string]interface{}) {
	b.upsert(&b.repos, "name", rec)
}

// AddServer seeds a server record
func (b *Backend) AddServer(rec map[string]interface{}) {
	b.upsert(&b.servers, "host", rec)
}

// AddCommand seeds a command record
func (b *Backend) AddCommand(rec map[string]interface{}) {
	b.upsert(&b.commands, "id", rec)
}

// Repos returns a copy of the repository records
func (b *Backend) Repos() []map[string]interface{} {
	return b.snapshot(&b.repos)
}

// Servers returns a copy of the server records
func (b *Backend) Servers() []map[string]interface{} {
	return b.snapshot(&b.servers)
}

// Commands returns a copy of the command records
func (b *Backend) Commands() []map[string]interface{} {
	return b.snapshot(&b.commands)
}

// Secrets returns the unmasked secrets of a command
func (b *Backend) Secrets(commandID string) []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]interface{}, len(b.secrets[commandID]))
	copy(out, b.secrets[commandID])
	return out
}

// Settings returns the stored intervals
func (b *Backend) Settings() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// Checks returns how many sweeps of kind were triggered
func (b *Backend) Checks(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checks[kind]
}

// Requests returns every request seen so far
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// CountRequests counts the requests matching method and URI
func (b *Backend) CountRequests(method, uri string) int {
	n := 0
	for _, req := range b.Requests() {
		if req.Method == method && req.RequestURI == uri {
			n++
		}
	}
	return n
}

func (b *Backend) upsert(records *[]map[string]interface{}, key string, rec map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := (*records)[:0:0]
	for _, r := range *records {
		if r[key] != rec[key] {
			kept = append(kept, r)
		}
	}
	*records = append(kept, rec)
}

func (b *Backend) find(records *[]map[string]interface{}, key, id string) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range *records {
		if r[key] == id {
			return r
		}
	}
	return nil
}

func (b *Backend) snapshot(records *[]map[string]interface{}) []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]interface{}, len(*records))
	copy(out, *records)
	return out
}

// MaskSecret hides all but the last three characters of a secret
func MaskSecret(plain string) string {
	tail := "***"
	if len(plain) >= 3 {
		tail = plain[len(plain)-3:]
	}
	return strings.Repeat("*", 8) + tail
}

// escapedPath routes on the escaped path so identities reach urlParam
// encoded exactly once
func escapedPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.RawPath = r.URL.EscapedPath()
		next.ServeHTTP(w, r)
	})
}

// urlParam returns a decoded route parameter
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeLog serves log text the way the backend does, one line per <br>
func writeLog(w http.ResponseWriter, s string) {
	writeText(w, strings.ReplaceAll(s, "\n", "<br>"))
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, s)
}
