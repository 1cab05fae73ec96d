package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pratik-mahalle/pullrunner/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.Token = "secret-token"
	backend.CSRF = "csrf-123"
	c := NewClient(Config{
		BaseURL:     backend.URL(),
		Credentials: StaticCredentials{Token: "secret-token", CSRF: "csrf-123"},
	})
	return c, backend
}

func TestClient_Headers(t *testing.T) {
	c, backend := newTestClient(t)
	ctx := context.Background()

	_, err := c.Repos().List(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Repos().Create(ctx, CreateRepoRequest{Name: "svc-a", Branch: "main", Token: "t"}))

	reqs := backend.Requests()
	require.Len(t, reqs, 2)

	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "secret-token", reqs[0].AuthToken)
	assert.Empty(t, reqs[0].CSRFToken, "anti-forgery token must not be sent on GET")

	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Equal(t, "secret-token", reqs[1].AuthToken)
	assert.Equal(t, "csrf-123", reqs[1].CSRFToken)
}

func TestClient_EmptyCredentialsAreNotSent(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), http.MethodDelete, "/api/repos/x", nil)
	require.NoError(t, err)

	_, hasToken := got[http.CanonicalHeaderKey(HeaderAuthToken)]
	_, hasCSRF := got[http.CanonicalHeaderKey(HeaderCSRFToken)]
	assert.False(t, hasToken)
	assert.False(t, hasCSRF)
}

func TestClient_RequestErrors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "json error field",
			contentType: "application/json",
			status:      http.StatusNotFound,
			body:        `{"error":"not found"}`,
			wantMessage: "not found",
		},
		{
			name:        "json without error field",
			contentType: "application/json",
			status:      http.StatusBadRequest,
			body:        `{"detail":"bad"}`,
			wantMessage: `{"detail":"bad"}`,
		},
		{
			name:        "plain text body",
			contentType: "text/html",
			status:      http.StatusInternalServerError,
			body:        "Internal Server Error\n",
			wantMessage: "Internal Server Error",
		},
		{
			name:        "empty body",
			contentType: "text/plain",
			status:      http.StatusBadGateway,
			body:        "",
			wantMessage: "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL})
			_, err := c.Do(context.Background(), http.MethodGet, "/api/repos", nil)
			require.Error(t, err)

			reqErr, ok := AsRequestError(err)
			require.True(t, ok, "expected *RequestError, got %T", err)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, tt.wantMessage, reqErr.Error())
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Token = "right"
	c := NewClient(Config{BaseURL: backend.URL(), Credentials: StaticCredentials{Token: "wrong"}})

	err := c.Servers().Delete(context.Background(), "10.0.0.1")
	reqErr, ok := AsRequestError(err)
	require.True(t, ok)
	assert.True(t, reqErr.IsUnauthorized())
	assert.Equal(t, "Unauthorized", reqErr.Message)
}

func TestClient_BodyClassification(t *testing.T) {
	c, backend := newTestClient(t)
	backend.ActivityLog = "line one<br>line two"
	ctx := context.Background()

	body, err := c.Do(ctx, http.MethodGet, ActivityLogPath, nil)
	require.NoError(t, err)
	assert.Equal(t, KindText, body.Kind)
	assert.Equal(t, "line one<br>line two", body.Text())

	var v map[string]interface{}
	assert.Error(t, body.Decode(&v), "text bodies cannot be decoded as structured data")

	body, err = c.Do(ctx, http.MethodGet, SettingsPath, nil)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, body.Kind)
	value, err := body.Value()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"repo_interval": float64(24), "server_interval": float64(12)}, value)
}

func TestRepoService_DeleteEscapesIdentityOnce(t *testing.T) {
	c, backend := newTestClient(t)
	backend.AddRepo(map[string]interface{}{"name": "acme/api", "branch": "main", "active": true})
	ctx := context.Background()

	require.NoError(t, c.Repos().Delete(ctx, "acme/api"))

	assert.Equal(t, 1, backend.CountRequests(http.MethodDelete, "/api/repos/acme%2Fapi"))
	assert.Zero(t, backend.CountRequests(http.MethodDelete, "/api/repos/acme%252Fapi"))
	assert.Empty(t, backend.Repos())
}

func TestRepoService_DeletePercentIdentity(t *testing.T) {
	c, backend := newTestClient(t)
	backend.AddRepo(map[string]interface{}{"name": "50%off", "branch": "main", "active": true})
	backend.AddRepo(map[string]interface{}{"name": "a%41", "branch": "main", "active": true})
	ctx := context.Background()

	require.NoError(t, c.Repos().Delete(ctx, "50%off"))

	assert.Equal(t, 1, backend.CountRequests(http.MethodDelete, "/api/repos/50%25off"))
	require.Len(t, backend.Repos(), 1)
	assert.Equal(t, "a%41", backend.Repos()[0]["name"])
}

func TestLogService_LineBreaks(t *testing.T) {
	c, backend := newTestClient(t)
	backend.ActivityLog = "2026-10-16 pulled acme/api\n2026-10-16 pulled acme/web"
	backend.ConnectivityLog = "web-1 ok"
	ctx := context.Background()

	text, err := c.Logs().Activity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16 pulled acme/api\n2026-10-16 pulled acme/web", text)
	assert.NotContains(t, text, "<br>")

	text, err = c.Logs().Connectivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "web-1 ok", text)
}

func TestRepoService_CreateNormalizesGitHubURL(t *testing.T) {
	c, backend := newTestClient(t)

	err := c.Repos().Create(context.Background(), CreateRepoRequest{
		Name:   "https://github.com/acme/api.git",
		Branch: "main",
	})
	require.NoError(t, err)

	repos, err := c.Repos().List(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "acme/api", repos[0].Name)
	assert.True(t, repos[0].Active.IsActive())
	assert.Len(t, backend.Repos(), 1)
}

func TestNormalizeRepoName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/acme/api":      "acme/api",
		"https://github.com/acme/api.git":  "acme/api",
		"http://github.com/acme/api/":      "acme/api",
		"acme/api":                         "acme/api",
		"https://gitlab.com/acme/api":      "https://gitlab.com/acme/api",
		"https://github.com/acme/api/tree": "https://github.com/acme/api/tree",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRepoName(in), in)
	}
}

func TestServerService_ActiveStates(t *testing.T) {
	c, backend := newTestClient(t)
	backend.AddServer(map[string]interface{}{"host": "a", "user": "root", "active": true})
	backend.AddServer(map[string]interface{}{"host": "b", "user": "root", "active": false})
	backend.AddServer(map[string]interface{}{"host": "c", "user": "root", "active": "retry"})

	servers, err := c.Servers().List(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 3)

	assert.True(t, servers[0].Active.IsActive())
	assert.False(t, servers[1].Active.IsActive())
	assert.False(t, servers[2].Active.IsActive())
	assert.True(t, servers[2].Active.IsRetry())
	assert.Equal(t, "retry", servers[2].Active.Value())
}

func TestCommandService_Lifecycle(t *testing.T) {
	c, backend := newTestClient(t)
	ctx := context.Background()

	cmd, err := c.Commands().Create(ctx, CreateCommandRequest{Repo: "acme/api", Server: "10.0.0.1", Command: "make deploy"})
	require.NoError(t, err)
	require.NotEmpty(t, cmd.ID)

	result, err := c.Commands().Run(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "abc1234", result.Commit)

	secrets := c.Commands().Secrets(cmd.ID)
	created, err := secrets.Create(ctx, CreateSecretRequest{Name: "DB_PASSWORD", Value: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "********er2", created.Value)

	listed, err := secrets.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "DB_PASSWORD", listed[0].Name)
	assert.NotContains(t, listed[0].Value, "hunter2")

	require.NoError(t, secrets.Delete(ctx, created.ID))
	assert.Empty(t, backend.Secrets(cmd.ID))

	require.NoError(t, c.Commands().Delete(ctx, cmd.ID))
	err = c.Commands().Delete(ctx, cmd.ID)
	reqErr, ok := AsRequestError(err)
	require.True(t, ok)
	assert.True(t, reqErr.IsNotFound())
	assert.Equal(t, "not found", reqErr.Error())
}

func TestClient_ScheduleAndSettings(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	sched, err := c.Schedule(ctx)
	require.NoError(t, err)
	require.NotNil(t, sched.NextRepo)
	assert.Equal(t, "2026-10-17T00:00:00+00:00", *sched.NextRepo)
	assert.Nil(t, sched.NextServer)

	require.NoError(t, c.Settings().Update(ctx, Settings{RepoInterval: 6, ServerInterval: 3}))
	settings, err := c.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{RepoInterval: 6, ServerInterval: 3}, *settings)
}

type recordingObserver struct {
	mu     sync.Mutex
	calls  []string
	status []int
}

func (o *recordingObserver) ObserveRequest(method, path string, status int, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+" "+path)
	o.status = append(o.status, status)
}

func TestClient_Observer(t *testing.T) {
	backend := testutil.NewBackend(t)
	obs := &recordingObserver{}
	c := NewClient(Config{BaseURL: backend.URL(), Observer: obs})
	ctx := context.Background()

	_, _ = c.Commands().List(ctx)
	_ = c.Commands().Delete(ctx, "missing")

	assert.Equal(t, []string{"GET /api/commands", "DELETE /api/commands/missing"}, obs.calls)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, obs.status)
}

func TestClient_WithCredentials(t *testing.T) {
	backend := testutil.NewBackend(t)
	base := NewClient(Config{BaseURL: backend.URL() + "/"})
	scoped := base.WithCredentials(StaticCredentials{Token: "abc"})

	_, err := scoped.Repos().List(context.Background())
	require.NoError(t, err)
	_, err = base.Repos().List(context.Background())
	require.NoError(t, err)

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/repos", reqs[0].RequestURI)
	assert.Equal(t, "abc", reqs[0].AuthToken)
	assert.Empty(t, reqs[1].AuthToken)
}
