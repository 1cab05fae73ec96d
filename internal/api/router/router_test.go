package router

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/pullrunner/internal/api/handlers"
	"github.com/pratik-mahalle/pullrunner/internal/api/middleware"
	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/config"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/testutil"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

const testToken = "s3cret"

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

func newDashboard(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()
	return newLoggedDashboard(t, backendURL, logger.Nop())
}

func newLoggedDashboard(t *testing.T, backendURL string, log *logger.Logger) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:8080"}

	api := client.NewClient(client.Config{BaseURL: backendURL})
	store := session.NewStore(session.Config{Client: api, Logger: log})

	srv := httptest.NewServer(New(cfg, log, Deps{
		Sessions: store,
		Limiter:  middleware.NewRateLimiter(1000, 1000),
		Handlers: &Handlers{
			Health: handlers.NewHealthHandler(api, store, log),
			Auth:   handlers.NewAuthHandler(log, false),
			Pages:  handlers.NewPageHandler(log),
		},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T) (*browser, *testutil.Backend) {
	t.Helper()

	backend := testutil.NewBackend(t)
	backend.Token = testToken
	srv := newDashboard(t, backend.URL())
	return newBrowser(t, srv.URL), backend
}

// browser is a cookie-keeping client that tracks the page's form token
type browser struct {
	t     *testing.T
	base  string
	http  *http.Client
	token string
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: base, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

// noRedirect returns a client sharing the browser's cookies that stops at
// the first response
func (b *browser) noRedirect() *http.Client {
	return &http.Client{
		Jar:     b.http.Jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.http.Get(b.base + path)
	require.NoError(b.t, err)
	return b.read(resp)
}

// post submits a form with the current form token and follows redirects
func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	resp, err := b.http.Do(b.request(path, form))
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *browser) request(path string, form url.Values) *http.Request {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if b.token != "" && form.Get(middleware.CSRFField) == "" {
		form.Set(middleware.CSRFField, b.token)
	}
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (b *browser) read(resp *http.Response) (int, string) {
	b.t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	body := string(raw)
	if m := csrfMeta.FindStringSubmatch(body); m != nil {
		b.token = m[1]
	}
	return resp.StatusCode, body
}

func (b *browser) login() {
	b.t.Helper()
	status, _ := b.get("/login")
	require.Equal(b.t, http.StatusOK, status)
	status, body := b.post("/login", url.Values{"token": {testToken}})
	require.Equal(b.t, http.StatusOK, status)
	require.Contains(b.t, body, "Logout")
}

// syncBuffer collects log output written from handler goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func repoRecord(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":       name,
		"branch":     "main",
		"active":     true,
		"last_check": testutil.Epoch,
	}
}

func TestRouter_ViewsAreOpenActionsNeedLogin(t *testing.T) {
	b, backend := setup(t)
	backend.AddRepo(repoRecord("acme/api"))

	status, body := b.get("/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "acme/api")
	assert.Contains(t, body, "Login")

	resp, err := b.noRedirect().Do(b.request("/repos/view/check", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 0, backend.Checks("repos"))
}

func TestRouter_LoginRejectsEmptyToken(t *testing.T) {
	b, _ := setup(t)
	b.get("/login")

	status, body := b.post("/login", url.Values{"token": {"  "}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Invalid token")
	assert.NotContains(t, body, "Logout")
}

func TestRouter_RejectsMissingFormToken(t *testing.T) {
	b, _ := setup(t)
	b.get("/login")

	status, _ := b.post("/login", url.Values{
		"token":              {testToken},
		middleware.CSRFField: {"forged"},
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRouter_AddRepo(t *testing.T) {
	b, backend := setup(t)
	b.login()

	status, body := b.post("/repos/view/add", url.Values{
		"name":   {"https://github.com/acme/api.git"},
		"branch": {"dev"},
		"token":  {"ghp_hidden"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "acme/api")
	assert.NotContains(t, body, "ghp_hidden")

	repos := backend.Repos()
	require.Len(t, repos, 1)
	assert.Equal(t, "acme/api", repos[0]["name"])
	assert.Equal(t, "dev", repos[0]["branch"])

	for _, req := range backend.Requests() {
		if req.Method == http.MethodPost {
			assert.Equal(t, testToken, req.AuthToken)
		}
	}
}

func TestRouter_AddRepoKeepsFormOnFailure(t *testing.T) {
	b, backend := setup(t)
	b.login()

	status, body := b.post("/repos/view/add", url.Values{"branch": {"release"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `value="release"`)
	assert.Empty(t, backend.Repos())
}

func TestRouter_DeleteEscapesIdentityOnce(t *testing.T) {
	b, backend := setup(t)
	backend.AddRepo(repoRecord("acme/api"))
	b.login()

	status, _ := b.post("/repos/view/delete/acme%2Fapi", nil)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, 1, backend.CountRequests(http.MethodDelete, "/api/repos/acme%2Fapi"))
	assert.Empty(t, backend.Repos())
}

func TestRouter_DeletePercentIdentity(t *testing.T) {
	b, backend := setup(t)
	backend.AddRepo(repoRecord("50%off"))
	backend.AddRepo(repoRecord("a%41"))
	b.login()

	status, body := b.get("/repos/view")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "/repos/view/delete/50%25off")

	status, _ = b.post("/repos/view/delete/50%25off", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, backend.CountRequests(http.MethodDelete, "/api/repos/50%25off"))

	status, _ = b.post("/repos/view/delete/a%2541", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, backend.CountRequests(http.MethodDelete, "/api/repos/a%2541"))
	assert.Zero(t, backend.CountRequests(http.MethodDelete, "/api/repos/a%41"))
	assert.Empty(t, backend.Repos())
}

func TestRouter_FailedDeleteDoesNotReload(t *testing.T) {
	b, backend := setup(t)
	b.login()

	status, _ := b.get("/commands/view")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, backend.CountRequests(http.MethodGet, "/api/commands"))

	status, body := b.post("/commands/view/delete/missing", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "not found")
	assert.Equal(t, 1, backend.CountRequests(http.MethodGet, "/api/commands"))
}

func TestRouter_SuccessfulActionReloadsOnce(t *testing.T) {
	b, backend := setup(t)
	backend.AddRepo(repoRecord("acme/api"))
	backend.AddRepo(repoRecord("acme/web"))
	b.login()
	before := backend.CountRequests(http.MethodGet, "/api/repos")

	status, body := b.post("/repos/view/delete/acme%2Fweb", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "acme/api")
	assert.Equal(t, before+1, backend.CountRequests(http.MethodGet, "/api/repos"))
}

func TestRouter_CheckServers(t *testing.T) {
	b, backend := setup(t)
	b.login()

	status, body := b.post("/servers/view/check", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Triggered servers check")
	assert.Contains(t, body, "Check Now")
	assert.Equal(t, 1, backend.Checks("servers"))
}

func TestRouter_CheckInFlightIsTurnedAway(t *testing.T) {
	b, backend := setup(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.OnRequest = func(req testutil.RecordedRequest) {
		if req.Method == http.MethodPost && req.RequestURI == "/api/check/servers" {
			close(entered)
			<-release
		}
	}
	b.login()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := b.http.Do(b.request("/servers/view/check", nil))
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("check never reached the backend")
	}

	resp, err := b.noRedirect().Do(b.request("/servers/view/check", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/servers/view", resp.Header.Get("Location"))

	close(release)
	<-done
	assert.Equal(t, 1, backend.Checks("servers"))
	assert.Equal(t, 1, backend.CountRequests(http.MethodPost, "/api/check/servers"))
}

func TestRouter_CheckQueuedBehindLoadIsTurnedAway(t *testing.T) {
	b, backend := setup(t)

	var once sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	backend.OnRequest = func(req testutil.RecordedRequest) {
		if req.Method == http.MethodGet && req.RequestURI == "/api/servers" {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	}
	b.login()

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		resp, err := b.http.Get(b.base + "/servers/view")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("servers load never reached the backend")
	}

	// Both checks are submitted while the load holds the session
	first := b.request("/servers/view/check", nil)
	second := b.request("/servers/view/check", nil)
	results := make(chan int, 2)
	for _, req := range []*http.Request{first, second} {
		go func(req *http.Request) {
			resp, err := b.noRedirect().Do(req)
			if err != nil {
				results <- 0
				return
			}
			resp.Body.Close()
			results <- resp.StatusCode
		}(req)
	}

	select {
	case status := <-results:
		assert.Equal(t, http.StatusSeeOther, status, "the second check is answered without waiting")
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("no check was turned away while the load was in progress")
	}

	close(release)
	<-loaded
	assert.Equal(t, http.StatusSeeOther, <-results)
	assert.Equal(t, 1, backend.Checks("servers"))
	assert.Equal(t, 1, backend.CountRequests(http.MethodPost, "/api/check/servers"))
}

func TestRouter_RunLogsTarget(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Token = testToken
	backend.AddCommand(map[string]interface{}{
		"id":       "7",
		"repo":     "acme/api",
		"server":   "web1",
		"command":  "make deploy",
		"active":   true,
		"last_run": testutil.Epoch,
	})
	out := &syncBuffer{}
	srv := newLoggedDashboard(t, backend.URL(), logger.New(logger.Config{Level: "info", Format: "json", Output: out}))
	b := newBrowser(t, srv.URL)
	b.login()

	status, _ := b.get("/commands/view")
	require.Equal(t, http.StatusOK, status)
	status, body := b.post("/commands/view/run/7", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "abc1234")

	logged := out.String()
	assert.Contains(t, logged, `"message":"command executed"`)
	assert.Contains(t, logged, `"server":"web1"`)
	assert.Contains(t, logged, `"repo":"acme/api"`)
	assert.Contains(t, logged, `"commit":"abc1234"`)
}

func TestRouter_Secrets(t *testing.T) {
	b, backend := setup(t)
	backend.AddCommand(map[string]interface{}{
		"id":       "7",
		"repo":     "acme/api",
		"server":   "web1",
		"command":  "make deploy",
		"active":   true,
		"last_run": testutil.Epoch,
	})
	b.login()

	status, body := b.get("/commands/view")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `href="/commands/view/secrets/7"`)

	status, body = b.get("/commands/view/secrets/7")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Secrets of command 7")

	status, body = b.post("/commands/view/secrets/7", url.Values{
		"name":  {"API_KEY"},
		"value": {"supersecret"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "API_KEY")
	assert.NotContains(t, body, "supersecret")

	secrets := backend.Secrets("7")
	require.Len(t, secrets, 1)
	assert.Equal(t, "supersecret", secrets[0]["value"])

	sid := secrets[0]["id"].(string)
	status, _ = b.post("/commands/view/secrets/7/delete/"+sid, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, backend.Secrets("7"))
}

func TestRouter_UpdateSettings(t *testing.T) {
	b, backend := setup(t)
	b.login()

	status, body := b.get("/settings/view")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `value="24"`)

	status, _ = b.post("/settings/view", url.Values{
		"repo_interval":   {"6"},
		"server_interval": {"3"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]int{"repo_interval": 6, "server_interval": 3}, backend.Settings())

	before := backend.Requests()
	status, _ = b.post("/settings/view", url.Values{
		"repo_interval":   {"0"},
		"server_interval": {"abc"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]int{"repo_interval": 6, "server_interval": 3}, backend.Settings())
	for _, req := range backend.Requests()[len(before):] {
		assert.NotEqual(t, http.MethodPost, req.Method)
	}
}

func TestRouter_LogoutDropsCredentials(t *testing.T) {
	b, backend := setup(t)
	b.login()

	status, body := b.get("/logout")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Access token")

	resp, err := b.noRedirect().Do(b.request("/servers/view/check", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Equal(t, 0, backend.Checks("servers"))
}

func TestRouter_HealthEndpoints(t *testing.T) {
	b, _ := setup(t)

	status, body := b.get("/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, body = b.get("/readyz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ready"`)

	b.get("/repos/view")
	status, body = b.get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "pullrunner_http_requests_total")

	status, _ = b.get("/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_ReadyzWithoutBackend(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	b := newBrowser(t, newDashboard(t, deadURL).URL)
	status, body := b.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "SERVICE_UNAVAILABLE")
}

func TestRouter_SecurityHeaders(t *testing.T) {
	b, _ := setup(t)

	resp, err := b.http.Get(b.base + "/repos/view")
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}
