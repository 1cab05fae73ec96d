// Package session keeps the per-browser state of the dashboard: the
// surface the pages draw on, the pages themselves, and the tokens.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/metrics"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/validator"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// Config holds what every session's pages share
type Config struct {
	Client    *client.Client
	Registry  *controller.Registry
	Validator *validator.Validator
	Logger    *logger.Logger
}

// Store holds the live sessions
type Store struct {
	cfg      Config
	sessions cmap.ConcurrentMap[string, *Session]
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore(cfg Config) *Store {
	if cfg.Registry == nil {
		cfg.Registry = controller.DefaultRegistry()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Store{
		cfg:      cfg,
		sessions: cmap.New[*Session](),
		now:      time.Now,
	}
}

// Create starts a new session
func (st *Store) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		formToken: uuid.NewString(),
		Surface:   NewSurface(),
		store:     st,
		pages:     make(map[string]controller.Page),
		views:     make(map[string]viewState),
		lastSeen:  st.now(),
	}
	st.sessions.Set(s.ID, s)
	metrics.SetActiveSessions(st.sessions.Count())
	return s
}

// Get returns a live session and marks it as seen
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, false
	}
	s.touch(st.now())
	return s, true
}

// Delete drops a session
func (st *Store) Delete(id string) {
	st.sessions.Remove(id)
	metrics.SetActiveSessions(st.sessions.Count())
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	return st.sessions.Count()
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were dropped
func (st *Store) Sweep(maxIdle time.Duration) int {
	cutoff := st.now().Add(-maxIdle)
	dropped := 0
	for _, s := range st.sessions.Items() {
		if s.idleSince().Before(cutoff) {
			st.sessions.Remove(s.ID)
			dropped++
		}
	}
	metrics.SetActiveSessions(st.sessions.Count())
	if dropped > 0 {
		st.cfg.Logger.WithFields(map[string]interface{}{
			"dropped": dropped,
			"live":    st.sessions.Count(),
		}).Info("swept idle sessions")
	}
	return dropped
}

// Session is one browser's dashboard state. Dispatch runs one action at a
// time; the surface and credentials may be read concurrently.
type Session struct {
	ID      string
	Surface *Surface

	store     *Store
	formToken string
	dispatch  sync.Mutex

	mu          sync.Mutex
	authToken   string
	backendCSRF string
	lastSeen    time.Time
	pages       map[string]controller.Page
	views       map[string]viewState
}

// viewState tracks whether the surface already holds what a view shows
type viewState struct {
	loaded  bool
	current bool
}

// FormToken returns the anti-forgery token every state-changing request of
// the session must carry
func (s *Session) FormToken() string {
	return s.formToken
}

// SetCredentials stores the backend credentials. Empty values clear them.
func (s *Session) SetCredentials(authToken, csrfToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authToken = authToken
	s.backendCSRF = csrfToken
}

// AuthToken returns the backend auth token
func (s *Session) AuthToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authToken
}

// BackendCSRF returns the backend anti-forgery token
func (s *Session) BackendCSRF() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendCSRF
}

// LoggedIn reports whether the session carries an auth token
func (s *Session) LoggedIn() bool {
	return s.AuthToken() != ""
}

// Client returns the backend client bound to the session's credentials
func (s *Session) Client() *client.Client {
	return s.store.cfg.Client.WithCredentials(client.CredentialFunc{
		Token: s.AuthToken,
		CSRF:  s.BackendCSRF,
	})
}

// Env returns the page environment of the session
func (s *Session) Env() controller.Env {
	return controller.Env{
		Client:    s.Client(),
		Surface:   s.Surface,
		Validator: s.store.cfg.Validator,
		Logger:    s.store.cfg.Logger.With("session", shortID(s.ID)),
	}
}

// Open returns the session's page for route, creating it on first use.
// Pages live as long as the session so their controls keep state across
// requests.
func (s *Session) Open(route string) (controller.Page, error) {
	s.mu.Lock()
	page, ok := s.pages[route]
	s.mu.Unlock()
	if ok {
		return page, nil
	}

	page, err := s.store.cfg.Registry.Open(route, s.Env())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pages[route]; ok {
		return existing, nil
	}
	s.pages[route] = page
	return page, nil
}

// Dispatch runs fn alone among the session's actions
func (s *Session) Dispatch(fn func()) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()
	fn()
}

// Reset drops the credentials and every page, keeping the session itself
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authToken = ""
	s.backendCSRF = ""
	s.pages = make(map[string]controller.Page)
	s.views = make(map[string]viewState)
}

// MarkLoaded records that view has been loaded onto the surface
func (s *Session) MarkLoaded(view string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view] = viewState{loaded: true}
}

// MarkCurrent records that an action left view up to date, whether it
// reloaded or left the previous rows in place. Views never loaded are not
// marked.
func (s *Session) MarkCurrent(view string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.views[view]; st.loaded {
		st.current = true
		s.views[view] = st
	}
}

// TakeCurrent reports whether view is up to date and clears the mark, so
// only the render that directly follows an action skips its load.
func (s *Session) TakeCurrent(view string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.views[view]
	if !st.current {
		return false
	}
	st.current = false
	s.views[view] = st
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
