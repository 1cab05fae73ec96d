package session

import (
	"net/url"
	"sync"

	"github.com/pratik-mahalle/pullrunner/internal/pkg/metrics"
	"github.com/pratik-mahalle/pullrunner/internal/render"
	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// Table is the rows last shown for one resource list
type Table struct {
	Kind resourcelist.Kind
	Rows []render.Row
}

// Surface is the browser-side state of a session: what the next page render
// shows. Notifications are queued until a render takes them.
type Surface struct {
	mu       sync.Mutex
	tables   map[string]Table
	notes    []string
	schedule *client.Schedule
	options  map[string][]string
	logs     map[string]string
	settings *client.Settings
	forms    map[string]*Form
}

// NewSurface creates an empty surface
func NewSurface() *Surface {
	return &Surface{
		tables:  make(map[string]Table),
		options: make(map[string][]string),
		logs:    make(map[string]string),
		forms:   make(map[string]*Form),
	}
}

// Replace stores the rows of a list, keyed by the list's backend path so
// the secrets of different commands never mix.
func (s *Surface) Replace(kind resourcelist.Kind, rows []render.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[kind.ListPath] = Table{Kind: kind, Rows: rows}
	return nil
}

// Notify queues a blocking notification
func (s *Surface) Notify(message string) {
	metrics.RecordNotification()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, message)
}

// TakeNotes returns and clears the queued notifications
func (s *Surface) TakeNotes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes
	s.notes = nil
	return notes
}

// ShowSchedule stores the schedule panel
func (s *Surface) ShowSchedule(schedule client.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = &schedule
}

// ShowOptions stores the choices of a form field
func (s *Surface) ShowOptions(field string, values []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[field] = append([]string(nil), values...)
}

// ShowLog stores a log view
func (s *Surface) ShowLog(name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[name] = text
}

// ShowSettings stores the settings panel
func (s *Surface) ShowSettings(settings client.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
}

// Table returns the rows last shown for a kind
func (s *Surface) Table(kind resourcelist.Kind) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[kind.ListPath]
	return t, ok
}

// Schedule returns the schedule panel, if one was shown
func (s *Surface) Schedule() (client.Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return client.Schedule{}, false
	}
	return *s.schedule, true
}

// Options returns the choices of a form field
func (s *Surface) Options(field string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.options[field]...)
}

// Log returns a log view
func (s *Surface) Log(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.logs[name]
	return text, ok
}

// Settings returns the settings panel, if one was shown
func (s *Surface) Settings() (client.Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return client.Settings{}, false
	}
	return *s.settings, true
}

// Form returns the create form of a route
func (s *Surface) Form(route string) *Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[route]
	if !ok {
		f = &Form{}
		s.forms[route] = f
	}
	return f
}

// Form keeps the values typed into a create form across a failed submit.
// A successful create resets it.
type Form struct {
	mu     sync.Mutex
	values url.Values
}

// Fill replaces the kept values. Fields named in secret are never kept.
func (f *Form) Fill(values url.Values, secret ...string) {
	kept := url.Values{}
	for k, v := range values {
		kept[k] = append([]string(nil), v...)
	}
	for _, k := range secret {
		kept.Del(k)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = kept
}

// Reset clears the form
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = nil
}

// Values returns a copy of the kept values, one per field
func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k := range f.values {
		out[k] = f.values.Get(k)
	}
	return out
}

// Get returns a kept value
func (f *Form) Get(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Get(field)
}
