// Package resourcelist keeps a rendered resource table consistent with the
// backend's state. Every mutation that succeeds is followed by a full list
// fetch and a full re-render; a mutation that fails is surfaced through the
// Notifier and leaves the last rendered snapshot untouched.
package resourcelist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/render"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// ErrNotSupported is returned for actions a kind does not offer
var ErrNotSupported = errors.New("action not supported")

// Transport issues one request and returns the classified body.
// *client.Client implements it.
type Transport interface {
	Do(ctx context.Context, method, path string, body interface{}) (*client.Body, error)
}

// View displays the rows of one kind
type View interface {
	Replace(kind Kind, rows []render.Row) error
}

// Notifier surfaces a message to the user
type Notifier interface {
	Notify(message string)
}

// Form is the input a create action was submitted from
type Form interface {
	Reset()
}

// Validator checks a request body before it is sent
type Validator interface {
	Validate(i interface{}) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

// Notify implements Notifier
func (f NotifierFunc) Notify(message string) { f(message) }

// Snapshot is the record list of the last successful fetch
type Snapshot struct {
	Records  []render.Record
	Rows     []render.Row
	LoadedAt time.Time
}

// Len returns the number of records
func (s Snapshot) Len() int {
	return len(s.Records)
}

// Config holds the collaborators of a Synchronizer
type Config struct {
	Kind      Kind
	Transport Transport
	View      View
	Notifier  Notifier
	Validator Validator      // optional
	Logger    *logger.Logger // optional
}

// Synchronizer runs the list, create, delete, check and run actions of
// one kind.
type Synchronizer struct {
	kind      Kind
	transport Transport
	view      View
	notifier  Notifier
	validator Validator
	log       *logger.Logger

	mu       sync.RWMutex
	snapshot Snapshot
	loaded   bool
}

// New creates a synchronizer
func New(cfg Config) *Synchronizer {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return &Synchronizer{
		kind:      cfg.Kind,
		transport: cfg.Transport,
		view:      cfg.View,
		notifier:  notifier,
		validator: cfg.Validator,
		log:       log.With("kind", cfg.Kind.Name),
	}
}

// Kind returns the managed kind
func (s *Synchronizer) Kind() Kind {
	return s.kind
}

// Snapshot returns the last successfully loaded snapshot
func (s *Synchronizer) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.loaded
}

// Find returns the record with the given identity from the snapshot
func (s *Synchronizer) Find(id string) (render.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.snapshot.Records {
		if render.FormatValue(rec[s.kind.KeyField]) == id {
			return rec, true
		}
	}
	return nil, false
}

// Load fetches the list, maps and renders it, then replaces the snapshot.
// On any failure the view and snapshot keep their previous content.
func (s *Synchronizer) Load(ctx context.Context) error {
	body, err := s.transport.Do(ctx, http.MethodGet, s.kind.ListPath, nil)
	if err != nil {
		return s.fail("load", err)
	}

	var records []render.Record
	if err := body.Decode(&records); err != nil {
		return s.fail("load", fmt.Errorf("failed to decode %s: %w", s.kind.Name, err))
	}

	rows, err := render.MapRecords(s.kind.Template, s.kind.KeyField, records)
	if err != nil {
		return s.fail("load", err)
	}

	if s.view != nil {
		if err := s.view.Replace(s.kind, rows); err != nil {
			return s.fail("render", err)
		}
	}

	s.mu.Lock()
	s.snapshot = Snapshot{Records: records, Rows: rows, LoadedAt: time.Now()}
	s.loaded = true
	s.mu.Unlock()

	s.log.Debugf("loaded %d %s", len(records), s.kind.Name)
	return nil
}

// Create posts a new record. On success the form is reset and the list
// reloaded.
func (s *Synchronizer) Create(ctx context.Context, body interface{}, form Form) error {
	if s.validator != nil {
		if err := s.validator.Validate(body); err != nil {
			return s.fail("create", err)
		}
	}

	if _, err := s.transport.Do(ctx, http.MethodPost, s.kind.ListPath, body); err != nil {
		return s.fail("create", err)
	}

	if form != nil {
		form.Reset()
	}
	return s.Load(ctx)
}

// Delete removes a record by identity and reloads the list on success
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	if _, err := s.transport.Do(ctx, http.MethodDelete, s.kind.ItemPath(id), nil); err != nil {
		return s.fail("delete", err)
	}
	return s.Load(ctx)
}

// Trigger starts the kind's check sweep through ctrl. The control is
// disabled and labelled CheckingLabel until the request and the following
// reload resolve; it then shows its original label again.
func (s *Synchronizer) Trigger(ctx context.Context, ctrl *ActionControl) error {
	if !s.kind.Checkable() {
		return s.fail("check", ErrNotSupported)
	}

	err := ctrl.Invoke(CheckingLabel, func() error {
		return s.Sweep(ctx)
	})
	if errors.Is(err, ErrInFlight) {
		return s.fail("check", err)
	}
	return err
}

// Sweep posts the check request and reloads on success. It does not touch
// any control; callers holding a claimed control settle it themselves.
func (s *Synchronizer) Sweep(ctx context.Context) error {
	if !s.kind.Checkable() {
		return s.fail("check", ErrNotSupported)
	}
	if _, err := s.transport.Do(ctx, http.MethodPost, s.kind.CheckPath, nil); err != nil {
		return s.fail("check", err)
	}
	s.notifier.Notify(fmt.Sprintf("Triggered %s check", s.kind.Name))
	return s.Load(ctx)
}

// Run executes one record and surfaces the raw result payload. The list
// is not reloaded.
func (s *Synchronizer) Run(ctx context.Context, id string) (*client.Body, error) {
	if !s.kind.Runnable() {
		return nil, s.fail("run", ErrNotSupported)
	}

	body, err := s.transport.Do(ctx, http.MethodPost, s.kind.RunPath(id), nil)
	if err != nil {
		return nil, s.fail("run", err)
	}

	s.notifier.Notify(body.Text())
	return body, nil
}

// fail surfaces err to the user and returns it unchanged
func (s *Synchronizer) fail(action string, err error) error {
	s.log.WithError(err).Warnf("%s %s failed", action, s.kind.Name)
	s.notifier.Notify(apperrors.Message(err))
	return err
}
