package resourcelist

import (
	"errors"
	"sync"
)

// CheckingLabel is shown on a check control while its request is in flight
const CheckingLabel = "Checking..."

// ErrInFlight is returned when a control is invoked while its previous
// invocation has not resolved yet. No request is issued.
var ErrInFlight = errors.New("action already in progress")

// State is the state of an action control
type State int

const (
	// Idle accepts a new invocation
	Idle State = iota
	// InFlight is disabled until the pending request resolves
	InFlight
	// IdleWithError accepts a new invocation; the last one failed
	IdleWithError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case IdleWithError:
		return "idle-with-error"
	default:
		return "unknown"
	}
}

// Control is the displayed element behind an action control
type Control interface {
	SetEnabled(enabled bool)
	SetLabel(label string)
}

// ActionControl runs one action at a time and mirrors its state onto a
// Control. There is no cancelled state: once started, an invocation runs
// until its request resolves.
type ActionControl struct {
	mu      sync.Mutex
	label   string
	state   State
	lastErr error
	ui      Control
}

// NewActionControl creates an idle control. ui may be nil.
func NewActionControl(label string, ui Control) *ActionControl {
	return &ActionControl{label: label, ui: ui}
}

// Invoke moves the control to InFlight showing busyLabel, runs fn, and
// returns it to Idle or IdleWithError with its original label, whatever fn
// returns.
func (c *ActionControl) Invoke(busyLabel string, fn func() error) (err error) {
	release, err := c.Claim(busyLabel)
	if err != nil {
		return err
	}
	defer func() { release(err) }()

	return fn()
}

// Claim moves an idle control to InFlight showing busyLabel and returns
// the func that settles it with the outcome. A control already in flight
// returns ErrInFlight. Callers that queue work behind a lock claim first so
// a second trigger is refused while the first one waits.
func (c *ActionControl) Claim(busyLabel string) (release func(error), err error) {
	c.mu.Lock()
	if c.state == InFlight {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	c.state = InFlight
	c.lastErr = nil
	c.mu.Unlock()
	c.show(false, busyLabel)

	var once sync.Once
	return func(err error) {
		once.Do(func() {
			c.mu.Lock()
			c.state = Idle
			if err != nil {
				c.state = IdleWithError
				c.lastErr = err
			}
			c.mu.Unlock()
			c.show(true, c.label)
		})
	}, nil
}

func (c *ActionControl) show(enabled bool, label string) {
	if c.ui == nil {
		return
	}
	c.ui.SetEnabled(enabled)
	c.ui.SetLabel(label)
}

// State returns the current state
func (c *ActionControl) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether an invocation is in flight
func (c *ActionControl) Busy() bool {
	return c.State() == InFlight
}

// Label returns the idle label
func (c *ActionControl) Label() string {
	return c.label
}

// Err returns the error of the last invocation, if it failed
func (c *ActionControl) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Button is a Control that records what it displays
type Button struct {
	mu      sync.RWMutex
	enabled bool
	label   string
}

// NewButton creates an enabled button
func NewButton(label string) *Button {
	return &Button{enabled: true, label: label}
}

// SetEnabled implements Control
func (b *Button) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()
}

// SetLabel implements Control
func (b *Button) SetLabel(label string) {
	b.mu.Lock()
	b.label = label
	b.mu.Unlock()
}

// Enabled reports whether the button accepts clicks
func (b *Button) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// Text returns the displayed label
func (b *Button) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.label
}
