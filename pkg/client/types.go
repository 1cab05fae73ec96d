package client

import "encoding/json"

// ActiveState is the server-computed status of a record: true, false, or
// "retry" for servers with a transient failure. The client only displays it.
type ActiveState struct {
	raw interface{}
}

// NewActiveState wraps a raw status value
func NewActiveState(v interface{}) ActiveState {
	return ActiveState{raw: v}
}

// Value returns the raw status value
func (a ActiveState) Value() interface{} {
	return a.raw
}

// IsActive reports whether the status is exactly true
func (a ActiveState) IsActive() bool {
	v, ok := a.raw.(bool)
	return ok && v
}

// IsRetry reports whether the status is "retry"
func (a ActiveState) IsRetry() bool {
	v, ok := a.raw.(string)
	return ok && v == "retry"
}

// UnmarshalJSON keeps the raw JSON value
func (a *ActiveState) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &a.raw)
}

// MarshalJSON writes the raw value back
func (a ActiveState) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// MarshalYAML writes the raw value back
func (a ActiveState) MarshalYAML() (interface{}, error) {
	return a.raw, nil
}

// Repo is an enrolled GitHub repository
type Repo struct {
	Name       string      `json:"name" yaml:"name"`
	Branch     string      `json:"branch" yaml:"branch"`
	Active     ActiveState `json:"active" yaml:"active"`
	LastCheck  string      `json:"last_check" yaml:"last_check"`
	LastCommit string      `json:"last_commit,omitempty" yaml:"last_commit,omitempty"`
}

// Server is an enrolled SSH target
type Server struct {
	Host      string      `json:"host" yaml:"host"`
	User      string      `json:"user" yaml:"user"`
	Active    ActiveState `json:"active" yaml:"active"`
	LastCheck string      `json:"last_check" yaml:"last_check"`
}

// Command maps a repository to a command run on a server
type Command struct {
	ID      string      `json:"id" yaml:"id"`
	Repo    string      `json:"repo" yaml:"repo"`
	Server  string      `json:"server" yaml:"server"`
	Command string      `json:"command" yaml:"command"`
	Active  ActiveState `json:"active" yaml:"active"`
	LastRun string      `json:"last_run" yaml:"last_run"`
}

// Secret is a per-command key/value. Value is masked by the backend on read.
type Secret struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// RunResult is the payload returned when a command is executed
type RunResult struct {
	Status  string      `json:"status,omitempty" yaml:"status,omitempty"`
	Commit  string      `json:"commit,omitempty" yaml:"commit,omitempty"`
	Output  string      `json:"output,omitempty" yaml:"output,omitempty"`
	Error   string      `json:"error,omitempty" yaml:"error,omitempty"`
	Details interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	LastRun string      `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// CheckResult is returned by the check sweep triggers
type CheckResult struct {
	Status    string `json:"status" yaml:"status"`
	CheckedAt string `json:"checked_at,omitempty" yaml:"checked_at,omitempty"`
}

// StatusResponse is the generic acknowledgement body
type StatusResponse struct {
	Status string `json:"status" yaml:"status"`
}

// Schedule holds the next run times of the backend check sweeps as ISO
// timestamps. A nil field means the sweep is not scheduled.
type Schedule struct {
	NextRepo   *string `json:"next_repo" yaml:"next_repo"`
	NextServer *string `json:"next_server" yaml:"next_server"`
}

// Settings holds the check sweep intervals, in hours
type Settings struct {
	RepoInterval   int `json:"repo_interval" yaml:"repo_interval" validate:"required,gte=1,lte=720"`
	ServerInterval int `json:"server_interval" yaml:"server_interval" validate:"required,gte=1,lte=720"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
	Time   string `json:"time,omitempty" yaml:"time,omitempty"`
}
