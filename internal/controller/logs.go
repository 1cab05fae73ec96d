package controller

import (
	"context"

	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
)

// Log panel names
const (
	LogActivity     = "activity"
	LogConnectivity = "connectivity"
)

// LogsPage shows the backend's activity and connectivity logs
type LogsPage struct {
	env Env
}

// NewLogsPage creates the log page
func NewLogsPage(env Env) *LogsPage {
	return &LogsPage{env: env.withDefaults()}
}

// Route implements Page
func (p *LogsPage) Route() string { return RouteLogs }

// Kinds implements Page
func (p *LogsPage) Kinds() []resourcelist.Kind { return nil }

// Load reads the activity log, then the connectivity log, and shows both
// once both have been read.
func (p *LogsPage) Load(ctx context.Context) error {
	logs := p.env.Client.Logs()

	activity, err := logs.Activity(ctx)
	if err != nil {
		return p.env.notify(err)
	}
	connectivity, err := logs.Connectivity(ctx)
	if err != nil {
		return p.env.notify(err)
	}

	p.env.Surface.ShowLog(LogActivity, activity)
	p.env.Surface.ShowLog(LogConnectivity, connectivity)
	return nil
}
