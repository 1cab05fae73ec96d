package controller

import (
	"context"

	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// ScheduleLoader refreshes the next-run panel. A failed refresh is logged
// and otherwise ignored so it never blocks the list it accompanies.
type ScheduleLoader struct {
	env Env
}

// NewScheduleLoader creates a schedule loader
func NewScheduleLoader(env Env) *ScheduleLoader {
	return &ScheduleLoader{env: env.withDefaults()}
}

// Refresh fetches the schedule and shows it. It reports whether the panel
// was updated.
func (l *ScheduleLoader) Refresh(ctx context.Context) bool {
	sched, err := l.env.Client.Schedule(ctx)
	if err != nil {
		l.env.Logger.WithError(err).Warn("failed to refresh schedule")
		return false
	}
	l.env.Surface.ShowSchedule(*sched)
	return true
}

// FormatNext returns the display text of a next-run timestamp
func FormatNext(ts *string) string {
	if ts == nil || *ts == "" {
		return "not scheduled"
	}
	return *ts
}

// ScheduleLines returns the two lines of the next-run panel
func ScheduleLines(s client.Schedule) []string {
	return []string{
		"Next repository check: " + FormatNext(s.NextRepo),
		"Next server check: " + FormatNext(s.NextServer),
	}
}
