package controller

import (
	"context"

	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// SettingsPage shows and updates the check sweep intervals
type SettingsPage struct {
	env      Env
	schedule *ScheduleLoader
}

// NewSettingsPage creates the settings page
func NewSettingsPage(env Env) *SettingsPage {
	env = env.withDefaults()
	return &SettingsPage{env: env, schedule: NewScheduleLoader(env)}
}

// Route implements Page
func (p *SettingsPage) Route() string { return RouteSettings }

// Kinds implements Page
func (p *SettingsPage) Kinds() []resourcelist.Kind { return nil }

// Load shows the current intervals and the schedule they produce
func (p *SettingsPage) Load(ctx context.Context) error {
	settings, err := p.env.Client.Settings().Get(ctx)
	if err != nil {
		return p.env.notify(err)
	}
	p.env.Surface.ShowSettings(*settings)
	p.schedule.Refresh(ctx)
	return nil
}

// Update validates and stores new intervals, then reloads on success
func (p *SettingsPage) Update(ctx context.Context, settings client.Settings) error {
	if err := p.env.Validator.Validate(settings); err != nil {
		return p.env.notify(err)
	}
	if err := p.env.Client.Settings().Update(ctx, settings); err != nil {
		return p.env.notify(err)
	}
	return p.Load(ctx)
}
