package client

import (
	"context"
	"net/http"
)

// Paths of the scheduling endpoints
const (
	SchedulePath = "/api/schedule"
	SettingsPath = "/api/settings"
)

// Schedule retrieves the next run times of the check sweeps
func (c *Client) Schedule(ctx context.Context) (*Schedule, error) {
	var sched Schedule
	if err := c.doRequest(ctx, http.MethodGet, SchedulePath, nil, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

// SettingsService handles the sweep interval settings
type SettingsService struct {
	client *Client
}

// Get retrieves the current intervals
func (s *SettingsService) Get(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := s.client.doRequest(ctx, http.MethodGet, SettingsPath, nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update replaces the intervals
func (s *SettingsService) Update(ctx context.Context, settings Settings) error {
	return s.client.doRequest(ctx, http.MethodPost, SettingsPath, settings, nil)
}
