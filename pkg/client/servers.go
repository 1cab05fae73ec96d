package client

import (
	"context"
	"net/http"
	"net/url"
)

// Paths of the server endpoints
const (
	ServersPath      = "/api/servers"
	CheckServersPath = "/api/check/servers"
)

// ServerService handles server-related API calls
type ServerService struct {
	client *Client
}

// CreateServerRequest represents a request to enroll a server
type CreateServerRequest struct {
	Host string `json:"host" validate:"required,max=255,nomarkup"`
	User string `json:"user" validate:"required,max=64,nomarkup"`
	Key  string `json:"key" validate:"required,max=8192"`
}

// List retrieves the enrolled servers in server order
func (s *ServerService) List(ctx context.Context) ([]Server, error) {
	var servers []Server
	if err := s.client.doRequest(ctx, http.MethodGet, ServersPath, nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// Create enrolls a server
func (s *ServerService) Create(ctx context.Context, req CreateServerRequest) error {
	return s.client.doRequest(ctx, http.MethodPost, ServersPath, req, nil)
}

// Delete removes a server by host
func (s *ServerService) Delete(ctx context.Context, host string) error {
	return s.client.doRequest(ctx, http.MethodDelete, ServersPath+"/"+url.PathEscape(host), nil, nil)
}

// Check triggers a server connectivity sweep
func (s *ServerService) Check(ctx context.Context) (*CheckResult, error) {
	var result CheckResult
	if err := s.client.doRequest(ctx, http.MethodPost, CheckServersPath, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
