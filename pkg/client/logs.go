package client

import (
	"context"
	"net/http"
	"strings"
)

// Paths of the plain-text log streams
const (
	ActivityLogPath     = "/logs/activity"
	ConnectivityLogPath = "/logs/connectivity"
)

// lineBreaks turns the backend's HTML line breaks back into newlines
var lineBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

// LogService reads the backend log streams
type LogService struct {
	client *Client
}

// Activity returns the tail of the activity log
func (s *LogService) Activity(ctx context.Context) (string, error) {
	return s.read(ctx, ActivityLogPath)
}

// Connectivity returns the tail of the connectivity log
func (s *LogService) Connectivity(ctx context.Context) (string, error) {
	return s.read(ctx, ConnectivityLogPath)
}

func (s *LogService) read(ctx context.Context, path string) (string, error) {
	body, err := s.client.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	return lineBreaks.Replace(body.Text()), nil
}
