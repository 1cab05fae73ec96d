package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Header names understood by the Remote Pull Runner backend.
const (
	HeaderAuthToken = "X-Auth-Token"
	HeaderCSRFToken = "X-CSRFToken"
)

// Client is the Remote Pull Runner API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialProvider
	observer    Observer
}

// Config holds the client configuration
type Config struct {
	BaseURL     string             // API base URL (e.g., "http://localhost:5000")
	Credentials CredentialProvider // Source of the auth and anti-forgery tokens
	Timeout     time.Duration      // HTTP client timeout (default: none)
	HTTPClient  *http.Client       // Optional custom HTTP client
	Observer    Observer           // Optional hook called after every request
}

// Observer is notified once per request after the response resolves.
// status is 0 when the request never produced a response.
type Observer interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration, err error)
}

// NewClient creates a new API client. Requests are attempted exactly once;
// unless Timeout is set, only the caller's context bounds a request.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = StaticCredentials{}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		credentials: creds,
		observer:    cfg.Observer,
	}
}

// BaseURL returns the backend URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithCredentials returns a copy of the client that reads tokens from creds.
// The underlying HTTP client is shared.
func (c *Client) WithCredentials(creds CredentialProvider) *Client {
	clone := *c
	if creds == nil {
		creds = StaticCredentials{}
	}
	clone.credentials = creds
	return &clone
}

// Do performs a single request and returns the classified response body.
// A non-2xx response yields a *RequestError.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Body, error) {
	start := time.Now()
	status, out, err := c.do(ctx, method, path, body)
	if c.observer != nil {
		c.observer.ObserveRequest(method, path, status, time.Since(start), err)
	}
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, *Body, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain")

	if token := c.credentials.AuthToken(); token != "" {
		req.Header.Set(HeaderAuthToken, token)
	}
	if isStateChanging(method) {
		if csrf := c.credentials.CSRFToken(); csrf != "" {
			req.Header.Set(HeaderCSRFToken, csrf)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := newBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, newRequestError(resp.StatusCode, out)
	}

	return resp.StatusCode, out, nil
}

// doRequest performs a request and decodes a structured response into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	out, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return out.Decode(result)
}

func isStateChanging(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return false
	default:
		return true
	}
}

// Repos returns the repository service
func (c *Client) Repos() *RepoService {
	return &RepoService{client: c}
}

// Servers returns the server service
func (c *Client) Servers() *ServerService {
	return &ServerService{client: c}
}

// Commands returns the command service
func (c *Client) Commands() *CommandService {
	return &CommandService{client: c}
}

// Settings returns the interval settings service
func (c *Client) Settings() *SettingsService {
	return &SettingsService{client: c}
}

// Logs returns the log stream service
func (c *Client) Logs() *LogService {
	return &LogService{client: c}
}
