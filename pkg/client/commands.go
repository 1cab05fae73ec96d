package client

import (
	"context"
	"net/http"
	"net/url"
)

// CommandsPath is the collection path of the command endpoints
const CommandsPath = "/api/commands"

// CommandService handles command-related API calls
type CommandService struct {
	client *Client
}

// CreateCommandRequest represents a request to enroll a command
type CreateCommandRequest struct {
	Repo    string `json:"repo" validate:"required,nomarkup"`
	Server  string `json:"server" validate:"required,nomarkup"`
	Command string `json:"command" validate:"required,max=4096,nomarkup"`
}

// CommandPath returns the escaped path of a single command
func CommandPath(id string) string {
	return CommandsPath + "/" + url.PathEscape(id)
}

// List retrieves the enrolled commands in server order
func (s *CommandService) List(ctx context.Context) ([]Command, error) {
	var cmds []Command
	if err := s.client.doRequest(ctx, http.MethodGet, CommandsPath, nil, &cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

// Create enrolls a command. The backend assigns the id.
func (s *CommandService) Create(ctx context.Context, req CreateCommandRequest) (*Command, error) {
	var cmd Command
	if err := s.client.doRequest(ctx, http.MethodPost, CommandsPath, req, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// Delete removes a command by id
func (s *CommandService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, CommandPath(id), nil, nil)
}

// Run executes a command on its server and returns the result payload
func (s *CommandService) Run(ctx context.Context, id string) (*RunResult, error) {
	var result RunResult
	if err := s.client.doRequest(ctx, http.MethodPost, CommandPath(id)+"/run", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Secrets returns the secret service scoped to one command
func (s *CommandService) Secrets(id string) *SecretService {
	return &SecretService{client: s.client, commandID: id}
}

// SecretService manages the secrets of a single command
type SecretService struct {
	client    *Client
	commandID string
}

// CreateSecretRequest represents a request to store a secret
type CreateSecretRequest struct {
	Name  string `json:"name" validate:"required,max=128,nomarkup"`
	Value string `json:"value" validate:"required"`
}

func (s *SecretService) path() string {
	return CommandPath(s.commandID) + "/secrets"
}

// List retrieves the secrets of the command with masked values
func (s *SecretService) List(ctx context.Context) ([]Secret, error) {
	var secrets []Secret
	if err := s.client.doRequest(ctx, http.MethodGet, s.path(), nil, &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

// Create stores a new secret and returns it as the backend reports it
func (s *SecretService) Create(ctx context.Context, req CreateSecretRequest) (*Secret, error) {
	var secret Secret
	if err := s.client.doRequest(ctx, http.MethodPost, s.path(), req, &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

// Delete removes a secret by id
func (s *SecretService) Delete(ctx context.Context, secretID string) error {
	return s.client.doRequest(ctx, http.MethodDelete, s.path()+"/"+url.PathEscape(secretID), nil, nil)
}
