package client

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
)

// Paths of the repository endpoints
const (
	ReposPath      = "/api/repos"
	CheckReposPath = "/api/check/repos"
)

// RepoService handles repository-related API calls
type RepoService struct {
	client *Client
}

// CreateRepoRequest represents a request to enroll a repository
type CreateRepoRequest struct {
	Name   string `json:"name" validate:"required,max=200,nomarkup"`
	Branch string `json:"branch" validate:"required,max=200,nomarkup"`
	Token  string `json:"token" validate:"max=512"`
}

var githubURL = regexp.MustCompile(`^https?://github\.com/([^/]+/[^/]+?)(?:\.git)?/?$`)

// NormalizeRepoName turns a GitHub URL into its owner/repo form. Other
// values are returned unchanged.
func NormalizeRepoName(name string) string {
	if m := githubURL.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// List retrieves the enrolled repositories in server order
func (s *RepoService) List(ctx context.Context) ([]Repo, error) {
	var repos []Repo
	if err := s.client.doRequest(ctx, http.MethodGet, ReposPath, nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// Create enrolls a repository
func (s *RepoService) Create(ctx context.Context, req CreateRepoRequest) error {
	req.Name = NormalizeRepoName(req.Name)
	return s.client.doRequest(ctx, http.MethodPost, ReposPath, req, nil)
}

// Delete removes a repository by name. Names like owner/repo are escaped.
func (s *RepoService) Delete(ctx context.Context, name string) error {
	return s.client.doRequest(ctx, http.MethodDelete, ReposPath+"/"+url.PathEscape(name), nil, nil)
}

// Check triggers a repository check sweep
func (s *RepoService) Check(ctx context.Context) (*CheckResult, error) {
	var result CheckResult
	if err := s.client.doRequest(ctx, http.MethodPost, CheckReposPath, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
