package bitbucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/lyra/vcs/git"
)

// Config holds the settings needed to create a
// Bitbucket pull request provider.
type Config struct {
	// APIEndpoint is the full Bitbucket Server REST
	// API URL for pull requests, including project
	// and repo path (e.g.
	// "https://bb.example.com/rest/api/1.0/
	// projects/PROJ/repos/repo/pull-requests").
	APIEndpoint string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
}

// Provider creates pull requests on Bitbucket Server.
//
// Pattern: Strategy -- implements git.GitProvider.
type Provider struct {
	endpoint string
	user     string
	password string
	repo     repository
}

type project struct {
	Key string `json:"key,omitempty"`
}

type repository struct {
	Slug    string  `json:"slug,omitempty"`
	Project project `json:"project"`
}

type pullrequestEndpoint struct {
	ID         string     `json:"id,omitempty"`
	Repository repository `json:"repository,omitempty"`
}

type pullrequest struct {
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	State       string               `json:"state,omitempty"`
	Open        bool                 `json:"open"`
	Closed      bool                 `json:"closed"`
	FromRef     *pullrequestEndpoint `json:"fromRef,omitempty"`
	ToRef       *pullrequestEndpoint `json:"toRef,omitempty"`
	Locked      bool                 `json:"locked"`
	Reviewers   []account            `json:"reviewers,omitempty"`
}

type account struct {
	User user `json:"user"`
}

type user struct {
	Name string `json:"name,omitempty"`
}

type created struct {
	ID    int `json:"id"`
	Links struct {
		Self []struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"links"`
}

// repositoryOf extracts the project key and repository
// slug from a .../projects/KEY/repos/SLUG/pull-requests
// endpoint.
func repositoryOf(endpoint string) repository {
	u, err := url.Parse(endpoint)
	if err != nil {
		return repository{}
	}

	var repo repository

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		switch parts[i] {
		case "projects":
			repo.Project.Key = parts[i+1]
		case "repos":
			repo.Slug = parts[i+1]
		}
	}

	return repo
}

// NewProvider validates cfg and returns a Provider
// ready to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	if cfg.APIEndpoint == "" {
		return nil, fmt.Errorf(
			"%s: api endpoint must be set",
			errCtx,
		)
	}

	if cfg.User == "" {
		return nil, fmt.Errorf(
			"%s: user must be set", errCtx,
		)
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	return &Provider{
		endpoint: cfg.APIEndpoint,
		user:     cfg.User,
		password: cfg.Password,
		repo:     repositoryOf(cfg.APIEndpoint),
	}, nil
}

// CreatePR creates a pull request from branch "from"
// into branch "to" and returns its web URL. 409
// (already exists) yields git.ErrDuplicatePullRequest.
func (p *Provider) CreatePR(
	ctx context.Context,
	from string,
	to string,
	title string,
	body string,
) (git.PullRequest, error) {
	const errCtx = "creating bitbucket pull request"

	pr := pullrequest{
		Title:       title,
		Description: body,
		State:       "OPEN",
		Open:        true,
		Closed:      false,
		FromRef: &pullrequestEndpoint{
			ID:         "refs/heads/" + from,
			Repository: p.repo,
		},
		ToRef: &pullrequestEndpoint{
			ID:         "refs/heads/" + to,
			Repository: p.repo,
		},
		Locked:    false,
		Reviewers: []account{},
	}

	payload, err := json.Marshal(&pr)
	if err != nil {
		return git.PullRequest{}, fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.endpoint,
		bytes.NewBuffer(payload),
	)
	if err != nil {
		return git.PullRequest{}, fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		)
	}

	req.Header.Set(
		"Content-Type",
		"application/json; charset=utf-8",
	)
	req.SetBasicAuth(p.user, p.password)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return git.PullRequest{}, fmt.Errorf(
			"%s: %w: send request: %w",
			errCtx, git.ErrProvider, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn(
			"cannot read response body",
			"error", err,
		)
	}

	slog.Debug(
		"bitbucket response",
		"status", resp.Status,
		"body", string(rb),
	)

	switch resp.StatusCode {
	case http.StatusCreated:
		var out created
		if err := json.Unmarshal(rb, &out); err != nil {
			return git.PullRequest{}, fmt.Errorf(
				"%s: %w: decode response: %w",
				errCtx, git.ErrProvider, err,
			)
		}

		var prURL string
		if len(out.Links.Self) > 0 {
			prURL = out.Links.Self[0].Href
		}

		slog.Info(
			"pull request created",
			"id", out.ID,
			"url", prURL,
		)

		return git.PullRequest{URL: prURL}, nil

	case http.StatusConflict:
		return git.PullRequest{}, fmt.Errorf(
			"%s: %w", errCtx, git.ErrDuplicatePullRequest,
		)

	default:
		return git.PullRequest{}, fmt.Errorf(
			"%s: %w: unexpected status %d",
			errCtx, git.ErrProvider, resp.StatusCode,
		)
	}
}
