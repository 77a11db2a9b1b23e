package github_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/lyra/vcs/git"
	ghprov "github.com/byte4ever/lyra/vcs/git/github"
)

func TestNewProvider_valid(t *testing.T) {
	t.Parallel()

	pv, err := ghprov.NewProvider(ghprov.Config{
		RepoOwner:   "org",
		Repo:        "repo",
		AccessToken: "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, pv)
}

func TestNewProvider_missing_owner(t *testing.T) {
	t.Parallel()

	pv, err := ghprov.NewProvider(ghprov.Config{
		Repo:        "repo",
		AccessToken: "tok",
	})

	assert.Nil(t, pv)
	assert.ErrorContains(t, err, "repo owner")
}

func TestNewProvider_missing_repo(t *testing.T) {
	t.Parallel()

	pv, err := ghprov.NewProvider(ghprov.Config{
		RepoOwner:   "org",
		AccessToken: "tok",
	})

	assert.Nil(t, pv)
	assert.ErrorContains(t, err, "repo must be set")
}

func TestNewProvider_missing_token(t *testing.T) {
	t.Parallel()

	pv, err := ghprov.NewProvider(ghprov.Config{
		RepoOwner: "org",
		Repo:      "repo",
	})

	assert.Nil(t, pv)
	assert.ErrorContains(t, err, "access token")
}

func TestNewProvider_enterprise(t *testing.T) {
	t.Parallel()

	pv, err := ghprov.NewProvider(ghprov.Config{
		RepoOwner:      "org",
		Repo:           "repo",
		AccessToken:    "tok",
		EnterpriseHost: "git.corp.example.com",
	})

	require.NoError(t, err)
	assert.NotNil(t, pv)
}

func newTestProvider(
	t *testing.T,
	h http.HandlerFunc,
) *ghprov.Provider {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	pv, err := ghprov.NewProvider(ghprov.Config{
		RepoOwner:   "org",
		Repo:        "repo",
		AccessToken: "tok",
		BaseURL:     ts.URL,
	})
	require.NoError(t, err)

	return pv
}

func TestProvider_CreatePR_created(t *testing.T) {
	t.Parallel()

	var got map[string]any

	pv := newTestProvider(t, func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(
			t, "/api/v3/repos/org/repo/pulls", r.URL.Path,
		)
		assert.Equal(
			t, "Bearer tok", r.Header.Get("Authorization"),
		)

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(
			w,
			`{"number":7,"html_url":"https://github.com/org/repo/pull/7"}`,
		)
	})

	pr, err := pv.CreatePR(
		context.Background(),
		"lyra/web/1", "main", "title", "body",
	)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/org/repo/pull/7", pr.URL)
	assert.Equal(t, "lyra/web/1", got["head"])
	assert.Equal(t, "main", got["base"])
	assert.Equal(t, "title", got["title"])
	assert.Equal(t, "body", got["body"])
}

func TestProvider_CreatePR_duplicate(t *testing.T) {
	t.Parallel()

	pv := newTestProvider(t, func(
		w http.ResponseWriter,
		_ *http.Request,
	) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(
			w,
			`{"message":"Validation Failed","errors":[`+
				`{"message":"A pull request already exists"}]}`,
		)
	})

	_, err := pv.CreatePR(
		context.Background(), "a", "main", "t", "b",
	)
	require.ErrorIs(t, err, git.ErrDuplicatePullRequest)
	require.ErrorIs(t, err, git.ErrProvider)
}

func TestProvider_CreatePR_server_error(t *testing.T) {
	t.Parallel()

	pv := newTestProvider(t, func(
		w http.ResponseWriter,
		_ *http.Request,
	) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := pv.CreatePR(
		context.Background(), "a", "main", "t", "b",
	)
	require.ErrorIs(t, err, git.ErrProvider)
	assert.NotErrorIs(t, err, git.ErrDuplicatePullRequest)
}
