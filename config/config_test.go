package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/lyra/config"
)

const sampleServer = `
listen: ":9090"
workDir: /var/lib/lyra
database: /var/lib/lyra/edits.db
projects:
  - name: web
    repositoryUrl: https://github.com/acme/web.git
    projectPath: apps/web
    languages: [fr, de]
    provider:
      kind: github
      github:
        owner: acme
        repo: web
        token: ${LYRA_TEST_TOKEN}
  - name: docs
    repositoryUrl: /srv/git/docs.git
    localClonePath: /tmp/docs
`

func TestLoad(t *testing.T) {
	t.Setenv("LYRA_TEST_TOKEN", "s3cr3t")

	p := filepath.Join(t.TempDir(), "lyra-server.yml")
	require.NoError(
		t, os.WriteFile(p, []byte(sampleServer), 0o600),
	)

	cfg, err := config.Load(p)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, config.DefaultLyraFile, cfg.LyraFile)
	assert.Equal(
		t, config.DefaultBranchTemplate, cfg.PullRequest.Branch,
	)
	require.Len(t, cfg.Projects, 2)

	web := cfg.Projects[0]
	assert.Equal(t, "web", web.Name)
	assert.Equal(t, "s3cr3t", web.Provider.GitHub.Token)
	assert.Equal(t, config.ProviderGitHub, web.Provider.Kind)
	assert.Equal(
		t, filepath.Join("/var/lib/lyra", "web"), web.LocalClonePath,
	)
	assert.Equal(t, []string{"fr", "de"}, web.Languages)

	docs := cfg.Projects[1]
	assert.Equal(t, "docs", docs.Name)
	assert.Equal(t, "/tmp/docs", docs.LocalClonePath)
	assert.Equal(t, ".", docs.ProjectPath)
	assert.Equal(t, config.ProviderNone, docs.Provider.Kind)
}

func TestLoad_missing_file(t *testing.T) {
	t.Parallel()

	_, err := config.Load(
		filepath.Join(t.TempDir(), "nope.yml"),
	)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown field",
			doc:  "listen: x\nbogus: 1\n",
			want: "bogus",
		},
		{
			name: "missing name",
			doc:  "projects:\n  - repositoryUrl: x\n",
			want: "has no name",
		},
		{
			name: "duplicate",
			doc: "projects:\n" +
				"  - {name: a, repositoryUrl: x}\n" +
				"  - {name: a, repositoryUrl: y}\n",
			want: "duplicate project",
		},
		{
			name: "missing url",
			doc:  "projects:\n  - name: a\n",
			want: "no repositoryUrl",
		},
		{
			name: "unknown provider",
			doc: "projects:\n" +
				"  - name: a\n" +
				"    repositoryUrl: x\n" +
				"    provider: {kind: svn}\n",
			want: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
