package pipeline_test

import (
	"context"
	"io/fs"
	"os"
	oe "os/exec"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/byte4ever/lyra/config"
	"github.com/byte4ever/lyra/pipeline"
	"github.com/byte4ever/lyra/vcs/git"
)

const lyraYML = `projects:
  - path: .
    messages:
      format: json
      globs: ["src/**/*.json"]
    translations:
      path: locales
      format: json
    languages: [fr]
`

// newRemote returns a bare repository on main holding
// files.
func newRemote(tb testing.TB, files map[string]string) string {
	tb.Helper()

	root := tb.TempDir()
	work := filepath.Join(root, "work")
	bare := filepath.Join(root, "remote.git")

	require.NoError(tb, os.MkdirAll(work, 0o750))

	gitCmd(tb, work, "init", "-b", "main")
	configure(tb, work)

	for name, content := range files {
		writeFile(tb, work, name, content)
	}

	gitCmd(tb, work, "add", "-A")
	gitCmd(tb, work, "commit", "-m", "seed")
	gitCmd(tb, root, "init", "--bare", "-b", "main", bare)
	gitCmd(tb, work, "push", bare, "main")

	return bare
}

// configure sets an identity and disables hooks so
// pre-commit scanners do not interfere with tests.
func configure(tb testing.TB, dir string) {
	tb.Helper()

	gitCmd(tb, dir, "config", "user.email", "test@test.com")
	gitCmd(tb, dir, "config", "user.name", "Test")
	gitCmd(tb, dir, "config", "core.hooksPath", "/dev/null")
}

func writeFile(tb testing.TB, dir, name, content string) {
	tb.Helper()

	fp := filepath.Join(dir, filepath.FromSlash(name))

	require.NoError(tb, os.MkdirAll(filepath.Dir(fp), 0o750))
	require.NoError(tb, os.WriteFile(fp, []byte(content), 0o600))
}

func gitCmd(tb testing.TB, dir string, args ...string) {
	tb.Helper()

	_ = gitOut(tb, dir, args...)
}

func gitOut(tb testing.TB, dir string, args ...string) string {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(context.Background(), "git", args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("git %v failed: %s: %v", args, string(out), err)
	}

	return string(out)
}

// serverConfig returns a configuration cloning each
// remote under a temporary directory.
func serverConfig(
	tb testing.TB,
	remotes map[string]string,
	order ...string,
) *config.ServerConfig {
	tb.Helper()

	cfg := &config.ServerConfig{WorkDir: tb.TempDir()}

	for _, name := range order {
		cfg.Projects = append(cfg.Projects, config.Project{
			Name:          name,
			RepositoryURL: remotes[name],
		})
	}

	cfg.SetDefaults()
	require.NoError(tb, cfg.Validate())

	return cfg
}

type pushed struct {
	branch  string
	message string
	files   []git.FileChange
}

// fakeRepo serves a fixed tree and records submissions.
type fakeRepo struct {
	mu sync.Mutex

	tree    fstest.MapFS
	headMsg string
	cloned  bool
	pulls   int
	pullErr error
	pushErr error
	prErr   error
	pushed  []pushed
	prs     []string
}

var _ pipeline.Repository = (*fakeRepo)(nil)

func (r *fakeRepo) CloneIfNotExist(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cloned {
		return false, nil
	}

	r.cloned = true

	return true, nil
}

func (r *fakeRepo) Pull(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pulls++

	return r.pullErr
}

func (r *fakeRepo) LyraConfig(context.Context) (*config.LyraConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.tree["lyra.yml"]
	if !ok {
		return nil, config.ErrConfigParse
	}

	return config.ParseLyraConfig(f.Data)
}

func (r *fakeRepo) View(
	_ context.Context,
	fn func(tree fs.FS) error,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return fn(r.tree)
}

func (r *fakeRepo) Head(context.Context) (string, error) {
	return "0123abcd", nil
}

func (r *fakeRepo) LastCommitMessage(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.headMsg, nil
}

func (r *fakeRepo) CommitAndPush(
	_ context.Context,
	branch string,
	message string,
	files []git.FileChange,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pushErr != nil {
		return r.pushErr
	}

	r.pushed = append(r.pushed, pushed{branch, message, files})

	return nil
}

func (r *fakeRepo) OpenPullRequest(
	_ context.Context,
	branch string,
	_ string,
	_ string,
) (git.PullRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prErr != nil {
		return git.PullRequest{}, r.prErr
	}

	r.prs = append(r.prs, branch)

	return git.PullRequest{URL: "https://example.test/pr/" + branch}, nil
}

func (r *fakeRepo) set(name, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tree[name] = &fstest.MapFile{Data: []byte(content)}
}
