package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/byte4ever/lyra/config"
	"github.com/byte4ever/lyra/vcs/exec"
)

const (
	defaultRemote      = "origin"
	defaultAuthorName  = "Lyra"
	defaultAuthorEmail = "lyra@localhost"

	// restoreTimeout bounds the checkout back to the
	// default branch once the caller context is gone.
	restoreTimeout = 30 * time.Second
)

// gitEnv keeps git from prompting for credentials on a
// terminal the server does not have.
var gitEnv = []string{"GIT_TERMINAL_PROMPT=0"}

// RepoSpec describes a repository handle.
type RepoSpec struct {
	// URL is the upstream clone URL.
	URL string
	// Dir is the local clone path.
	Dir string
	// Branch is the upstream default branch. Empty
	// follows the remote HEAD.
	Branch string
	// LyraFile is the configuration file path relative
	// to the repository root. Defaults to lyra.yml.
	LyraFile string
	// AuthorName and AuthorEmail sign commits.
	AuthorName  string
	AuthorEmail string
	// Provider opens pull requests. Nil disables
	// OpenPullRequest.
	Provider GitProvider
}

// FileChange is a file to write before committing. Path
// is relative to the repository root.
type FileChange struct {
	Path    string
	Content []byte
}

// Repo is a local clone of a git repository. All methods
// are safe for concurrent use: clone, pull and commit
// run exclusively while reads share access. Obtain one
// through a Registry so a path has a single handle.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// URL is the upstream repository.
	URL string
	// RemoteName is the name of the upstream remote.
	RemoteName string

	lyraFile    string
	authorName  string
	authorEmail string
	provider    GitProvider
	lock        *rwLock

	mu     sync.Mutex
	branch string
}

func newRepo(spec RepoSpec) *Repo {
	r := &Repo{
		Dir:         spec.Dir,
		URL:         spec.URL,
		RemoteName:  defaultRemote,
		lyraFile:    spec.LyraFile,
		authorName:  spec.AuthorName,
		authorEmail: spec.AuthorEmail,
		provider:    spec.Provider,
		lock:        newRWLock(),
		branch:      spec.Branch,
	}

	if r.lyraFile == "" {
		r.lyraFile = config.DefaultLyraFile
	}

	if r.authorName == "" {
		r.authorName = defaultAuthorName
	}

	if r.authorEmail == "" {
		r.authorEmail = defaultAuthorEmail
	}

	return r
}

// CloneIfNotExist clones the repository unless Dir is
// already a git work tree with a checked out commit. A
// clone left incomplete by an interrupted call is
// discarded and cloned again. It reports whether a clone
// happened.
func (r *Repo) CloneIfNotExist(
	ctx context.Context,
) (bool, error) {
	const errCtx = "cloning repository"

	if err := r.lock.lock(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}
	defer r.lock.unlock()

	ok, err := r.validClone(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if ok {
		return false, nil
	}

	_, statErr := os.Stat(r.Dir)
	created := errors.Is(statErr, fs.ErrNotExist)

	args := []string{
		"clone", "--origin", r.RemoteName,
	}

	if b := r.configuredBranch(); b != "" {
		args = append(args, "--branch", b)
	}

	args = append(args, "--", r.URL, r.Dir)

	slog.Info("cloning", "url", r.URL, "dir", r.Dir)

	if _, err := exec.ExEnv(
		ctx, "", gitEnv, "git", args...,
	); err != nil {
		r.discard(created)

		return false, fmt.Errorf(
			"%s: %w: %w", errCtx, ErrCloneFailure, err,
		)
	}

	return true, nil
}

// validClone reports whether Dir holds a clone with a
// resolvable HEAD. A .git without one is removed.
func (r *Repo) validClone(ctx context.Context) (bool, error) {
	if _, err := os.Stat(filepath.Join(r.Dir, ".git")); err != nil {
		return false, nil
	}

	// The ceiling keeps git from resolving HEAD in an
	// enclosing repository when .git is broken.
	env := append(
		slices.Clone(gitEnv),
		"GIT_CEILING_DIRECTORIES="+filepath.Dir(r.Dir),
	)

	if _, err := exec.ExEnv(
		ctx, r.Dir, env,
		"git", "rev-parse", "--verify", "--quiet", "HEAD",
	); err == nil {
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	slog.Warn("discarding incomplete clone", "dir", r.Dir)

	if err := os.RemoveAll(r.Dir); err != nil {
		return false, fmt.Errorf("removing incomplete clone: %w", err)
	}

	return false, nil
}

// discard removes what a failed clone left in Dir: the
// directory itself when the clone created it, its
// content otherwise.
func (r *Repo) discard(created bool) {
	if created {
		if err := os.RemoveAll(r.Dir); err != nil {
			slog.Error("removing failed clone", "dir", r.Dir, "error", err)
		}

		return
	}

	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(r.Dir, e.Name())); err != nil {
			slog.Error("removing failed clone", "dir", r.Dir, "error", err)
		}
	}
}

// Pull fetches upstream and fast-forwards the default
// branch. A diverged local branch yields ErrSyncConflict.
func (r *Repo) Pull(ctx context.Context) error {
	const errCtx = "pulling repository"

	if err := r.lock.lock(ctx); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}
	defer r.lock.unlock()

	branch, err := r.defaultBranch(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := r.fetch(ctx); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := r.git(ctx, "checkout", branch); err != nil {
		return fmt.Errorf(
			"%s: checkout %s: %w", errCtx, branch, err,
		)
	}

	if _, err := r.git(
		ctx,
		"merge", "--ff-only",
		r.RemoteName+"/"+branch,
	); err != nil {
		return fmt.Errorf(
			"%s: %w: %w", errCtx, ErrSyncConflict, err,
		)
	}

	return nil
}

// LyraConfig reads lyra.yml at the current checkout.
// It never pulls.
func (r *Repo) LyraConfig(
	ctx context.Context,
) (*config.LyraConfig, error) {
	const errCtx = "reading lyra configuration"

	if err := r.lock.rLock(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}
	defer r.lock.rUnlock()

	raw, err := os.ReadFile(filepath.Join(r.Dir, r.lyraFile))
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w: %w", errCtx, config.ErrConfigParse, err,
		)
	}

	cfg, err := config.ParseLyraConfig(raw)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, r.lyraFile, err,
		)
	}

	return cfg, nil
}

// View runs fn over the working tree under shared
// access: no clone, pull or commit runs until fn
// returns.
func (r *Repo) View(
	ctx context.Context,
	fn func(tree fs.FS) error,
) error {
	if err := r.lock.rLock(ctx); err != nil {
		return fmt.Errorf("viewing repository: %w", err)
	}
	defer r.lock.rUnlock()

	return fn(os.DirFS(r.Dir))
}

// CommitAndPush writes files on a new branch created from
// the default branch, commits exactly those paths and
// pushes the branch. A rejected push is retried once
// after a fetch and rebase. The default branch is checked
// out again before returning.
func (r *Repo) CommitAndPush(
	ctx context.Context,
	branch string,
	message string,
	files []FileChange,
) error {
	const errCtx = "committing and pushing"

	if len(files) == 0 {
		return fmt.Errorf(
			"%s: %w", errCtx, ErrNothingToCommit,
		)
	}

	for _, f := range files {
		if !filepath.IsLocal(f.Path) {
			return fmt.Errorf(
				"%s: path %q escapes repository",
				errCtx, f.Path,
			)
		}
	}

	if err := r.lock.lock(ctx); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}
	defer r.lock.unlock()

	base, err := r.defaultBranch(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := r.git(
		ctx, "checkout", "-B", branch, base,
	); err != nil {
		return fmt.Errorf(
			"%s: create branch %s: %w", errCtx, branch, err,
		)
	}

	defer r.restore(ctx, base, branch)

	paths := make([]string, 0, len(files))

	for _, f := range files {
		fp := filepath.Join(r.Dir, f.Path)

		if err := os.MkdirAll(
			filepath.Dir(fp), 0o750,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		//nolint:gosec // translation files are world-readable
		if err := os.WriteFile(fp, f.Content, 0o644); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		paths = append(paths, filepath.ToSlash(f.Path))
	}

	if _, err := r.git(
		ctx, append([]string{"add", "--"}, paths...)...,
	); err != nil {
		return fmt.Errorf("%s: stage: %w", errCtx, err)
	}

	// diff --quiet exits 0 when nothing is staged.
	if _, err := r.git(
		ctx, "diff", "--cached", "--quiet",
	); err == nil {
		return fmt.Errorf(
			"%s: %w", errCtx, ErrNothingToCommit,
		)
	}

	commitArgs := append([]string{
		"-c", "user.name=" + r.authorName,
		"-c", "user.email=" + r.authorEmail,
		"commit", "--no-verify", "-m", message, "--",
	}, paths...)

	if _, err := r.git(ctx, commitArgs...); err != nil {
		return fmt.Errorf("%s: commit: %w", errCtx, err)
	}

	if err := r.push(ctx, branch, base); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"pushed branch",
		"dir", r.Dir,
		"branch", branch,
		"files", len(paths),
	)

	return nil
}

func (r *Repo) push(
	ctx context.Context,
	branch string,
	base string,
) error {
	_, first := r.git(
		ctx,
		"push", "--no-verify", "--set-upstream",
		r.RemoteName, branch,
	)
	if first == nil {
		return nil
	}

	if !rejected(exec.OutputOf(first)) {
		return fmt.Errorf("%w: %w", ErrPushFailure, first)
	}

	slog.Warn(
		"push rejected, retrying after fetch",
		"branch", branch,
		"error", first,
	)

	if err := r.fetch(ctx); err != nil {
		return fmt.Errorf(
			"%w: %w", ErrPushFailure, errors.Join(first, err),
		)
	}

	if _, err := r.git(
		ctx,
		"-c", "user.name="+r.authorName,
		"-c", "user.email="+r.authorEmail,
		"rebase", r.RemoteName+"/"+base,
	); err != nil {
		_, _ = r.git(ctx, "rebase", "--abort")

		return fmt.Errorf(
			"%w: %w", ErrPushFailure, errors.Join(first, err),
		)
	}

	if _, err := r.git(
		ctx,
		"push", "--no-verify", "--set-upstream",
		r.RemoteName, branch,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailure, err)
	}

	return nil
}

// rejected reports whether push output shows the remote
// refused a ref, as opposed to a transport failure.
func rejected(output string) bool {
	return strings.Contains(output, "[rejected]") ||
		strings.Contains(output, "[remote rejected]")
}

// restore checks out base again and drops the local
// work branch. It runs even when ctx is cancelled.
func (r *Repo) restore(
	ctx context.Context,
	base string,
	branch string,
) {
	rctx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx), restoreTimeout,
	)
	defer cancel()

	if _, err := r.git(rctx, "checkout", "-f", base); err != nil {
		slog.Error(
			"cannot restore default branch",
			"dir", r.Dir,
			"branch", base,
			"error", err,
		)

		return
	}

	if _, err := r.git(rctx, "branch", "-D", branch); err != nil {
		slog.Warn(
			"cannot delete work branch",
			"branch", branch,
			"error", err,
		)
	}
}

// OpenPullRequest asks the configured provider to open a
// pull request from branch into the default branch. It
// is not retried.
func (r *Repo) OpenPullRequest(
	ctx context.Context,
	branch string,
	title string,
	body string,
) (PullRequest, error) {
	const errCtx = "opening pull request"

	if r.provider == nil {
		return PullRequest{}, fmt.Errorf(
			"%s: %w: no provider configured",
			errCtx, ErrProvider,
		)
	}

	base, err := r.DefaultBranch(ctx)
	if err != nil {
		return PullRequest{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	pr, err := r.provider.CreatePR(ctx, branch, base, title, body)
	if err != nil {
		if errors.Is(err, ErrProvider) {
			return PullRequest{}, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return PullRequest{}, fmt.Errorf(
			"%s: %w: %w", errCtx, ErrProvider, err,
		)
	}

	slog.Info(
		"opened pull request",
		"branch", branch,
		"base", base,
		"url", pr.URL,
	)

	return pr, nil
}

// DefaultBranch returns the upstream default branch.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	if err := r.lock.rLock(ctx); err != nil {
		return "", fmt.Errorf("resolving branch: %w", err)
	}
	defer r.lock.rUnlock()

	return r.defaultBranch(ctx)
}

// Head returns the commit hash checked out.
func (r *Repo) Head(ctx context.Context) (string, error) {
	if err := r.lock.rLock(ctx); err != nil {
		return "", fmt.Errorf("reading head: %w", err)
	}
	defer r.lock.rUnlock()

	out, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("reading head: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// LastCommitMessage returns the most recent commit
// message on the checked out branch.
func (r *Repo) LastCommitMessage(
	ctx context.Context,
) (string, error) {
	if err := r.lock.rLock(ctx); err != nil {
		return "", fmt.Errorf("reading commit message: %w", err)
	}
	defer r.lock.rUnlock()

	msg, err := r.git(ctx, "log", "-1", "--pretty=%B")
	if err != nil {
		return "", fmt.Errorf("reading commit message: %w", err)
	}

	return msg, nil
}

func (r *Repo) configuredBranch() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.branch
}

// defaultBranch resolves the remote HEAD once. Callers
// hold the lock.
func (r *Repo) defaultBranch(ctx context.Context) (string, error) {
	if b := r.configuredBranch(); b != "" {
		return b, nil
	}

	out, err := r.git(
		ctx,
		"symbolic-ref", "--short",
		"refs/remotes/"+r.RemoteName+"/HEAD",
	)
	if err != nil {
		return "", fmt.Errorf(
			"resolving default branch: %w", err,
		)
	}

	b := strings.TrimPrefix(
		strings.TrimSpace(out), r.RemoteName+"/",
	)

	r.mu.Lock()
	r.branch = b
	r.mu.Unlock()

	return b, nil
}

func (r *Repo) fetch(ctx context.Context) error {
	if _, err := r.git(
		ctx, "fetch", "--prune", r.RemoteName,
	); err != nil {
		return fmt.Errorf("fetching: %w", err)
	}

	return nil
}

func (r *Repo) git(
	ctx context.Context,
	args ...string,
) (string, error) {
	return exec.ExEnv(ctx, r.Dir, gitEnv, "git", args...) //nolint:wrapcheck
}
