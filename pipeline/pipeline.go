package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/byte4ever/lyra/config"
	"github.com/byte4ever/lyra/message"
	"github.com/byte4ever/lyra/translation"
	"github.com/byte4ever/lyra/vcs/commitmsg"
	"github.com/byte4ever/lyra/vcs/digester"
	"github.com/byte4ever/lyra/vcs/git"
)

const defaultParallelism = 4

// Repository is the git capability a project needs.
// *git.Repo implements it.
type Repository interface {
	CloneIfNotExist(ctx context.Context) (bool, error)
	Pull(ctx context.Context) error
	LyraConfig(ctx context.Context) (*config.LyraConfig, error)
	View(ctx context.Context, fn func(tree fs.FS) error) error
	Head(ctx context.Context) (string, error)
	LastCommitMessage(ctx context.Context) (string, error)
	CommitAndPush(
		ctx context.Context,
		branch string,
		msg string,
		files []git.FileChange,
	) error
	OpenPullRequest(
		ctx context.Context,
		branch string,
		title string,
		body string,
	) (git.PullRequest, error)
}

// RepoOpener returns the repository of a project.
type RepoOpener func(p config.Project) (Repository, error)

// ProviderFactory builds the pull request provider of a
// project. A nil provider disables pull requests.
type ProviderFactory func(p config.Project) (git.GitProvider, error)

// Config wires a Pipeline. Zero fields get defaults.
type Config struct {
	// Server is the loaded server configuration.
	Server *config.ServerConfig

	// Factory builds message adapters.
	Factory *message.Factory

	// Cache hands out translation stores.
	Cache *translation.Cache

	// OpenRepo opens project repositories. The default
	// shares handles through a git.Registry and uses
	// Providers.
	OpenRepo RepoOpener

	// Providers builds pull request providers for the
	// default OpenRepo.
	Providers ProviderFactory

	// Parallelism bounds concurrent syncs in SyncAll.
	Parallelism int
}

// snapshot is what a successful sync publishes.
type snapshot struct {
	languages []string
	messages  []message.Message
	ids       map[string]struct{}
	store     *translation.Store
	repo      Repository
}

type project struct {
	cfg config.Project

	// syncMu serializes syncs, submitMu pull requests.
	syncMu   sync.Mutex
	submitMu sync.Mutex

	mu     sync.RWMutex
	status Status
	snap   *snapshot
	repo   Repository

	// Extraction memo, only touched under syncMu.
	memoKey  string
	memoMsgs []message.Message
}

// Pipeline drives every configured project.
type Pipeline struct {
	server      *config.ServerConfig
	factory     *message.Factory
	cache       *translation.Cache
	openRepo    RepoOpener
	parallelism int

	order    []string
	projects map[string]*project
}

// New returns a Pipeline over cfg.Server.Projects. Every
// project starts NotCloned.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		server:      cfg.Server,
		factory:     cfg.Factory,
		cache:       cfg.Cache,
		openRepo:    cfg.OpenRepo,
		parallelism: cfg.Parallelism,
		projects:    map[string]*project{},
	}

	if p.factory == nil {
		p.factory = message.NewFactory()
	}

	if p.cache == nil {
		p.cache = translation.NewCache(translation.NewMemoryBackend())
	}

	if p.openRepo == nil {
		p.openRepo = RegistryOpener(
			git.NewRegistry(), cfg.Server.LyraFile, cfg.Providers,
		)
	}

	if p.parallelism <= 0 {
		p.parallelism = defaultParallelism
	}

	for _, pc := range cfg.Server.Projects {
		p.order = append(p.order, pc.Name)
		p.projects[pc.Name] = &project{
			cfg: pc,
			status: Status{
				Project: pc.Name,
				State:   StateNotCloned,
			},
		}
	}

	return p
}

// RegistryOpener opens repositories through reg so each
// clone path has one handle. providers may be nil.
func RegistryOpener(
	reg *git.Registry,
	lyraFile string,
	providers ProviderFactory,
) RepoOpener {
	return func(p config.Project) (Repository, error) {
		const errCtx = "opening repository"

		var provider git.GitProvider

		if providers != nil {
			var err error

			provider, err = providers(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", errCtx, p.Name, err)
			}
		}

		repo, err := reg.Get(git.RepoSpec{
			URL:      p.RepositoryURL,
			Dir:      p.LocalClonePath,
			Branch:   p.Branch,
			LyraFile: lyraFile,
			Provider: provider,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", errCtx, p.Name, err)
		}

		return repo, nil
	}
}

func (p *Pipeline) project(name string) (*project, error) {
	pr, ok := p.projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, name)
	}

	return pr, nil
}

// Sync brings a project to Ready: clone or pull, read
// lyra.yml, extract messages and load translations. A
// failure leaves the project Failed and is returned.
func (p *Pipeline) Sync(ctx context.Context, name string) (Status, error) {
	const errCtx = "syncing project"

	pr, err := p.project(name)
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	pr.syncMu.Lock()
	defer pr.syncMu.Unlock()

	start := time.Now()

	if err := p.sync(ctx, pr); err != nil {
		pr.fail(err)

		slog.Error(
			"sync failed",
			"project", name,
			"kind", Kind(err),
			"error", err,
		)

		return pr.currentStatus(), fmt.Errorf(
			"%s: %s: %w", errCtx, name, err,
		)
	}

	st := pr.currentStatus()

	slog.Info(
		"project ready",
		"project", name,
		"commit", st.Commit,
		"messages", st.Messages,
		"languages", st.Languages,
		"duration", time.Since(start),
	)

	return st, nil
}

func (p *Pipeline) sync(ctx context.Context, pr *project) error {
	repo, err := p.repoOf(pr)
	if err != nil {
		return err
	}

	pr.setState(StateCloning)

	cloned, err := repo.CloneIfNotExist(ctx)
	if err != nil {
		return err
	}

	if !cloned {
		if err := repo.Pull(ctx); err != nil {
			return err
		}
	}

	lyra, err := repo.LyraConfig(ctx)
	if err != nil {
		return err
	}

	pc, err := lyra.ProjectConfigByPath(pr.cfg.ProjectPath)
	if err != nil {
		return err
	}

	languages := pc.EffectiveLanguages(pr.cfg.Languages)
	if err := config.ValidateLanguages(languages); err != nil {
		return err
	}

	pr.setState(StateConfigLoaded)

	adapter, err := p.factory.New(pc)
	if err != nil {
		return err
	}

	msgs, err := pr.extract(ctx, repo, adapter)
	if err != nil {
		return err
	}

	pr.setState(StateMessagesExtracted)

	store, err := p.cache.Store(ctx, translation.StoreConfig{
		Project:   pr.cfg.Name,
		Dir:       path.Join(pc.Path, pc.Translations.Path),
		Format:    pc.Translations.Format,
		Languages: languages,
	})
	if err != nil {
		return err
	}

	if err := repo.View(ctx, func(tree fs.FS) error {
		return store.Refresh(ctx, tree)
	}); err != nil {
		return err
	}

	pr.setState(StateTranslationsLoaded)

	commit, err := repo.Head(ctx)
	if err != nil {
		return err
	}

	merged, err := mergedEntries(ctx, repo)
	if err != nil {
		return err
	}

	if len(merged) > 0 {
		slog.Info(
			"upstream head is a lyra submission",
			"project", pr.cfg.Name,
			"commit", commit,
			"entries", len(merged),
		)
	}

	pr.publish(&snapshot{
		languages: slices.Clone(languages),
		messages:  msgs,
		ids:       message.IDs(msgs),
		store:     store,
		repo:      repo,
	}, commit, adapter.Format(), merged)

	return nil
}

// mergedEntries lists the "language:messageId" entries
// carried by the head commit message, if it is a lyra
// submission.
func mergedEntries(ctx context.Context, repo Repository) ([]string, error) {
	msg, err := repo.LastCommitMessage(ctx)
	if err != nil {
		return nil, err
	}

	entries := commitmsg.Extract(msg)
	if len(entries) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(entries))

	for _, e := range entries {
		out = append(out, e.String())
	}

	return out, nil
}

func (p *Pipeline) repoOf(pr *project) (Repository, error) {
	pr.mu.RLock()
	repo := pr.repo
	pr.mu.RUnlock()

	if repo != nil {
		return repo, nil
	}

	repo, err := p.openRepo(pr.cfg)
	if err != nil {
		return nil, err
	}

	pr.mu.Lock()
	pr.repo = repo
	pr.mu.Unlock()

	return repo, nil
}

// extract runs the adapter under shared access to the
// tree. The result is reused while the source files,
// format and globs are unchanged.
func (pr *project) extract(
	ctx context.Context,
	repo Repository,
	adapter message.Adapter,
) ([]message.Message, error) {
	var msgs []message.Message

	err := repo.View(ctx, func(tree fs.FS) error {
		sources, err := adapter.Sources(tree)
		if err != nil {
			return fmt.Errorf("%w: %w", message.ErrExtraction, err)
		}

		digest, err := digester.CombinedDigest(tree, sources)
		if err != nil {
			return fmt.Errorf("%w: %w", message.ErrExtraction, err)
		}

		key := adapter.Format() + "\x00" + digest

		if len(sources) > 0 && key == pr.memoKey {
			slog.Debug(
				"sources unchanged, reusing messages",
				"project", pr.cfg.Name,
				"digest", digest,
			)

			msgs = pr.memoMsgs

			return nil
		}

		msgs, err = adapter.Messages(ctx, tree)
		if err != nil {
			return err
		}

		pr.memoKey = key
		pr.memoMsgs = msgs

		return nil
	})
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

// SyncAll syncs every project concurrently. Projects fail
// independently; the result follows configuration order.
func (p *Pipeline) SyncAll(ctx context.Context) []Status {
	out := make([]Status, len(p.order))

	var g errgroup.Group

	g.SetLimit(p.parallelism)

	for i, name := range p.order {
		g.Go(func() error {
			// The error is recorded in the status.
			out[i], _ = p.Sync(ctx, name)

			return nil
		})
	}

	_ = g.Wait()

	return out
}

// Status returns the sync status of a project.
func (p *Pipeline) Status(name string) (Status, error) {
	pr, err := p.project(name)
	if err != nil {
		return Status{}, err
	}

	return pr.currentStatus(), nil
}

// Statuses returns every project status in configuration
// order.
func (p *Pipeline) Statuses() []Status {
	out := make([]Status, 0, len(p.order))

	for _, name := range p.order {
		out = append(out, p.projects[name].currentStatus())
	}

	return out
}

// Messages returns the extracted messages of a Ready
// project in source order.
func (p *Pipeline) Messages(name string) ([]message.Message, error) {
	snap, err := p.ready(name)
	if err != nil {
		return nil, err
	}

	return slices.Clone(snap.messages), nil
}

// Languages returns the target languages of a Ready
// project.
func (p *Pipeline) Languages(name string) ([]string, error) {
	snap, err := p.ready(name)
	if err != nil {
		return nil, err
	}

	return slices.Clone(snap.languages), nil
}

// Translations returns the flat translations of language,
// restricted to the messages currently extracted.
func (p *Pipeline) Translations(
	name string,
	language string,
) (map[string]any, error) {
	snap, err := p.ready(name)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(snap.languages, language) {
		return nil, fmt.Errorf(
			"%w: %q in %s", ErrUnknownLanguage, language, name,
		)
	}

	return snap.store.Translations(language, snap.ids), nil
}

// SetTranslation records a translation of a current
// message. The project must be Ready.
func (p *Pipeline) SetTranslation(
	ctx context.Context,
	name string,
	language string,
	messageID string,
	text string,
) error {
	const errCtx = "setting translation"

	snap, err := p.ready(name)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !slices.Contains(snap.languages, language) {
		return fmt.Errorf(
			"%s: %w: %q", errCtx, ErrUnknownLanguage, language,
		)
	}

	if _, ok := snap.ids[messageID]; !ok {
		return fmt.Errorf(
			"%s: %w: %q", errCtx, ErrUnknownMessage, messageID,
		)
	}

	if err := snap.store.SetTranslation(
		ctx, language, messageID, text,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"translation set",
		"project", name,
		"language", language,
		"id", messageID,
	)

	return nil
}

func (p *Pipeline) ready(name string) (*snapshot, error) {
	pr, err := p.project(name)
	if err != nil {
		return nil, err
	}

	pr.mu.RLock()
	defer pr.mu.RUnlock()

	if pr.status.State != StateReady || pr.snap == nil {
		return nil, fmt.Errorf(
			"%w: %s is %s", ErrNotReady, name, pr.status.State,
		)
	}

	return pr.snap, nil
}

func (pr *project) setState(s State) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.status.State = s
	pr.status.Reason = ""
	pr.status.Kind = ""

	slog.Debug("sync state", "project", pr.cfg.Name, "state", s)
}

func (pr *project) fail(err error) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.status.State = StateFailed
	pr.status.Reason = err.Error()
	pr.status.Kind = Kind(err)
	pr.snap = nil
}

func (pr *project) publish(
	snap *snapshot,
	commit string,
	format string,
	merged []string,
) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.snap = snap
	pr.status = Status{
		Project:   pr.cfg.Name,
		State:     StateReady,
		Commit:    commit,
		Format:    format,
		Languages: slices.Clone(snap.languages),
		Messages:  len(snap.messages),
		Merged:    merged,
		SyncedAt:  time.Now().UTC(),
	}
}

func (pr *project) currentStatus() Status {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	st := pr.status
	st.Languages = slices.Clone(st.Languages)
	st.Merged = slices.Clone(st.Merged)

	if pr.snap != nil {
		for _, e := range pr.snap.store.Edits() {
			if !e.Submitted {
				st.Pending++
			}
		}
	}

	return st
}

// joinLanguages renders languages for templates.
func joinLanguages(langs []string) string {
	return strings.Join(langs, ", ")
}
