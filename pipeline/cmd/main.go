// Command lyra serves collaborative translation of the
// projects listed in its configuration file. It clones
// each project, extracts source messages, stores edits
// and opens pull requests with the translated files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"

	"github.com/byte4ever/lyra/api"
	"github.com/byte4ever/lyra/config"
	"github.com/byte4ever/lyra/pipeline"
	"github.com/byte4ever/lyra/translation"
	"github.com/byte4ever/lyra/translation/sqlite"
	"github.com/byte4ever/lyra/vcs/git"
	"github.com/byte4ever/lyra/vcs/git/bitbucket"
	"github.com/byte4ever/lyra/vcs/git/github"
	"github.com/byte4ever/lyra/vcs/git/gitlab"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	const errCtx = "running lyra"

	configPath := flag.String(
		"config", os.Getenv("LYRA_CONFIG"),
		"Server configuration file (default $LYRA_CONFIG)",
	)
	logLevel := flag.String(
		"log_level", "info",
		"Log level: debug, info, warn or error",
	)
	listen := flag.String(
		"listen", "",
		"HTTP listen address, overrides the configuration",
	)

	flag.Parse()

	if err := setupLogging(*logLevel); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if *configPath == "" {
		return fmt.Errorf("%s: -config or LYRA_CONFIG is required", errCtx)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	backend, closeBackend, err := newBackend(cfg.Database)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}
	defer closeBackend()

	p := pipeline.New(pipeline.Config{
		Server:    cfg,
		Cache:     translation.NewCache(backend),
		Providers: newGitProvider,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	for _, st := range p.SyncAll(ctx) {
		if st.State == pipeline.StateFailed {
			slog.Warn(
				"project unavailable",
				"project", st.Project,
				"kind", st.Kind,
				"reason", st.Reason,
			)
		}
	}

	return serve(ctx, cfg.Listen, api.NewHandler(p))
}

// setupLogging installs a text handler on a terminal and
// a JSON handler otherwise.
func setupLogging(level string) error {
	var lvl slog.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		h = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(h))

	if lvl > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	return nil
}

// newBackend opens the SQLite edit database, or keeps
// edits in memory when path is empty.
func newBackend(path string) (translation.Backend, func(), error) {
	if path == "" {
		slog.Warn("no database configured, edits are kept in memory")

		return translation.NewMemoryBackend(), func() {}, nil
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return db, func() {
		if err := db.Close(); err != nil {
			slog.Error("closing database", "error", err)
		}
	}, nil
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errs := make(chan error, 1)

	go func() {
		slog.Info("listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}

		return nil
	case <-ctx.Done():
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http: %w", err)
		}

		return nil
	}
}

// newGitProvider creates the git.GitProvider of a
// project. Pattern: Factory -- selects platform
// implementation at runtime.
func newGitProvider(p config.Project) (git.GitProvider, error) {
	const errCtx = "creating git provider"

	pc := p.Provider

	switch pc.Kind {
	case config.ProviderNone, "":
		return nil, nil

	case config.ProviderGitHub:
		gp, err := github.NewProvider(github.Config{
			RepoOwner:      pc.GitHub.Owner,
			Repo:           pc.GitHub.Repo,
			AccessToken:    pc.GitHub.Token,
			EnterpriseHost: pc.GitHub.EnterpriseHost,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return gp, nil

	case config.ProviderGitLab:
		gp, err := gitlab.NewProvider(gitlab.Config{
			Host:        pc.GitLab.Host,
			Repo:        pc.GitLab.Repo,
			AccessToken: pc.GitLab.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return gp, nil

	case config.ProviderBitbucket:
		gp, err := bitbucket.NewProvider(bitbucket.Config{
			APIEndpoint: pc.Bitbucket.Endpoint,
			User:        pc.Bitbucket.User,
			Password:    pc.Bitbucket.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return gp, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown provider %q", errCtx, pc.Kind,
		)
	}
}
