package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Provider kinds understood by the server binary.
const (
	ProviderGitHub    = "github"
	ProviderGitLab    = "gitlab"
	ProviderBitbucket = "bitbucket"
	ProviderNone      = "none"
)

// Defaults applied by SetDefaults.
const (
	DefaultListen         = ":8080"
	DefaultLyraFile       = "lyra.yml"
	DefaultBranchTemplate = "lyra/{{project}}/{{id}}"
	DefaultTitleTemplate  = "Update {{project}} translations " +
		"({{languages}})"
	DefaultBodyTemplate = "{{count}} translation(s) " +
		"updated for {{languages}}.\n\n{{entries}}"
	DefaultCommitTemplate = "Update {{project}} translations"
)

var errInvalid = errors.New("invalid server configuration")

// ServerConfig is the static server configuration: where
// clones live, how edits are persisted, how pull requests
// are named and the list of translatable projects.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// WorkDir holds clones of projects that do not set
	// LocalClonePath.
	WorkDir string `yaml:"workDir"`
	// Database is the SQLite file holding local edits.
	// Empty keeps edits in memory.
	Database string `yaml:"database"`
	// LyraFile is the repository configuration file
	// name, relative to the repository root.
	LyraFile string `yaml:"lyraFile"`
	// PullRequest holds naming templates.
	PullRequest PullRequestConfig `yaml:"pullRequest"`
	// Projects is the list of translatable projects.
	Projects []Project `yaml:"projects"`
}

// PullRequestConfig holds fasttemplate templates used to
// name branches, commits and pull requests. Recognized
// tags: project, languages, count, id, entries.
type PullRequestConfig struct {
	Branch        string `yaml:"branch"`
	Title         string `yaml:"title"`
	Body          string `yaml:"body"`
	CommitMessage string `yaml:"commitMessage"`
}

// Project is one translatable project. It is immutable
// after load.
type Project struct {
	// Name is the unique, stable project key.
	Name string `yaml:"name"`
	// RepositoryURL is the upstream clone URL.
	RepositoryURL string `yaml:"repositoryUrl"`
	// LocalClonePath is where the clone lives.
	LocalClonePath string `yaml:"localClonePath"`
	// ProjectPath selects the project entry of the
	// repository lyra.yml.
	ProjectPath string `yaml:"projectPath"`
	// Branch is the upstream default branch. Empty
	// uses the remote HEAD.
	Branch string `yaml:"branch"`
	// Languages is the fallback list of target
	// languages when lyra.yml does not set one.
	Languages []string `yaml:"languages"`
	// Provider configures pull-request creation.
	Provider ProviderConfig `yaml:"provider"`
}

// ProviderConfig selects and configures the git hosting
// provider of a project.
type ProviderConfig struct {
	Kind      string          `yaml:"kind"`
	GitHub    GitHubConfig    `yaml:"github"`
	GitLab    GitLabConfig    `yaml:"gitlab"`
	Bitbucket BitbucketConfig `yaml:"bitbucket"`
}

// GitHubConfig mirrors github.Config.
type GitHubConfig struct {
	Owner          string `yaml:"owner"`
	Repo           string `yaml:"repo"`
	Token          string `yaml:"token"`
	EnterpriseHost string `yaml:"enterpriseHost"`
}

// GitLabConfig mirrors gitlab.Config.
type GitLabConfig struct {
	Host  string `yaml:"host"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"token"`
}

// BitbucketConfig mirrors bitbucket.Config.
type BitbucketConfig struct {
	Endpoint string `yaml:"endpoint"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Load reads the YAML configuration at path, expands
// ${VAR} references from the environment, applies
// defaults and validates the result.
func Load(path string) (*ServerConfig, error) {
	const errCtx = "loading server configuration"

	raw, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	slog.Info(
		"loaded configuration",
		"path", path,
		"projects", len(cfg.Projects),
	)

	return cfg, nil
}

// Parse decodes a server configuration document.
func Parse(raw []byte) (*ServerConfig, error) {
	var cfg ServerConfig

	expanded := os.ExpandEnv(string(raw))

	if err := yaml.UnmarshalWithOptions(
		[]byte(expanded), &cfg, yaml.Strict(),
	); err != nil {
		return nil, fmt.Errorf(
			"%w: %s",
			errInvalid,
			yaml.FormatError(err, false, true),
		)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults fills unset fields.
func (cfg *ServerConfig) SetDefaults() {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "lyra")
	}

	if cfg.LyraFile == "" {
		cfg.LyraFile = DefaultLyraFile
	}

	pr := &cfg.PullRequest
	if pr.Branch == "" {
		pr.Branch = DefaultBranchTemplate
	}

	if pr.Title == "" {
		pr.Title = DefaultTitleTemplate
	}

	if pr.Body == "" {
		pr.Body = DefaultBodyTemplate
	}

	if pr.CommitMessage == "" {
		pr.CommitMessage = DefaultCommitTemplate
	}

	for i := range cfg.Projects {
		p := &cfg.Projects[i]

		if p.LocalClonePath == "" {
			p.LocalClonePath = filepath.Join(
				cfg.WorkDir, p.Name,
			)
		}

		if p.ProjectPath == "" {
			p.ProjectPath = "."
		}

		if p.Provider.Kind == "" {
			p.Provider.Kind = ProviderNone
		}
	}
}

// Validate reports the first configuration problem.
func (cfg *ServerConfig) Validate() error {
	seen := make(map[string]struct{}, len(cfg.Projects))

	for i, p := range cfg.Projects {
		if p.Name == "" {
			return fmt.Errorf(
				"%w: project #%d has no name",
				errInvalid, i,
			)
		}

		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf(
				"%w: duplicate project %q",
				errInvalid, p.Name,
			)
		}

		seen[p.Name] = struct{}{}

		if p.RepositoryURL == "" {
			return fmt.Errorf(
				"%w: project %q has no repositoryUrl",
				errInvalid, p.Name,
			)
		}

		switch p.Provider.Kind {
		case ProviderGitHub,
			ProviderGitLab,
			ProviderBitbucket,
			ProviderNone:
		default:
			return fmt.Errorf(
				"%w: project %q: unknown provider %q",
				errInvalid, p.Name, p.Provider.Kind,
			)
		}
	}

	return nil
}
