package config

import (
	"errors"
	"fmt"
	"path"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/language"
)

// ErrConfigParse is returned when the repository lyra.yml
// is missing, malformed or has no entry for a project.
var ErrConfigParse = errors.New("config parse error")

// Translation file formats.
const (
	TranslationsJSON = "json"
	TranslationsYAML = "yaml"
)

const defaultTranslationsPath = "locales"

// LyraConfig is the content of lyra.yml at the root of a
// translated repository. One repository may host several
// projects, keyed by their path.
type LyraConfig struct {
	Projects []ProjectConfig `yaml:"projects"`
}

// ProjectConfig describes how to extract messages and where
// translations live for one project of a repository. It is
// re-read on every sync and never mutated.
type ProjectConfig struct {
	// Path is the project directory relative to the
	// repository root.
	Path string `yaml:"path"`
	// Messages selects the extraction strategy.
	Messages MessagesConfig `yaml:"messages"`
	// Translations locates the per-language files.
	Translations TranslationsConfig `yaml:"translations"`
	// Languages lists the target languages. When empty
	// the server-side project languages apply.
	Languages []string `yaml:"languages"`
}

// MessagesConfig selects the message adapter and the
// source files it reads.
type MessagesConfig struct {
	Format string   `yaml:"format"`
	Globs  []string `yaml:"globs"`
}

// TranslationsConfig locates per-language files at
// <Path>/<language>.<Format>, relative to the project path.
type TranslationsConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// ParseLyraConfig decodes and validates a lyra.yml document.
func ParseLyraConfig(data []byte) (*LyraConfig, error) {
	var cfg LyraConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf(
			"%w: %s",
			ErrConfigParse,
			yaml.FormatError(err, false, false),
		)
	}

	for i := range cfg.Projects {
		p := &cfg.Projects[i]

		p.setDefaults()

		if err := p.validate(); err != nil {
			return nil, fmt.Errorf(
				"%w: project %q: %w",
				ErrConfigParse, p.Path, err,
			)
		}
	}

	return &cfg, nil
}

// ProjectConfigByPath returns the project entry whose path
// equals projectPath once both are cleaned.
func (c *LyraConfig) ProjectConfigByPath(
	projectPath string,
) (ProjectConfig, error) {
	want := path.Clean(projectPath)

	for _, p := range c.Projects {
		if path.Clean(p.Path) == want {
			return p, nil
		}
	}

	return ProjectConfig{}, fmt.Errorf(
		"%w: no project with path %q",
		ErrConfigParse, projectPath,
	)
}

// EffectiveLanguages returns the languages declared in
// lyra.yml, or fallback when none are.
func (p ProjectConfig) EffectiveLanguages(
	fallback []string,
) []string {
	if len(p.Languages) > 0 {
		return p.Languages
	}

	return fallback
}

func (p *ProjectConfig) setDefaults() {
	if p.Path == "" {
		p.Path = "."
	}

	if p.Translations.Path == "" {
		p.Translations.Path = defaultTranslationsPath
	}

	if p.Translations.Format == "" {
		p.Translations.Format = TranslationsJSON
	}
}

func (p *ProjectConfig) validate() error {
	if p.Messages.Format == "" {
		return errors.New("messages.format is required")
	}

	if len(p.Messages.Globs) == 0 {
		return errors.New("messages.globs is required")
	}

	switch p.Translations.Format {
	case TranslationsJSON, TranslationsYAML:
	default:
		return fmt.Errorf(
			"unsupported translations.format %q",
			p.Translations.Format,
		)
	}

	for _, lang := range p.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("language %q: %w", lang, err)
		}
	}

	return nil
}

// ValidateLanguages reports the first tag in langs that is
// not a well-formed BCP 47 language tag.
func ValidateLanguages(langs []string) error {
	for _, lang := range langs {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf(
				"%w: language %q: %w",
				ErrConfigParse, lang, err,
			)
		}
	}

	return nil
}
