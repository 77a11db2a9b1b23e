package message

import (
	"fmt"
	"sort"
	"strings"

	"github.com/byte4ever/lyra/config"
)

// Format names understood by the default Factory.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatFormatJS = "formatjs"
	FormatCSV      = "csv"
	FormatPO       = "po"
)

// ParseFunc decodes one source file into messages in
// file order. File is set by the caller.
type ParseFunc func(data []byte) ([]Message, error)

// Factory builds adapters keyed by messages format.
type Factory struct {
	byFormat map[string]ParseFunc
}

// NewFactory returns a Factory knowing every built-in
// format.
func NewFactory() *Factory {
	f := &Factory{byFormat: map[string]ParseFunc{}}

	f.Register(FormatJSON, parseJSON)
	f.Register(FormatYAML, parseYAML)
	f.Register(FormatFormatJS, parseFormatJS)
	f.Register(FormatCSV, parseCSV)
	f.Register(FormatPO, parsePO)

	return f
}

// Register adds or replaces the parser of a format.
func (f *Factory) Register(format string, parse ParseFunc) {
	f.byFormat[format] = parse
}

// Formats returns the registered format names, sorted.
func (f *Factory) Formats() []string {
	out := make([]string, 0, len(f.byFormat))

	for k := range f.byFormat {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

// New returns the adapter for cfg. The choice depends on
// cfg.Messages.Format only.
func (f *Factory) New(cfg config.ProjectConfig) (Adapter, error) {
	parse, ok := f.byFormat[cfg.Messages.Format]
	if !ok {
		return nil, fmt.Errorf(
			"%w: %q, supported: %s",
			ErrUnsupportedFormat, cfg.Messages.Format,
			strings.Join(f.Formats(), ", "),
		)
	}

	return &fileAdapter{
		format:      cfg.Messages.Format,
		projectPath: cfg.Path,
		globs:       cfg.Messages.Globs,
		parse:       parse,
	}, nil
}
