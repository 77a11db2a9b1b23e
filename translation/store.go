package translation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"
)

// StoreConfig locates the language files of a project and
// names its edit namespace.
type StoreConfig struct {
	// Project is the backend namespace.
	Project string
	// Dir holds <language>.<ext> files, relative to the
	// repository root.
	Dir string
	// Format is the translations format.
	Format string
	// Languages lists the target languages.
	Languages []string
}

// File is a language file to commit.
type File struct {
	Path    string
	Content []byte
}

// Submission is the set of language files carrying the
// unsubmitted edits of a project.
type Submission struct {
	Files     []File
	Edits     []Edit
	Languages []string
}

// Empty reports whether nothing is to be submitted.
func (s Submission) Empty() bool {
	return len(s.Edits) == 0
}

// Store holds the translations of one project: the base
// read from language files and the local edits overlaid
// on it. It is safe for concurrent use.
type Store struct {
	project string
	backend Backend
	now     func() time.Time

	// writeMu orders backend writes so the backend and
	// memory agree on the last write.
	writeMu sync.Mutex

	mu    sync.RWMutex
	cfg   StoreConfig
	codec Codec
	docs  map[string]*Document
	base  map[string]map[string]any
	edits map[string]map[string]Edit
}

// NewStore opens the store of cfg.Project and loads its
// pending edits from backend.
func NewStore(
	ctx context.Context,
	cfg StoreConfig,
	backend Backend,
) (*Store, error) {
	const errCtx = "opening translation store"

	codec, err := CodecFor(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	pending, err := backend.Edits(ctx, cfg.Project)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s: %w", errCtx, cfg.Project, err,
		)
	}

	s := &Store{
		project: cfg.Project,
		backend: backend,
		now:     time.Now,
		cfg:     cfg,
		codec:   codec,
		docs:    map[string]*Document{},
		base:    map[string]map[string]any{},
		edits:   map[string]map[string]Edit{},
	}

	for _, e := range pending {
		s.putLocked(e)
	}

	slog.Debug(
		"opened translation store",
		"project", cfg.Project,
		"pending", len(pending),
	)

	return s, nil
}

// Configure replaces the file location, format and
// languages. Base translations stay until Refresh.
func (s *Store) Configure(cfg StoreConfig) error {
	codec, err := CodecFor(cfg.Format)
	if err != nil {
		return fmt.Errorf("configuring store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.Project = s.project
	s.cfg = cfg
	s.codec = codec

	return nil
}

func (s *Store) filePathLocked(language string) string {
	return path.Join(s.cfg.Dir, language+"."+s.codec.Ext())
}

// Translations returns the flat translations of language
// with edits taking precedence over the base. When only
// is non-nil, ids outside it are dropped.
func (s *Store) Translations(
	language string,
	only map[string]struct{},
) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.base[language]))

	keep := func(id string) bool {
		if only == nil {
			return true
		}

		_, ok := only[id]

		return ok
	}

	for id, v := range s.base[language] {
		if keep(id) {
			out[id] = v
		}
	}

	for id, e := range s.edits[language] {
		if keep(id) {
			out[id] = e.Text
		}
	}

	return out
}

// SetTranslation records an edit. The backend write
// happens first; on failure nothing changes.
func (s *Store) SetTranslation(
	ctx context.Context,
	language string,
	messageID string,
	text string,
) error {
	const errCtx = "setting translation"

	e := Edit{
		Language:  language,
		MessageID: messageID,
		Text:      text,
		UpdatedAt: s.now().UTC(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.backend.Put(ctx, s.project, e); err != nil {
		return fmt.Errorf(
			"%s: %s/%s: %w", errCtx, language, messageID, err,
		)
	}

	s.mu.Lock()
	s.putLocked(e)
	s.mu.Unlock()

	return nil
}

func (s *Store) putLocked(e Edit) {
	byID, ok := s.edits[e.Language]
	if !ok {
		byID = make(map[string]Edit)
		s.edits[e.Language] = byID
	}

	byID[e.MessageID] = e
}

// Edits returns every local edit sorted by language then
// message id.
func (s *Store) Edits() []Edit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Edit

	for _, byID := range s.edits {
		for _, e := range byID {
			out = append(out, e)
		}
	}

	sortEdits(out)

	return out
}

// Refresh reloads the base translations of every
// configured language from tree. A missing file is an
// empty language. Submitted edits whose text is now in
// the base were merged upstream and are dropped.
func (s *Store) Refresh(ctx context.Context, tree fs.FS) error {
	const errCtx = "refreshing translations"

	s.mu.RLock()
	langs := append([]string(nil), s.cfg.Languages...)
	codec := s.codec
	paths := make(map[string]string, len(langs))

	for _, lang := range langs {
		paths[lang] = s.filePathLocked(lang)
	}
	s.mu.RUnlock()

	docs := make(map[string]*Document, len(langs))
	base := make(map[string]map[string]any, len(langs))

	for _, lang := range langs {
		name := paths[lang]

		data, err := fs.ReadFile(tree, name)
		if errors.Is(err, fs.ErrNotExist) {
			base[lang] = map[string]any{}

			continue
		}

		if err != nil {
			return fmt.Errorf("%s: %s: %w", errCtx, name, err)
		}

		doc, err := codec.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", errCtx, name, err)
		}

		docs[lang] = doc
		base[lang] = doc.Leaves()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.docs = docs
	s.base = base
	merged := s.mergedLocked()
	s.mu.Unlock()

	for _, e := range merged {
		if err := s.backend.Delete(
			ctx, s.project, e.Language, e.MessageID,
		); err != nil {
			return fmt.Errorf("%s: pruning: %w", errCtx, err)
		}

		s.mu.Lock()
		delete(s.edits[e.Language], e.MessageID)
		s.mu.Unlock()
	}

	if len(merged) > 0 {
		slog.Info(
			"pruned merged edits",
			"project", s.project,
			"count", len(merged),
		)
	}

	return nil
}

// mergedLocked lists submitted edits equal to the base.
func (s *Store) mergedLocked() []Edit {
	var out []Edit

	for lang, byID := range s.edits {
		for id, e := range byID {
			if !e.Submitted {
				continue
			}

			if v, ok := s.base[lang][id].(string); ok &&
				v == e.Text {
				out = append(out, e)
			}
		}
	}

	return out
}

// Changes builds the language files to commit: for every
// language with unsubmitted edits, the whole file with
// all edits applied. Existing keys keep their place and
// layout; new ids follow the layout of the file, or of
// the other language files when it does not exist yet.
func (s *Store) Changes() (Submission, error) {
	const errCtx = "collecting changes"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sub Submission

	for lang, byID := range s.edits {
		pending := 0

		for _, e := range byID {
			if !e.Submitted {
				sub.Edits = append(sub.Edits, e)
				pending++
			}
		}

		if pending > 0 {
			sub.Languages = append(sub.Languages, lang)
		}
	}

	sort.Strings(sub.Languages)
	sortEdits(sub.Edits)

	for _, lang := range sub.Languages {
		doc := NewDocument()
		flat := s.flatLayoutLocked()

		if cur, ok := s.docs[lang]; ok {
			doc = cur.Clone()

			if doc.Len() > 0 {
				flat = cur.Flat()
			}
		}

		values := make(map[string]any, len(s.edits[lang]))

		for id, e := range s.edits[lang] {
			values[id] = e.Text
		}

		doc.Apply(values, flat)

		content, err := s.codec.Encode(doc)
		if err != nil {
			return Submission{}, fmt.Errorf(
				"%s: %s: %w", errCtx, lang, err,
			)
		}

		sub.Files = append(sub.Files, File{
			Path:    s.filePathLocked(lang),
			Content: content,
		})
	}

	return sub, nil
}

// flatLayoutLocked reports whether the first non-empty
// language file, in language order, is flat.
func (s *Store) flatLayoutLocked() bool {
	langs := make([]string, 0, len(s.docs))
	for lang := range s.docs {
		langs = append(langs, lang)
	}

	sort.Strings(langs)

	for _, lang := range langs {
		if doc := s.docs[lang]; doc.Len() > 0 {
			return doc.Flat()
		}
	}

	return false
}

// MarkSubmitted flags the edits of sub as submitted,
// except those edited again since Changes.
func (s *Store) MarkSubmitted(
	ctx context.Context,
	sub Submission,
) error {
	const errCtx = "marking edits submitted"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, e := range sub.Edits {
		if err := s.backend.MarkSubmitted(
			ctx, s.project, e.Language, e.MessageID, e.Text,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		s.mu.Lock()
		if cur, ok := s.edits[e.Language][e.MessageID]; ok &&
			cur.Text == e.Text {
			cur.Submitted = true
			s.edits[e.Language][e.MessageID] = cur
		}
		s.mu.Unlock()
	}

	return nil
}
