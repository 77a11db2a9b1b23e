package translation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Edit is a translation changed locally and not yet
// merged upstream.
type Edit struct {
	Language  string    `json:"language"`
	MessageID string    `json:"messageId"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Submitted is set once a pushed pull request
	// carries this text.
	Submitted bool `json:"submitted"`
}

// Backend persists edits per project.
type Backend interface {
	// Edits returns every edit of project.
	Edits(ctx context.Context, project string) ([]Edit, error)
	// Put upserts an edit keyed by language and message
	// id. Put clears Submitted.
	Put(ctx context.Context, project string, e Edit) error
	// MarkSubmitted flags the edit as submitted when its
	// text still equals text.
	MarkSubmitted(
		ctx context.Context,
		project string,
		language string,
		messageID string,
		text string,
	) error
	// Delete removes an edit.
	Delete(
		ctx context.Context,
		project string,
		language string,
		messageID string,
	) error
}

type editKey struct {
	language  string
	messageID string
}

// MemoryBackend keeps edits in process memory. It suits
// tests and ephemeral servers.
type MemoryBackend struct {
	mu    sync.Mutex
	edits map[string]map[editKey]Edit
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		edits: make(map[string]map[editKey]Edit),
	}
}

// Edits implements Backend. Edits are sorted by language
// then message id.
func (b *MemoryBackend) Edits(
	_ context.Context,
	project string,
) ([]Edit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Edit, 0, len(b.edits[project]))
	for _, e := range b.edits[project] {
		out = append(out, e)
	}

	sortEdits(out)

	return out, nil
}

// Put implements Backend.
func (b *MemoryBackend) Put(
	_ context.Context,
	project string,
	e Edit,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ns, ok := b.edits[project]
	if !ok {
		ns = make(map[editKey]Edit)
		b.edits[project] = ns
	}

	e.Submitted = false
	ns[editKey{e.Language, e.MessageID}] = e

	return nil
}

// MarkSubmitted implements Backend.
func (b *MemoryBackend) MarkSubmitted(
	_ context.Context,
	project string,
	language string,
	messageID string,
	text string,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := editKey{language, messageID}

	if e, ok := b.edits[project][k]; ok && e.Text == text {
		e.Submitted = true
		b.edits[project][k] = e
	}

	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(
	_ context.Context,
	project string,
	language string,
	messageID string,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.edits[project], editKey{language, messageID})

	return nil
}

func sortEdits(edits []Edit) {
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Language != edits[j].Language {
			return edits[i].Language < edits[j].Language
		}

		return edits[i].MessageID < edits[j].MessageID
	})
}
