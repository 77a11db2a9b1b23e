package message

import (
	"context"
	"errors"
	"io/fs"
)

var (
	// ErrUnsupportedFormat is returned by Factory.New for
	// an unknown messages format.
	ErrUnsupportedFormat = errors.New("unsupported message format")
	// ErrExtraction is returned when a source file cannot
	// be read or parsed.
	ErrExtraction = errors.New("message extraction failure")
	// ErrDuplicateMessageID is returned when one id is
	// declared twice in a project.
	ErrDuplicateMessageID = errors.New("duplicate message id")
)

// Message is one translatable source string.
type Message struct {
	ID             string `json:"id"`
	DefaultMessage string `json:"defaultMessage"`
	Description    string `json:"description,omitempty"`
	Plural         string `json:"plural,omitempty"`
	Context        string `json:"context,omitempty"`
	// File is the source path relative to the
	// repository root.
	File string `json:"-"`
}

// Adapter extracts the messages of one project.
type Adapter interface {
	// Format returns the messages format name.
	Format() string
	// Sources lists the source files the adapter reads,
	// relative to the tree root and sorted.
	Sources(tree fs.FS) ([]string, error)
	// Messages extracts every message in source file
	// order. It fails as a whole: no partial results.
	Messages(ctx context.Context, tree fs.FS) ([]Message, error)
}

// IDs returns the set of ids in msgs.
func IDs(msgs []Message) map[string]struct{} {
	ids := make(map[string]struct{}, len(msgs))

	for _, m := range msgs {
		ids[m.ID] = struct{}{}
	}

	return ids
}
