package pipeline

import (
	"fmt"
	"strings"

	"github.com/byte4ever/lyra/message"
)

// OrderForReview returns msgs with untranslated messages
// first; a blank translation counts as untranslated.
// Order within each group is kept.
func OrderForReview(
	msgs []message.Message,
	translations map[string]any,
) []message.Message {
	out := make([]message.Message, 0, len(msgs))

	for _, m := range msgs {
		if !translated(translations, m.ID) {
			out = append(out, m)
		}
	}

	for _, m := range msgs {
		if translated(translations, m.ID) {
			out = append(out, m)
		}
	}

	return out
}

// Filter keeps the messages whose id, default message or
// translation contains query, ignoring case. An empty
// query keeps everything.
func Filter(
	msgs []message.Message,
	translations map[string]any,
	query string,
) []message.Message {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return msgs
	}

	var out []message.Message

	for _, m := range msgs {
		if contains(m.ID, q) ||
			contains(m.DefaultMessage, q) ||
			contains(text(translations, m.ID), q) {
			out = append(out, m)
		}
	}

	return out
}

func translated(translations map[string]any, id string) bool {
	return strings.TrimSpace(text(translations, id)) != ""
}

func text(translations map[string]any, id string) string {
	switch v := translations[id].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
