package commitmsg

import (
	"log/slog"
	"sort"
	"strings"
)

const (
	begin = "--- lyra translations begin ---"
	end   = "--- lyra translations end ---"
)

// Entry is one submitted translation: a message id in a
// language.
type Entry struct {
	Language  string
	MessageID string
}

// String renders the entry as "language:messageId".
func (e Entry) String() string {
	return e.Language + ":" + e.MessageID
}

// ParseEntry splits a "language:messageId" line. Message
// ids may contain colons; language tags never do.
func ParseEntry(line string) (Entry, bool) {
	lang, id, ok := strings.Cut(line, ":")
	if !ok || lang == "" || id == "" {
		return Entry{}, false
	}

	return Entry{Language: lang, MessageID: id}, true
}

// Extract returns the entries listed between the
// begin/end markers of a commit message. Lines that are
// not entries are skipped.
func Extract(msg string) []Entry {
	var entries []Entry

	betweenMarkers := false

	for _, line := range strings.Split(msg, "\n") {
		switch line {
		case begin:
			betweenMarkers = true
		case end:
			betweenMarkers = false
		default:
			if !betweenMarkers {
				continue
			}

			if e, ok := ParseEntry(line); ok {
				entries = append(entries, e)
			}
		}
	}

	if betweenMarkers {
		slog.Warn("unable to find end marker in commit message")

		return nil
	}

	return entries
}

// Generate produces a commit message section listing the
// entries between begin/end markers, sorted by language
// then message id.
func Generate(entries []Entry) string {
	sorted := append([]Entry(nil), entries...)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Language != sorted[j].Language {
			return sorted[i].Language < sorted[j].Language
		}

		return sorted[i].MessageID < sorted[j].MessageID
	})

	var sb strings.Builder

	sb.WriteByte('\n')
	sb.WriteString(begin)
	sb.WriteByte('\n')

	for _, e := range sorted {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}

	sb.WriteString(end)
	sb.WriteByte('\n')

	return sb.String()
}
