package message

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sourceColumns lists accepted source text headers by
// priority.
var sourceColumns = []string{"source", "value", "text", "default"}

// parseCSV reads a table whose header names a "key"
// column and one source column, with optional "context"
// and "description" columns. Rows with an empty key are
// skipped.
func parseCSV(data []byte) ([]Message, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	keyIdx, ok := idx["key"]
	if !ok {
		return nil, errors.New("csv missing 'key' column")
	}

	srcIdx := -1

	for _, name := range sourceColumns {
		if i, ok := idx[name]; ok {
			srcIdx = i

			break
		}
	}

	if srcIdx == -1 {
		return nil, fmt.Errorf(
			"csv missing source column (%s)",
			strings.Join(sourceColumns, "/"),
		)
	}

	column := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}

		return ""
	}

	var out []Message

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		key := strings.TrimSpace(rec[keyIdx])
		if key == "" {
			continue
		}

		out = append(out, Message{
			ID:             key,
			DefaultMessage: rec[srcIdx],
			Context:        column(rec, "context"),
			Description:    column(rec, "description"),
		})
	}

	return out, nil
}
