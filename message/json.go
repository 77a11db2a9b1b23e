package message

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

var errInvalidJSON = errors.New("invalid JSON document")

// parseJSON reads a nested object of source strings. Keys
// are joined with "." and "$"-prefixed keys (e.g.
// "$schema") are metadata.
func parseJSON(data []byte) ([]Message, error) {
	var out []Message

	err := walkJSON(data, func(key string, v any) {
		if text, ok := scalarText(v); ok {
			out = append(out, Message{
				ID:             key,
				DefaultMessage: text,
			})
		}
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

type formatjsEntry struct {
	DefaultMessage string `json:"defaultMessage"`
	Description    any    `json:"description"`
}

// parseFormatJS reads the output of "formatjs extract":
// {"id": {"defaultMessage": "...", "description": "..."}}.
func parseFormatJS(data []byte) ([]Message, error) {
	keys, err := topLevelKeys(data)
	if err != nil {
		return nil, err
	}

	var entries map[string]formatjsEntry

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding formatjs entries: %w", err)
	}

	out := make([]Message, 0, len(keys))

	for _, k := range keys {
		e := entries[k]

		out = append(out, Message{
			ID:             k,
			DefaultMessage: e.DefaultMessage,
			Description:    describe(e.Description),
		})
	}

	return out, nil
}

// describe renders a formatjs description, which may be
// a string or an arbitrary object.
func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}

		return string(raw)
	}
}

// walkJSON streams the scalar leaves of a JSON object in
// document order.
func walkJSON(data []byte, leaf func(key string, v any)) error {
	if !json.Valid(data) {
		return errInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	return walkObject(dec, "", leaf)
}

func walkObject(
	dec *json.Decoder,
	prefix string,
	leaf func(key string, v any),
) error {
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}

		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		meta := strings.HasPrefix(key, "$")

		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading %q: %w", full, err)
		}

		switch t := tok.(type) {
		case json.Delim:
			if t == '{' && !meta {
				if err := walkObject(dec, full, leaf); err != nil {
					return err
				}

				continue
			}

			// Arrays and metadata objects carry no
			// source strings.
			if err := skipComposite(dec); err != nil {
				return err
			}
		default:
			if !meta {
				leaf(full, t)
			}
		}
	}

	return expectDelim(dec, '}')
}

// topLevelKeys returns the keys of a JSON object in
// document order.
func topLevelKeys(data []byte) ([]string, error) {
	if !json.Valid(data) {
		return nil, errInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var keys []string

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
			if err := skipComposite(dec); err != nil {
				return nil, err
			}
		}

		keys = append(keys, key)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return keys, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}

	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v, want key", tok)
	}

	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v, want %v", tok, want)
	}

	return nil
}

// skipComposite consumes tokens up to the end of the
// object or array whose opening delimiter was just read.
func skipComposite(dec *json.Decoder) error {
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}

	return nil
}

// scalarText renders a scalar leaf as message text. Null
// has no text.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int, int64, uint64, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
