package message

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// parseYAML reads a nested mapping of source strings in
// document order. Keys are joined with ".". Repeated keys
// are kept so the adapter reports them as duplicate ids.
func parseYAML(data []byte) ([]Message, error) {
	var root any

	if err := yaml.UnmarshalWithOptions(
		data, &root,
		yaml.UseOrderedMap(), yaml.AllowDuplicateMapKey(),
	); err != nil {
		return nil, errors.New(yaml.FormatError(err, false, true))
	}

	if root == nil {
		return nil, nil
	}

	top, ok := root.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf(
			"top-level value is %T, want a mapping", root,
		)
	}

	var out []Message

	walkYAML(top, "", func(key string, v any) {
		if text, ok := scalarText(v); ok {
			out = append(out, Message{
				ID:             key,
				DefaultMessage: text,
			})
		}
	})

	return out, nil
}

func walkYAML(
	ms yaml.MapSlice,
	prefix string,
	leaf func(key string, v any),
) {
	for _, item := range ms {
		key := fmt.Sprint(item.Key)
		if prefix != "" {
			key = prefix + "." + key
		}

		switch v := item.Value.(type) {
		case yaml.MapSlice:
			walkYAML(v, key, leaf)
		case []any:
			// Sequences carry no source strings.
		default:
			leaf(key, v)
		}
	}
}
