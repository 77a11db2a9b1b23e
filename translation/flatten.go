package translation

import (
	"fmt"
	"sort"
	"strings"
)

// Flatten joins the keys of nested objects with ".".
// Arrays and empty objects are leaves.
func Flatten(nested map[string]any) map[string]any {
	flat := make(map[string]any)

	flattenInto(flat, "", nested)

	return flat
}

func flattenInto(
	flat map[string]any,
	prefix string,
	nested map[string]any,
) {
	for k, v := range nested {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if child, ok := v.(map[string]any); ok && len(child) > 0 {
			flattenInto(flat, key, child)

			continue
		}

		flat[key] = v
	}
}

// Unflatten splits dot-joined keys back into nested
// objects. It fails when a key is both a leaf and a
// prefix of another key.
func Unflatten(flat map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	nested := make(map[string]any)

	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := nested

		for i, part := range parts[:len(parts)-1] {
			next, exists := node[part]
			if !exists {
				child := make(map[string]any)
				node[part] = child
				node = child

				continue
			}

			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf(
					"unflattening %q: %q is a leaf",
					key, strings.Join(parts[:i+1], "."),
				)
			}

			node = child
		}

		last := parts[len(parts)-1]
		if _, exists := node[last]; exists {
			return nil, fmt.Errorf(
				"unflattening %q: key is also a prefix", key,
			)
		}

		node[last] = flat[key]
	}

	return nested, nil
}
