package translation

import (
	"bytes"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Document is a decoded language file. Keys keep their
// file order and nesting so a rewrite only touches edited
// values. Values are leaves or *Document.
type Document struct {
	keys   []string
	values map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: map[string]any{}}
}

// Len returns the number of keys at this level.
func (d *Document) Len() int {
	return len(d.keys)
}

// Get returns the value of key at this level.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]

	return v, ok
}

// Set replaces the value of key, or appends key.
func (d *Document) Set(key string, v any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}

	d.values[key] = v
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{
		keys:   append([]string(nil), d.keys...),
		values: make(map[string]any, len(d.values)),
	}

	for k, v := range d.values {
		out.values[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Document:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}

		return out
	default:
		return v
	}
}

// Nested returns the document as plain nested maps.
func (d *Document) Nested() map[string]any {
	out := make(map[string]any, len(d.values))

	for k, v := range d.values {
		out[k] = plainValue(v)
	}

	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Document:
		return t.Nested()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}

		return out
	default:
		return v
	}
}

// Leaves returns the flat translations of the document.
func (d *Document) Leaves() map[string]any {
	return Flatten(d.Nested())
}

// Flat reports whether the document keeps dot-joined ids
// as top-level keys rather than nesting them.
func (d *Document) Flat() bool {
	dotted := false

	for _, k := range d.keys {
		if child, ok := d.values[k].(*Document); ok && child.Len() > 0 {
			return false
		}

		if strings.Contains(k, ".") {
			dotted = true
		}
	}

	return dotted
}

// Apply writes flat values into the document. Existing
// ids are replaced where they are. New ids are appended
// in id order, as top-level keys when flat is true and
// nested otherwise.
func (d *Document) Apply(values map[string]any, flat bool) {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	added := make(map[string]any)

	for _, id := range ids {
		if !d.replace(id, values[id]) {
			added[id] = values[id]
		}
	}

	if len(added) == 0 {
		return
	}

	if !flat {
		nested, err := Unflatten(added)
		if err == nil {
			d.merge(nested)

			return
		}
	}

	for _, id := range sortedKeys(added) {
		d.Set(id, added[id])
	}
}

// replace sets id where the document already holds it.
func (d *Document) replace(id string, v any) bool {
	if cur, ok := d.values[id]; ok {
		if child, isDoc := cur.(*Document); !isDoc || child.Len() == 0 {
			d.values[id] = v

			return true
		}
	}

	for _, k := range d.keys {
		child, ok := d.values[k].(*Document)
		if !ok || !strings.HasPrefix(id, k+".") {
			continue
		}

		if child.replace(strings.TrimPrefix(id, k+"."), v) {
			return true
		}
	}

	return false
}

// merge adds nested values absent from the document.
func (d *Document) merge(nested map[string]any) {
	for _, k := range sortedKeys(nested) {
		v := nested[k]
		sub, isMap := v.(map[string]any)

		cur, exists := d.values[k]
		if !exists {
			if isMap {
				child := NewDocument()
				child.merge(sub)
				d.Set(k, child)

				continue
			}

			d.Set(k, v)

			continue
		}

		if child, ok := cur.(*Document); ok && isMap {
			child.merge(sub)

			continue
		}

		if isMap {
			flat := Flatten(sub)
			for _, fk := range sortedKeys(flat) {
				d.Set(k+"."+fk, flat[fk])
			}

			continue
		}

		d.values[k] = v
	}
}

// MarshalJSON writes the keys in document order without
// escaping HTML.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.MarshalNoEscape(k)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		val, err := marshalValue(d.values[k])
		if err != nil {
			return nil, err
		}

		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case *Document:
		return t.MarshalJSON()
	case []any:
		var buf bytes.Buffer

		buf.WriteByte('[')

		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}

			raw, err := marshalValue(e)
			if err != nil {
				return nil, err
			}

			buf.Write(raw)
		}

		buf.WriteByte(']')

		return buf.Bytes(), nil
	default:
		return json.MarshalNoEscape(v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
