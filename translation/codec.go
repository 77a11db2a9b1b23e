package translation

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/byte4ever/lyra/config"
)

// Codec reads and writes one language file format.
type Codec interface {
	// Ext is the file extension without the dot.
	Ext() string
	Decode(data []byte) (*Document, error)
	Encode(doc *Document) ([]byte, error)
}

// CodecFor returns the codec of a translations format.
func CodecFor(format string) (Codec, error) {
	switch format {
	case config.TranslationsJSON:
		return jsonCodec{}, nil
	case config.TranslationsYAML:
		return yamlCodec{}, nil
	default:
		return nil, fmt.Errorf(
			"unsupported translations format %q", format,
		)
	}
}

type jsonCodec struct{}

func (jsonCodec) Ext() string { return "json" }

// Decode keeps key order and number literals.
func (jsonCodec) Decode(data []byte) (*Document, error) {
	const errCtx = "decoding json"

	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: invalid document", errCtx)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf(
			"%s: top-level value is not an object", errCtx,
		)
	}

	doc, err := decodeJSONObject(dec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return doc, nil
}

func decodeJSONObject(dec *json.Decoder) (*Document, error) {
	doc := NewDocument()

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v, want key", tok)
		}

		v, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}

		doc.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return doc, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch d {
	case '{':
		return decodeJSONObject(dec)
	case '[':
		items := []any{}

		for dec.More() {
			v, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}

			items = append(items, v)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return items, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}

// Encode writes keys in document order, two-space indent
// and a trailing newline.
func (jsonCodec) Encode(doc *Document) ([]byte, error) {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	var buf bytes.Buffer

	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

type yamlCodec struct{}

func (yamlCodec) Ext() string { return "yaml" }

func (yamlCodec) Decode(data []byte) (*Document, error) {
	var root any

	if err := yaml.UnmarshalWithOptions(
		data, &root, yaml.UseOrderedMap(),
	); err != nil {
		return nil, errors.New(yaml.FormatError(err, false, false))
	}

	if root == nil {
		return NewDocument(), nil
	}

	ms, ok := root.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf(
			"decoding yaml: top-level value is %T, want a mapping",
			root,
		)
	}

	return fromMapSlice(ms), nil
}

func fromMapSlice(ms yaml.MapSlice) *Document {
	doc := NewDocument()

	for _, item := range ms {
		doc.Set(fmt.Sprint(item.Key), fromYAMLValue(item.Value))
	}

	return doc
}

func fromYAMLValue(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		return fromMapSlice(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromYAMLValue(e)
		}

		return out
	default:
		return v
	}
}

func (yamlCodec) Encode(doc *Document) ([]byte, error) {
	raw, err := yaml.MarshalWithOptions(
		toMapSlice(doc), yaml.Indent(2), yaml.IndentSequence(true),
	)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}

	return raw, nil
}

func toMapSlice(doc *Document) yaml.MapSlice {
	ms := make(yaml.MapSlice, 0, doc.Len())

	for _, k := range doc.keys {
		ms = append(ms, yaml.MapItem{
			Key:   k,
			Value: toYAMLValue(doc.values[k]),
		})
	}

	return ms
}

func toYAMLValue(v any) any {
	switch t := v.(type) {
	case *Document:
		return toMapSlice(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toYAMLValue(e)
		}

		return out
	default:
		return v
	}
}
