package translation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/lyra/translation"
)

func TestCodecFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		ext    string
		data   string
	}{
		{
			format: "json",
			ext:    "json",
			data: `{
  "b": "deux",
  "a": {
    "x": "un"
  },
  "list": [
    "p",
    "q"
  ]
}
`,
		},
		{
			format: "yaml",
			ext:    "yaml",
			data: `b: deux
a:
  x: un
list:
  - p
  - q
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			c, err := translation.CodecFor(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, c.Ext())

			doc, err := c.Decode([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, map[string]any{
				"b":    "deux",
				"a.x":  "un",
				"list": []any{"p", "q"},
			}, doc.Leaves())

			raw, err := c.Encode(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(raw))
		})
	}

	_, err := translation.CodecFor("xliff")
	require.Error(t, err)
}

func TestJSONCodec_keeps_literals(t *testing.T) {
	t.Parallel()

	c, err := translation.CodecFor("json")
	require.NoError(t, err)

	const data = `{
  "count": 12345678901234567890,
  "ratio": 0.10,
  "html": "<b>gras</b> & co",
  "none": null
}
`

	doc, err := c.Decode([]byte(data))
	require.NoError(t, err)

	raw, err := c.Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, data, string(raw))
}

func TestCodec_Decode_errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		data   string
	}{
		{format: "json", data: `{"broken":`},
		{format: "json", data: `["not", "an", "object"]`},
		{format: "yaml", data: "- a\n- b\n"},
		{format: "yaml", data: "a: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format+" "+tt.data, func(t *testing.T) {
			t.Parallel()

			c, err := translation.CodecFor(tt.format)
			require.NoError(t, err)

			_, err = c.Decode([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestYAMLCodec_Decode_empty(t *testing.T) {
	t.Parallel()

	c, err := translation.CodecFor("yaml")
	require.NoError(t, err)

	doc, err := c.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}
