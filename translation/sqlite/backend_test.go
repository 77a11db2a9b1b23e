package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/lyra/translation"
	"github.com/byte4ever/lyra/translation/sqlite"
)

func open(t *testing.T, dsn string) *sqlite.Backend {
	t.Helper()

	b, err := sqlite.Open(dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := open(t, filepath.Join(t.TempDir(), "db", "lyra.db"))

	at := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)

	require.NoError(t, b.Put(ctx, "web", translation.Edit{
		Language: "fr", MessageID: "greeting", Text: "Salut", UpdatedAt: at,
	}))
	require.NoError(t, b.Put(ctx, "web", translation.Edit{
		Language: "de", MessageID: "greeting", Text: "Hallo", UpdatedAt: at,
	}))
	require.NoError(t, b.Put(ctx, "docs", translation.Edit{
		Language: "fr", MessageID: "title", Text: "Titre", UpdatedAt: at,
	}))

	// Stale text: no effect.
	require.NoError(t, b.MarkSubmitted(ctx, "web", "fr", "greeting", "Bonjour"))
	require.NoError(t, b.MarkSubmitted(ctx, "web", "de", "greeting", "Hallo"))

	got, err := b.Edits(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []translation.Edit{
		{
			Language:  "de",
			MessageID: "greeting",
			Text:      "Hallo",
			UpdatedAt: at,
			Submitted: true,
		},
		{
			Language:  "fr",
			MessageID: "greeting",
			Text:      "Salut",
			UpdatedAt: at,
		},
	}, got)

	// Upsert clears the submitted flag.
	later := at.Add(time.Hour)
	require.NoError(t, b.Put(ctx, "web", translation.Edit{
		Language: "de", MessageID: "greeting", Text: "Servus", UpdatedAt: later,
	}))

	require.NoError(t, b.Delete(ctx, "web", "fr", "greeting"))

	got, err = b.Edits(ctx, "web")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Servus", got[0].Text)
	assert.Equal(t, later, got[0].UpdatedAt)
	assert.False(t, got[0].Submitted)

	other, err := b.Edits(ctx, "docs")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestBackend_survives_reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "lyra.db")

	first, err := sqlite.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "web", translation.Edit{
		Language:  "fr",
		MessageID: "greeting",
		Text:      "Salut",
		UpdatedAt: time.Now(),
	}))
	require.NoError(t, first.Close())

	b := open(t, dsn)

	st, err := translation.NewStore(ctx, translation.StoreConfig{
		Project:   "web",
		Dir:       "locales",
		Format:    "json",
		Languages: []string{"fr"},
	}, b)
	require.NoError(t, err)

	require.NoError(t, st.Refresh(ctx, fstest.MapFS{
		"locales/fr.json": {Data: []byte(`{"greeting": "Bonjour"}`)},
	}))

	assert.Equal(t, "Salut", st.Translations("fr", nil)["greeting"])
}

func TestBackend_memory(t *testing.T) {
	t.Parallel()

	b := open(t, ":memory:")

	got, err := b.Edits(context.Background(), "web")
	require.NoError(t, err)
	assert.Empty(t, got)
}
