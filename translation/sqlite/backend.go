package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/byte4ever/lyra/translation"
)

const schema = `
CREATE TABLE IF NOT EXISTS edits (
    project TEXT NOT NULL,
    language TEXT NOT NULL,
    message_id TEXT NOT NULL,
    text TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    submitted INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (project, language, message_id)
);
CREATE INDEX IF NOT EXISTS idx_edits_project ON edits(project);
`

// Backend is a translation.Backend stored in one SQLite
// file.
type Backend struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

var _ translation.Backend = (*Backend)(nil)

// Open opens or creates the database at dsn and applies
// the schema. A dsn naming a file gets its directory
// created.
func Open(dsn string) (*Backend, error) {
	const errCtx = "opening edit database"

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// One connection keeps ":memory:" a single database
	// and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("%s: %q: %w", errCtx, p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%s: migrating: %w", errCtx, err)
	}

	slog.Info("opened edit database", "dsn", dsn)

	return &Backend{db: db, sq: sq.StatementBuilder}, nil
}

// Close releases the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Edits implements translation.Backend.
func (b *Backend) Edits(
	ctx context.Context,
	project string,
) ([]translation.Edit, error) {
	const errCtx = "listing edits"

	query, args, err := b.sq.
		Select(
			"language",
			"message_id",
			"text",
			"updated_at",
			"submitted",
		).
		From("edits").
		Where(sq.Eq{"project": project}).
		OrderBy("language", "message_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}
	defer rows.Close()

	var out []translation.Edit

	for rows.Next() {
		var (
			e       translation.Edit
			updated string
		)

		if err := rows.Scan(
			&e.Language,
			&e.MessageID,
			&e.Text,
			&updated,
			&e.Submitted,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %s/%s: %w", errCtx, e.Language, e.MessageID, err,
			)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return out, nil
}

// Put implements translation.Backend.
func (b *Backend) Put(
	ctx context.Context,
	project string,
	e translation.Edit,
) error {
	q := b.sq.
		Insert("edits").
		Columns(
			"project",
			"language",
			"message_id",
			"text",
			"updated_at",
			"submitted",
		).
		Values(
			project,
			e.Language,
			e.MessageID,
			e.Text,
			e.UpdatedAt.UTC().Format(time.RFC3339Nano),
			false,
		).
		Suffix(
			"ON CONFLICT(project, language, message_id) DO UPDATE SET " +
				"text=excluded.text, updated_at=excluded.updated_at, " +
				"submitted=0",
		)

	return b.exec(ctx, "storing edit", q)
}

// MarkSubmitted implements translation.Backend.
func (b *Backend) MarkSubmitted(
	ctx context.Context,
	project string,
	language string,
	messageID string,
	text string,
) error {
	q := b.sq.
		Update("edits").
		Set("submitted", true).
		Where(sq.Eq{
			"project":    project,
			"language":   language,
			"message_id": messageID,
			"text":       text,
		})

	return b.exec(ctx, "marking edit submitted", q)
}

// Delete implements translation.Backend.
func (b *Backend) Delete(
	ctx context.Context,
	project string,
	language string,
	messageID string,
) error {
	q := b.sq.
		Delete("edits").
		Where(sq.Eq{
			"project":    project,
			"language":   language,
			"message_id": messageID,
		})

	return b.exec(ctx, "deleting edit", q)
}

func (b *Backend) exec(
	ctx context.Context,
	errCtx string,
	q sq.Sqlizer,
) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
