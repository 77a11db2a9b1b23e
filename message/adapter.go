package message

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// fileAdapter reads every file matched by its globs with
// one ParseFunc.
type fileAdapter struct {
	format      string
	projectPath string
	globs       []string
	parse       ParseFunc
}

func (a *fileAdapter) Format() string {
	return a.format
}

func (a *fileAdapter) Sources(tree fs.FS) ([]string, error) {
	return Sources(tree, a.projectPath, a.globs)
}

func (a *fileAdapter) Messages(
	ctx context.Context,
	tree fs.FS,
) ([]Message, error) {
	const errCtx = "extracting messages"

	files, err := a.Sources(tree)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w: %w", errCtx, ErrExtraction, err,
		)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf(
			"%s: %w: no file matches %q under %q",
			errCtx, ErrExtraction, a.globs, a.projectPath,
		)
	}

	var (
		out  []Message
		seen = map[string]string{}
	)

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		data, err := fs.ReadFile(tree, name)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w: %s: %w", errCtx, ErrExtraction, name, err,
			)
		}

		msgs, err := a.parse(stripBOM(data))
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w: %s: %w", errCtx, ErrExtraction, name, err,
			)
		}

		for _, m := range msgs {
			if prev, dup := seen[m.ID]; dup {
				return nil, fmt.Errorf(
					"%s: %w: %q in %s and %s",
					errCtx, ErrDuplicateMessageID,
					m.ID, prev, name,
				)
			}

			seen[m.ID] = name
			m.File = name
			out = append(out, m)
		}
	}

	return out, nil
}

// Sources returns the files under projectPath matching
// any of globs, relative to the tree root, deduplicated
// and sorted. Globs support "**".
func Sources(
	tree fs.FS,
	projectPath string,
	globs []string,
) ([]string, error) {
	const errCtx = "matching sources"

	root := path.Clean(projectPath)

	sub := tree
	if root != "." {
		var err error

		sub, err = fs.Sub(tree, root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	set := map[string]struct{}{}

	for _, g := range globs {
		matches, err := doublestar.Glob(
			sub, g, doublestar.WithFilesOnly(),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: pattern %q: %w", errCtx, g, err,
			)
		}

		for _, m := range matches {
			set[path.Join(root, m)] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))

	for k := range set {
		out = append(out, k)
	}

	sort.Strings(out)

	return out, nil
}

var bom = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, bom)
}
