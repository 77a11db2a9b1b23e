package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/lyra/config"
	"github.com/byte4ever/lyra/translation"
	"github.com/byte4ever/lyra/vcs/commitmsg"
	"github.com/byte4ever/lyra/vcs/git"
)

// CreatePullRequest commits every unsubmitted edit of a
// Ready project to a fresh branch, pushes it and opens a
// pull request. It returns the pull request URL, or ""
// when there is nothing to submit.
func (p *Pipeline) CreatePullRequest(
	ctx context.Context,
	name string,
) (string, error) {
	const errCtx = "creating pull request"

	pr, err := p.project(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	pr.submitMu.Lock()
	defer pr.submitMu.Unlock()

	snap, err := p.ready(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	sub, err := snap.store.Changes()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if sub.Empty() {
		slog.Info("nothing to submit", "project", name)

		return "", nil
	}

	vars := templateVars(name, sub)
	tpl := p.server.PullRequest
	branch := render(tpl.Branch, config.DefaultBranchTemplate, vars)
	title := render(tpl.Title, config.DefaultTitleTemplate, vars)
	body := render(tpl.Body, config.DefaultBodyTemplate, vars)
	commit := render(
		tpl.CommitMessage, config.DefaultCommitTemplate, vars,
	) + "\n" + vars["entries"].(string)

	files := make([]git.FileChange, 0, len(sub.Files))
	for _, f := range sub.Files {
		files = append(files, git.FileChange{
			Path:    f.Path,
			Content: f.Content,
		})
	}

	err = snap.repo.CommitAndPush(ctx, branch, commit, files)
	if errors.Is(err, git.ErrNothingToCommit) {
		// Upstream already holds these texts.
		if err := snap.store.MarkSubmitted(ctx, sub); err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		slog.Info(
			"edits already upstream",
			"project", name,
			"edits", len(sub.Edits),
		)

		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	opened, err := snap.repo.OpenPullRequest(ctx, branch, title, body)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	if err := snap.store.MarkSubmitted(ctx, sub); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"submitted translations",
		"project", name,
		"branch", branch,
		"edits", len(sub.Edits),
		"url", opened.URL,
	)

	return opened.URL, nil
}

// templateVars returns the values of the pull request
// template tags.
func templateVars(
	name string,
	sub translation.Submission,
) map[string]any {
	entries := make([]commitmsg.Entry, 0, len(sub.Edits))
	for _, e := range sub.Edits {
		entries = append(entries, commitmsg.Entry{
			Language:  e.Language,
			MessageID: e.MessageID,
		})
	}

	return map[string]any{
		"project":   name,
		"languages": joinLanguages(sub.Languages),
		"count":     strconv.Itoa(len(sub.Edits)),
		"id":        uuid.NewString(),
		"entries":   commitmsg.Generate(entries),
	}
}

// render substitutes {{tag}} placeholders. Unknown tags
// are left as is.
func render(tpl, fallback string, vars map[string]any) string {
	if tpl == "" {
		tpl = fallback
	}

	return fasttemplate.ExecuteStringStd(tpl, "{{", "}}", vars)
}
