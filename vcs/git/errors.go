package git

import (
	"errors"
	"fmt"
)

var (
	// ErrCloneFailure is returned when a repository
	// cannot be cloned.
	ErrCloneFailure = errors.New("clone failure")
	// ErrSyncConflict is returned when the local default
	// branch cannot be fast-forwarded to upstream.
	ErrSyncConflict = errors.New("sync conflict")
	// ErrPushFailure is returned when a push is still
	// rejected after one re-fetch.
	ErrPushFailure = errors.New("push failure")
	// ErrProvider is returned when the hosting platform
	// refuses or fails to open a pull request.
	ErrProvider = errors.New("provider error")
	// ErrDuplicatePullRequest is returned when a pull
	// request already exists for the branch pair. It
	// matches ErrProvider.
	ErrDuplicatePullRequest = fmt.Errorf(
		"%w: pull request already exists", ErrProvider,
	)
	// ErrNothingToCommit is returned by CommitAndPush when
	// the written files equal the default branch content.
	ErrNothingToCommit = errors.New("nothing to commit")
)
