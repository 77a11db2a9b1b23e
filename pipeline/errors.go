package pipeline

import (
	"errors"

	"github.com/byte4ever/lyra/config"
	"github.com/byte4ever/lyra/message"
	"github.com/byte4ever/lyra/vcs/git"
)

var (
	// ErrUnknownProject is returned for a project name
	// absent from the server configuration.
	ErrUnknownProject = errors.New("unknown project")
	// ErrNotReady is returned when data is requested
	// from a project whose last sync is not Ready.
	ErrNotReady = errors.New("project not ready")
	// ErrUnknownLanguage is returned for a language the
	// project does not translate into.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrUnknownMessage is returned for a message id
	// absent from the current extraction.
	ErrUnknownMessage = errors.New("unknown message")
)

// Error kinds reported to clients.
const (
	KindCloneFailure         = "CloneFailure"
	KindSyncConflict         = "SyncConflict"
	KindConfigParseFailure   = "ConfigParseFailure"
	KindUnsupportedFormat    = "UnsupportedFormat"
	KindExtractionFailure    = "ExtractionFailure"
	KindDuplicateMessageID   = "DuplicateMessageId"
	KindPushFailure          = "PushFailure"
	KindDuplicatePullRequest = "DuplicatePullRequest"
	KindProviderError        = "ProviderError"
	KindUnknownProject       = "UnknownProject"
	KindNotReady             = "NotReady"
	KindUnknownLanguage      = "UnknownLanguage"
	KindUnknownMessage       = "UnknownMessage"
	KindInternal             = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{git.ErrCloneFailure, KindCloneFailure},
	{git.ErrSyncConflict, KindSyncConflict},
	{config.ErrConfigParse, KindConfigParseFailure},
	{message.ErrUnsupportedFormat, KindUnsupportedFormat},
	{message.ErrDuplicateMessageID, KindDuplicateMessageID},
	{message.ErrExtraction, KindExtractionFailure},
	{git.ErrPushFailure, KindPushFailure},
	{git.ErrDuplicatePullRequest, KindDuplicatePullRequest},
	{git.ErrProvider, KindProviderError},
	{ErrUnknownProject, KindUnknownProject},
	{ErrNotReady, KindNotReady},
	{ErrUnknownLanguage, KindUnknownLanguage},
	{ErrUnknownMessage, KindUnknownMessage},
}

// Kind classifies err into a stable string for clients.
// Nil has no kind.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindInternal
}
