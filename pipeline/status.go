package pipeline

import "time"

// State is a step of the sync state machine.
type State string

// Sync states, in order.
const (
	StateNotCloned          State = "NotCloned"
	StateCloning            State = "Cloning"
	StateConfigLoaded       State = "ConfigLoaded"
	StateMessagesExtracted  State = "MessagesExtracted"
	StateTranslationsLoaded State = "TranslationsLoaded"
	StateReady              State = "Ready"
	StateFailed             State = "Failed"
)

// Status reports the last sync of a project.
type Status struct {
	Project string `json:"project"`
	State   State  `json:"state"`
	// Reason and Kind describe a Failed sync.
	Reason    string   `json:"reason,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Commit    string   `json:"commit,omitempty"`
	Format    string   `json:"format,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Messages  int      `json:"messages"`
	// Pending counts local edits not yet in a pull
	// request.
	Pending int `json:"pending"`
	// Merged lists the "language:messageId" entries of
	// the upstream head commit when it is a lyra
	// submission.
	Merged   []string  `json:"merged,omitempty"`
	SyncedAt time.Time `json:"syncedAt,omitzero"`
}
