package sessions

import (
	"context"
	"errors"

	"github.com/casualjim/faceoff/provider"
)

var (
	// ErrNotFound is returned when no session exists for the given id.
	ErrNotFound = errors.New("session not found")
	// ErrModelNotFound is returned when the session exists but has no
	// response entry for the given model.
	ErrModelNotFound = errors.New("model not found in session responses")
)

// DefaultOwnerListLimit bounds ListByOwner results.
const DefaultOwnerListLimit = 50

// TerminalState carries the final fields for one model's response. Content
// always holds the full accumulated text, not a delta, so a terminal write
// is complete even when intermediate appends were skipped or lost.
type TerminalState struct {
	Status  string
	Content string
	Metrics *provider.CompletionMetrics
	Error   string
}

// Store is the persistence contract consumed by the comparison
// orchestrator. Writes are best-effort relative to the live event stream:
// the orchestrator never blocks a stream on a store call.
type Store interface {
	// Create atomically persists a new session with one streaming response
	// entry per selection.
	Create(ctx context.Context, prompt string, selections []Selection, ownerID string) (*Session, error)

	// AppendContent concatenates delta onto the content of the given model.
	// Appends to a response that already reached a terminal state are
	// ignored. Returns ErrNotFound or ErrModelNotFound when the target is
	// absent.
	AppendContent(ctx context.Context, sessionID, model, delta string) error

	// UpdateTerminalState sets the terminal fields for one model. The last
	// terminal write wins; the orchestrator issues at most one per model.
	UpdateTerminalState(ctx context.Context, sessionID, model string, terminal TerminalState) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// ListByOwner returns the owner's sessions newest-first, bounded by
	// DefaultOwnerListLimit.
	ListByOwner(ctx context.Context, ownerID string) ([]*Session, error)
}
