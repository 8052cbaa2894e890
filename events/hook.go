package events

import "context"

// Hook is the client-side consumer of a comparison's event stream. A
// transport subscription invokes exactly one method per event; chunk and
// terminal callbacks for a given model arrive in emission order, while
// callbacks for different models interleave freely.
type Hook interface {
	OnSessionCreated(ctx context.Context, event SessionCreated)
	OnModelStatus(ctx context.Context, event ModelStatus)
	OnModelChunk(ctx context.Context, event ModelChunk)
	OnModelComplete(ctx context.Context, event ModelComplete)
	OnModelError(ctx context.Context, event ModelError)
	OnError(ctx context.Context, event Error)
}

// NoopHook implements Hook with no-ops. Embed it to implement only the
// callbacks a consumer cares about.
type NoopHook struct{}

var _ Hook = NoopHook{}

func (NoopHook) OnSessionCreated(context.Context, SessionCreated) {}
func (NoopHook) OnModelStatus(context.Context, ModelStatus)       {}
func (NoopHook) OnModelChunk(context.Context, ModelChunk)         {}
func (NoopHook) OnModelComplete(context.Context, ModelComplete)   {}
func (NoopHook) OnModelError(context.Context, ModelError)         {}
func (NoopHook) OnError(context.Context, Error)                   {}
