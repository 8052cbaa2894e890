package broker

import (
	"context"

	"github.com/casualjim/faceoff/events"
)

// forwardToHook drains a subscription channel into the hook, dispatching on
// the concrete event type. It returns when the channel closes or the
// context is done.
func forwardToHook(ctx context.Context, channel <-chan events.Event, hook events.Hook) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-channel:
			if !ok {
				return
			}
			switch event := event.(type) {
			case events.SessionCreated:
				hook.OnSessionCreated(ctx, event)
			case events.ModelStatus:
				hook.OnModelStatus(ctx, event)
			case events.ModelChunk:
				hook.OnModelChunk(ctx, event)
			case events.ModelComplete:
				hook.OnModelComplete(ctx, event)
			case events.ModelError:
				hook.OnModelError(ctx, event)
			case events.Error:
				hook.OnError(ctx, event)
			}
		}
	}
}
