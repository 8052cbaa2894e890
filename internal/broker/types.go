package broker

import (
	"context"

	"github.com/casualjim/faceoff/events"
)

type Broker interface {
	Topic(ctx context.Context, id string) Topic
}

type Topic interface {
	Publish(ctx context.Context, event events.Event) error
	Subscribe(ctx context.Context, hook events.Hook) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}
