package broker

import (
	"testing"

	"github.com/casualjim/faceoff/events"
	"github.com/casualjim/faceoff/provider"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundHandlerDecodesWireEvents(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
	}{
		{"session created", events.SessionCreated{SessionID: "s1"}},
		{"model status", events.ModelStatus{SessionID: "s1", Model: "m1", Status: "streaming"}},
		{"model chunk", events.ModelChunk{SessionID: "s1", Model: "m1", Chunk: "he"}},
		{"model complete", events.ModelComplete{
			SessionID: "s1",
			Model:     "m1",
			Metrics:   provider.CompletionMetrics{DurationMs: 10, TokensUsed: 3, EstimatedCost: 0.00001},
		}},
		{"model error", events.ModelError{SessionID: "s1", Model: "m1", Err: "boom"}},
		{"session error", events.Error{Message: "prompt is required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := make(chan events.Event, 1)
			handler := inboundHandler(sub)

			payload, err := events.ToJSON(tt.event)
			require.NoError(t, err)
			handler(&nats.Msg{Data: payload})

			select {
			case decoded := <-sub:
				assert.Equal(t, tt.event, decoded)
			default:
				t.Fatal("no event was forwarded")
			}
		})
	}
}

func TestInboundHandlerDropsUndecodableMessages(t *testing.T) {
	sub := make(chan events.Event, 1)
	handler := inboundHandler(sub)

	handler(&nats.Msg{Data: []byte(`not json`)})
	handler(&nats.Msg{Data: []byte(`{"type":"bogus"}`)})
	handler(&nats.Msg{Data: []byte(`{"type":"modelChunk"}`)})

	select {
	case decoded := <-sub:
		t.Fatalf("unexpected event %T", decoded)
	default:
	}
}
