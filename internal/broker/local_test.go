package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/faceoff/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHook collects every callback it receives, in order.
type recordingHook struct {
	events.NoopHook

	mu       sync.Mutex
	received []events.Event
	notify   chan struct{}
}

func newRecordingHook() *recordingHook {
	return &recordingHook{notify: make(chan struct{}, 128)}
}

func (h *recordingHook) record(event events.Event) {
	h.mu.Lock()
	h.received = append(h.received, event)
	h.mu.Unlock()
	h.notify <- struct{}{}
}

func (h *recordingHook) OnSessionCreated(_ context.Context, e events.SessionCreated) { h.record(e) }
func (h *recordingHook) OnModelStatus(_ context.Context, e events.ModelStatus)       { h.record(e) }
func (h *recordingHook) OnModelChunk(_ context.Context, e events.ModelChunk)         { h.record(e) }
func (h *recordingHook) OnModelComplete(_ context.Context, e events.ModelComplete)   { h.record(e) }
func (h *recordingHook) OnModelError(_ context.Context, e events.ModelError)         { h.record(e) }
func (h *recordingHook) OnError(_ context.Context, e events.Error)                   { h.record(e) }

func (h *recordingHook) waitFor(t *testing.T, n int) []events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		h.mu.Lock()
		if len(h.received) >= n {
			snapshot := append([]events.Event(nil), h.received...)
			h.mu.Unlock()
			return snapshot
		}
		h.mu.Unlock()
		select {
		case <-h.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events", n)
		}
	}
}

func TestLocalTopicPublishReachesSubscriber(t *testing.T) {
	ctx := context.Background()
	top := Local().Topic(ctx, "conn-1")

	hook := newRecordingHook()
	sub, err := top.Subscribe(ctx, hook)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, top.Publish(ctx, events.SessionCreated{SessionID: "sess-1"}))
	require.NoError(t, top.Publish(ctx, events.ModelChunk{SessionID: "sess-1", Model: "m", Chunk: "he"}))
	require.NoError(t, top.Publish(ctx, events.ModelChunk{SessionID: "sess-1", Model: "m", Chunk: "llo"}))

	received := hook.waitFor(t, 3)
	assert.Equal(t, events.SessionCreated{SessionID: "sess-1"}, received[0])
	assert.Equal(t, "he", received[1].(events.ModelChunk).Chunk)
	assert.Equal(t, "llo", received[2].(events.ModelChunk).Chunk)
}

func TestLocalTopicIsolatesSubscribers(t *testing.T) {
	ctx := context.Background()
	brk := Local()
	topicA := brk.Topic(ctx, "conn-a")
	topicB := brk.Topic(ctx, "conn-b")

	hookA := newRecordingHook()
	hookB := newRecordingHook()

	subA, err := topicA.Subscribe(ctx, hookA)
	require.NoError(t, err)
	defer subA.Unsubscribe()
	subB, err := topicB.Subscribe(ctx, hookB)
	require.NoError(t, err)
	defer subB.Unsubscribe()

	require.NoError(t, topicA.Publish(ctx, events.Error{Message: "only for a"}))

	received := hookA.waitFor(t, 1)
	assert.Equal(t, "only for a", received[0].(events.Error).Message)

	hookB.mu.Lock()
	assert.Empty(t, hookB.received)
	hookB.mu.Unlock()
}

func TestLocalTopicSubscribeRequiresHook(t *testing.T) {
	ctx := context.Background()
	top := Local().Topic(ctx, "conn-1")

	_, err := top.Subscribe(ctx, nil)
	assert.Error(t, err)
}

func TestLocalTopicSameIDSameTopic(t *testing.T) {
	ctx := context.Background()
	brk := Local()

	assert.Same(t, brk.Topic(ctx, "conn-1"), brk.Topic(ctx, "conn-1"))
}

func TestLocalTopicConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	top := Local().Topic(ctx, "conn-1")

	hook := newRecordingHook()
	sub, err := top.Subscribe(ctx, hook)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	const publishers = 4
	const perPublisher = 10

	var wg sync.WaitGroup
	for p := range publishers {
		wg.Add(1)
		go func(model string) {
			defer wg.Done()
			for range perPublisher {
				_ = top.Publish(ctx, events.ModelChunk{SessionID: "sess-1", Model: model, Chunk: "x"})
			}
		}(string(rune('a' + p)))
	}
	wg.Wait()

	received := hook.waitFor(t, publishers*perPublisher)
	assert.Len(t, received, publishers*perPublisher)
}
