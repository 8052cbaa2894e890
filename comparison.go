package faceoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/casualjim/faceoff/events"
	"github.com/casualjim/faceoff/pkg/slogx"
	"github.com/casualjim/faceoff/provider"
	"github.com/casualjim/faceoff/sessions"
	"github.com/go-openapi/strfmt"
)

var (
	// ErrInvalidRequest marks a comparison request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrProviderNotFound marks a selection naming an unregistered provider.
	ErrProviderNotFound = errors.New("provider not found")
)

// StartComparison describes one comparison run. A selection with an empty
// Model uses the adapter's default model.
type StartComparison struct {
	Prompt     string
	Selections []sessions.Selection
	OwnerID    string
}

type boundSelection struct {
	selection sessions.Selection
	adapter   provider.Provider
}

// StartComparison validates the request, persists a new session and streams
// the prompt through every selected model concurrently, publishing all
// progress to topic. It blocks until every model reached a terminal state
// and returns the session id.
//
// Validation and session creation failures are reported both as an error
// return and as an error event on topic. Once streaming has begun, per-model
// failures stay on the topic and never surface here.
func (a *Arena) StartComparison(ctx context.Context, topic Topic, request StartComparison) (string, error) {
	bound, err := a.bindSelections(request)
	if err != nil {
		a.publish(ctx, topic, events.Error{Message: err.Error(), Timestamp: now()})
		return "", err
	}

	prompt := strings.TrimSpace(request.Prompt)
	selections := make([]sessions.Selection, len(bound))
	for i, b := range bound {
		selections[i] = b.selection
	}

	session, err := a.store.Create(ctx, prompt, selections, request.OwnerID)
	if err != nil {
		a.publish(ctx, topic, events.Error{Message: "failed to create comparison session", Timestamp: now()})
		return "", fmt.Errorf("failed to create comparison session: %w", err)
	}

	a.log.Info("comparison session started",
		slog.String("session_id", session.ID),
		slog.Int("models", len(bound)),
	)
	a.publish(ctx, topic, events.SessionCreated{SessionID: session.ID, Timestamp: now()})

	// Streams keep running on a detached context so a client disconnect
	// cannot leave responses stuck in the streaming state.
	streamCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, b := range bound {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.streamModelResponse(streamCtx, topic, session.ID, b, prompt)
		}()
	}
	wg.Wait()

	return session.ID, nil
}

func (a *Arena) bindSelections(request StartComparison) ([]boundSelection, error) {
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if len(request.Selections) < 2 {
		return nil, fmt.Errorf("%w: at least 2 providers are required", ErrInvalidRequest)
	}

	distinct := make(map[string]struct{}, len(request.Selections))
	for _, sel := range request.Selections {
		distinct[sel.Provider] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%w: at least 2 distinct providers are required", ErrInvalidRequest)
	}

	bound := make([]boundSelection, 0, len(request.Selections))
	seen := make(map[string]struct{}, len(request.Selections))
	for _, sel := range request.Selections {
		adapter, err := a.ResolveProvider(sel.Provider)
		if err != nil {
			return nil, err
		}
		model := sel.Model
		if model == "" {
			model = adapter.ModelName()
		}
		if _, ok := seen[model]; ok {
			return nil, fmt.Errorf("%w: duplicate model %q", ErrInvalidRequest, model)
		}
		seen[model] = struct{}{}
		bound = append(bound, boundSelection{
			selection: sessions.Selection{Provider: sel.Provider, Model: model},
			adapter:   adapter,
		})
	}
	return bound, nil
}

// streamModelResponse drains one adapter stream: every chunk goes to the
// topic immediately, content is flushed to the store every persistEvery
// chunks, and the single terminal event carries the full accumulated text
// to the store before it is published.
func (a *Arena) streamModelResponse(ctx context.Context, topic Topic, sessionID string, b boundSelection, prompt string) {
	model := b.selection.Model
	log := a.log.With(
		slog.String("session_id", sessionID),
		slog.String("provider", b.selection.Provider),
		slog.String("model", model),
	)

	a.publish(ctx, topic, events.ModelStatus{
		SessionID: sessionID,
		Model:     model,
		Status:    sessions.StatusStreaming,
		Timestamp: now(),
	})

	var content strings.Builder
	var pending strings.Builder
	chunkCount := 0
	terminal := false

	// Intermediate flushes go through a single goroutine so the store only
	// ever sees one writer per model, with appends in emission order. The
	// stream task itself never waits on the store.
	flushes := make(chan string, 8)
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		for delta := range flushes {
			if err := a.store.AppendContent(ctx, sessionID, model, delta); err != nil {
				log.Error("failed to persist streamed content", slogx.Error(err))
			}
		}
	}()
	settle := func(state sessions.TerminalState) {
		close(flushes)
		<-flushed
		a.writeTerminalState(ctx, log, sessionID, model, state)
	}

	for event := range b.adapter.StreamCompletion(ctx, prompt) {
		if terminal {
			log.Warn("dropping event received after terminal state", slog.String("event", fmt.Sprintf("%T", event)))
			continue
		}

		switch event := event.(type) {
		case provider.Chunk:
			content.WriteString(event.Text)
			pending.WriteString(event.Text)
			a.publish(ctx, topic, events.ModelChunk{
				SessionID: sessionID,
				Model:     model,
				Chunk:     event.Text,
				Timestamp: now(),
			})

			chunkCount++
			if chunkCount%a.persistEvery == 0 {
				select {
				case flushes <- pending.String():
					pending.Reset()
				default:
					// flusher is behind, keep accumulating until the next
					// interval
				}
			}

		case provider.Complete:
			terminal = true
			settle(sessions.TerminalState{
				Status:  sessions.StatusComplete,
				Content: content.String(),
				Metrics: &event.Metrics,
			})
			a.publish(ctx, topic, events.ModelComplete{
				SessionID: sessionID,
				Model:     model,
				Metrics:   event.Metrics,
				Timestamp: now(),
			})
			log.Info("model completed",
				slog.Int64("duration_ms", event.Metrics.DurationMs),
				slog.Int("tokens_used", event.Metrics.TokensUsed),
			)

		case provider.Error:
			terminal = true
			message := event.Err.Error()
			settle(sessions.TerminalState{
				Status:  sessions.StatusError,
				Content: content.String(),
				Error:   message,
			})
			a.publish(ctx, topic, events.ModelError{
				SessionID: sessionID,
				Model:     model,
				Err:       message,
				Timestamp: now(),
			})
			log.Error("model stream failed", slog.String("stream_error", message))
		}
	}

	if !terminal {
		// the adapter broke its contract, settle the response anyway
		message := "provider stream ended without a result"
		settle(sessions.TerminalState{
			Status:  sessions.StatusError,
			Content: content.String(),
			Error:   message,
		})
		a.publish(ctx, topic, events.ModelError{
			SessionID: sessionID,
			Model:     model,
			Err:       message,
			Timestamp: now(),
		})
		log.Error("model stream closed without terminal event")
	}
}

// writeTerminalState persists the final response state, retrying once. The
// terminal content is the full accumulated text, so a lost intermediate
// append cannot corrupt the stored result.
func (a *Arena) writeTerminalState(ctx context.Context, log *slog.Logger, sessionID, model string, terminal sessions.TerminalState) {
	err := a.store.UpdateTerminalState(ctx, sessionID, model, terminal)
	if err == nil {
		return
	}
	log.Warn("terminal state write failed, retrying", slogx.Error(err))
	if err := a.store.UpdateTerminalState(ctx, sessionID, model, terminal); err != nil {
		log.Error("failed to persist terminal state", slogx.Error(err))
	}
}

func (a *Arena) publish(ctx context.Context, topic Topic, event events.Event) {
	if err := topic.Publish(ctx, event); err != nil {
		a.log.Error("failed to publish event", slogx.Error(err))
	}
}

func now() strfmt.DateTime { return strfmt.DateTime(time.Now()) }
