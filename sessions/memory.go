package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/faceoff/pkg/uuidx"
	"github.com/casualjim/faceoff/provider"
)

// MemoryStore is an in-process Store backed by a lock-free map of sessions.
// It is the default store for tests and single-process deployments.
type MemoryStore struct {
	sessions *haxmap.Map[string, *memorySession]
}

// memorySession guards one session's mutable response states. The mutex
// covers writes from different model tasks of the same session; a single
// model is only ever written by one task.
type memorySession struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: haxmap.New[string, *memorySession](),
	}
}

func (s *MemoryStore) Create(_ context.Context, prompt string, selections []Selection, ownerID string) (*Session, error) {
	session := &Session{
		ID:         uuidx.NewString(),
		Prompt:     prompt,
		Selections: append([]Selection(nil), selections...),
		Responses:  newResponses(selections),
		OwnerID:    ownerID,
		CreatedAt:  time.Now(),
	}
	s.sessions.Set(session.ID, &memorySession{session: session})
	return snapshot(session), nil
}

func (s *MemoryStore) AppendContent(_ context.Context, sessionID, model, delta string) error {
	held, ok := s.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("append content to %s: %w", sessionID, ErrNotFound)
	}

	held.mu.Lock()
	defer held.mu.Unlock()

	resp, ok := held.session.Responses.Get(model)
	if !ok {
		return fmt.Errorf("append content for model %s: %w", model, ErrModelNotFound)
	}
	// a late append must not touch a settled response, its terminal write
	// already carried the full content
	if resp.Terminal() {
		return nil
	}
	resp.Content += delta
	return nil
}

func (s *MemoryStore) UpdateTerminalState(_ context.Context, sessionID, model string, terminal TerminalState) error {
	held, ok := s.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("update terminal state of %s: %w", sessionID, ErrNotFound)
	}

	held.mu.Lock()
	defer held.mu.Unlock()

	resp, ok := held.session.Responses.Get(model)
	if !ok {
		return fmt.Errorf("update terminal state for model %s: %w", model, ErrModelNotFound)
	}

	resp.Status = terminal.Status
	resp.Content = terminal.Content
	resp.Error = terminal.Error
	if terminal.Metrics != nil {
		metrics := *terminal.Metrics
		resp.Metrics = &metrics
	} else {
		resp.Metrics = nil
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	held, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", sessionID, ErrNotFound)
	}

	held.mu.RLock()
	defer held.mu.RUnlock()
	return snapshot(held.session), nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]*Session, error) {
	var owned []*Session
	s.sessions.ForEach(func(_ string, held *memorySession) bool {
		held.mu.RLock()
		if held.session.OwnerID == ownerID {
			owned = append(owned, snapshot(held.session))
		}
		held.mu.RUnlock()
		return true
	})

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if len(owned) > DefaultOwnerListLimit {
		owned = owned[:DefaultOwnerListLimit]
	}
	return owned, nil
}

// snapshot deep-copies a session so callers never observe in-flight
// mutations of the live record.
func snapshot(session *Session) *Session {
	copied := &Session{
		ID:         session.ID,
		Prompt:     session.Prompt,
		Selections: append([]Selection(nil), session.Selections...),
		Responses:  newResponses(session.Selections),
		OwnerID:    session.OwnerID,
		CreatedAt:  session.CreatedAt,
	}
	for pair := session.Responses.Oldest(); pair != nil; pair = pair.Next() {
		resp := &ModelResponse{
			Content: pair.Value.Content,
			Status:  pair.Value.Status,
			Error:   pair.Value.Error,
		}
		if pair.Value.Metrics != nil {
			metrics := provider.CompletionMetrics{
				DurationMs:    pair.Value.Metrics.DurationMs,
				TokensUsed:    pair.Value.Metrics.TokensUsed,
				EstimatedCost: pair.Value.Metrics.EstimatedCost,
			}
			resp.Metrics = &metrics
		}
		copied.Responses.Set(pair.Key, resp)
	}
	return copied
}
