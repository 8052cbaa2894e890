package sessions

import (
	"time"

	"github.com/casualjim/faceoff/provider"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Per-model response statuses. A response starts at StatusStreaming and
// moves exactly once to StatusComplete or StatusError, never back.
const (
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// Session-level statuses, derived from the per-model states.
const (
	OverallActive    = "active"
	OverallCompleted = "completed"
)

// Selection is one (provider, model) pair chosen for a comparison.
type Selection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ModelResponse is the response state for a single model. Content is
// append-only while the session is live. Metrics is set only on
// StatusComplete, Error only on StatusError.
type ModelResponse struct {
	Content string                      `json:"content"`
	Status  string                      `json:"status"`
	Error   string                      `json:"error,omitempty"`
	Metrics *provider.CompletionMetrics `json:"metrics,omitempty"`
}

// Terminal reports whether the response reached a final state.
func (r *ModelResponse) Terminal() bool {
	return r.Status == StatusComplete || r.Status == StatusError
}

// Session is one prompt dispatched to multiple providers. ID, Prompt,
// Selections and OwnerID are immutable after creation. Responses has exactly
// one entry per selection, keyed by model name and iterated in selection
// order.
type Session struct {
	ID         string                                         `json:"id"`
	Prompt     string                                         `json:"prompt"`
	Selections []Selection                                    `json:"selections"`
	Responses  *orderedmap.OrderedMap[string, *ModelResponse] `json:"responses"`
	OwnerID    string                                         `json:"ownerId"`
	CreatedAt  time.Time                                      `json:"createdAt"`
}

// OverallStatus derives the session status from the per-model states:
// active while any response is still streaming, completed once every
// response is terminal. Individual model errors do not escalate to the
// session level.
func (s *Session) OverallStatus() string {
	for pair := s.Responses.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.Terminal() {
			return OverallActive
		}
	}
	return OverallCompleted
}

// Response returns the state for model, or nil when the model is not part
// of this session.
func (s *Session) Response(model string) *ModelResponse {
	resp, ok := s.Responses.Get(model)
	if !ok {
		return nil
	}
	return resp
}

func newResponses(selections []Selection) *orderedmap.OrderedMap[string, *ModelResponse] {
	responses := orderedmap.New[string, *ModelResponse](len(selections))
	for _, sel := range selections {
		responses.Set(sel.Model, &ModelResponse{Status: StatusStreaming})
	}
	return responses
}
