package provider

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
)

// Provider is the interface for AI model backends (e.g. OpenAI, Anthropic,
// Gemini). Implementations handle the specifics of communicating with
// different AI services while maintaining a consistent interface for the
// comparison orchestrator.
type Provider interface {
	// Name returns the registry name of the provider, e.g. "anthropic".
	Name() string

	// ModelName returns the model this adapter instance drives.
	ModelName() string

	// StreamCompletion sends prompt to the backend and returns a channel of
	// stream events. The channel carries zero or more Chunk events followed
	// by exactly one terminal event (Complete or Error) and is then closed.
	// It never fails out-of-band: pre-flight errors arrive as the terminal
	// Error event.
	StreamCompletion(ctx context.Context, prompt string) <-chan StreamEvent

	// CalculateCost converts a token count into a monetary amount according
	// to the provider's pricing policy. It must be monotonically
	// non-decreasing in the token count.
	CalculateCost(tokensUsed int) float64

	// EstimateTokens gives a deterministic, cheap approximation of the token
	// count for text. It is used for cost estimation only, never for request
	// limits.
	EstimateTokens(text string) int
}

// CompletionMetrics describes a finished completion: wall-clock duration,
// tokens consumed (estimated when the backend does not report usage) and the
// cost derived from the provider's pricing policy.
type CompletionMetrics struct {
	DurationMs    int64   `json:"durationMs"`
	TokensUsed    int     `json:"tokensUsed"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// StreamEvent is the sum type of events produced by StreamCompletion.
type StreamEvent interface {
	streamEvent()
}

// Chunk carries one text delta in the order the backend produced it.
type Chunk struct {
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Chunk) streamEvent() {}

// Complete is the successful terminal event of a stream.
type Complete struct {
	Metrics   CompletionMetrics `json:"metrics"`
	Timestamp strfmt.DateTime   `json:"timestamp,omitempty"`
}

func (Complete) streamEvent() {}

// Error is the failing terminal event of a stream. Content already produced
// before the failure stands; the error only terminates the stream.
type Error struct {
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("completion stream failed: %v", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
