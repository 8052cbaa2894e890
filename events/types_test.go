package events

import (
	"testing"
	"time"

	"github.com/casualjim/faceoff/provider"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEventRoundTrips(t *testing.T) {
	ts := strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond))

	tests := []struct {
		name  string
		event Event
	}{
		{"sessionCreated", SessionCreated{SessionID: "sess-1", Timestamp: ts}},
		{"modelStatus", ModelStatus{SessionID: "sess-1", Model: "gemini-2.0-flash-exp", Status: "streaming", Timestamp: ts}},
		{"modelChunk", ModelChunk{SessionID: "sess-1", Model: "gemini-2.0-flash-exp", Chunk: "he", Timestamp: ts}},
		{"modelComplete", ModelComplete{
			SessionID: "sess-1",
			Model:     "claude-sonnet-4-5-20250929",
			Metrics:   provider.CompletionMetrics{DurationMs: 10, TokensUsed: 3, EstimatedCost: 0.00001},
			Timestamp: ts,
		}},
		{"modelError", ModelError{SessionID: "sess-1", Model: "gpt-4o-mini", Err: "quota exceeded", Timestamp: ts}},
		{"error", Error{Message: "prompt is required", Timestamp: ts}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ToJSON(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.name, gjson.GetBytes(data, "type").String())

			decoded, err := FromJSON(data)
			require.NoError(t, err)
			assert.Equal(t, tt.event, decoded)
		})
	}
}

func TestModelCompleteWireShape(t *testing.T) {
	data, err := ToJSON(ModelComplete{
		SessionID: "sess-1",
		Model:     "gemini-2.0-flash-exp",
		Metrics:   provider.CompletionMetrics{DurationMs: 1200, TokensUsed: 42, EstimatedCost: 0.000042},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1200), gjson.GetBytes(data, "metrics.durationMs").Int())
	assert.Equal(t, int64(42), gjson.GetBytes(data, "metrics.tokensUsed").Int())
	assert.InDelta(t, 0.000042, gjson.GetBytes(data, "metrics.estimatedCost").Float(), 1e-12)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte(`{not json`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"type":"launchMissiles"}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = FromJSON([]byte(`{"type":"modelChunk","sessionId":"x"}`))
	assert.ErrorContains(t, err, "missing required field")
}

func TestUnmarshalRejectsWrongType(t *testing.T) {
	var chunk ModelChunk
	err := chunk.UnmarshalJSON([]byte(`{"type":"modelStatus","sessionId":"x","model":"m","status":"streaming"}`))
	assert.ErrorContains(t, err, "expected \"modelChunk\"")
}

func TestTimestampIsOptional(t *testing.T) {
	data, err := ToJSON(SessionCreated{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(data, "timestamp").Exists())

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, SessionCreated{SessionID: "sess-1"}, decoded)
}
