package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casualjim/faceoff/provider"
	json "github.com/goccy/go-json"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, stream <-chan provider.StreamEvent) (chunks []string, terminal provider.StreamEvent) {
	t.Helper()
	for event := range stream {
		switch event := event.(type) {
		case provider.Chunk:
			require.Nil(t, terminal, "chunk after terminal event")
			chunks = append(chunks, event.Text)
		case provider.Complete, provider.Error:
			require.Nil(t, terminal, "more than one terminal event")
			terminal = event
		}
	}
	require.NotNil(t, terminal, "stream ended without a terminal event")
	return chunks, terminal
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New("", option.WithBaseURL(server.URL+"/v1"), option.WithAPIKey("test-key"))
}

func sseHandler(t *testing.T, mockEvents ...openai.ChatCompletionChunk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "unexpected path %s", r.URL.Path)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, event := range mockEvents {
			data, err := json.Marshal(event)
			require.NoError(t, err)
			_, err = fmt.Fprintf(w, "data: %s\n\n", data)
			require.NoError(t, err)
			flusher.Flush()
		}

		_, err := fmt.Fprintf(w, "data: [DONE]\n\n")
		require.NoError(t, err)
		flusher.Flush()
	}
}

func textChunk(text string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID: "test-id",
		Choices: []openai.ChatCompletionChunkChoice{
			{
				Delta: openai.ChatCompletionChunkChoicesDelta{
					Content: text,
				},
			},
		},
	}
}

func TestStreamCompletion(t *testing.T) {
	usageChunk := openai.ChatCompletionChunk{
		ID:      "test-id",
		Choices: []openai.ChatCompletionChunkChoice{},
		Usage: openai.CompletionUsage{
			PromptTokens:     2,
			CompletionTokens: 3,
			TotalTokens:      5,
		},
	}
	p := newTestProvider(t, sseHandler(t, textChunk("he"), textChunk("llo"), usageChunk))

	chunks, terminal := collect(t, p.StreamCompletion(context.Background(), "hi"))

	assert.Equal(t, []string{"he", "llo"}, chunks)
	complete, ok := terminal.(provider.Complete)
	require.True(t, ok, "expected Complete, got %T", terminal)
	assert.Equal(t, 3, complete.Metrics.TokensUsed)
	assert.InDelta(t, 0.0000018, complete.Metrics.EstimatedCost, 1e-12)
	assert.GreaterOrEqual(t, complete.Metrics.DurationMs, int64(0))
}

func TestStreamCompletionEstimatesTokensWithoutUsage(t *testing.T) {
	p := newTestProvider(t, sseHandler(t, textChunk("hello world!")))

	_, terminal := collect(t, p.StreamCompletion(context.Background(), "hi"))

	complete, ok := terminal.(provider.Complete)
	require.True(t, ok)
	assert.Equal(t, 3, complete.Metrics.TokensUsed) // ceil(12/4)
}

func TestStreamCompletionEmptyResponse(t *testing.T) {
	// a stream carrying no deltas must still settle with a terminal event
	p := newTestProvider(t, sseHandler(t))

	chunks, terminal := collect(t, p.StreamCompletion(context.Background(), "hi"))

	assert.Empty(t, chunks)
	complete, ok := terminal.(provider.Complete)
	require.True(t, ok)
	assert.Zero(t, complete.Metrics.TokensUsed)
}

func TestStreamCompletionHTTPFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	})

	chunks, terminal := collect(t, p.StreamCompletion(context.Background(), "hi"))

	assert.Empty(t, chunks)
	_, ok := terminal.(provider.Error)
	require.True(t, ok, "expected Error, got %T", terminal)
}

func TestProviderIdentity(t *testing.T) {
	p := New("", option.WithAPIKey("k"))
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, DefaultModel, p.ModelName())

	custom := New("gpt-4o", option.WithAPIKey("k"))
	assert.Equal(t, "gpt-4o", custom.ModelName())
}

func TestCalculateCost(t *testing.T) {
	p := New("", option.WithAPIKey("k"))
	assert.InDelta(t, 0.0012, p.CalculateCost(2000), 1e-9)
	assert.Equal(t, 1, p.EstimateTokens("abcd"))
}
