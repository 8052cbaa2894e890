package anthropic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/casualjim/faceoff/internal/httpx"
	"github.com/casualjim/faceoff/provider"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
)

const (
	// Name is the registry name of this provider.
	Name = "anthropic"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	defaultBaseURL   = "https://api.anthropic.com"
	messagesEndpoint = "/v1/messages"
	apiVersion       = "2023-06-01"
	maxTokens        = 4096
)

// Output pricing: $0.015 per 1K tokens (Sonnet).
var defaultPricing = provider.Pricing{OutputPerKiloTokens: 0.015}

type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	pricing provider.Pricing
}

var _ provider.Provider = (*Provider)(nil)

func WithAPIKey(key string) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error { p.apiKey = key; return nil })
}

func WithBaseURL(baseURL string) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error { p.baseURL = baseURL; return nil })
}

func WithModel(model string) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error { p.model = model; return nil })
}

func WithHTTPClient(client *http.Client) opts.Option[Provider] {
	return opts.Type[Provider](func(p *Provider) error { p.client = client; return nil })
}

// New builds an Anthropic adapter. The API key defaults to the
// ANTHROPIC_API_KEY environment variable.
func New(options ...opts.Option[Provider]) (*Provider, error) {
	p := &Provider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: defaultBaseURL,
		model:   DefaultModel,
		pricing: defaultPricing,
	}
	if err := opts.Apply(p, options); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) ModelName() string { return p.model }

func (p *Provider) CalculateCost(tokensUsed int) float64 {
	return p.pricing.Cost(tokensUsed)
}

func (p *Provider) EstimateTokens(text string) int {
	return provider.EstimateTokens(text)
}

type messageRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent is the envelope of one Anthropic SSE payload. Only the fields
// the adapter dispatches on are decoded.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) StreamCompletion(ctx context.Context, prompt string) <-chan provider.StreamEvent {
	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		p.runStream(ctx, prompt, events)
	}()
	return events
}

func (p *Provider) runStream(ctx context.Context, prompt string, events chan<- provider.StreamEvent) {
	start := time.Now()

	fail := func(err error) {
		events <- provider.Error{Err: err, Timestamp: strfmt.DateTime(time.Now())}
	}

	if p.apiKey == "" {
		fail(errors.New("ANTHROPIC_API_KEY is not set"))
		return
	}

	request := messageRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Stream:    true,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	response, err := httpx.PostStream(ctx, p.client, p.baseURL+messagesEndpoint, request,
		httpx.Header{Key: "x-api-key", Value: p.apiKey},
		httpx.Header{Key: "anthropic-version", Value: apiVersion},
	)
	if err != nil {
		fail(err)
		return
	}
	defer httpx.CloseWithLog(response.Body)

	scanner := httpx.NewSSEScanner(response.Body)

	var content []byte
	outputTokens := 0

	for {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}

		payload, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(err)
			return
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			fail(err)
			return
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				content = append(content, event.Delta.Text...)
				events <- provider.Chunk{Text: event.Delta.Text, Timestamp: strfmt.DateTime(time.Now())}
			}
		case "message_delta":
			// carries the running output token count; the last one wins
			if event.Usage.OutputTokens > 0 {
				outputTokens = event.Usage.OutputTokens
			}
		case "error":
			fail(errors.New(event.Error.Message))
			return
		}
	}

	tokensUsed := outputTokens
	if tokensUsed == 0 {
		tokensUsed = p.EstimateTokens(string(content))
	}
	events <- provider.Complete{
		Metrics: provider.CompletionMetrics{
			DurationMs:    time.Since(start).Milliseconds(),
			TokensUsed:    tokensUsed,
			EstimatedCost: p.CalculateCost(tokensUsed),
		},
		Timestamp: strfmt.DateTime(time.Now()),
	}
}
