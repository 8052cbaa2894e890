package openai

import (
	"context"
	"time"

	"github.com/casualjim/faceoff/provider"
	"github.com/go-openapi/strfmt"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// Name is the registry name of this provider.
	Name = "openai"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"
)

// Output pricing: $0.0006 per 1K tokens (4o-mini).
var defaultPricing = provider.Pricing{OutputPerKiloTokens: 0.0006}

type Provider struct {
	client  *openai.Client
	model   string
	pricing provider.Pricing
}

var _ provider.Provider = (*Provider)(nil)

// New builds an OpenAI adapter for the given model. Request options are
// passed straight to the SDK client, which reads OPENAI_API_KEY from the
// environment when no key option is given.
func New(model string, options ...option.RequestOption) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		client:  openai.NewClient(options...),
		model:   model,
		pricing: defaultPricing,
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) ModelName() string { return p.model }

func (p *Provider) CalculateCost(tokensUsed int) float64 {
	return p.pricing.Cost(tokensUsed)
}

func (p *Provider) EstimateTokens(text string) int {
	return provider.EstimateTokens(text)
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

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(p.model),
		N:     openai.Int(1),
	}

	strm := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = strm.Close() }()

	if strm.Err() != nil {
		fail(strm.Err())
		return
	}

	var content []byte
	var acc openai.ChatCompletionAccumulator

	for strm.Next() {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}

		chunk := strm.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content = append(content, delta...)
		events <- provider.Chunk{Text: delta, Timestamp: strfmt.DateTime(time.Now())}
	}

	if err := strm.Err(); err != nil {
		fail(err)
		return
	}

	tokensUsed := int(acc.ChatCompletion.Usage.CompletionTokens)
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
