package gemini

import (
	"context"
	"errors"
	"fmt"
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
	Name = "google"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash-exp"

	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Output pricing: $0.001 per 1K tokens.
var defaultPricing = provider.Pricing{OutputPerKiloTokens: 0.001}

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

// New builds a Gemini adapter. The API key defaults to the
// GOOGLE_GEMINI_API_KEY environment variable.
func New(options ...opts.Option[Provider]) (*Provider, error) {
	p := &Provider{
		apiKey:  os.Getenv("GOOGLE_GEMINI_API_KEY"),
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

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// streamChunk is one SSE payload of streamGenerateContent. Only the fields
// the adapter needs are decoded.
type streamChunk struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
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
		fail(errors.New("GOOGLE_GEMINI_API_KEY is not set"))
		return
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", p.baseURL, p.model)
	request := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	response, err := httpx.PostStream(ctx, p.client, url, request,
		httpx.Header{Key: "x-goog-api-key", Value: p.apiKey},
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

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			fail(err)
			return
		}
		if chunk.Error.Message != "" {
			fail(errors.New(chunk.Error.Message))
			return
		}

		for _, candidate := range chunk.Candidates {
			for _, candidatePart := range candidate.Content.Parts {
				if candidatePart.Text == "" {
					continue
				}
				content = append(content, candidatePart.Text...)
				events <- provider.Chunk{Text: candidatePart.Text, Timestamp: strfmt.DateTime(time.Now())}
			}
		}
		if chunk.UsageMetadata.CandidatesTokenCount > 0 {
			outputTokens = chunk.UsageMetadata.CandidatesTokenCount
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
