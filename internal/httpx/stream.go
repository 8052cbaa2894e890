// Package httpx holds the streaming HTTP plumbing shared by the SSE-based
// provider adapters.
package httpx

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/casualjim/faceoff/pkg/slogx"
	json "github.com/goccy/go-json"
)

// Header is an extra request header applied after the defaults, so vendor
// auth schemes (x-api-key, x-goog-api-key) can replace the bearer default.
type Header struct {
	Key   string
	Value string
}

// maxSSELineSize is the maximum size of a single SSE line. The default
// bufio.Scanner limit of 64 KiB is too small for long completion deltas.
const maxSSELineSize = 1 * 1024 * 1024

// maxErrorBodySize caps how much of a non-2xx response body is read into
// the returned error.
const maxErrorBodySize int64 = 1 * 1024 * 1024

// PostStream performs an HTTP POST with a JSON body and returns the
// response with its body left open for SSE reading. The caller owns closing
// the body. On error paths the body is consumed and closed before
// returning.
func PostStream(ctx context.Context, client *http.Client, url string, body any, headers ...Header) (*http.Response, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	response, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending stream request: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		if readErr != nil {
			return nil, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return nil, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, string(errorBody))
	}

	return response, nil
}

// CloseWithLog closes the closer and logs a failure instead of returning
// it; used on paths where a close error must not mask the primary error.
func CloseWithLog(closer io.Closer) {
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", slogx.Error(err))
	}
}

// SSEScanner reads Server-Sent Events from a reader. It handles multi-line
// data fields, skips comments and empty lines, and treats the [DONE]
// sentinel used by OpenAI-compatible APIs as end of stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next SSE data payload. It returns io.EOF when the stream
// ends or the [DONE] sentinel is seen. Multi-line data fields are joined
// with newlines into a single payload.
func (s *SSEScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Empty line ends an event; flush accumulated data lines.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			payload = strings.TrimPrefix(payload, " ")
			if payload == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, payload)
		}
		// Non-data fields (event:, id:, retry:) are ignored; the adapters
		// dispatch on the JSON payload's own type field.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE read error: %w", err)
	}
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}
