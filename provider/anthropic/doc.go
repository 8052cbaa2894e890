// Package anthropic adapts Anthropic's Messages API to the provider
// capability contract, speaking SSE over plain HTTP.
package anthropic
