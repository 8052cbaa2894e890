// Package openai adapts OpenAI's chat completions API to the provider
// capability contract, using the official Go SDK's streaming client.
package openai
