// Package sessions holds the durable record of a comparison: the prompt,
// the (provider, model) selections fixed at creation, and one response state
// per model. Stores must tolerate concurrent writers across different models
// of the same session; the orchestrator guarantees a single writer per
// model, so no per-model locking is required of a store.
package sessions
