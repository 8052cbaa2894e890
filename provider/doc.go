// Package provider defines the capability contract that every AI model
// backend must satisfy to take part in a comparison: a streaming completion
// call, a cost policy, and a cheap token estimator.
//
// A provider's stream is a finite, non-restartable sequence of events. Zero
// or more Chunk events are followed by exactly one terminal event, either
// Complete (with metrics) or Error (with the failure), after which the
// channel is closed. Failures inside an adapter never surface as faults to
// the caller; they always arrive in-band as the terminal Error event, even
// when the provider failed before producing any content.
package provider
