// Package events defines the wire contract between the comparison
// orchestrator and its transport channel. Every event is one complete,
// self-contained message: sessionCreated, modelStatus, modelChunk,
// modelComplete and modelError are tagged with the model identity so
// interleaved streams can be demultiplexed by the client, and error carries
// session-level validation failures not tied to a model.
//
// Events marshal to JSON with a "type" discriminator so transports that
// move bytes (NATS, websockets) can round-trip them through ToJSON and
// FromJSON.
package events
