// Package broker provides the transport channel between the comparison
// orchestrator and connected clients. A Topic represents one client
// connection's event channel: publishes are atomic per event, so multiple
// stream tasks can emit concurrently without interleaving corruption, and
// subscriptions deliver events to a Hook in publish order.
//
// Two implementations exist: an in-process broker for single-binary
// deployments and tests, and a NATS broker for fanning events out across
// processes.
package broker
