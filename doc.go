// Package faceoff runs the same prompt against several AI providers at
// once and multiplexes their streaming responses onto a single topic.
//
// An Arena owns the provider registry and the session store. A comparison
// fans the prompt out to one goroutine per selected model, forwards every
// chunk to the topic as it arrives, and persists progress best-effort so a
// slow store never throttles a live stream. One model failing never
// disturbs its siblings.
package faceoff
