// Package uuidx centralizes id generation. Session and subscription ids
// are UUID v7 so they sort by creation time.
package uuidx

import "github.com/google/uuid"

// New returns a fresh UUID v7, panicking when the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh UUID v7 in canonical string form.
func NewString() string {
	return New().String()
}
