// Package idgen provides socket ID generation.
package idgen

import (
	"github.com/google/uuid"

	"github.com/artpar/socketgate/ports"
)

// UUID generates UUIDv4 socket identifiers.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = UUID{}
