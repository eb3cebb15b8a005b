// Package uuid provides ID generation helpers backed by github.com/google/uuid.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates operation IDs (UUIDv7, time ordered) and receipts
// (UUIDv4, random). It satisfies statusinfo.IDGenerator.
type Generator struct{}

// NewUUIDGenerator creates a new Generator.
func NewUUIDGenerator() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// NewReceipt returns a UUIDv4 string. Receipts grant control over an
// operation, so they come from the random generator rather than the
// time-ordered one.
func (Generator) NewReceipt() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid4: %w", err)
	}
	return id.String(), nil
}
