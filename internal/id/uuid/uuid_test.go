// Package uuid includes tests for the UUID generator wrapper.
package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewID ensures generated IDs are unique UUIDv7 values.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}

// TestGeneratorNewReceipt ensures receipts are random UUIDv4 values distinct from IDs.
func TestGeneratorNewReceipt(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	receipt, err := gen.NewReceipt()
	if err != nil {
		t.Fatalf("NewReceipt() error = %v", err)
	}
	parsed, err := goUUID.Parse(receipt)
	if err != nil {
		t.Fatalf("receipt not valid UUID: %v", err)
	}
	if parsed.Version() != 4 {
		t.Fatalf("expected version 4, got %d", parsed.Version())
	}
	id, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id == receipt {
		t.Fatal("expected receipt to differ from id")
	}
}
