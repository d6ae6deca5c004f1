package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("session")

	first := gen.Next()
	second := gen.Next()

	if first != "session-001" || second != "session-002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if !(first < second) {
		t.Fatalf("identifiers must sort in generation order")
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("client")
	_ = gen.Next()
	gen.Reset("cl")

	if next := gen.Next(); next != "cl-001" {
		t.Fatalf("expected cl-001 after reset, got %q", next)
	}
}
