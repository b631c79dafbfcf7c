package app

import (
	"errors"
	"testing"

	"github.com/hylla/vettrack/internal/domain"
)

// TestPathParserCachesOutcomes verifies successes and failures are both cached.
func TestPathParserCachesOutcomes(t *testing.T) {
	parser, err := NewPathParser(2)
	if err != nil {
		t.Fatalf("NewPathParser() error = %v", err)
	}
	first, err := parser.Parse(pathFrench)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := parser.Parse(pathFrench)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("cached parse differs: %s vs %s", first, second)
	}
	if parser.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", parser.Len())
	}

	for range 2 {
		if _, err := parser.Parse("//ldml/["); !errors.Is(err, domain.ErrPathSyntax) {
			t.Fatalf("expected ErrPathSyntax, got %v", err)
		}
	}
	if parser.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", parser.Len())
	}

	if _, err := parser.Parse(pathDecimal); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.Len() != 2 {
		t.Fatalf("expected LRU bound of 2, got %d", parser.Len())
	}
	parser.Purge()
	if parser.Len() != 0 {
		t.Fatalf("Len() after Purge = %d, want 0", parser.Len())
	}
}

// TestNewPathParserDefaultSize verifies non-positive sizes fall back to the default.
func TestNewPathParserDefaultSize(t *testing.T) {
	parser, err := NewPathParser(0)
	if err != nil {
		t.Fatalf("NewPathParser() error = %v", err)
	}
	if parser == nil {
		t.Fatal("expected parser")
	}
}
