package security

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerateNumericCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9]+$`)

	for _, length := range []int{1, 6, 12} {
		code, err := GenerateNumericCode(length)
		if err != nil {
			t.Fatalf("length %d: %v", length, err)
		}
		if len(code) != length {
			t.Fatalf("expected %d digits, got %q", length, code)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("expected digits only, got %q", code)
		}
	}

	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := GenerateNumericCode(-3); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestHashCodeIsDeterministic(t *testing.T) {
	first := HashCode("482910")
	second := HashCode("482910")
	if first != second {
		t.Fatalf("hashes differ: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
	if first == HashCode("482911") {
		t.Fatal("distinct inputs must not collide trivially")
	}
}

func TestGenerateTransactionRef(t *testing.T) {
	ref, err := GenerateTransactionRef(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(ref, "0x") {
		t.Fatalf("expected 0x prefix, got %q", ref)
	}
	if len(ref) != 2+64 {
		t.Fatalf("expected 66 characters for 32 bytes, got %d", len(ref))
	}
	if !regexp.MustCompile(`^0x[0-9a-f]+$`).MatchString(ref) {
		t.Fatalf("expected lowercase hex body, got %q", ref)
	}

	other, err := GenerateTransactionRef(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ref == other {
		t.Fatal("consecutive refs must differ")
	}

	if _, err := GenerateTransactionRef(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
