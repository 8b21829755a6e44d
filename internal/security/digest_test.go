package security

import (
	"strings"
	"testing"
)

func TestEmailDigest(t *testing.T) {
	d := NewDigester("secret-key")

	got := d.EmailDigest("dana@example.com")
	if len(got) != 64 { // hex of a 256-bit digest
		t.Fatalf("digest length = %d, want 64 hex chars", len(got))
	}
	if again := d.EmailDigest("dana@example.com"); again != got {
		t.Error("digest is not deterministic for the same key and email")
	}

	// Case and whitespace are normalized before hashing.
	if norm := d.EmailDigest("  DANA@Example.COM "); norm != got {
		t.Errorf("digest of unnormalized input = %s, want %s", norm, got)
	}

	if other := d.EmailDigest("someone.else@example.com"); other == got {
		t.Error("distinct emails produced the same digest")
	}

	if d.EmailDigest("") != "" || d.EmailDigest("   ") != "" {
		t.Error("empty email must digest to empty string")
	}
}

func TestEmailDigest_KeyDependent(t *testing.T) {
	a := NewDigester("key-one").EmailDigest("dana@example.com")
	b := NewDigester("key-two").EmailDigest("dana@example.com")
	if a == b {
		t.Error("different keys produced the same digest")
	}
}

func TestNewDigester_TruncatesLongKey(t *testing.T) {
	long := strings.Repeat("k", 100)
	d := NewDigester(long)
	if got := d.EmailDigest("dana@example.com"); got == "" {
		t.Fatal("oversized key must be truncated, not rejected at digest time")
	}
	// The truncated key behaves like its first 64 bytes.
	same := NewDigester(long[:64]).EmailDigest("dana@example.com")
	if same != d.EmailDigest("dana@example.com") {
		t.Error("digest with truncated key differs from digest with its 64-byte prefix")
	}
}
