package adminauth

import (
	"testing"
	"time"
)

func TestHashKeyIsDeterministicAndDistinct(t *testing.T) {
	a := HashKey("secret-one")
	b := HashKey("secret-one")
	c := HashKey("secret-two")

	if a != b {
		t.Fatalf("HashKey should be deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Fatalf("HashKey should differ for different inputs")
	}
}

func TestRateLimiterAllowsUpToLimitThenBlocks(t *testing.T) {
	l := NewRateLimiter(time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("key-a", 3) {
			t.Fatalf("Allow(%d) = false, want true within limit", i)
		}
	}
	if l.Allow("key-a", 3) {
		t.Fatalf("Allow should return false once the bucket is exhausted")
	}
}

func TestRateLimiterTracksKeysIndependently(t *testing.T) {
	l := NewRateLimiter(time.Minute)

	l.Allow("key-a", 1)
	if !l.Allow("key-b", 1) {
		t.Fatalf("a separate key should have its own bucket")
	}
}

func TestRateLimiterResetClearsState(t *testing.T) {
	l := NewRateLimiter(time.Minute)

	l.Allow("key-a", 1)
	if l.Allow("key-a", 1) {
		t.Fatalf("bucket should be exhausted before Reset")
	}
	l.Reset("key-a")
	if !l.Allow("key-a", 1) {
		t.Fatalf("Allow after Reset should succeed again")
	}
}
