package xauth

import "testing"

func TestNewCookie_ShapeAndCharset(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		c, err := newCookie()
		if err != nil {
			t.Fatalf("newCookie: %v", err)
		}
		if len(c) != cookieLength {
			t.Fatalf("len(cookie) = %d, want %d", len(c), cookieLength)
		}
		for _, r := range c {
			if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
				t.Fatalf("cookie %q contains non-hex, non-lowercase rune %q", c, r)
			}
		}
		seen[c] = true
	}
	// With a 128-bit keyspace, 500 draws colliding would indicate a
	// broken RNG, not bad luck.
	if len(seen) < 490 {
		t.Fatalf("only %d distinct cookies out of 500 draws", len(seen))
	}
}
