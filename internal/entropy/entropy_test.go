package entropy

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestParseAndLookup(t *testing.T) {
	a := strings.Repeat("11", 32)
	b := strings.Repeat("22", 32)

	st, err := Parse(a + "," + b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 secrets, got %d", st.Len())
	}

	idx, cur := st.Current()
	if idx != 2 {
		t.Fatalf("expected current index 2, got %d", idx)
	}
	if hex.EncodeToString(cur[:]) != b {
		t.Fatalf("current secret mismatch")
	}

	first, err := st.Lookup(1)
	if err != nil {
		t.Fatalf("lookup 1: %v", err)
	}
	if hex.EncodeToString(first[:]) != a {
		t.Fatalf("secret 1 mismatch")
	}

	if _, err := st.Lookup(0); err == nil {
		t.Fatalf("expected error for index 0")
	}
	if _, err := st.Lookup(3); err == nil {
		t.Fatalf("expected error for index past end")
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"zz",
		strings.Repeat("11", 16),                            // too short
		strings.Repeat("11", 32) + ",",                      // trailing empty entry
		strings.Repeat("11", 32) + "," + strings.Repeat("22", 33), // too long
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("expected parse error for %q", c)
		}
	}
}
