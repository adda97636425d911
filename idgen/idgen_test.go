package idgen

import (
	"strings"
	"testing"
)

func TestNanoID_Length(t *testing.T) {
	for _, length := range []int{6, 12, 24} {
		id := NanoID(length)()
		if len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
	}
}

func TestNanoID_Alphabet(t *testing.T) {
	id := NanoID(100)()
	for _, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			t.Fatalf("NanoID: unexpected character %q in %q", c, id)
		}
	}
}

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("UUIDv7: unexpected format %q", id)
	}
	if _, err := Parse(id); err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
}

func TestRunID_Shape(t *testing.T) {
	id := RunID()
	ts, suffix, ok := strings.Cut(id, "_")
	if !ok {
		t.Fatalf("RunID %q: missing separator", id)
	}
	if len(ts) != len("20060102T150405Z") || !strings.HasSuffix(ts, "Z") {
		t.Fatalf("RunID %q: bad timestamp part", id)
	}
	if len(suffix) != 6 {
		t.Fatalf("RunID %q: suffix length %d, want 6", id, len(suffix))
	}
}

func TestRunID_Uniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		id := RunID()
		if _, ok := seen[id]; ok {
			t.Fatalf("RunID: duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("evt_", NanoID(8))()
	if !strings.HasPrefix(id, "evt_") || len(id) != 12 {
		t.Fatalf("Prefixed: got %q", id)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("expected error")
	}
}
