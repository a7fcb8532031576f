package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if id == "" {
			t.Fatal("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("ext_", Default)
	id := gen()
	if !strings.HasPrefix(id, "ext_") {
		t.Errorf("id: %q", id)
	}
	if len(id) <= len("ext_") {
		t.Errorf("no body after prefix: %q", id)
	}
}
