package source

import (
	"testing"
)

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner()

	a := in.Intern("count")
	b := in.Intern("count")
	if a != b {
		t.Fatalf("same string interned twice: %d vs %d", a, b)
	}

	c := in.Intern("Async")
	if c == a {
		t.Fatalf("distinct strings share ID %d", c)
	}

	if got := in.MustLookup(a); got != "count" {
		t.Fatalf("MustLookup = %q", got)
	}
	if _, ok := in.Lookup(StringID(99)); ok {
		t.Fatalf("lookup of unknown ID succeeded")
	}
}

func TestInternerEmptyString(t *testing.T) {
	in := NewInterner()
	if id := in.Intern(""); id != NoStringID {
		t.Fatalf("empty string interned as %d, want NoStringID", id)
	}
	if in.Len() != 1 {
		t.Fatalf("fresh interner Len = %d, want 1", in.Len())
	}
}
