package predictcache

import "testing"

func TestKeyIsStableForSameInputs(t *testing.T) {
	a := key(1, 2, 10, 20)
	b := key(1, 2, 10, 20)
	if a != b {
		t.Fatalf("expected stable key, got %q vs %q", a, b)
	}
}

func TestKeyDistinguishesOrderedPairs(t *testing.T) {
	if key(1, 2, 10, 20) == key(2, 1, 20, 10) {
		t.Fatal("expected (A,B) and (B,A) to hash to different keys")
	}
}
