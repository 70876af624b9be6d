package server

import (
	"strings"
	"testing"
)

func TestNewRoomCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		code := newRoomCode()
		if len(code) != 5 {
			t.Fatalf("code %q is not 5 chars", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q", code, r)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatal("codes look constant")
	}
}

func TestJSONColumnHelpers(t *testing.T) {
	ids := uintsFromJSON(toJSON([]uint{3, 1, 2}))
	if len(ids) != 3 || ids[0] != 3 {
		t.Fatalf("uint roundtrip broken: %v", ids)
	}
	words := stringsFromJSON(toJSON([]string{"tree", "house"}))
	if len(words) != 2 || words[1] != "house" {
		t.Fatalf("string roundtrip broken: %v", words)
	}
	if uintsFromJSON(nil) != nil {
		t.Fatal("nil column should decode to nil")
	}
	if stringsFromJSON([]byte("not-json")) != nil {
		t.Fatal("malformed column should decode to nil")
	}
}

func TestClientResyncFlags(t *testing.T) {
	c := testClient(7)
	c.trackRoom(1)

	if !c.markCanvasRequested(1) {
		t.Fatal("first canvas request should pass")
	}
	if c.markCanvasRequested(1) {
		t.Fatal("second canvas request for the same resume must be suppressed")
	}

	c.setResyncing(1, true)
	if !c.isResyncing(1) {
		t.Fatal("socket should be resyncing")
	}
	c.setResyncing(1, false)
	if c.isResyncing(1) {
		t.Fatal("resync_done should clear the flag")
	}
	// Clearing the resync also re-arms the canvas request for the next
	// resume.
	if !c.markCanvasRequested(1) {
		t.Fatal("next resume should request again")
	}

	c.forgetRoom(1)
	if len(c.roomIDs()) != 0 {
		t.Fatal("room should be forgotten")
	}
}
