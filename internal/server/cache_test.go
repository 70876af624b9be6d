package server

import (
	"testing"
	"time"

	"quickdraw/internal/db"
)

func TestSnapshotOf(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(50 * time.Second)
	phase := phaseDrawing
	room := &db.Room{
		ID:                42,
		Code:              "ABCDE",
		RoundPhase:        &phase,
		RoundPhaseEndTime: &end,
	}
	snap := snapshotOf(room, now)
	if snap.ID != 42 || snap.Code != "ABCDE" {
		t.Fatalf("identity lost: %+v", snap)
	}
	if snap.RoundPhase != phaseDrawing {
		t.Fatalf("phase lost: %q", snap.RoundPhase)
	}
	if snap.RoundPhaseEndTime != end.UnixMilli() {
		t.Fatalf("end time %d, want %d", snap.RoundPhaseEndTime, end.UnixMilli())
	}
	if snap.RoundRemainingTime != 50 {
		t.Fatalf("remaining %d, want 50", snap.RoundRemainingTime)
	}
}

func TestSnapshotOfIdleRoom(t *testing.T) {
	room := &db.Room{ID: 42, Code: "ABCDE"}
	snap := snapshotOf(room, time.Now().UTC())
	if snap.RoundPhase != "" || snap.RoundPhaseEndTime != 0 || snap.RoundRemainingTime != 0 {
		t.Fatalf("idle room should have empty phase fields: %+v", snap)
	}
}

func TestCacheKeys(t *testing.T) {
	if cacheKeyID(7) != "room:id:7" {
		t.Fatalf("id key %q", cacheKeyID(7))
	}
	if cacheKeyCode("ABCDE") != "room:code:ABCDE" {
		t.Fatalf("code key %q", cacheKeyCode("ABCDE"))
	}
}
