package server

import (
	"testing"

	"quickdraw/internal/db"
)

func activeParticipant(userID uint, team string) db.Participant {
	p := db.Participant{UserID: userID, IsActive: true}
	if team != "" {
		p.Team = &team
	}
	return p
}

func TestPickNextDrawerSoloRotatesInUserIDOrder(t *testing.T) {
	participants := []db.Participant{
		activeParticipant(1, ""),
		activeParticipant(2, ""),
		activeParticipant(3, ""),
	}
	var drawn []uint
	pointer := 0
	want := []uint{1, 2, 3}
	for i, expected := range want {
		pick, ok := pickNextDrawer(modeSolo, participants, pointer, drawn)
		if !ok {
			t.Fatalf("pick %d failed", i)
		}
		if pick.UserID != expected {
			t.Fatalf("pick %d: got user %d, want %d", i, pick.UserID, expected)
		}
		pointer = pick.PointerIndex
		drawn = pick.DrawnUserIDs
	}
}

func TestPickNextDrawerEachDrawsOncePerCycle(t *testing.T) {
	participants := []db.Participant{
		activeParticipant(4, ""),
		activeParticipant(7, ""),
		activeParticipant(9, ""),
		activeParticipant(12, ""),
	}
	var drawn []uint
	pointer := 0
	seen := map[uint]int{}
	for i := 0; i < len(participants); i++ {
		pick, ok := pickNextDrawer(modeSolo, participants, pointer, drawn)
		if !ok {
			t.Fatalf("pick %d failed", i)
		}
		seen[pick.UserID]++
		pointer = pick.PointerIndex
		drawn = pick.DrawnUserIDs
	}
	for userID, count := range seen {
		if count != 1 {
			t.Fatalf("user %d drew %d times in one cycle", userID, count)
		}
	}
}

func TestPickNextDrawerResetsCycleWhenAllDrew(t *testing.T) {
	participants := []db.Participant{
		activeParticipant(1, ""),
		activeParticipant(2, ""),
	}
	pick, ok := pickNextDrawer(modeSolo, participants, 0, []uint{1, 2})
	if !ok {
		t.Fatal("expected pick after full cycle")
	}
	if !pick.CycleReset {
		t.Fatal("expected cycle reset")
	}
	if len(pick.DrawnUserIDs) != 1 || pick.DrawnUserIDs[0] != pick.UserID {
		t.Fatalf("expected fresh drawn set, got %v", pick.DrawnUserIDs)
	}
}

func TestPickNextDrawerTeamAlternates(t *testing.T) {
	participants := []db.Participant{
		activeParticipant(1, teamBlue),
		activeParticipant(2, teamOrange),
		activeParticipant(3, teamBlue),
		activeParticipant(4, teamOrange),
	}
	var drawn []uint
	pointer := 0
	want := []uint{1, 2, 3, 4}
	for i, expected := range want {
		pick, ok := pickNextDrawer(modeTeam, participants, pointer, drawn)
		if !ok {
			t.Fatalf("pick %d failed", i)
		}
		if pick.UserID != expected {
			t.Fatalf("pick %d: got user %d, want %d (alternation broken)", i, pick.UserID, expected)
		}
		pointer = pick.PointerIndex
		drawn = pick.DrawnUserIDs
	}
}

func TestPickNextDrawerTeamFallsBackWhenOneTeamEmpty(t *testing.T) {
	participants := []db.Participant{
		activeParticipant(1, teamBlue),
		activeParticipant(2, teamBlue),
	}
	pick, ok := pickNextDrawer(modeTeam, participants, 0, nil)
	if !ok {
		t.Fatal("expected flat fallback pick")
	}
	if pick.UserID != 1 {
		t.Fatalf("got user %d, want 1", pick.UserID)
	}
}

func TestPickNextDrawerNoParticipants(t *testing.T) {
	if _, ok := pickNextDrawer(modeSolo, nil, 0, nil); ok {
		t.Fatal("expected no pick for empty room")
	}
}
