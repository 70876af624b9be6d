package server

import (
	"testing"

	"quickdraw/internal/db"
)

func TestGuessReward(t *testing.T) {
	cases := []struct {
		remaining int
		max       int
		want      int
	}{
		{50, 10, 7},  // guess at t=30 of an 80s phase
		{60, 10, 8},  // guess at t=20
		{80, 10, 10}, // capped
		{0, 10, 0},
		{-5, 10, 0},
		{1, 10, 1},
		{8, 10, 1},
		{9, 10, 2},
	}
	for _, tc := range cases {
		if got := guessReward(tc.remaining, tc.max); got != tc.want {
			t.Fatalf("guessReward(%d, %d) = %d, want %d", tc.remaining, tc.max, got, tc.want)
		}
	}
}

func TestGuessMatches(t *testing.T) {
	cases := []struct {
		guess string
		word  string
		want  bool
	}{
		{"tree", "tree", true},
		{"Tree", "tree", true},
		{"  TREE  ", "tree", true},
		{"trees", "tree", false},
		{"", "tree", false},
	}
	for _, tc := range cases {
		if got := guessMatches(tc.guess, tc.word); got != tc.want {
			t.Fatalf("guessMatches(%q, %q) = %v, want %v", tc.guess, tc.word, got, tc.want)
		}
	}
}

func TestDrawerReward(t *testing.T) {
	cases := []struct {
		guessed int
		players int
		want    int
	}{
		{1, 3, 10}, // one of two guessers found it
		{2, 3, 10}, // capped at max per round
		{0, 3, 0},
		{1, 2, 10},
		{3, 4, 10},
		{1, 5, 5},
		{0, 1, 0},
	}
	for _, tc := range cases {
		if got := drawerReward(tc.guessed, tc.players, 10); got != tc.want {
			t.Fatalf("drawerReward(%d, %d) = %d, want %d", tc.guessed, tc.players, got, tc.want)
		}
	}
}

func TestTargetReached(t *testing.T) {
	participants := []db.Participant{
		{UserID: 1, Score: 59},
		{UserID: 2, Score: 12},
	}
	if targetReached(participants, 60) {
		t.Fatal("no one is at 60 yet")
	}
	participants[0].Score = 60
	if !targetReached(participants, 60) {
		t.Fatal("expected target reached at exactly 60")
	}
}

func TestHasEnoughPlayers(t *testing.T) {
	solo := []db.Participant{activeParticipant(1, ""), activeParticipant(2, "")}
	if !hasEnoughPlayers(modeSolo, solo) {
		t.Fatal("two players suffice in solo mode")
	}
	if hasEnoughPlayers(modeSolo, solo[:1]) {
		t.Fatal("one player is not enough")
	}
	team := []db.Participant{
		activeParticipant(1, teamBlue),
		activeParticipant(2, teamBlue),
		activeParticipant(3, teamOrange),
		activeParticipant(4, teamOrange),
	}
	if !hasEnoughPlayers(modeTeam, team) {
		t.Fatal("two per team suffice")
	}
	if hasEnoughPlayers(modeTeam, team[:3]) {
		t.Fatal("orange has only one player")
	}
}
