package server

import (
	"testing"
	"time"

	"quickdraw/internal/db"
)

func TestComputeRankingsTieBreakByPointsUpdatedAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	participants := []db.Participant{
		{UserID: 1, Score: 40, PointsUpdatedAt: base.Add(2 * time.Second)},
		{UserID: 2, Score: 40, PointsUpdatedAt: base.Add(1 * time.Second)},
		{UserID: 3, Score: 55, PointsUpdatedAt: base.Add(3 * time.Second)},
	}
	rankings := computeRankings(modeSolo, 10, participants)
	if len(rankings) != 3 {
		t.Fatalf("got %d entries, want 3", len(rankings))
	}
	// Highest score first; equal scores rank the earlier timestamp higher.
	if rankings[0].UserID != 3 || rankings[1].UserID != 2 || rankings[2].UserID != 1 {
		t.Fatalf("unexpected order: %d, %d, %d", rankings[0].UserID, rankings[1].UserID, rankings[2].UserID)
	}
	for i, entry := range rankings {
		if entry.Rank != i+1 {
			t.Fatalf("entry %d has rank %d", i, entry.Rank)
		}
	}
}

func TestComputeRankingsSoloRewards(t *testing.T) {
	now := time.Now().UTC()
	two := []db.Participant{
		{UserID: 1, Score: 60, PointsUpdatedAt: now},
		{UserID: 2, Score: 20, PointsUpdatedAt: now.Add(time.Second)},
	}
	rankings := computeRankings(modeSolo, 10, two)
	if rankings[0].Reward != 20 || rankings[1].Reward != 0 {
		t.Fatalf("two-player rewards: got %d/%d, want 20/0", rankings[0].Reward, rankings[1].Reward)
	}

	four := []db.Participant{
		{UserID: 1, Score: 60, PointsUpdatedAt: now},
		{UserID: 2, Score: 50, PointsUpdatedAt: now},
		{UserID: 3, Score: 40, PointsUpdatedAt: now},
		{UserID: 4, Score: 10, PointsUpdatedAt: now},
	}
	rankings = computeRankings(modeSolo, 10, four)
	want := []int{30, 20, 10, 0}
	for i, entry := range rankings {
		if entry.Reward != want[i] {
			t.Fatalf("rank %d reward %d, want %d", i+1, entry.Reward, want[i])
		}
	}
}

func TestComputeRankingsTeamRewards(t *testing.T) {
	now := time.Now().UTC()
	blue, orange := teamBlue, teamOrange
	participants := []db.Participant{
		{UserID: 1, Score: 30, Team: &blue, PointsUpdatedAt: now},
		{UserID: 2, Score: 10, Team: &blue, PointsUpdatedAt: now},
		{UserID: 3, Score: 25, Team: &orange, PointsUpdatedAt: now},
		{UserID: 4, Score: 25, Team: &orange, PointsUpdatedAt: now},
	}
	rankings := computeRankings(modeTeam, 10, participants)
	for _, entry := range rankings {
		switch entry.Team {
		case teamOrange:
			if entry.Reward != 20 {
				t.Fatalf("orange member %d reward %d, want 20", entry.UserID, entry.Reward)
			}
		case teamBlue:
			if entry.Reward != 0 {
				t.Fatalf("blue member %d reward %d, want 0", entry.UserID, entry.Reward)
			}
		}
	}
}

func TestSoloReward(t *testing.T) {
	cases := []struct {
		rank, players, entry, want int
	}{
		{1, 2, 5, 10},
		{2, 2, 5, 0},
		{1, 3, 5, 15},
		{2, 3, 5, 10},
		{3, 3, 5, 5},
		{4, 5, 5, 0},
	}
	for _, tc := range cases {
		if got := soloReward(tc.rank, tc.players, tc.entry); got != tc.want {
			t.Fatalf("soloReward(%d, %d, %d) = %d, want %d", tc.rank, tc.players, tc.entry, got, tc.want)
		}
	}
}
