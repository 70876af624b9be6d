package server

import (
	"sort"

	"quickdraw/internal/db"
)

// computeRankings orders participants by (score desc, pointsUpdatedAt
// asc) — the earlier a score was reached, the higher the rank — and
// attaches the entry-based rewards.
func computeRankings(mode string, entryPoints int, participants []db.Participant) []rankingEntry {
	sorted := append([]db.Participant{}, participants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].PointsUpdatedAt.Before(sorted[j].PointsUpdatedAt)
	})

	entries := make([]rankingEntry, 0, len(sorted))
	if mode == modeTeam {
		winner := winningTeam(sorted)
		for i, p := range sorted {
			entry := rankingEntry{Rank: i + 1, UserID: p.UserID, Score: p.Score}
			if p.Team != nil {
				entry.Team = *p.Team
				if *p.Team == winner {
					entry.Reward = 2 * entryPoints
				}
			}
			entries = append(entries, entry)
		}
		return entries
	}

	for i, p := range sorted {
		entries = append(entries, rankingEntry{
			Rank:   i + 1,
			UserID: p.UserID,
			Score:  p.Score,
			Reward: soloReward(i+1, len(sorted), entryPoints),
		})
	}
	return entries
}

// soloReward: 2 players pay winner-takes-double; 3 or more pay the podium.
func soloReward(rank, players, entry int) int {
	if players < 2 {
		return 0
	}
	if players == 2 {
		if rank == 1 {
			return 2 * entry
		}
		return 0
	}
	switch rank {
	case 1:
		return 3 * entry
	case 2:
		return 2 * entry
	case 3:
		return entry
	}
	return 0
}

func winningTeam(participants []db.Participant) string {
	totals := map[string]int{}
	for _, p := range participants {
		if p.Team != nil {
			totals[*p.Team] += p.Score
		}
	}
	if totals[teamOrange] > totals[teamBlue] {
		return teamOrange
	}
	return teamBlue
}
