package server

import (
	"strings"
	"time"

	"quickdraw/internal/db"
)

// guessReward is min(ceil(remaining/8), maxPerRound) for the remaining
// whole seconds of the drawing phase.
func guessReward(remainingSecs, maxPerRound int) int {
	if remainingSecs < 0 {
		remainingSecs = 0
	}
	reward := (remainingSecs + 7) / 8
	if reward > maxPerRound {
		return maxPerRound
	}
	return reward
}

func guessMatches(guess, word string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(word))
}

// evaluateGuess runs the full gate chain, awards points and decides
// round termination. Rejections are soft: the guesser gets a structured
// error and nothing mutates.
func (s *Server) evaluateGuess(c *client, room *db.Room, guess string) {
	if room.RoundPhase == nil || *room.RoundPhase != phaseDrawing || room.CurrentWord == nil {
		s.sendError(c, errWrongPhase)
		return
	}
	participant, err := s.store.GetParticipant(room.ID, c.userID)
	if err != nil || !participant.IsActive {
		s.sendError(c, errRoomNotFound)
		return
	}
	if room.CurrentDrawerID != nil && *room.CurrentDrawerID == c.userID {
		s.sendError(c, errDrawerCannotGuess)
		return
	}
	if participant.HasGuessedThisRound {
		s.sendError(c, errAlreadyGuessed)
		return
	}
	if room.GameMode == modeTeam {
		drawerTeam := s.drawerTeam(room)
		if participant.Team == nil || drawerTeam == "" {
			s.sendError(c, errWrongTeam)
			return
		}
		// The drawing team knows the word; only the opposing team
		// guesses.
		if *participant.Team == drawerTeam {
			s.sendError(c, errWrongTeam)
			return
		}
	}

	if !guessMatches(guess, *room.CurrentWord) {
		c.send(evIncorrectGuess, map[string]any{"guess": guess})
		return
	}

	now := time.Now().UTC()
	remaining := 0
	if room.RoundPhaseEndTime != nil {
		remaining = remainingSeconds(*room.RoundPhaseEndTime, now)
	}
	reward := guessReward(remaining, s.cfg.MaxPointsPerRound)

	if room.GameMode == modeTeam {
		s.awardGuessingTeam(c, room, participant, reward, now)
		return
	}
	s.awardSoloGuesser(c, room, participant, reward, now)
}

func (s *Server) drawerTeam(room *db.Room) string {
	if room.CurrentDrawerID == nil {
		return ""
	}
	drawer, err := s.store.GetParticipant(room.ID, *room.CurrentDrawerID)
	if err != nil || drawer.Team == nil {
		return ""
	}
	return *drawer.Team
}

func (s *Server) awardSoloGuesser(c *client, room *db.Room, participant *db.Participant, reward int, now time.Time) {
	awarded, err := s.store.AwardSolo(participant.ID, reward, now)
	if err != nil {
		s.sendError(c, errRoundEnded)
		return
	}
	if !awarded {
		s.sendError(c, errAlreadyGuessed)
		return
	}
	s.hub.Broadcast(room.ID, evCorrectGuess, correctGuessPayload{
		UserID: participant.UserID,
		Reward: reward,
	}, nil)
	s.hub.Broadcast(room.ID, evScoreUpdate, scoreUpdatePayload{
		UserID: participant.UserID,
		Score:  participant.Score + reward,
	}, nil)

	if s.allEligibleGuessed(room) {
		if err := s.endDrawing(room, endReasonAllGuessed); err != nil {
			s.logPhaseEndError(room, err)
		}
	}
}

// awardGuessingTeam pays the whole guessing team exactly once and ends
// the round immediately.
func (s *Server) awardGuessingTeam(c *client, room *db.Room, participant *db.Participant, reward int, now time.Time) {
	members, awarded, err := s.store.AwardTeam(room.ID, *participant.Team, reward, now)
	if err != nil {
		s.sendError(c, errRoundEnded)
		return
	}
	if !awarded {
		s.sendError(c, errAlreadyGuessed)
		return
	}
	s.hub.Broadcast(room.ID, evCorrectGuess, correctGuessPayload{
		UserID: participant.UserID,
		Reward: reward,
	}, nil)
	for _, member := range members {
		s.hub.Broadcast(room.ID, evScoreUpdate, scoreUpdatePayload{
			UserID: member.UserID,
			Score:  member.Score,
		}, nil)
	}
	if err := s.endDrawing(room, endReasonTeamCorrect); err != nil {
		s.logPhaseEndError(room, err)
	}
}

// allEligibleGuessed reports whether every active non-drawer has guessed
// this round, or no eligible guesser remains.
func (s *Server) allEligibleGuessed(room *db.Room) bool {
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return false
	}
	eligible := 0
	guessed := 0
	for _, p := range participants {
		if room.CurrentDrawerID != nil && p.UserID == *room.CurrentDrawerID {
			continue
		}
		eligible++
		if p.HasGuessedThisRound {
			guessed++
		}
	}
	return eligible == 0 || guessed == eligible
}
