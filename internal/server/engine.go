package server

import (
	"context"
	"errors"
	"log"
	"time"

	"quickdraw/internal/db"
)

const (
	endReasonTimeout     = "timeout"
	endReasonAllGuessed  = "all_guessed"
	endReasonTeamCorrect = "team_correct"
	endReasonDrawerLeft  = "drawer_left"
	endReasonSkipped     = "skipped"
)

var errInsufficientCoinsForEntry = errors.New("insufficient coins for entry")

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// transitionPhase is the engine's only door into round_phase: the store
// CAS plus a cache refresh on success. A nil room means a concurrent
// caller won and this caller must back off silently.
func (s *Server) transitionPhase(roomID uint, fromPhase *string, updates map[string]any) (*db.Room, error) {
	updated, err := s.store.TransitionPhase(roomID, fromPhase, updates)
	if err != nil || updated == nil {
		return updated, err
	}
	s.cache.Refresh(context.Background(), updated)
	return updated, nil
}

// startGame charges entry, resets the per-game fields and enters the
// first selecting_drawer phase. Preconditions are validated by the
// caller; the entry charge happens at most once per participant.
func (s *Server) startGame(room *db.Room) error {
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return err
	}
	if room.EntryPoints > 0 {
		for _, p := range participants {
			if p.HasPaidEntry {
				continue
			}
			if err := s.debitCoins(p.UserID, room.EntryPoints, txKindEntryFee, &room.ID); err != nil {
				if errors.Is(err, errWalletInsufficient) {
					return errInsufficientCoinsForEntry
				}
				return err
			}
			if err := s.store.UpdateParticipant(p.ID, map[string]any{"has_paid_entry": true}); err != nil {
				return err
			}
		}
	}
	s.sessions.ClearRoomReady(room.ID)
	if err := s.store.UpdateRoomParticipants(room.ID, map[string]any{
		"score":                  0,
		"has_guessed_this_round": false,
		"has_drawn":              false,
		"is_drawer":              false,
		"elimination_count":      3,
		"skip_count":             0,
	}); err != nil {
		return err
	}
	updated, err := s.store.UpdateRoom(room.ID, map[string]any{
		"status":               statusPlaying,
		"current_round":        1,
		"round_phase":          nil,
		"round_phase_end_time": nil,
		"current_drawer_id":    nil,
		"current_word":         nil,
		"current_word_options": nil,
		"drawer_pointer_index": 0,
		"drawn_user_ids":       toJSON([]uint{}),
		"used_words":           toJSON([]string{}),
	})
	if err != nil {
		return err
	}
	log.Printf("game started room=%s mode=%s players=%d", room.Code, room.GameMode, len(participants))
	return s.beginSelectingDrawer(updated, nil, nil)
}

// beginSelectingDrawer rotates the drawer and enters selecting_drawer.
// fromPhase carries the caller's expected predecessor; racing callers
// lose on the CAS and exit silently.
func (s *Server) beginSelectingDrawer(room *db.Room, fromPhase *string, extra map[string]any) error {
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return err
	}
	if !hasEnoughPlayers(room.GameMode, participants) {
		return s.endGameInsufficient(room, fromPhase)
	}
	pick, ok := pickNextDrawer(room.GameMode, participants, room.DrawerPointerIndex, uintsFromJSON(room.DrawnUserIDs))
	if !ok {
		return s.endGameInsufficient(room, fromPhase)
	}
	now := timeNowUTC()
	end := now.Add(seconds(s.cfg.SelectingDrawerSeconds))
	updates := map[string]any{
		"round_phase":          phaseSelectingDrawer,
		"round_phase_end_time": end,
		"current_drawer_id":    pick.UserID,
		"last_drawer_id":       room.CurrentDrawerID,
		"drawer_pointer_index": pick.PointerIndex,
		"drawn_user_ids":       toJSON(pick.DrawnUserIDs),
		"current_word":         nil,
		"current_word_options": nil,
	}
	for key, value := range extra {
		updates[key] = value
	}
	updated, err := s.transitionPhase(room.ID, fromPhase, updates)
	if err != nil || updated == nil {
		return err
	}
	if err := s.store.UpdateRoomParticipants(room.ID, map[string]any{
		"is_drawer":              false,
		"has_guessed_this_round": false,
	}); err != nil {
		return err
	}
	if drawer := findParticipant(participants, pick.UserID); drawer != nil {
		_ = s.store.UpdateParticipant(drawer.ID, map[string]any{"is_drawer": true})
	}
	s.schedulePhaseEnd(updated)
	s.broadcastPhaseChange(updated)
	s.hub.Broadcast(room.ID, evClearChat, map[string]any{}, nil)
	s.broadcastDrawerSelected(updated, pick.UserID)
	return nil
}

// endSelectingDrawer computes word options and moves to choosing_word.
// The sentinel phase is claimed first so a parallel caller cannot redo
// the catalog work.
func (s *Server) endSelectingDrawer(room *db.Room) error {
	claimed, err := s.transitionPhase(room.ID, ptr(phaseSelectingDrawer), map[string]any{
		"round_phase": phaseProcessing,
	})
	if err != nil || claimed == nil {
		return err
	}
	options := s.wordOptions(claimed)
	end := timeNowUTC().Add(seconds(s.cfg.ChoosingWordSeconds))
	updated, err := s.transitionPhase(room.ID, ptr(phaseProcessing), map[string]any{
		"round_phase":          phaseChoosingWord,
		"round_phase_end_time": end,
		"current_word_options": toJSON(options),
	})
	if err != nil || updated == nil {
		return err
	}
	s.schedulePhaseEnd(updated)
	s.broadcastPhaseChange(updated)
	s.sendWordOptions(updated, options)
	return nil
}

// sendWordOptions resolves the drawer's socket at the moment of emitting,
// never earlier, so a reconnect that lands mid-transition still receives
// its options.
func (s *Server) sendWordOptions(room *db.Room, options []string) {
	if room.CurrentDrawerID == nil {
		return
	}
	drawer := s.sessions.Lookup(*room.CurrentDrawerID)
	if drawer == nil {
		return
	}
	drawer.send(evWordOptions, wordOptionsPayload{
		Words:    options,
		Duration: s.cfg.ChoosingWordSeconds,
	})
}

// applyWordChoice persists the drawer's choice and enters drawing.
func (s *Server) applyWordChoice(room *db.Room, drawer *db.Participant, word string) error {
	used := append(stringsFromJSON(room.UsedWords), word)
	end := timeNowUTC().Add(seconds(s.cfg.DrawingSeconds))
	updated, err := s.transitionPhase(room.ID, ptr(phaseChoosingWord), map[string]any{
		"round_phase":          phaseDrawing,
		"round_phase_end_time": end,
		"current_word":         word,
		"current_word_options": nil,
		"used_words":           toJSON(used),
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return errRaceLost
	}
	s.clock.Cancel(room.Code, phaseChoosingWord)
	_ = s.store.UpdateParticipant(drawer.ID, map[string]any{
		"elimination_count": 3,
		"has_drawn":         true,
	})
	s.schedulePhaseEnd(updated)
	s.broadcastPhaseChange(updated)
	return nil
}

// onChooseWordTimeout punishes the drawer who never chose: the
// elimination count decrements, at zero the participant is removed, and
// the rotation moves on.
func (s *Server) onChooseWordTimeout(room *db.Room) error {
	claimed, err := s.transitionPhase(room.ID, ptr(phaseChoosingWord), map[string]any{
		"round_phase":          phaseProcessing,
		"current_word_options": nil,
	})
	if err != nil || claimed == nil {
		return err
	}
	if claimed.CurrentDrawerID != nil {
		drawer, err := s.store.GetParticipant(room.ID, *claimed.CurrentDrawerID)
		if err == nil {
			remaining := drawer.EliminationCount - 1
			if remaining <= 0 {
				_ = s.store.RemoveParticipant(drawer.ID)
				s.sessions.SetReady(room.ID, drawer.UserID, false)
				s.hub.Broadcast(room.ID, evPlayerRemoved, playerRemovedPayload{
					UserID: drawer.UserID,
					Reason: "failed_to_choose_word",
				}, nil)
				log.Printf("drawer eliminated room=%s user=%d reason=failed_to_choose_word", room.Code, drawer.UserID)
			} else {
				_ = s.store.UpdateParticipant(drawer.ID, map[string]any{"elimination_count": remaining})
				s.hub.Broadcast(room.ID, evDrawerSkipped, playerLeftPayload{
					UserID: drawer.UserID,
					Reason: "failed_to_choose_word",
				}, nil)
			}
		}
	}
	return s.beginSelectingDrawer(claimed, ptr(phaseProcessing), nil)
}

// endDrawing closes the drawing phase for any of its three triggers and
// enters reveal. In solo mode the drawer is rewarded in proportion to how
// many players guessed; team mode pays no drawer reward.
func (s *Server) endDrawing(room *db.Room, reason string) error {
	claimed, err := s.transitionPhase(room.ID, ptr(phaseDrawing), map[string]any{
		"round_phase": phaseProcessing,
	})
	if err != nil || claimed == nil {
		return err
	}
	s.clock.Cancel(room.Code, phaseDrawing)
	word := ""
	if claimed.CurrentWord != nil {
		word = *claimed.CurrentWord
	}
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return err
	}
	if claimed.GameMode == modeSolo && claimed.CurrentDrawerID != nil && reason != endReasonSkipped {
		guessed := 0
		for _, p := range participants {
			if p.UserID != *claimed.CurrentDrawerID && p.HasGuessedThisRound {
				guessed++
			}
		}
		reward := drawerReward(guessed, len(participants), s.cfg.MaxPointsPerRound)
		if reward > 0 {
			if drawer := findParticipant(participants, *claimed.CurrentDrawerID); drawer != nil {
				now := timeNowUTC()
				if err := s.store.UpdateParticipant(drawer.ID, map[string]any{
					"score":             drawer.Score + reward,
					"points_updated_at": now,
				}); err == nil {
					s.hub.Broadcast(room.ID, evScoreUpdate, scoreUpdatePayload{
						UserID: drawer.UserID,
						Score:  drawer.Score + reward,
					}, nil)
				}
			}
		}
	}
	end := timeNowUTC().Add(seconds(s.cfg.RevealSeconds))
	updated, err := s.transitionPhase(room.ID, ptr(phaseProcessing), map[string]any{
		"round_phase":          phaseReveal,
		"round_phase_end_time": end,
		"current_word":         nil,
	})
	if err != nil || updated == nil {
		return err
	}
	s.hub.Broadcast(room.ID, evGuessResult, map[string]any{
		"word":   word,
		"reason": reason,
	}, nil)
	s.schedulePhaseEnd(updated)
	s.broadcastPhaseChange(updated)
	return nil
}

// endReveal either finishes the game when the target was reached or
// enters the inter-round pause.
func (s *Server) endReveal(room *db.Room) error {
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return err
	}
	if targetReached(participants, room.TargetPoints) {
		return s.endGame(room, ptr(phaseReveal))
	}
	end := timeNowUTC().Add(seconds(s.cfg.IntervalSeconds))
	updated, err := s.transitionPhase(room.ID, ptr(phaseReveal), map[string]any{
		"round_phase":          phaseInterval,
		"round_phase_end_time": end,
	})
	if err != nil || updated == nil {
		return err
	}
	s.schedulePhaseEnd(updated)
	s.broadcastPhaseChange(updated)
	return nil
}

func (s *Server) endInterval(room *db.Room) error {
	return s.beginSelectingDrawer(room, ptr(phaseInterval), map[string]any{
		"current_round": room.CurrentRound + 1,
	})
}

// endGame ranks players, pays rewards, and schedules the short pause
// before the room returns to lobby.
func (s *Server) endGame(room *db.Room, fromPhase *string) error {
	participants, err := s.store.Participants(room.ID)
	if err != nil {
		return err
	}
	rankings := computeRankings(room.GameMode, room.EntryPoints, participants)
	for _, entry := range rankings {
		if entry.Reward > 0 {
			if err := s.creditCoins(entry.UserID, entry.Reward, txKindReward, &room.ID); err != nil {
				log.Printf("reward credit failed room=%s user=%d error=%v", room.Code, entry.UserID, err)
			}
		}
	}
	end := timeNowUTC().Add(seconds(2))
	updated, err := s.transitionPhase(room.ID, fromPhase, map[string]any{
		"round_phase":          phaseIntervalEnding,
		"round_phase_end_time": end,
		"status":               statusFinished,
		"current_word":         nil,
		"current_word_options": nil,
		"current_drawer_id":    nil,
	})
	if err != nil || updated == nil {
		return err
	}
	s.hub.Broadcast(room.ID, evGameEnded, gameEndedPayload{
		Rankings:  rankings,
		EntryCost: room.EntryPoints,
		GameMode:  room.GameMode,
	}, nil)
	log.Printf("game ended room=%s mode=%s rounds=%d", room.Code, room.GameMode, room.CurrentRound)
	s.schedulePhaseEnd(updated)
	return nil
}

// backToLobby resets every per-game field after the post-game pause.
func (s *Server) backToLobby(room *db.Room) error {
	updated, err := s.transitionPhase(room.ID, ptr(phaseIntervalEnding), map[string]any{
		"round_phase":          nil,
		"round_phase_end_time": nil,
		"status":               statusLobby,
		"current_round":        0,
		"current_drawer_id":    nil,
		"last_drawer_id":       nil,
		"current_word":         nil,
		"current_word_options": nil,
		"drawer_pointer_index": 0,
		"drawn_user_ids":       toJSON([]uint{}),
		"used_words":           toJSON([]string{}),
	})
	if err != nil || updated == nil {
		return err
	}
	if err := s.store.UpdateRoomParticipants(room.ID, map[string]any{
		"score":                  0,
		"has_guessed_this_round": false,
		"has_drawn":              false,
		"is_drawer":              false,
		"has_paid_entry":         false,
		"elimination_count":      3,
		"skip_count":             0,
	}); err != nil {
		return err
	}
	s.sessions.ClearRoomReady(room.ID)
	s.clock.CancelRoom(room.Code)
	s.hub.Broadcast(room.ID, evRoomBackToLobby, map[string]any{}, nil)
	s.broadcastParticipants(updated)
	s.armLobbyIdleTimer(updated)
	return nil
}

// endGameInsufficient closes a game that fell below the player floor.
func (s *Server) endGameInsufficient(room *db.Room, fromPhase *string) error {
	updated, err := s.transitionPhase(room.ID, fromPhase, map[string]any{
		"round_phase":          nil,
		"round_phase_end_time": nil,
		"status":               statusClosed,
		"current_word":         nil,
		"current_word_options": nil,
		"current_drawer_id":    nil,
	})
	if err != nil || updated == nil {
		return err
	}
	s.clock.CancelRoom(room.Code)
	s.hub.Broadcast(room.ID, evGameEndedNoPlayers, map[string]any{}, nil)
	log.Printf("game ended room=%s reason=insufficient_players", room.Code)
	return nil
}

func hasEnoughPlayers(mode string, participants []db.Participant) bool {
	if mode == modeTeam {
		blue, orange := 0, 0
		for _, p := range participants {
			if p.Team == nil {
				continue
			}
			switch *p.Team {
			case teamBlue:
				blue++
			case teamOrange:
				orange++
			}
		}
		return blue >= 2 && orange >= 2
	}
	return len(participants) >= 2
}

func targetReached(participants []db.Participant, target int) bool {
	for _, p := range participants {
		if p.Score >= target {
			return true
		}
	}
	return false
}

// drawerReward is min(20*guessed/max(1, players-1), maxPerRound).
func drawerReward(guessed, players, maxPerRound int) int {
	divisor := players - 1
	if divisor < 1 {
		divisor = 1
	}
	reward := 20 * guessed / divisor
	if reward > maxPerRound {
		return maxPerRound
	}
	return reward
}

func findParticipant(participants []db.Participant, userID uint) *db.Participant {
	for i := range participants {
		if participants[i].UserID == userID {
			return &participants[i]
		}
	}
	return nil
}
