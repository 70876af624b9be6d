package server

import (
	"encoding/json"
	"errors"
	"log"

	"quickdraw/internal/db"
)

func (s *Server) handleStartGame(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return
	}
	room := s.resolveRoom(c, ref)
	if room == nil {
		return
	}
	if c.userID != room.OwnerID {
		s.sendError(c, errOnlyOwnerCanStart)
		return
	}
	if room.Status != statusLobby && room.Status != statusWaiting {
		s.sendError(c, errWrongPhase)
		return
	}
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	if len(participants) < 2 {
		s.sendError(c, errNotEnoughPlayers)
		return
	}
	if room.GameMode == modeTeam && !hasEnoughPlayers(modeTeam, participants) {
		s.sendError(c, errBothTeamsNeedPlayers)
		return
	}
	for _, p := range participants {
		if p.UserID == room.OwnerID {
			continue
		}
		if !s.sessions.IsReady(room.ID, p.UserID) {
			s.sendError(c, errNotAllReady)
			return
		}
	}
	s.clock.Cancel(room.Code, timerLobbyIdle)
	s.clock.Cancel(room.Code, timerLobbyResponse)
	if err := s.startGame(room); err != nil {
		if errors.Is(err, errInsufficientCoinsForEntry) {
			s.sendError(c, errInsufficientCoins)
			return
		}
		log.Printf("game start failed room=%s error=%v", room.Code, err)
		s.sendError(c, errRoomNotFound)
	}
}

type chooseWordRequest struct {
	RoomID uint   `json:"roomId"`
	Word   string `json:"word"`
}

func (s *Server) handleChooseWord(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req chooseWordRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, roomRef{RoomID: req.RoomID})
	if room == nil {
		return
	}
	if room.RoundPhase == nil || *room.RoundPhase != phaseChoosingWord {
		s.sendError(c, errWrongPhase)
		return
	}
	if room.CurrentDrawerID == nil || *room.CurrentDrawerID != c.userID {
		s.sendError(c, errNotYourTurn)
		return
	}
	options := stringsFromJSON(room.CurrentWordOptions)
	if !containsString(options, req.Word) {
		s.sendError(c, errInvalidWordChoice)
		return
	}
	drawer, err := s.store.GetParticipant(room.ID, c.userID)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	if err := s.applyWordChoice(room, drawer, req.Word); err != nil {
		if errors.Is(err, errRaceLost) {
			s.sendError(c, errWrongPhase)
			return
		}
		log.Printf("word choice failed room=%s user=%d error=%v", room.Code, c.userID, err)
	}
}

type guessRequest struct {
	roomRef
	Guess string `json:"guess"`
}

func (s *Server) handleSubmitGuess(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req guessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, req.roomRef)
	if room == nil {
		return
	}
	s.evaluateGuess(c, room, req.Guess)
}

func (s *Server) handleSkipTurn(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return
	}
	room := s.resolveRoom(c, ref)
	if room == nil {
		return
	}
	if room.RoundPhase == nil || (*room.RoundPhase != phaseChoosingWord && *room.RoundPhase != phaseDrawing) {
		s.sendError(c, errWrongPhase)
		return
	}
	if room.CurrentDrawerID == nil || *room.CurrentDrawerID != c.userID {
		s.sendError(c, errNotYourTurn)
		return
	}
	if err := s.abortDrawerTurn(room, c.userID, "skipped"); err != nil {
		s.logPhaseEndError(room, err)
	}
}

// abortDrawerTurn cuts the current drawer's turn short, counts the skip
// and moves the rotation on. Three skips eliminate the drawer.
func (s *Server) abortDrawerTurn(room *db.Room, drawerID uint, reason string) error {
	oldPhase := *room.RoundPhase
	claimed, err := s.transitionPhase(room.ID, room.RoundPhase, map[string]any{
		"round_phase":          phaseProcessing,
		"current_word":         nil,
		"current_word_options": nil,
	})
	if err != nil || claimed == nil {
		return err
	}
	s.clock.Cancel(room.Code, oldPhase)
	participant, err := s.store.GetParticipant(room.ID, drawerID)
	if err == nil {
		skips := participant.SkipCount + 1
		if skips >= 3 {
			_ = s.store.RemoveParticipant(participant.ID)
			s.sessions.SetReady(room.ID, drawerID, false)
			s.hub.Broadcast(room.ID, evPlayerRemoved, playerRemovedPayload{
				UserID: drawerID,
				Reason: "too_many_skips",
			}, nil)
			log.Printf("drawer eliminated room=%s user=%d reason=too_many_skips", room.Code, drawerID)
		} else {
			_ = s.store.UpdateParticipant(participant.ID, map[string]any{"skip_count": skips})
		}
	}
	s.hub.Broadcast(room.ID, evDrawerSkipped, playerLeftPayload{UserID: drawerID, Reason: reason}, nil)
	return s.beginSelectingDrawer(claimed, ptr(phaseProcessing), nil)
}

type wordHintRequest struct {
	roomRef
	RevealedWord   string `json:"revealedWord"`
	HintsRemaining int    `json:"hintsRemaining"`
}

func (s *Server) handleWordHint(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req wordHintRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, req.roomRef)
	if room == nil {
		return
	}
	if room.RoundPhase == nil || *room.RoundPhase != phaseDrawing {
		s.sendError(c, errWrongPhase)
		return
	}
	if room.CurrentDrawerID == nil || *room.CurrentDrawerID != c.userID {
		s.sendError(c, errNotYourTurn)
		return
	}
	s.hub.Broadcast(room.ID, evWordHint, map[string]any{
		"revealedWord":   req.RevealedWord,
		"hintsRemaining": req.HintsRemaining,
	}, func(other *client) bool {
		return other == c
	})
}
