package server

import (
	"context"
	"log"
	"time"

	"quickdraw/internal/db"
)

const (
	timerLobbyIdle     = "lobby_timeout"
	timerLobbyResponse = "lobby_response"
)

func (s *Server) logPhaseEndError(room *db.Room, err error) {
	if err == nil {
		return
	}
	log.Printf("round end failed room=%s error=%v", room.Code, err)
}

// armLobbyIdleTimer starts (or restarts) the idle countdown for a room
// sitting in lobby.
func (s *Server) armLobbyIdleTimer(room *db.Room) {
	if room.Status != statusLobby && room.Status != statusWaiting {
		return
	}
	roomID := room.ID
	fireAt := time.Now().Add(seconds(s.cfg.LobbyTimeoutSeconds))
	s.clock.Schedule(room.Code, timerLobbyIdle, fireAt, func() {
		s.onLobbyIdle(roomID)
	})
}

func (s *Server) onLobbyIdle(roomID uint) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return
	}
	if room.Status != statusLobby && room.Status != statusWaiting {
		return
	}
	owner := s.sessions.Lookup(room.OwnerID)
	if owner == nil {
		s.deleteRoom(room, "lobby_timeout")
		return
	}
	owner.send(evLobbyTimeExceeded, map[string]any{
		"responseSeconds": s.cfg.LobbyResponseSeconds,
	})
	fireAt := time.Now().Add(seconds(s.cfg.LobbyResponseSeconds))
	s.clock.Schedule(room.Code, timerLobbyResponse, fireAt, func() {
		s.onLobbyResponseTimeout(roomID)
	})
}

func (s *Server) onLobbyResponseTimeout(roomID uint) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return
	}
	if room.Status != statusLobby && room.Status != statusWaiting {
		return
	}
	s.deleteRoom(room, "lobby_timeout")
}

// deleteRoom tears a room down completely: timers, sockets, cache and
// rows.
func (s *Server) deleteRoom(room *db.Room, reason string) {
	s.clock.CancelRoom(room.Code)
	s.hub.Broadcast(room.ID, evRoomClosed, map[string]any{"reason": reason}, nil)
	for _, c := range s.hub.Clients(room.ID) {
		c.forgetRoom(room.ID)
		s.hub.Remove(room.ID, c)
	}
	s.sessions.ClearRoomReady(room.ID)
	s.cache.Invalidate(context.Background(), room)
	if err := s.store.DeleteRoom(room.ID); err != nil {
		log.Printf("room delete failed room=%s error=%v", room.Code, err)
		return
	}
	log.Printf("room deleted room=%s reason=%s", room.Code, reason)
}

// onGraceExpired fires when a disconnected participant never came back
// inside the grace window.
func (s *Server) onGraceExpired(roomID, userID uint) {
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		return
	}
	participant, err := s.store.GetParticipant(roomID, userID)
	if err != nil || !participant.IsActive {
		return
	}
	if participant.SocketID != nil {
		// Reconnected; the mark must not happen.
		return
	}
	if err := s.store.UpdateParticipant(participant.ID, map[string]any{
		"is_active": false,
		"is_drawer": false,
	}); err != nil {
		return
	}
	s.sessions.SetReady(roomID, userID, false)
	s.hub.Broadcast(roomID, evPlayerLeft, playerLeftPayload{
		UserID: userID,
		Reason: "grace_expired",
	}, nil)
	log.Printf("participant timed out room=%s user=%d", room.Code, userID)
	if userID == room.OwnerID {
		s.deleteRoom(room, "owner_left")
		return
	}
	s.afterParticipantLoss(room, userID)
}

// afterParticipantLoss runs the population checks every departure path
// funnels into.
func (s *Server) afterParticipantLoss(room *db.Room, leftUserID uint) {
	participants, err := s.store.ActiveParticipants(room.ID)
	if err != nil {
		return
	}
	if len(participants) == 0 {
		s.deleteRoom(room, "empty")
		return
	}
	if room.Status == statusPlaying {
		if !hasEnoughPlayers(room.GameMode, participants) {
			if err := s.endGameInsufficient(room, room.RoundPhase); err != nil {
				s.logPhaseEndError(room, err)
			}
			return
		}
		if room.CurrentDrawerID != nil && *room.CurrentDrawerID == leftUserID {
			s.onDrawerLeft(room)
		}
	}
	s.broadcastParticipants(room)
}

// onDrawerLeft clears the drawer and word state mid-round and enters the
// interval so the next round starts cleanly.
func (s *Server) onDrawerLeft(room *db.Room) {
	if room.RoundPhase == nil {
		return
	}
	oldPhase := *room.RoundPhase
	end := timeNowUTC().Add(seconds(s.cfg.IntervalSeconds))
	updated, err := s.transitionPhase(room.ID, room.RoundPhase, map[string]any{
		"round_phase":          phaseInterval,
		"round_phase_end_time": end,
		"current_word":         nil,
		"current_word_options": nil,
		"current_drawer_id":    nil,
	})
	if err != nil || updated == nil {
		return
	}
	s.clock.Cancel(room.Code, oldPhase)
	s.schedulePhaseEnd(updated)
	s.broadcastPhaseChange(updated)
}

// startupSweep reaps participants orphaned by a crash: still marked
// active but with no socket bound. Affected rooms get the empty-room
// check.
func (s *Server) startupSweep() error {
	var orphans []db.Participant
	err := s.db.Where("socket_id IS NULL AND is_active = ?", true).Find(&orphans).Error
	if err != nil {
		return err
	}
	affected := map[uint]struct{}{}
	for _, p := range orphans {
		if err := s.store.UpdateParticipant(p.ID, map[string]any{
			"is_active": false,
			"is_drawer": false,
		}); err != nil {
			continue
		}
		affected[p.RoomID] = struct{}{}
	}
	for roomID := range affected {
		room, err := s.store.GetRoom(roomID)
		if err != nil {
			continue
		}
		active, err := s.store.ActiveParticipants(roomID)
		if err != nil {
			continue
		}
		if len(active) == 0 {
			s.deleteRoom(room, "startup_sweep")
		}
	}
	log.Printf("startup sweep complete orphans=%d rooms=%d", len(orphans), len(affected))
	return nil
}
