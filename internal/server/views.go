package server

import (
	"time"

	"quickdraw/internal/db"
)

func (s *Server) participantViews(room *db.Room) []participantView {
	participants, err := s.store.Participants(room.ID)
	if err != nil {
		return nil
	}
	views := make([]participantView, 0, len(participants))
	for _, p := range participants {
		if !p.IsActive {
			continue
		}
		views = append(views, s.viewOf(room, p))
	}
	return views
}

func (s *Server) viewOf(room *db.Room, p db.Participant) participantView {
	view := participantView{
		UserID:   p.UserID,
		IsDrawer: p.IsDrawer,
		Score:    p.Score,
		IsActive: p.IsActive,
		IsReady:  s.sessions.IsReady(room.ID, p.UserID),
		IsOwner:  p.UserID == room.OwnerID,
	}
	if p.Team != nil {
		view.Team = *p.Team
	}
	return view
}

func (s *Server) broadcastParticipants(room *db.Room) {
	s.hub.Broadcast(room.ID, evRoomParticipants, map[string]any{
		"participants": s.participantViews(room),
	}, nil)
}

func (s *Server) broadcastPhaseChange(room *db.Room) {
	if room.RoundPhase == nil || room.RoundPhaseEndTime == nil {
		return
	}
	now := time.Now().UTC()
	s.hub.Broadcast(room.ID, evPhaseChange, phaseChangePayload{
		Phase:        *room.RoundPhase,
		Duration:     remainingSeconds(*room.RoundPhaseEndTime, now),
		PhaseEndTime: room.RoundPhaseEndTime.UnixMilli(),
		Round:        room.CurrentRound,
	}, nil)
}

func (s *Server) broadcastDrawerSelected(room *db.Room, drawerID uint) {
	drawer, err := s.store.GetParticipant(room.ID, drawerID)
	if err != nil {
		return
	}
	view := s.viewOf(room, *drawer)
	view.IsDrawer = true
	s.hub.Broadcast(room.ID, evDrawerSelected, drawerSelectedPayload{
		Drawer:          view,
		PreviewDuration: s.cfg.SelectingDrawerSeconds,
	}, nil)
}

// roomPayload is the full room projection sent on join and resync. The
// word itself is only included for the drawer's own socket.
func (s *Server) roomPayload(room *db.Room, forUserID uint) map[string]any {
	payload := map[string]any{
		"id":           room.ID,
		"code":         room.Code,
		"ownerId":      room.OwnerID,
		"maxPlayers":   room.MaxPlayers,
		"isPublic":     room.IsPublic,
		"gameMode":     room.GameMode,
		"language":     room.Language,
		"script":       room.Script,
		"country":      room.Country,
		"category":     stringsFromJSON(room.Category),
		"entryPoints":  room.EntryPoints,
		"targetPoints": room.TargetPoints,
		"voiceEnabled": room.VoiceEnabled,
		"status":       room.Status,
		"currentRound": room.CurrentRound,
		"participants": s.participantViews(room),
	}
	if room.RoundPhase != nil {
		payload["roundPhase"] = *room.RoundPhase
	}
	if room.RoundPhaseEndTime != nil {
		payload["roundPhaseEndTime"] = room.RoundPhaseEndTime.UnixMilli()
		payload["roundRemainingTime"] = remainingSeconds(*room.RoundPhaseEndTime, time.Now().UTC())
	}
	if room.CurrentDrawerID != nil {
		payload["currentDrawerId"] = *room.CurrentDrawerID
	}
	if room.CurrentWord != nil && room.CurrentDrawerID != nil && forUserID == *room.CurrentDrawerID {
		payload["currentWord"] = *room.CurrentWord
	}
	return payload
}
