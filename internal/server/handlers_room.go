package server

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"quickdraw/internal/db"

	"gorm.io/gorm"
)

type roomRef struct {
	RoomID   uint   `json:"roomId"`
	RoomCode string `json:"roomCode"`
}

func (s *Server) resolveRoom(c *client, ref roomRef) *db.Room {
	var room *db.Room
	var err error
	switch {
	case ref.RoomID != 0:
		room, err = s.store.GetRoom(ref.RoomID)
	case ref.RoomCode != "":
		room, err = s.store.FindRoomByCode(strings.ToUpper(strings.TrimSpace(ref.RoomCode)))
	default:
		err = gorm.ErrRecordNotFound
	}
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return nil
	}
	return room
}

type joinRoomRequest struct {
	roomRef
	Team *string `json:"team"`
}

func (s *Server) handleJoinRoom(c *client, data json.RawMessage) {
	if !s.joinGate.Load() {
		s.sendError(c, errServerSyncing)
		return
	}
	if !s.requireAuth(c) {
		return
	}
	var req joinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	room := s.resolveRoom(c, req.roomRef)
	if room == nil {
		return
	}
	if !s.sessions.TryJoinLock(room.ID, c.userID, c.socketID, 2*time.Second) {
		return
	}
	defer s.sessions.ReleaseJoinLock(room.ID, c.userID)

	var team *string
	if room.GameMode == modeTeam && req.Team != nil {
		if *req.Team != teamBlue && *req.Team != teamOrange {
			s.sendError(c, errInvalidTeam)
			return
		}
		team = req.Team
	}

	participant, err := s.store.GetParticipant(room.ID, c.userID)
	switch {
	case err == nil:
		if participant.BannedAt != nil {
			s.sendError(c, errYouAreBanned)
			return
		}
		if !participant.IsActive && room.Status == statusPlaying {
			// Grace already expired; the seat is gone.
			c.send(evExitedInactivity, map[string]any{"roomId": room.ID})
			s.sendError(c, errExitedDueToInactivity)
			return
		}
		if participant.IsActive && participant.SocketID != nil && *participant.SocketID == c.socketID {
			// Idempotent rejoin from the same socket: state to the
			// sender only, no broadcasts.
			c.send(evRoomJoined, s.roomPayload(room, c.userID))
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		participant, _, err = s.store.JoinRoom(room.ID, c.userID, team)
		if err != nil {
			switch {
			case errors.Is(err, errStoreRoomFull):
				s.sendError(c, errRoomFull)
			case errors.Is(err, errStoreBanned):
				s.sendError(c, errYouAreBanned)
			case errors.Is(err, errStoreClosed):
				s.sendError(c, errRoomClosed)
			default:
				s.sendError(c, errRoomNotFound)
			}
			return
		}
	default:
		s.sendError(c, errRoomNotFound)
		return
	}

	s.sessions.CancelGrace(room.ID, c.userID)
	if err := s.store.UpdateParticipant(participant.ID, map[string]any{
		"socket_id": c.socketID,
		"is_active": true,
	}); err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	s.hub.Add(room.ID, c)
	c.trackRoom(room.ID)

	c.send(evRoomJoined, s.roomPayload(room, c.userID))
	s.broadcastParticipants(room)
	s.hub.Broadcast(room.ID, evPlayerJoined, map[string]any{"userId": c.userID}, func(other *client) bool {
		return other == c
	})
	log.Printf("player joined room=%s user=%d socket=%s", room.Code, c.userID, c.socketID)

	if c.userID == room.OwnerID {
		s.armLobbyIdleTimer(room)
	}
	if room.Status == statusPlaying && room.RoundPhase != nil && *room.RoundPhase == phaseDrawing {
		s.triggerCanvasResync(room, c)
	}
}

func (s *Server) handleLeaveRoom(c *client, data json.RawMessage) {
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
	if c.userID == room.OwnerID {
		s.deleteRoom(room, "owner_left")
		return
	}
	participant, err := s.store.GetParticipant(room.ID, c.userID)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	s.sessions.CancelGrace(room.ID, c.userID)
	s.sessions.SetReady(room.ID, c.userID, false)
	_ = s.store.UpdateParticipant(participant.ID, map[string]any{
		"is_active": false,
		"is_drawer": false,
		"socket_id": nil,
	})
	s.hub.Remove(room.ID, c)
	c.forgetRoom(room.ID)
	s.hub.Broadcast(room.ID, evPlayerLeft, playerLeftPayload{UserID: c.userID, Reason: "left"}, nil)
	log.Printf("player left room=%s user=%d", room.Code, c.userID)
	s.afterParticipantLoss(room, c.userID)
}

type settingsRequest struct {
	RoomID   uint `json:"roomId"`
	Settings struct {
		Language     *string   `json:"language"`
		Script       *string   `json:"script"`
		Country      *string   `json:"country"`
		Category     *[]string `json:"category"`
		EntryPoints  *int      `json:"entryPoints"`
		TargetPoints *int      `json:"targetPoints"`
		VoiceEnabled *bool     `json:"voiceEnabled"`
		MaxPlayers   *int      `json:"maxPlayers"`
		IsPublic     *bool     `json:"isPublic"`
		GameMode     *string   `json:"gameMode"`
	} `json:"settings"`
}

func (s *Server) handleUpdateSettings(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req settingsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, roomRef{RoomID: req.RoomID})
	if room == nil {
		return
	}
	if c.userID != room.OwnerID {
		s.sendError(c, errOnlyOwnerCanUpdate)
		return
	}
	if room.Status != statusLobby && room.Status != statusWaiting {
		s.sendError(c, errCannotUpdateAfterStart)
		return
	}

	updates := map[string]any{}
	in := req.Settings
	if in.Language != nil {
		updates["language"] = *in.Language
	}
	if in.Script != nil {
		updates["script"] = *in.Script
	}
	if in.Country != nil {
		updates["country"] = *in.Country
	}
	if in.Category != nil {
		updates["category"] = toJSON(*in.Category)
	}
	if in.EntryPoints != nil {
		updates["entry_points"] = *in.EntryPoints
	}
	if in.TargetPoints != nil {
		updates["target_points"] = *in.TargetPoints
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if in.GameMode != nil {
		if *in.GameMode != modeSolo && *in.GameMode != modeTeam {
			s.sendError(c, errNotTeamMode)
			return
		}
		updates["game_mode"] = *in.GameMode
	}
	if in.MaxPlayers != nil {
		if *in.MaxPlayers < 2 || *in.MaxPlayers > 15 {
			s.sendError(c, errInvalidMaxPlayers)
			return
		}
		updates["max_players"] = *in.MaxPlayers
	}
	if in.VoiceEnabled != nil && *in.VoiceEnabled && !room.VoiceEnabled {
		participants, err := s.store.ActiveParticipants(room.ID)
		if err != nil {
			s.sendError(c, errRoomNotFound)
			return
		}
		if err := s.chargeVoiceFee(room.ID, participants, s.cfg.VoiceCostPoints); err != nil {
			if errors.Is(err, errWalletInsufficient) {
				s.sendError(c, errInsufficientCoins)
				s.hub.Broadcast(room.ID, evError, errorPayload{Message: errInsufficientCoins}, nil)
				return
			}
			s.sendError(c, errRoomNotFound)
			return
		}
		updates["voice_enabled"] = true
	} else if in.VoiceEnabled != nil {
		updates["voice_enabled"] = *in.VoiceEnabled
	}

	updated, err := s.store.UpdateRoom(room.ID, updates)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	// The broadcast is the commit point: once it is out, later failures
	// in follow-up work never surface as an error for this update.
	s.hub.Broadcast(room.ID, evSettingsUpdated, s.roomPayload(updated, 0), nil)
	log.Printf("settings updated room=%s by=%d", room.Code, c.userID)
}

type selectTeamRequest struct {
	RoomID uint   `json:"roomId"`
	Team   string `json:"team"`
}

func (s *Server) handleSelectTeam(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req selectTeamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, roomRef{RoomID: req.RoomID})
	if room == nil {
		return
	}
	if room.GameMode != modeTeam {
		s.sendError(c, errNotTeamMode)
		return
	}
	if room.Status != statusLobby && room.Status != statusWaiting {
		s.sendError(c, errCannotChangeTeamAfterStart)
		return
	}
	if req.Team != teamBlue && req.Team != teamOrange {
		s.sendError(c, errInvalidTeam)
		return
	}
	participant, err := s.store.GetParticipant(room.ID, c.userID)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	if err := s.store.UpdateParticipant(participant.ID, map[string]any{"team": req.Team}); err != nil {
		return
	}
	s.broadcastParticipants(room)
}

func (s *Server) handleSetReady(c *client, data json.RawMessage, ready bool) {
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
	if _, err := s.store.GetParticipant(room.ID, c.userID); err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	s.sessions.SetReady(room.ID, c.userID, ready)
	s.broadcastParticipants(room)
}

type removeParticipantRequest struct {
	RoomID uint `json:"roomId"`
	UserID uint `json:"userId"`
}

func (s *Server) handleRemoveParticipant(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req removeParticipantRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, roomRef{RoomID: req.RoomID})
	if room == nil {
		return
	}
	if c.userID != room.OwnerID {
		s.sendError(c, errOnlyOwnerCanRemove)
		return
	}
	if room.Status == statusPlaying {
		s.sendError(c, errCannotRemoveDuringGame)
		return
	}
	if req.UserID == c.userID {
		s.sendError(c, errCannotRemoveSelf)
		return
	}
	participant, err := s.store.GetParticipant(room.ID, req.UserID)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}
	_ = s.store.RemoveParticipant(participant.ID)
	s.sessions.SetReady(room.ID, req.UserID, false)
	s.sessions.CancelGrace(room.ID, req.UserID)
	if removed := s.sessions.Lookup(req.UserID); removed != nil {
		removed.send(evPlayerRemoved, playerRemovedPayload{UserID: req.UserID, Reason: "removed_by_owner"})
		removed.forgetRoom(room.ID)
		s.hub.Remove(room.ID, removed)
	}
	s.hub.Broadcast(room.ID, evPlayerRemoved, playerRemovedPayload{
		UserID: req.UserID,
		Reason: "removed_by_owner",
	}, nil)
	s.broadcastParticipants(room)
}

func (s *Server) handleContinueWaiting(c *client, data json.RawMessage) {
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
		s.sendError(c, errOnlyOwnerCanContinue)
		return
	}
	s.clock.Cancel(room.Code, timerLobbyResponse)
	s.armLobbyIdleTimer(room)
}

type chatRequest struct {
	roomRef
	Content string `json:"content"`
}

func (s *Server) handleChatMessage(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return
	}
	room := s.resolveRoom(c, req.roomRef)
	if room == nil {
		return
	}
	participant, err := s.store.GetParticipant(room.ID, c.userID)
	if err != nil || !participant.IsActive {
		s.sendError(c, errRoomNotFound)
		return
	}
	now := time.Now().UTC()
	message := db.Message{RoomID: room.ID, UserID: c.userID, Content: content, CreatedAt: now}
	if err := s.db.Create(&message).Error; err != nil {
		log.Printf("chat persist failed room=%s user=%d error=%v", room.Code, c.userID, err)
	}
	s.hub.Broadcast(room.ID, evChatMessageOut, chatMessagePayload{
		UserID:  c.userID,
		Content: content,
		SentAt:  now.UnixMilli(),
	}, nil)
}
