package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"quickdraw/internal/db"

	"gorm.io/gorm"
)

// reportThreshold is the number of distinct reporters that turns a
// report into a strike.
const reportThreshold = 2

type reportRequest struct {
	RoomID       uint `json:"roomId"`
	TargetUserID uint `json:"targetUserId"`
}

func (s *Server) handleReport(c *client, data json.RawMessage, kind string) {
	if !s.requireAuth(c) {
		return
	}
	var req reportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, roomRef{RoomID: req.RoomID})
	if room == nil {
		return
	}
	reporter, err := s.store.GetParticipant(room.ID, c.userID)
	if err != nil || !reporter.IsActive {
		s.sendError(c, errRoomNotFound)
		return
	}
	target, err := s.store.GetParticipant(room.ID, req.TargetUserID)
	if err != nil {
		s.sendError(c, errRoomNotFound)
		return
	}

	var report db.Report
	err = s.db.Where("room_id = ? AND target_user_id = ? AND kind = ?", room.ID, req.TargetUserID, kind).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		report = db.Report{
			RoomID:       room.ID,
			TargetUserID: req.TargetUserID,
			Kind:         kind,
			Reporters:    toJSON([]uint{}),
		}
		if err := s.db.Create(&report).Error; err != nil && !isUniqueViolation(err) {
			return
		}
	} else if err != nil {
		return
	}

	reporters := uintsFromJSON(report.Reporters)
	if containsUint(reporters, c.userID) {
		return
	}
	reporters = append(reporters, c.userID)
	if len(reporters) < reportThreshold {
		_ = s.db.Model(&db.Report{}).Where("id = ?", report.ID).
			Update("reporters", toJSON(reporters)).Error
		return
	}

	strikes := report.StrikeCount + 1
	if err := s.db.Model(&db.Report{}).Where("id = ?", report.ID).Updates(map[string]any{
		"reporters":    toJSON([]uint{}),
		"strike_count": strikes,
	}).Error; err != nil {
		return
	}
	log.Printf("report strike room=%s target=%d kind=%s strikes=%d", room.Code, req.TargetUserID, kind, strikes)

	if kind == reportKindDrawing && strikes == 1 {
		// First strike cuts the reported drawer's turn short.
		if room.CurrentDrawerID != nil && *room.CurrentDrawerID == req.TargetUserID {
			if room.RoundPhase != nil && (*room.RoundPhase == phaseDrawing || *room.RoundPhase == phaseChoosingWord) {
				if err := s.abortDrawerTurn(room, req.TargetUserID, "reported"); err != nil {
					s.logPhaseEndError(room, err)
				}
			}
		}
		return
	}
	// Second drawing strike, or a user report, bans from this room only.
	s.banFromRoom(room, target)
}

func (s *Server) banFromRoom(room *db.Room, target *db.Participant) {
	now := time.Now().UTC()
	if err := s.store.UpdateParticipant(target.ID, map[string]any{
		"banned_at": now,
		"is_active": false,
		"is_drawer": false,
		"socket_id": nil,
	}); err != nil {
		return
	}
	s.sessions.SetReady(room.ID, target.UserID, false)
	s.sessions.CancelGrace(room.ID, target.UserID)
	if banned := s.sessions.Lookup(target.UserID); banned != nil {
		banned.send(evUserBanned, map[string]any{"roomId": room.ID})
		banned.forgetRoom(room.ID)
		s.hub.Remove(room.ID, banned)
	}
	s.hub.Broadcast(room.ID, evUserBannedFromRoom, map[string]any{"userId": target.UserID}, nil)
	log.Printf("user banned room=%s user=%d", room.Code, target.UserID)
	if room.Status == statusPlaying && room.CurrentDrawerID != nil && *room.CurrentDrawerID == target.UserID {
		s.onDrawerLeft(room)
	}
	s.afterParticipantLoss(room, target.UserID)
}
