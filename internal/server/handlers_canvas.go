package server

import (
	"encoding/json"

	"quickdraw/internal/db"
)

type drawingDataRequest struct {
	roomRef
	Strokes       json.RawMessage `json:"strokes"`
	IsFinished    bool            `json:"isFinished"`
	CanvasVersion int             `json:"canvasVersion"`
	Sequence      int64           `json:"sequence"`
}

// handleDrawingData relays drawer strokes to the room. Sockets still
// catching up through a resync are skipped; their snapshot will carry
// everything up to lastSequence and live deltas resume after resync_done.
func (s *Server) handleDrawingData(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req drawingDataRequest
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
	roomID := room.ID
	s.hub.Broadcast(roomID, evDrawingDataOut, map[string]any{
		"userId":        c.userID,
		"strokes":       req.Strokes,
		"isFinished":    req.IsFinished,
		"canvasVersion": req.CanvasVersion,
		"sequence":      req.Sequence,
	}, func(other *client) bool {
		return other == c || other.isResyncing(roomID)
	})
	c.send(evDrawingAck, map[string]any{"sequence": req.Sequence})
}

type clearCanvasRequest struct {
	roomRef
	CanvasVersion int `json:"canvasVersion"`
}

func (s *Server) handleClearCanvas(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req clearCanvasRequest
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
	s.hub.Broadcast(room.ID, evCanvasCleared, map[string]any{
		"canvasVersion": req.CanvasVersion + 1,
	}, nil)
}

type sendCanvasDataRequest struct {
	RoomCode       string          `json:"roomCode"`
	TargetUserID   uint            `json:"targetUserId"`
	TargetSocketID string          `json:"targetSocketId"`
	History        json.RawMessage `json:"history"`
	LastSequence   int64           `json:"lastSequence"`
	RemainingTime  int             `json:"remainingTime"`
}

// handleSendCanvasData forwards a drawer's snapshot reply to the
// resyncing socket, resolved through the live session map at send time.
func (s *Server) handleSendCanvasData(c *client, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req sendCanvasDataRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, roomRef{RoomCode: req.RoomCode})
	if room == nil {
		return
	}
	target := s.resolveTarget(room, req.TargetUserID, req.TargetSocketID)
	if target == nil {
		return
	}
	target.send(evCanvasResume, canvasResumePayload{
		History:       req.History,
		LastSequence:  req.LastSequence,
		RemainingTime: req.RemainingTime,
		Room:          s.roomPayload(room, target.userID),
	})
}

func (s *Server) resolveTarget(room *db.Room, targetUserID uint, targetSocketID string) *client {
	if targetUserID != 0 {
		return s.sessions.Lookup(targetUserID)
	}
	if targetSocketID == "" {
		return nil
	}
	for _, other := range s.hub.Clients(room.ID) {
		if other.socketID == targetSocketID {
			return other
		}
	}
	return nil
}

func (s *Server) handleResyncDone(c *client) {
	for _, roomID := range c.roomIDs() {
		c.setResyncing(roomID, false)
	}
}
