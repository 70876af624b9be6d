package server

import (
	"log"

	"quickdraw/internal/db"
)

// triggerCanvasResync asks the current drawer to serve a canvas snapshot
// to the joining or reconnecting socket. The drawer's socket is resolved
// at the moment of sending. A per-socket flag keyed by room enforces a
// single canvas request per resume, no matter how many events trip the
// same resync.
func (s *Server) triggerCanvasResync(room *db.Room, c *client) {
	if room.RoundPhase == nil || *room.RoundPhase != phaseDrawing || room.CurrentDrawerID == nil {
		return
	}
	if !c.markCanvasRequested(room.ID) {
		return
	}
	if *room.CurrentDrawerID == c.userID {
		// The drawer rejoined: its client holds the canvas, so it
		// serves everyone else instead.
		c.send(evRequestCanvasForAll, map[string]any{
			"roomCode": room.Code,
		})
		return
	}
	c.setResyncing(room.ID, true)
	drawer := s.sessions.Lookup(*room.CurrentDrawerID)
	if drawer == nil {
		c.setResyncing(room.ID, false)
		return
	}
	drawer.send(evRequestCanvas, map[string]any{
		"roomCode":       room.Code,
		"targetUserId":   c.userID,
		"targetSocketId": c.socketID,
	})
	log.Printf("canvas resync requested room=%s target=%d drawer=%d", room.Code, c.userID, *room.CurrentDrawerID)
}
