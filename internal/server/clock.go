package server

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"quickdraw/internal/db"
)

// phaseClock owns the per-room single-shot timers, keyed (roomCode, phase).
// Timers fire at the persisted absolute end time; the wall clock, not the
// process, is authoritative.
type phaseClock struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newPhaseClock() *phaseClock {
	return &phaseClock{timers: make(map[string]*time.Timer)}
}

func timerKey(code, phase string) string {
	return code + "|" + phase
}

func (pc *phaseClock) Schedule(code, phase string, fireAt time.Time, fn func()) {
	key := timerKey(code, phase)
	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	pc.mu.Lock()
	if existing, ok := pc.timers[key]; ok {
		existing.Stop()
	}
	pc.timers[key] = time.AfterFunc(delay, func() {
		pc.mu.Lock()
		delete(pc.timers, key)
		pc.mu.Unlock()
		fn()
	})
	pc.mu.Unlock()
}

func (pc *phaseClock) Cancel(code, phase string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	key := timerKey(code, phase)
	if timer, ok := pc.timers[key]; ok {
		timer.Stop()
		delete(pc.timers, key)
	}
}

// CancelRoom stops every phase timer for the room.
func (pc *phaseClock) CancelRoom(code string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	prefix := code + "|"
	for key, timer := range pc.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(pc.timers, key)
		}
	}
}

// phaseJitter spreads mass expirations by a small deterministic offset
// derived from the room id.
func (s *Server) phaseJitter(roomID uint) time.Duration {
	if s.cfg.PhaseJitterMs <= 0 {
		return 0
	}
	return time.Duration(roomID%uint(s.cfg.PhaseJitterMs)) * time.Millisecond
}

// schedulePhaseEnd arms the timer for the room's current phase at its
// persisted absolute end time.
func (s *Server) schedulePhaseEnd(room *db.Room) {
	if room.RoundPhase == nil || room.RoundPhaseEndTime == nil {
		return
	}
	phase := *room.RoundPhase
	fireAt := room.RoundPhaseEndTime.Add(s.phaseJitter(room.ID))
	roomID, code := room.ID, room.Code
	s.clock.Schedule(code, phase, fireAt, func() {
		s.onPhaseTimer(roomID, code, phase)
	})
}

// onPhaseTimer guards against stale fires: first against the cached
// snapshot, then against a fresh read. A timer whose phase has already
// moved on exits without acting.
func (s *Server) onPhaseTimer(roomID uint, code, phase string) {
	ctx := context.Background()
	if snap, ok := s.cache.Get(ctx, roomID); ok && snap.RoundPhase != phase {
		return
	}
	room, err := s.store.GetRoom(roomID)
	if err != nil {
		log.Printf("phase timer read failed room=%s phase=%s error=%v", code, phase, err)
		return
	}
	if room.RoundPhase == nil || *room.RoundPhase != phase {
		return
	}
	if err := s.dispatchPhaseEnd(room, phase); err != nil {
		log.Printf("phase end handler failed room=%s phase=%s error=%v", code, phase, err)
		s.recoverStuckRoom(roomID)
	}
}

func (s *Server) dispatchPhaseEnd(room *db.Room, phase string) error {
	switch phase {
	case phaseSelectingDrawer:
		return s.endSelectingDrawer(room)
	case phaseChoosingWord:
		return s.onChooseWordTimeout(room)
	case phaseDrawing:
		return s.endDrawing(room, endReasonTimeout)
	case phaseReveal:
		return s.endReveal(room)
	case phaseInterval:
		return s.endInterval(room)
	case phaseIntervalEnding:
		return s.backToLobby(room)
	}
	return nil
}

// recoverStuckRoom pushes a room whose callback failed towards the next
// drawer selection instead of leaving it wedged in a dead phase.
func (s *Server) recoverStuckRoom(roomID uint) {
	room, err := s.store.GetRoom(roomID)
	if err != nil || room.Status != statusPlaying {
		return
	}
	if err := s.beginSelectingDrawer(room, room.RoundPhase, nil); err != nil {
		log.Printf("stuck room recovery failed room=%s error=%v", room.Code, err)
	}
}

// rebuildTimers scans playing rooms, and finished rooms still in their
// post-game pause, on startup and reschedules every timed phase, firing
// overdue ones immediately. New joins are gated until
// the sweep completes.
func (s *Server) rebuildTimers() error {
	var rooms []db.Room
	err := s.db.Where("status IN ? AND round_phase IN ?",
		[]string{statusPlaying, statusFinished}, timedPhases).Find(&rooms).Error
	if err != nil {
		return err
	}
	for i := range rooms {
		room := rooms[i]
		if room.RoundPhaseEndTime == nil {
			continue
		}
		s.cache.Refresh(context.Background(), &room)
		s.schedulePhaseEnd(&room)
		log.Printf("phase timer rebuilt room=%s phase=%s end=%s",
			room.Code, *room.RoundPhase, room.RoundPhaseEndTime.Format(time.RFC3339))
	}

	// Rooms that died inside the processing sentinel have no timer to
	// rebuild; push them straight to the next drawer selection.
	var stuck []db.Room
	err = s.db.Where("status = ? AND round_phase = ?", statusPlaying, phaseProcessing).Find(&stuck).Error
	if err != nil {
		return err
	}
	for i := range stuck {
		room := stuck[i]
		if err := s.beginSelectingDrawer(&room, ptr(phaseProcessing), nil); err != nil {
			log.Printf("stuck room rebuild failed room=%s error=%v", room.Code, err)
		}
	}
	return nil
}
