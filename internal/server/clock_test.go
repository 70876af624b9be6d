package server

import (
	"testing"
	"time"

	"quickdraw/internal/config"
)

func TestPhaseClockFiresAtAbsoluteTime(t *testing.T) {
	clock := newPhaseClock()
	fired := make(chan struct{}, 1)
	clock.Schedule("ABCDE", phaseDrawing, time.Now().Add(10*time.Millisecond), func() {
		fired <- struct{}{}
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestPhaseClockOverdueFiresImmediately(t *testing.T) {
	clock := newPhaseClock()
	fired := make(chan struct{}, 1)
	clock.Schedule("ABCDE", phaseDrawing, time.Now().Add(-time.Minute), func() {
		fired <- struct{}{}
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("overdue timer should fire immediately")
	}
}

func TestPhaseClockRescheduleReplacesTimer(t *testing.T) {
	clock := newPhaseClock()
	fired := make(chan string, 2)
	clock.Schedule("ABCDE", phaseDrawing, time.Now().Add(20*time.Millisecond), func() {
		fired <- "first"
	})
	clock.Schedule("ABCDE", phaseDrawing, time.Now().Add(40*time.Millisecond), func() {
		fired <- "second"
	})
	select {
	case which := <-fired:
		if which != "second" {
			t.Fatalf("replaced timer fired: %s", which)
		}
	case <-time.After(time.Second):
		t.Fatal("rescheduled timer never fired")
	}
	select {
	case which := <-fired:
		t.Fatalf("extra fire: %s", which)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPhaseClockCancelRoomStopsAllPhases(t *testing.T) {
	clock := newPhaseClock()
	fired := make(chan struct{}, 3)
	for _, phase := range []string{phaseDrawing, phaseReveal, timerLobbyIdle} {
		clock.Schedule("ABCDE", phase, time.Now().Add(20*time.Millisecond), func() {
			fired <- struct{}{}
		})
	}
	clock.Schedule("OTHER", phaseDrawing, time.Now().Add(20*time.Millisecond), func() {
		fired <- struct{}{}
	})
	clock.CancelRoom("ABCDE")
	select {
	case <-fired:
		// Only OTHER remains.
	case <-time.After(time.Second):
		t.Fatal("unaffected room's timer never fired")
	}
	select {
	case <-fired:
		t.Fatal("cancelled room timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPhaseJitterDeterministic(t *testing.T) {
	s := &Server{cfg: config.Default()}
	first := s.phaseJitter(1234)
	second := s.phaseJitter(1234)
	if first != second {
		t.Fatalf("jitter not deterministic: %v vs %v", first, second)
	}
	limit := time.Duration(s.cfg.PhaseJitterMs) * time.Millisecond
	for _, roomID := range []uint{0, 1, 249, 250, 9999} {
		if j := s.phaseJitter(roomID); j < 0 || j >= limit {
			t.Fatalf("jitter %v out of range for room %d", j, roomID)
		}
	}
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want int
	}{
		{now.Add(50 * time.Second), 50},
		{now.Add(49*time.Second + 100*time.Millisecond), 50},
		{now, 0},
		{now.Add(-10 * time.Second), 0},
		{now.Add(500 * time.Millisecond), 1},
	}
	for _, tc := range cases {
		if got := remainingSeconds(tc.end, now); got != tc.want {
			t.Fatalf("remainingSeconds(%v) = %d, want %d", tc.end, got, tc.want)
		}
	}
}
