package server

import (
	"testing"
	"time"
)

func testClient(userID uint) *client {
	return &client{
		socketID:        newSocketID(),
		userID:          userID,
		rooms:           make(map[uint]struct{}),
		resyncing:       make(map[uint]bool),
		canvasRequested: make(map[uint]bool),
	}
}

func TestRegisterEvictsPreviousSession(t *testing.T) {
	registry := newSessionRegistry()
	first := testClient(7)
	second := testClient(7)

	if evicted := registry.Register(7, first); evicted != nil {
		t.Fatalf("first register evicted %v", evicted)
	}
	evicted := registry.Register(7, second)
	if evicted != first {
		t.Fatal("expected the first socket to be evicted")
	}
	if registry.Lookup(7) != second {
		t.Fatal("second socket should be current")
	}
}

func TestUnregisterOnlyClearsMatchingSocket(t *testing.T) {
	registry := newSessionRegistry()
	old := testClient(7)
	registry.Register(7, old)
	fresh := testClient(7)
	registry.Register(7, fresh)

	// A late disconnect of the old socket must not evict the new one.
	if registry.Unregister(7, old.socketID) {
		t.Fatal("stale socket should not clear the entry")
	}
	if registry.Lookup(7) != fresh {
		t.Fatal("fresh socket lost its registration")
	}
	if !registry.Unregister(7, fresh.socketID) {
		t.Fatal("matching socket should clear the entry")
	}
	if registry.Lookup(7) != nil {
		t.Fatal("entry should be gone")
	}
}

func TestJoinLockRejectsSameSocketAllowsReconnect(t *testing.T) {
	registry := newSessionRegistry()
	if !registry.TryJoinLock(1, 7, "sock-a", time.Second) {
		t.Fatal("first join should acquire the lock")
	}
	if registry.TryJoinLock(1, 7, "sock-a", time.Second) {
		t.Fatal("duplicate join from the same socket should be rejected")
	}
	if !registry.TryJoinLock(1, 7, "sock-b", time.Second) {
		t.Fatal("a new connection must win the lock")
	}
	registry.ReleaseJoinLock(1, 7)
	if !registry.TryJoinLock(1, 7, "sock-a", time.Second) {
		t.Fatal("released lock should be acquirable again")
	}
}

func TestJoinLockExpires(t *testing.T) {
	registry := newSessionRegistry()
	if !registry.TryJoinLock(1, 7, "sock-a", 10*time.Millisecond) {
		t.Fatal("first join should acquire the lock")
	}
	time.Sleep(20 * time.Millisecond)
	if !registry.TryJoinLock(1, 7, "sock-a", time.Second) {
		t.Fatal("expired lock should fall to the same socket")
	}
}

func TestGraceTimerFiresAndCancels(t *testing.T) {
	registry := newSessionRegistry()
	fired := make(chan struct{}, 1)
	registry.ArmGrace(1, 7, 10*time.Millisecond, func() {
		fired <- struct{}{}
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("grace timer never fired")
	}

	registry.ArmGrace(1, 7, 20*time.Millisecond, func() {
		fired <- struct{}{}
	})
	if !registry.CancelGrace(1, 7) {
		t.Fatal("expected a pending timer to cancel")
	}
	select {
	case <-fired:
		t.Fatal("cancelled grace timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestReadySetLifecycle(t *testing.T) {
	registry := newSessionRegistry()
	registry.SetReady(1, 7, true)
	registry.SetReady(1, 8, true)
	if !registry.IsReady(1, 7) || !registry.IsReady(1, 8) {
		t.Fatal("both users should be ready")
	}
	registry.SetReady(1, 7, false)
	if registry.IsReady(1, 7) {
		t.Fatal("user 7 should not be ready")
	}
	registry.ClearRoomReady(1)
	if registry.IsReady(1, 8) {
		t.Fatal("ready set should be cleared on game start")
	}
}
