package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quickdraw/internal/db"

	"github.com/redis/go-redis/v9"
)

// roomCache keeps a short-TTL snapshot of hot room fields in Redis, keyed
// by id with a parallel code -> id index. Reads never fall through to the
// database; a miss just means the caller re-reads through the store.
type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newRoomCache(client *redis.Client, ttl time.Duration) *roomCache {
	return &roomCache{client: client, ttl: ttl}
}

func cacheKeyID(roomID uint) string {
	return fmt.Sprintf("room:id:%d", roomID)
}

func cacheKeyCode(code string) string {
	return fmt.Sprintf("room:code:%s", code)
}

func snapshotOf(room *db.Room, now time.Time) roomSnapshot {
	snap := roomSnapshot{
		ID:   room.ID,
		Code: room.Code,
	}
	if room.RoundPhase != nil {
		snap.RoundPhase = *room.RoundPhase
	}
	if room.RoundPhaseEndTime != nil {
		snap.RoundPhaseEndTime = room.RoundPhaseEndTime.UnixMilli()
		snap.RoundRemainingTime = remainingSeconds(*room.RoundPhaseEndTime, now)
	}
	return snap
}

func (c *roomCache) Refresh(ctx context.Context, room *db.Room) {
	if c == nil || c.client == nil || room == nil {
		return
	}
	snap := snapshotOf(room, time.Now().UTC())
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKeyID(room.ID), data, c.ttl).Err()
	_ = c.client.Set(ctx, cacheKeyCode(room.Code), fmt.Sprintf("%d", room.ID), c.ttl).Err()
}

func (c *roomCache) Get(ctx context.Context, roomID uint) (roomSnapshot, bool) {
	var snap roomSnapshot
	if c == nil || c.client == nil {
		return snap, false
	}
	data, err := c.client.Get(ctx, cacheKeyID(roomID)).Bytes()
	if err != nil {
		return snap, false
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false
	}
	return snap, true
}

func (c *roomCache) Invalidate(ctx context.Context, room *db.Room) {
	if c == nil || c.client == nil || room == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKeyID(room.ID), cacheKeyCode(room.Code)).Err()
}

// remainingSeconds is the client-visible remaining time for an active
// phase: max(0, ceil((end - now) / 1s)).
func remainingSeconds(end, now time.Time) int {
	diff := end.Sub(now)
	if diff <= 0 {
		return 0
	}
	secs := int(diff / time.Second)
	if diff%time.Second > 0 {
		secs++
	}
	return secs
}
