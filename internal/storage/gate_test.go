package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMemoryGate(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	g := NewMemoryGate(clock.Now)
	ctx := context.Background()

	if g.Closed(ctx) {
		t.Fatalf("new gate should be open")
	}
	g.Close(ctx, 10*time.Second)
	if !g.Closed(ctx) {
		t.Fatalf("gate should be closed right after Close")
	}

	// 更短的窗口不会缩短已有窗口
	g.Close(ctx, time.Second)
	clock.Advance(5 * time.Second)
	if !g.Closed(ctx) {
		t.Fatalf("shorter Close must not shrink the window")
	}

	clock.Advance(5 * time.Second)
	if g.Closed(ctx) {
		t.Fatalf("gate should reopen once the window has passed")
	}
}

// 需要本地 Redis：REDIS_ADDR=localhost:6379 go test ./internal/storage/
func TestRedisGate(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	g := NewRedisGate(addr, nil)
	g.Key = "guild_events:test:" + time.Now().Format("150405.000000")
	defer g.Shutdown()
	ctx := context.Background()

	if g.Closed(ctx) {
		t.Fatalf("new gate should be open")
	}
	g.Close(ctx, 300*time.Millisecond)
	if !g.Closed(ctx) {
		t.Fatalf("gate should be closed right after Close")
	}

	// 更短的窗口不会缩短已有窗口
	g.Close(ctx, 10*time.Millisecond)
	if ttl := g.Redis.PTTL(ctx, g.Key).Val(); ttl < 100*time.Millisecond {
		t.Fatalf("shorter Close shrank the window to %s", ttl)
	}

	time.Sleep(400 * time.Millisecond)
	if g.Closed(ctx) {
		t.Fatalf("gate should reopen after expiry")
	}
}
