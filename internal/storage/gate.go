package storage

import (
	"context"
	"sync"
	"time"
)

// Gate 记录上游 429 给出的等待窗口，窗口内不再请求上游
type Gate interface {
	Closed(ctx context.Context) bool
	Close(ctx context.Context, d time.Duration)
}

// MemoryGate 单实例使用
type MemoryGate struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func NewMemoryGate(now func() time.Time) *MemoryGate {
	if now == nil {
		now = time.Now
	}
	return &MemoryGate{now: now}
}

func (g *MemoryGate) Closed(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.until)
}

func (g *MemoryGate) Close(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if until := g.now().Add(d); until.After(g.until) {
		g.until = until
	}
}
