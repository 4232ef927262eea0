package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/collector"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/metrics"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/processor"
)

var (
	// ErrNoCache 上游失败且缓存从未被填充过
	ErrNoCache = errors.New("no cached events available")
	// ErrInvalidAction interest action 不是 going / interested
	ErrInvalidAction = errors.New("invalid action")
)

// DefaultTTL 缓存有效期，用来挡住上游限流
const DefaultTTL = 60 * time.Second

// Source 标识一次 Fetch 的数据来自哪条路径
type Source string

const (
	SourceFresh  Source = "fresh"
	SourceCached Source = "cached"
	SourceStale  Source = "stale"
	SourceMock   Source = "mock"
)

type Result struct {
	Events []processor.NormalizedEvent
	Source Source
	// Reason 仅在 SourceStale 时非空
	Reason    error
	FetchedAt time.Time
}

type Options struct {
	TTL        time.Duration
	Normalizer *processor.Normalizer
	// Gate 为空时不记录上游限流窗口
	Gate    Gate
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// EventStore 持有唯一的缓存槽与各活动的计数器，启动时构造一次并注入各 handler
type EventStore struct {
	fetcher    collector.Fetcher
	ttl        time.Duration
	normalizer *processor.Normalizer
	gate       Gate
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	cached   []processor.NormalizedEvent
	cachedAt time.Time
	stats    map[string]*processor.Stats
}

// NewEventStore fetcher 为 nil 表示未配置上游凭据，Fetch 将返回 mock 数据
func NewEventStore(fetcher collector.Fetcher, opts Options) *EventStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Normalizer == nil {
		opts.Normalizer = processor.NewNormalizer("")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EventStore{
		fetcher:    fetcher,
		ttl:        opts.TTL,
		normalizer: opts.Normalizer,
		gate:       opts.Gate,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		now:        opts.Now,
		stats:      make(map[string]*processor.Stats),
	}
}

func (s *EventStore) MockMode() bool {
	return s.fetcher == nil
}

// Fetch 返回按开始时间升序排列的活动列表。
// 429（或限流窗口未结束）且已有缓存时返回旧缓存，其它上游错误直接返回给调用方。
func (s *EventStore) Fetch(ctx context.Context, force bool) (Result, error) {
	now := s.now()

	if s.fetcher == nil {
		s.log.Debug("no upstream credentials, using mock data")
		s.metrics.Fetch(string(SourceMock))
		return Result{
			Events:    s.normalizeAll(collector.MockEvents(now), now),
			Source:    SourceMock,
			FetchedAt: now,
		}, nil
	}

	if !force {
		s.mu.Lock()
		cached, at := s.cached, s.cachedAt
		s.mu.Unlock()
		if cached != nil && now.Sub(at) < s.ttl {
			s.metrics.Fetch(string(SourceCached))
			return Result{Events: cached, Source: SourceCached, FetchedAt: at}, nil
		}
	}

	if s.gate != nil && s.gate.Closed(ctx) {
		s.metrics.Upstream("skipped")
		return s.rateLimited(collector.ErrRateLimited)
	}

	// 并发的缓存未命中共用一次上游请求；客户端断开不取消这次请求
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		if errors.Is(err, collector.ErrRateLimited) {
			return s.rateLimited(err)
		}
		s.metrics.Fetch("failed")
		return Result{}, err
	}
	s.metrics.Fetch(string(SourceFresh))
	return v.(Result), nil
}

func (s *EventStore) refresh(ctx context.Context) (Result, error) {
	raws, err := s.fetcher.Fetch(ctx)
	if err != nil {
		var rl *collector.RateLimitError
		switch {
		case errors.As(err, &rl):
			s.metrics.Upstream("rate_limited")
			if s.gate != nil {
				s.gate.Close(ctx, rl.RetryAfter)
			}
		case errors.Is(err, collector.ErrRateLimited):
			s.metrics.Upstream("rate_limited")
		default:
			s.metrics.Upstream("error")
		}
		return Result{}, err
	}
	s.metrics.Upstream("ok")

	now := s.now()
	events := s.normalizeAll(raws, now)

	s.mu.Lock()
	s.cached = events
	s.cachedAt = now
	s.mu.Unlock()

	s.metrics.CachedEvents(len(events))
	s.log.Info("events cache refreshed", zap.String("source", s.fetcher.Name()), zap.Int("count", len(events)))
	return Result{Events: events, Source: SourceFresh, FetchedAt: now}, nil
}

func (s *EventStore) rateLimited(cause error) (Result, error) {
	if cached, at, ok := s.snapshot(); ok {
		s.log.Warn("upstream rate limited, returning cached events",
			zap.Error(cause), zap.Duration("age", s.now().Sub(at)))
		s.metrics.Fetch(string(SourceStale))
		return Result{Events: cached, Source: SourceStale, Reason: cause, FetchedAt: at}, nil
	}
	s.metrics.Fetch("failed")
	return Result{}, fmt.Errorf("%w: %w", ErrNoCache, cause)
}

// Snapshot 返回缓存槽中的列表（不论是否过期），从未填充过时 ok 为 false
func (s *EventStore) Snapshot() ([]processor.NormalizedEvent, bool) {
	events, _, ok := s.snapshot()
	return events, ok
}

func (s *EventStore) snapshot() ([]processor.NormalizedEvent, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached, s.cachedAt, s.cached != nil
}

// Stats 首次访问时创建零值计数器，之后同一 id 始终返回同一个指针
func (s *EventStore) Stats(id string) *processor.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[id]
	if !ok {
		st = &processor.Stats{}
		s.stats[id] = st
	}
	return st
}

// RecordInterest 对应计数加一并返回最新值；不校验活动是否存在，也不做去重
func (s *EventStore) RecordInterest(id, action string) (processor.StatsSnapshot, error) {
	if !processor.ValidAction(action) {
		return processor.StatsSnapshot{}, ErrInvalidAction
	}
	snap, _ := s.Stats(id).Incr(action)
	s.metrics.Interest(action)
	return snap, nil
}

func (s *EventStore) normalizeAll(raws []collector.RawEvent, now time.Time) []processor.NormalizedEvent {
	out := make([]processor.NormalizedEvent, 0, len(raws))
	for _, raw := range raws {
		out = append(out, s.normalizer.Normalize(raw, s.Stats(raw.ID), now))
	}
	processor.SortByStart(out)
	return out
}
