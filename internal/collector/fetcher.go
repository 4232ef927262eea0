package collector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited 上游返回 429
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrUpstreamUnavailable 其它非 2xx 状态或网络错误
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// RawEvent 上游 scheduled event 的原始结构，除 id/name 外均可缺省
type RawEvent struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	ScheduledStartTime string         `json:"scheduled_start_time,omitempty"`
	ScheduledEndTime   string         `json:"scheduled_end_time,omitempty"`
	EntityMetadata     EntityMetadata `json:"entity_metadata"`
	// Image 可能是完整 URL，也可能是 CDN 资源 hash
	Image string `json:"image,omitempty"`
}

type EntityMetadata struct {
	Location string `json:"location,omitempty"`
}

// Fetcher 抽象上游事件源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]RawEvent, error)
}

// RateLimitError 携带上游建议的等待时间，errors.Is(err, ErrRateLimited) 为 true
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
