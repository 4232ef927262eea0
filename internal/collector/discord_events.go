package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	discordMaxResponseBytes = 4 << 20 // 4MB
	discordClientTimeout    = 10 * time.Second
)

// DefaultDiscordAPIBase Discord REST v10 入口
var DefaultDiscordAPIBase = discordgo.EndpointDiscord + "api/v10"

// DiscordEventsFetcher 通过 Bot token 拉取某个 guild 的 scheduled events
type DiscordEventsFetcher struct {
	GuildID string
	Token   string
	// BaseURL 为空时使用 DefaultDiscordAPIBase，测试中指向 httptest server
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// NewDiscordEventsFetcher timeout <= 0 时使用 10s
func NewDiscordEventsFetcher(guildID, token, baseURL string, timeout time.Duration, log *zap.Logger) *DiscordEventsFetcher {
	if timeout <= 0 {
		timeout = discordClientTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DiscordEventsFetcher{
		GuildID: guildID,
		Token:   token,
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Logger:  log,
	}
}

func (d *DiscordEventsFetcher) Name() string {
	return "discord_scheduled_events"
}

func (d *DiscordEventsFetcher) endpoint() string {
	base := d.BaseURL
	if base == "" {
		base = DefaultDiscordAPIBase
	}
	return strings.TrimRight(base, "/") + "/guilds/" + url.PathEscape(d.GuildID) + "/scheduled-events"
}

func (d *DiscordEventsFetcher) Fetch(ctx context.Context) ([]RawEvent, error) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: discordClientTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: %w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, discordMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("discord: %w: read body: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rl := &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header, body),
			Body:       string(body),
		}
		log.Warn("discord API rate limited",
			zap.Duration("retry_after", rl.RetryAfter),
			zap.String("body", truncate(rl.Body, 256)))
		return nil, rl
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("discord API error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 256)))
		return nil, fmt.Errorf("discord: %w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	events, err := DecodeRawEvents(body, log)
	if err != nil {
		return nil, fmt.Errorf("discord: %w: %v", ErrUpstreamUnavailable, err)
	}
	return events, nil
}

// rawEventWire 宽松解码：可选字段类型不对时按缺省处理，不影响整批
type rawEventWire struct {
	ID                 json.RawMessage `json:"id"`
	Name               json.RawMessage `json:"name"`
	Description        json.RawMessage `json:"description"`
	ScheduledStartTime json.RawMessage `json:"scheduled_start_time"`
	ScheduledEndTime   json.RawMessage `json:"scheduled_end_time"`
	EntityMetadata     json.RawMessage `json:"entity_metadata"`
	Image              json.RawMessage `json:"image"`
}

// DecodeRawEvents 只有顶层不是 JSON 数组时才返回错误；单条记录损坏或缺少 id/name 会被跳过
func DecodeRawEvents(body []byte, log *zap.Logger) ([]RawEvent, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}

	out := make([]RawEvent, 0, len(items))
	for i, item := range items {
		ev, ok := decodeRawEvent(item)
		if !ok {
			log.Warn("skip malformed event record", zap.Int("index", i))
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func decodeRawEvent(item json.RawMessage) (RawEvent, bool) {
	var w rawEventWire
	if err := json.Unmarshal(item, &w); err != nil {
		return RawEvent{}, false
	}

	ev := RawEvent{
		ID:                 jsonString(w.ID),
		Name:               jsonString(w.Name),
		Description:        jsonString(w.Description),
		ScheduledStartTime: jsonString(w.ScheduledStartTime),
		ScheduledEndTime:   jsonString(w.ScheduledEndTime),
		Image:              jsonString(w.Image),
	}
	if ev.ID == "" || ev.Name == "" {
		return RawEvent{}, false
	}

	var meta struct {
		Location json.RawMessage `json:"location"`
	}
	if len(w.EntityMetadata) > 0 && json.Unmarshal(w.EntityMetadata, &meta) == nil {
		ev.EntityMetadata.Location = jsonString(meta.Location)
	}
	return ev, true
}

// jsonString 字符串原样返回，数字转成十进制文本，其它类型（含 null）返回空串
func jsonString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

const (
	defaultRetryAfter = 5 * time.Second
	maxRetryAfter     = 60 * time.Second
)

// parseRetryAfter 优先读取 body 中的 retry_after（秒，可为小数），其次读 Retry-After 头
func parseRetryAfter(h http.Header, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return clampRetryAfter(time.Duration(payload.RetryAfter * float64(time.Second)))
	}
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return clampRetryAfter(time.Duration(secs * float64(time.Second)))
		}
	}
	return defaultRetryAfter
}

func clampRetryAfter(d time.Duration) time.Duration {
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
