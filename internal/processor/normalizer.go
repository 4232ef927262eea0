package processor

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/collector"
)

type EventType string

const (
	TypeIRL     EventType = "irl"
	TypeVirtual EventType = "virtual"
	TypeRadio   EventType = "radio"
	TypeOther   EventType = "other"
)

// ParseEventType 大小写不敏感；未知值返回 false
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeIRL, TypeVirtual, TypeRadio, TypeOther:
		return t, true
	}
	return "", false
}

type StatusCode string

const (
	StatusUpcoming StatusCode = "upcoming"
	StatusLive     StatusCode = "live"
	StatusPast     StatusCode = "past"
)

type Status struct {
	Code  StatusCode `json:"code"`
	Label string     `json:"label"`
}

var (
	statusUpcoming = Status{Code: StatusUpcoming, Label: "Upcoming"}
	statusLive     = Status{Code: StatusLive, Label: "Live"}
	statusPast     = Status{Code: StatusPast, Label: "Past"}
)

type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// NormalizedEvent 是前端卡片直接消费的结构，字段名即对外协议
type NormalizedEvent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Image           *string   `json:"image"`
	Start           *string   `json:"start"`
	End             *string   `json:"end"`
	StartUnix       *int64    `json:"startUnix"`
	EndUnix         *int64    `json:"endUnix"`
	DurationMinutes *int64    `json:"durationMinutes"`
	Type            EventType `json:"type"`
	Location        *string   `json:"location"`
	Link            string    `json:"link"`
	Links           []Link    `json:"links"`
	Tags            []string  `json:"tags"`
	Status          Status    `json:"status"`
	Stats           *Stats    `json:"stats"`
}

// DefaultEventDuration 没有结束时间的活动按 3 小时计算
const DefaultEventDuration = 3 * time.Hour

// DefaultCDNBase Discord 资源 CDN
var DefaultCDNBase = discordgo.EndpointCDN

type Normalizer struct {
	CDNBase string
}

func NewNormalizer(cdnBase string) *Normalizer {
	if cdnBase == "" {
		cdnBase = DefaultCDNBase
	}
	return &Normalizer{CDNBase: cdnBase}
}

// Normalize 除读取传入的 stats 外没有副作用
func (n *Normalizer) Normalize(raw collector.RawEvent, stats *Stats, now time.Time) NormalizedEvent {
	links, tags := ExtractLinksTags(raw.Description)

	ev := NormalizedEvent{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Image:       n.resolveImage(raw.ID, raw.Image),
		Start:       optString(raw.ScheduledStartTime),
		End:         optString(raw.ScheduledEndTime),
		Type:        DetectType(raw.Name, raw.Description),
		Location:    optString(raw.EntityMetadata.Location),
		Link:        "#",
		Links:       links,
		Tags:        tags,
		Status:      ComputeStatus(raw.ScheduledStartTime, raw.ScheduledEndTime, now),
		Stats:       stats,
	}

	start, startOK := parseTime(raw.ScheduledStartTime)
	end, endOK := parseTime(raw.ScheduledEndTime)
	if startOK {
		ms := start.UnixMilli()
		ev.StartUnix = &ms
	}
	if endOK {
		ms := end.UnixMilli()
		ev.EndUnix = &ms
	}
	if startOK && endOK {
		mins := int64(math.Round(float64(end.UnixMilli()-start.UnixMilli()) / 60000))
		ev.DurationMinutes = &mins
	}
	return ev
}

// DetectType 按 #IRL > #VR/#VIRTUAL > #RADIO 的优先级判定类型，命中即返回
func DetectType(name, description string) EventType {
	text := strings.ToUpper(name + "\n" + description)

	switch {
	case strings.Contains(text, "#IRL"):
		return TypeIRL
	case strings.Contains(text, "#VR"), strings.Contains(text, "#VIRTUAL"):
		return TypeVirtual
	case strings.Contains(text, "#RADIO"):
		return TypeRadio
	}
	return TypeOther
}

var (
	// RE2 的 \S 只认 ASCII 空白，这里补上 NBSP 等 Unicode 空白
	urlPattern = regexp.MustCompile(`https?://[^\s\x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]+`)
	tagPattern = regexp.MustCompile(`#(\w+)`)
)

// 类型标记只参与分类，不出现在 tags 中
var typeMarkerTags = map[string]struct{}{
	"IRL":     {},
	"VR":      {},
	"VIRTUAL": {},
	"RADIO":   {},
}

// ExtractLinksTags 返回值永远非 nil，便于序列化成 []
func ExtractLinksTags(description string) ([]Link, []string) {
	links := make([]Link, 0)
	tags := make([]string, 0)
	if description == "" {
		return links, tags
	}

	for _, m := range urlPattern.FindAllString(description, -1) {
		links = append(links, Link{URL: m, Label: LabelForURL(m)})
	}

	for _, m := range tagPattern.FindAllStringSubmatch(description, -1) {
		tag := strings.ToUpper(m[1])
		if _, marker := typeMarkerTags[tag]; marker {
			continue
		}
		tags = append(tags, tag)
	}
	return links, tags
}

var platformLabels = []struct {
	hosts []string
	label string
}{
	{[]string{"youtube.com", "youtu.be"}, "YouTube"},
	{[]string{"twitch.tv"}, "Twitch"},
	{[]string{"spotify.com"}, "Spotify"},
	{[]string{"soundcloud.com"}, "SoundCloud"},
	{[]string{"mixcloud.com"}, "Mixcloud"},
	{[]string{"bandcamp.com"}, "Bandcamp"},
	{[]string{"tiktok.com"}, "TikTok"},
	{[]string{"facebook.com"}, "Facebook"},
	{[]string{"instagram.com"}, "Instagram"},
}

// 自家电台域名，另外任何包含 radio 的域名也归为 Radio
var radioHosts = []string{
	"hpsbassline.myftp.biz",
	"azura.hpsbassline.myftp.biz",
	"radio",
}

// LabelForURL 根据域名给链接起一个友好的名字；解析失败时返回 "Link"
func LabelForURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "Link"
	}
	host := strings.ToLower(u.Hostname())

	for _, p := range platformLabels {
		for _, h := range p.hosts {
			if strings.Contains(host, h) {
				return p.label
			}
		}
	}
	for _, h := range radioHosts {
		if strings.Contains(host, h) {
			return "Radio"
		}
	}
	return strings.TrimPrefix(host, "www.")
}

// ComputeStatus 没有开始时间或无法解析时一律视为 upcoming；区间两端都包含在 live 内
func ComputeStatus(startISO, endISO string, now time.Time) Status {
	start, ok := parseTime(startISO)
	if !ok {
		return statusUpcoming
	}

	end, ok := parseTime(endISO)
	if !ok {
		end = start.Add(DefaultEventDuration)
	}

	switch {
	case now.Before(start):
		return statusUpcoming
	case !now.After(end):
		return statusLive
	default:
		return statusPast
	}
}

func (n *Normalizer) resolveImage(eventID, image string) *string {
	if image == "" {
		return nil
	}
	if strings.HasPrefix(image, "http") {
		return &image
	}
	base := n.CDNBase
	if base == "" {
		base = DefaultCDNBase
	}
	u := strings.TrimRight(base, "/") + "/guild-events/" + eventID + "/" + image + ".webp?size=1024"
	return &u
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime 接受 ISO 8601 常见写法，不带时区的按 UTC 处理
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
