package api

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/processor"
)

const sortStartDesc = "start_desc"

// Query 是 /api/events 的过滤条件，成功路径和降级路径共用同一个 Apply
type Query struct {
	Type   string
	Status string
	Sort   string
	// Limit <= 0 表示不截断
	Limit int
	Force bool
}

func ParseQuery(v url.Values) Query {
	q := Query{
		Type:   strings.ToLower(strings.TrimSpace(v.Get("type"))),
		Status: strings.ToLower(strings.TrimSpace(v.Get("status"))),
		Sort:   strings.ToLower(strings.TrimSpace(v.Get("sort"))),
		Force:  v.Get("force") == "1",
	}
	if n, ok := parseLeadingInt(v.Get("limit")); ok && n > 0 {
		q.Limit = n
	}
	return q
}

// parseLeadingInt 只取开头的整数部分："2abc" -> 2，"1.5" -> 1，与浏览器端 parseInt 一致
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseQueryString 解析 "type=irl&limit=5" 形式的字符串，供命令行使用
func ParseQueryString(raw string) (Query, error) {
	v, err := url.ParseQuery(raw)
	if err != nil {
		return Query{}, err
	}
	return ParseQuery(v), nil
}

// Apply 不修改传入的切片（它可能就是缓存槽本身）
func (q Query) Apply(events []processor.NormalizedEvent) []processor.NormalizedEvent {
	out := make([]processor.NormalizedEvent, 0, len(events))
	for _, e := range events {
		if q.Type != "" && string(e.Type) != q.Type {
			continue
		}
		if !q.matchStatus(e.Status.Code) {
			continue
		}
		out = append(out, e)
	}

	if q.Sort == sortStartDesc {
		processor.SortByStartDesc(out)
	} else {
		processor.SortByStart(out)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = slices.Clip(out[:q.Limit])
	}
	return out
}

// matchStatus 未指定或非法的 status 默认排除已结束的活动
func (q Query) matchStatus(code processor.StatusCode) bool {
	switch processor.StatusCode(q.Status) {
	case processor.StatusLive, processor.StatusUpcoming, processor.StatusPast:
		return code == processor.StatusCode(q.Status)
	}
	return code != processor.StatusPast
}
