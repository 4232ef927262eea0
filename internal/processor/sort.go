package processor

import "slices"

// compareStart 没有开始时间的排在最后，其余按 startUnix 升序
func compareStart(a, b NormalizedEvent) int {
	switch {
	case a.StartUnix == nil && b.StartUnix == nil:
		return 0
	case a.StartUnix == nil:
		return 1
	case b.StartUnix == nil:
		return -1
	case *a.StartUnix < *b.StartUnix:
		return -1
	case *a.StartUnix > *b.StartUnix:
		return 1
	}
	return 0
}

// SortByStart 原地稳定排序
func SortByStart(events []NormalizedEvent) {
	slices.SortStableFunc(events, compareStart)
}

// SortByStartDesc 有开始时间的部分整体倒序，没有开始时间的保持在末尾
func SortByStartDesc(events []NormalizedEvent) {
	SortByStart(events)
	known := 0
	for known < len(events) && events[known].StartUnix != nil {
		known++
	}
	slices.Reverse(events[:known])
}
