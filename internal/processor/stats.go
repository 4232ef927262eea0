package processor

import (
	"encoding/json"
	"sync/atomic"
)

const (
	ActionGoing      = "going"
	ActionInterested = "interested"
)

// Stats 单个活动的 going / interested 计数，只增不减，进程内存活
type Stats struct {
	going      atomic.Int64
	interested atomic.Int64
}

type StatsSnapshot struct {
	Going      int64 `json:"going"`
	Interested int64 `json:"interested"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Going:      s.going.Load(),
		Interested: s.interested.Load(),
	}
}

// Incr 对 action 对应的计数加一；action 非法时不做任何修改并返回 false
func (s *Stats) Incr(action string) (StatsSnapshot, bool) {
	switch action {
	case ActionGoing:
		s.going.Add(1)
	case ActionInterested:
		s.interested.Add(1)
	default:
		return StatsSnapshot{}, false
	}
	return s.Snapshot(), true
}

func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// ValidAction 只接受 going / interested
func ValidAction(action string) bool {
	return action == ActionGoing || action == ActionInterested
}
