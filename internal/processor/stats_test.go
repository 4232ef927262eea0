package processor

import (
	"sync"
	"testing"
)

func TestStatsIncr(t *testing.T) {
	s := &Stats{}
	for i := 0; i < 3; i++ {
		if _, ok := s.Incr(ActionGoing); !ok {
			t.Fatalf("going should be accepted")
		}
	}
	snap, ok := s.Incr(ActionInterested)
	if !ok {
		t.Fatalf("interested should be accepted")
	}
	if snap.Going != 3 || snap.Interested != 1 {
		t.Fatalf("snapshot = %+v, want {3 1}", snap)
	}

	if _, ok := s.Incr("maybe"); ok {
		t.Fatalf("unknown action should be rejected")
	}
	if got := s.Snapshot(); got.Going != 3 || got.Interested != 1 {
		t.Fatalf("rejected action must not mutate counters: %+v", got)
	}
}

func TestStatsConcurrentIncr(t *testing.T) {
	s := &Stats{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Incr(ActionGoing)
		}()
	}
	wg.Wait()
	if got := s.Snapshot().Going; got != 50 {
		t.Fatalf("going = %d, want 50", got)
	}
}

func TestNilStatsSnapshot(t *testing.T) {
	var s *Stats
	if got := s.Snapshot(); got != (StatsSnapshot{}) {
		t.Fatalf("nil stats snapshot = %+v", got)
	}
}
