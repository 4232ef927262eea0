package processor

import "testing"

func ev(id string, start *int64) NormalizedEvent {
	return NormalizedEvent{ID: id, StartUnix: start}
}

func ms(v int64) *int64 { return &v }

func ids(events []NormalizedEvent) string {
	s := ""
	for _, e := range events {
		s += e.ID
	}
	return s
}

func TestSortByStartNullLastAndStable(t *testing.T) {
	events := []NormalizedEvent{
		ev("a", nil),
		ev("b", ms(30)),
		ev("c", ms(10)),
		ev("d", nil),
		ev("e", ms(10)),
	}
	SortByStart(events)
	if got := ids(events); got != "cebad" {
		t.Fatalf("order = %s, want cebad", got)
	}
}

func TestSortByStartDescKeepsUnknownLast(t *testing.T) {
	events := []NormalizedEvent{
		ev("x", nil),
		ev("a", ms(1)),
		ev("b", ms(2)),
		ev("c", ms(3)),
	}
	SortByStart(events)
	asc := ids(events)
	SortByStartDesc(events)
	desc := ids(events)

	if asc != "abcx" {
		t.Fatalf("asc = %s, want abcx", asc)
	}
	if desc != "cbax" {
		t.Fatalf("desc = %s, want cbax", desc)
	}
}
