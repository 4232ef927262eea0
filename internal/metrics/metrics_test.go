package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Upstream("ok")
	m.Fetch("fresh")
	m.Interest("going")
	m.CachedEvents(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`guild_events_upstream_requests_total{result="ok"} 1`,
		`guild_events_fetch_total{source="fresh"} 1`,
		`guild_events_interest_total{action="going"} 1`,
		`guild_events_cached_events 4`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Upstream("ok")
	m.Fetch("fresh")
	m.Interest("going")
	m.CachedEvents(1)
}

func TestNewTwiceDoesNotPanic(t *testing.T) {
	_ = New()
	_ = New()
}
