package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDiscordEventsFetcherSendsBotToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"10","name":"Party","scheduled_start_time":"2026-01-01T20:00:00+00:00","entity_metadata":{"location":"Tallinn"},"image":"abc"}]`))
	}))
	defer srv.Close()

	f := NewDiscordEventsFetcher("777", "secret", srv.URL, time.Second, nil)
	events, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotAuth != "Bot secret" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "Bot secret")
	}
	if gotPath != "/guilds/777/scheduled-events" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID != "10" || ev.Name != "Party" || ev.Image != "abc" || ev.EntityMetadata.Location != "Tallinn" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDiscordEventsFetcherRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":1.5,"global":false}`))
	}))
	defer srv.Close()

	f := NewDiscordEventsFetcher("1", "t", srv.URL, time.Second, nil)
	_, err := f.Fetch(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if rl.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("RetryAfter = %s, want 1.5s", rl.RetryAfter)
	}
}

func TestDiscordEventsFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewDiscordEventsFetcher("1", "t", srv.URL, time.Second, nil)
	_, err := f.Fetch(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatalf("502 must not be reported as rate limited")
	}
}

func TestDiscordEventsFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := NewDiscordEventsFetcher("1", "t", srv.URL, 50*time.Millisecond, nil)
	_, err := f.Fetch(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable on timeout, got %v", err)
	}
}

func TestDecodeRawEventsSkipsBadRecords(t *testing.T) {
	body := []byte(`[
		{"id":"1","name":"ok","description":null,"scheduled_start_time":12345,"image":{"x":1}},
		"not an object",
		{"id":"2"},
		{"name":"no id"},
		{"id":3,"name":"numeric id","entity_metadata":"weird"}
	]`)

	events, err := DecodeRawEvents(body, nil)
	if err != nil {
		t.Fatalf("DecodeRawEvents error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d (%+v)", len(events), events)
	}
	if events[0].Description != "" || events[0].Image != "" {
		t.Fatalf("non-string optional fields should coerce to empty: %+v", events[0])
	}
	if events[0].ScheduledStartTime != "12345" {
		t.Fatalf("numeric start should be kept as text for later parsing: %q", events[0].ScheduledStartTime)
	}
	if events[1].ID != "3" || events[1].EntityMetadata.Location != "" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestDecodeRawEventsRejectsNonArray(t *testing.T) {
	if _, err := DecodeRawEvents([]byte(`{"message":"nope"}`), nil); err == nil {
		t.Fatalf("expected error for non-array body")
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{"body", "", `{"retry_after":2}`, 2 * time.Second},
		{"header", "3", ``, 3 * time.Second},
		{"capped", "", `{"retry_after":3600}`, maxRetryAfter},
		{"default", "", `garbage`, defaultRetryAfter},
	}
	for _, c := range cases {
		h := http.Header{}
		if c.header != "" {
			h.Set("Retry-After", c.header)
		}
		if got := parseRetryAfter(h, []byte(c.body)); got != c.want {
			t.Fatalf("%s: parseRetryAfter = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestMockEventsAreDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := MockEvents(now)
	b := MockEvents(now)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("expected two mock events")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("mock event %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
	if a[1].ScheduledEndTime != "" {
		t.Fatalf("second mock event should have no end time")
	}
}
