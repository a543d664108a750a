package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/lockard-llc/lockard-site/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

type mockSink struct {
	mu      sync.Mutex
	name    string
	events  []Event
	err     error
	panics  bool
	block   chan struct{}
	started chan struct{}
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Send(ctx context.Context, ev Event) error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	if m.panics {
		panic("sink exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockSink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

type mockFlags struct {
	mu     sync.Mutex
	values map[model.Key]bool
}

func (f *mockFlags) GetBool(key model.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v
	}
	return model.DefaultValue(key).Bool()
}

func flush(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Close(ctx); err != nil {
		t.Fatalf("unexpected error flushing: %v", err)
	}
}

func TestTrackAttachesTimestampAndSession(t *testing.T) {
	sink := &mockSink{name: "mock"}
	tr := NewTracker(sink, Options{})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	tr.Track(WithSession(context.Background(), "abc"), "cta_clicked", map[string]interface{}{"label": "hero"})
	tr.Track(context.Background(), "config_refreshed", nil)
	flush(t, tr)

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if first.SessionID != "abc" || first.Params["session_id"] != "abc" {
		t.Errorf("expected session abc, got %+v", first)
	}
	if first.Params["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp %v", first.Params["timestamp"])
	}
	if first.Params["label"] != "hero" {
		t.Errorf("expected params to be kept, got %v", first.Params)
	}
	if second := events[1]; second.SessionID != tr.ProcessSessionID() {
		t.Errorf("expected process session for background event, got %q", second.SessionID)
	}
}

func TestTrackDisabled(t *testing.T) {
	sink := &mockSink{name: "mock"}
	m := metrics.New()
	flags := &mockFlags{values: map[model.Key]bool{model.TrackUserInteractions: false}}
	tr := NewTracker(sink, Options{Flags: flags, Metrics: m})
	tr.Track(context.Background(), "page_view", nil)
	flush(t, tr)

	if len(sink.Events()) != 0 {
		t.Error("expected no events while tracking is disabled")
	}
	if got := testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("tracker", "disabled")); got != 1 {
		t.Errorf("expected 1 disabled event, got %v", got)
	}
}

func TestPerformanceEventGate(t *testing.T) {
	sink := &mockSink{name: "mock"}
	flags := &mockFlags{values: map[model.Key]bool{model.TrackPerformanceMetrics: false}}
	tr := NewTracker(sink, Options{Flags: flags})
	tr.Track(context.Background(), PerformanceEvent, map[string]interface{}{"page_load_time": 12})
	tr.Track(context.Background(), "page_view", nil)
	flush(t, tr)

	events := sink.Events()
	if len(events) != 1 || events[0].Name != "page_view" {
		t.Errorf("expected only page_view, got %+v", events)
	}
}

func TestRealtimeCopy(t *testing.T) {
	sink := &mockSink{name: "mock"}
	realtime := &mockSink{name: "realtime"}
	flags := &mockFlags{values: map[model.Key]bool{}}
	tr := NewTracker(sink, Options{Flags: flags, Realtime: realtime})

	tr.Track(context.Background(), "one", nil)
	flags.mu.Lock()
	flags.values[model.RealtimeAnalyticsEnabled] = false
	flags.mu.Unlock()
	tr.Track(context.Background(), "two", nil)
	flush(t, tr)

	if len(sink.Events()) != 2 {
		t.Errorf("expected 2 events on the main sink, got %d", len(sink.Events()))
	}
	if rt := realtime.Events(); len(rt) != 1 || rt[0].Name != "one" {
		t.Errorf("expected only the first event on the realtime sink, got %+v", rt)
	}
}

func TestSinkFailuresAreContained(t *testing.T) {
	m := metrics.New()
	failing := &mockSink{name: "failing", err: errors.New("unavailable")}
	panicking := &mockSink{name: "panicking", panics: true}

	tr := NewTracker(failing, Options{Metrics: m, Realtime: panicking})
	tr.Track(context.Background(), "page_view", nil)
	flush(t, tr)

	if got := testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("failing", "error")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("panicking", "panic")); got != 1 {
		t.Errorf("expected 1 panic, got %v", got)
	}
}

func TestTrackNeverBlocks(t *testing.T) {
	m := metrics.New()
	sink := &mockSink{name: "slow", block: make(chan struct{}), started: make(chan struct{}, 1)}
	tr := NewTracker(sink, Options{Metrics: m, BufferSize: 1})

	tr.Track(context.Background(), "first", nil)
	<-sink.started

	done := make(chan struct{})
	go func() {
		tr.Track(context.Background(), "second", nil)
		tr.Track(context.Background(), "third", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked on a full buffer")
	}

	if got := testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("tracker", "dropped")); got != 1 {
		t.Errorf("expected 1 dropped event, got %v", got)
	}
	sink.started = nil
	close(sink.block)
	flush(t, tr)
	if len(sink.Events()) != 2 {
		t.Errorf("expected 2 delivered events, got %d", len(sink.Events()))
	}
}

func TestSessionCookie(t *testing.T) {
	var seen string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	if !cookies[0].Expires.IsZero() || cookies[0].MaxAge != 0 {
		t.Error("session cookie must not carry an expiry")
	}
	if seen != cookies[0].Value {
		t.Errorf("expected context session %q, got %q", cookies[0].Value, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "existing"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != "existing" {
		t.Errorf("expected existing session, got %q", seen)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for an existing session")
	}
}

func TestMeasurementSink(t *testing.T) {
	var got measurementPayload
	var query string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	sink := NewMeasurementSink("G-TEST", "secret")
	sink.Endpoint = ts.URL + "/mp/collect"
	err := sink.Send(context.Background(), Event{
		Name:      "ai-content-insights",
		SessionID: "abc",
		Timestamp: time.Now(),
		Params:    map[string]interface{}{"k": "v"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "api_secret=secret&measurement_id=G-TEST" {
		t.Errorf("unexpected query %q", query)
	}
	if got.ClientID != "abc" || len(got.Events) != 1 || got.Events[0].Name != "ai_content_insights" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestMeasurementSinkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	sink := &MeasurementSink{Endpoint: ts.URL}
	if err := sink.Send(context.Background(), Event{Name: "x"}); err == nil {
		t.Error("expected an error for a rejected request")
	}
}

func TestMultiSink(t *testing.T) {
	a := &mockSink{name: "a"}
	b := &mockSink{name: "b", err: errors.New("boom")}
	err := MultiSink{a, b}.Send(context.Background(), Event{Name: "x"})
	var se *SinkError
	if !errors.As(err, &se) || se.Sink != "b" {
		t.Errorf("expected sink error from b, got %v", err)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Error("expected both sinks to receive the event")
	}
}

func TestRedisStreamSink(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	stream := "lockard:test:analytics"
	client.Del(ctx, stream)
	sink := &RedisStreamSink{Client: client, Stream: stream}
	if err := sink.Send(ctx, Event{Name: "page_view", SessionID: "abc", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Values["event_name"] != "page_view" {
		t.Errorf("unexpected stream contents %+v", msgs)
	}
	client.Del(ctx, stream)
}
