package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/gorilla/websocket"

	"nova/internal/hub"
	"nova/internal/model"
	"nova/internal/store"
)

type fakeStreams struct {
	streams []model.StreamSummary
	err     error
}

func (f fakeStreams) LiveStreams(context.Context) ([]model.StreamSummary, error) {
	return f.streams, f.err
}

type testEnv struct {
	srv    *Server
	logs   *store.LogStore
	events *store.EventStore
	status *store.StatusRegister
}

func newTestEnv(t *testing.T, streams StreamLookup) testEnv {
	t.Helper()
	dir := t.TempDir()

	logs := store.OpenLogStore(filepath.Join(dir, "nova-log.json"))
	t.Cleanup(logs.Close)

	env := testEnv{
		logs:   logs,
		events: store.OpenEventStore(filepath.Join(dir, "calendar-events.json"), nil),
		status: store.NewStatusRegister(),
	}
	env.srv = New(Deps{
		Logs:    env.logs,
		Events:  env.events,
		Status:  env.status,
		Hub:     hub.New(),
		Streams: streams,
	})
	return env
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON body: %v\nraw: %s", err, rec.Body.String())
	}
	return v
}

func TestLogDataAppendsEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	rec := do(t, h, http.MethodPost, "/log-data",
		`{"command":"What is the Weather in Oslo","who_is_talking":"Nova","response":"Cold","is_user_talking":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]string](t, rec); got["message"] != "Log received." {
		t.Errorf("unexpected body %v", got)
	}

	rec = do(t, h, http.MethodGet, "/logs", "")
	logs := decode[[]model.LogEntry](t, rec)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	e := logs[0]
	if !e.IsWeather || e.WhoIsTalking != "Nova" || e.Response == nil || *e.Response != "Cold" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Timestamp == "" {
		t.Error("expected default timestamp")
	}
}

func TestLogDataRejectsNonStringSpeaker(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	for _, body := range []string{
		`{"command":"hello","who_is_talking":42,"is_user_talking":true}`,
		`{"command":"hello","is_user_talking":true}`,
		`{"who_is_talking":"User"}`,
		`{"command":"hello","who_is_talking":"User","is_user_talking":"yes"}`,
		`{"command":"hello","who_is_talking":"User","timestamp":1741168800000}`,
		`not json`,
	} {
		rec := do(t, h, http.MethodPost, "/log-data", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
		if got := decode[map[string]string](t, rec); got["error"] == "" {
			t.Errorf("%s: expected error body, got %v", body, got)
		}
	}

	if n := env.logs.Len(); n != 0 {
		t.Errorf("rejected requests must not mutate the log, got %d entries", n)
	}
}

func TestLogsEmptyIsArray(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv.Handler(), http.MethodGet, "/logs", "")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestStatusLastWriteWins(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	for _, s := range []string{"listening", "idle"} {
		rec := do(t, h, http.MethodPost, "/status", `{"status":"`+s+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	got := decode[model.StatusRecord](t, do(t, h, http.MethodGet, "/status", ""))
	if got.Status != "idle" || got.Timestamp == "" {
		t.Errorf("expected idle status, got %+v", got)
	}
}

func TestStatusMissingField(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv.Handler(), http.MethodPost, "/status", `{"timestamp":"now"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != "Missing status field" {
		t.Errorf("unexpected body %v", got)
	}
	if env.status.Get().Status != "offline" {
		t.Error("status must be unchanged")
	}
}

func TestAddCalendarEventNormalizes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv.Handler(), http.MethodPost, "/calendar-events", `{"title":"Standup","date":"2025-3-5"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	body := decode[struct {
		Message string              `json:"message"`
		Event   model.CalendarEvent `json:"event"`
	}](t, rec)
	if body.Message != "Event added successfully" {
		t.Errorf("unexpected message %q", body.Message)
	}
	ev := body.Event
	if ev.Date != "2025-03-05" || ev.Time != "00:00" || ev.Description != "" || ev.ID == "" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestAddCalendarEventAlias(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv.Handler(), http.MethodPost, "/add-calendar-event",
		`{"title":"Dentist","date":"2025-04-02","time":"14:30"}`, "User-Agent", "python-requests/2.31 Python")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	all := env.events.All()
	if len(all) != 1 || all[0].Source != model.SourceExternalScript || all[0].Time != "14:30" {
		t.Errorf("unexpected stored events %+v", all)
	}
}

func TestAddCalendarEventValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	rec := do(t, h, http.MethodPost, "/calendar-events", `{"title":"No date"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != "Title and date are required" {
		t.Errorf("unexpected body %v", got)
	}

	for _, date := range []string{"someday", "2025-02-31", "20250-3-5"} {
		rec = do(t, h, http.MethodPost, "/calendar-events", `{"title":"Bad","date":"`+date+`"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for date %q, got %d", date, rec.Code)
		}
	}
	if n := len(env.events.All()); n != 0 {
		t.Errorf("expected no stored events, got %d", n)
	}
}

func TestListCalendarEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	for _, d := range []string{"2025-03-05", "2025-04-01", "2025-03-28"} {
		do(t, h, http.MethodPost, "/calendar-events", `{"title":"t","date":"`+d+`"}`)
	}

	rec := do(t, h, http.MethodGet, "/calendar-events?month=2&year=2025", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	events := decode[[]model.CalendarEvent](t, rec)
	if len(events) != 2 || events[0].Date != "2025-03-05" || events[1].Date != "2025-03-28" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestListCalendarEventsRequiresParams(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	rec := do(t, h, http.MethodGet, "/calendar-events?year=2025", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != "Month and year are required" {
		t.Errorf("unexpected body %v", got)
	}

	rec = do(t, h, http.MethodGet, "/calendar-events?month=march&year=2025", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric month, got %d", rec.Code)
	}
}

func TestDeleteCalendarEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.srv.Handler()

	ev, err := env.events.Add(model.EventFields{Title: "Gone", Date: "2025-03-05"}, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"unknown", ev.ID} {
		rec := do(t, h, http.MethodDelete, "/calendar-events/"+id, "")
		if rec.Code != http.StatusOK {
			t.Errorf("delete %s: expected 200, got %d", id, rec.Code)
		}
	}
	if n := len(env.events.All()); n != 0 {
		t.Errorf("expected empty calendar, got %d", n)
	}
}

func TestTwitchStream(t *testing.T) {
	live := []model.StreamSummary{{IsLive: true, StreamerName: "Alpha", GameName: "Celeste", ViewerCount: 3}}
	env := newTestEnv(t, fakeStreams{streams: live})

	rec := do(t, env.srv.Handler(), http.MethodGet, "/twitch-stream", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[[]model.StreamSummary](t, rec)
	if len(got) != 1 || got[0] != live[0] {
		t.Errorf("unexpected streams %+v", got)
	}

	failing := newTestEnv(t, fakeStreams{err: errors.New("token rejected")})
	rec = do(t, failing.srv.Handler(), http.MethodGet, "/twitch-stream", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != "Error fetching stream data" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv.Handler(), http.MethodGet, "/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id")
	}

	rec = do(t, env.srv.Handler(), http.MethodGet, "/health", "", "X-Request-ID", "abc")
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestCalendarICS(t *testing.T) {
	env := newTestEnv(t, nil)
	env.events.Add(model.EventFields{Title: "Standup", Date: "2025-03-05", Time: "09:15", Description: "daily"}, "")
	env.events.Add(model.EventFields{Title: "Review", Date: "2025-03-06"}, "")

	rec := do(t, env.srv.Handler(), http.MethodGet, "/calendar.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %s", ct)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(rec.Body.String()))
	if err != nil {
		t.Fatal(err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 VEVENTs, got %d", len(events))
	}
	if got := events[0].GetProperty(ical.ComponentPropertySummary).Value; got != "Standup" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestWebSocketFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first model.Envelope
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Kind != model.KindStatus || first.Status.Status != "offline" {
		t.Errorf("expected initial status envelope, got %+v", first)
	}

	resp, err := http.Post(ts.URL+"/status", "application/json", strings.NewReader(`{"status":"listening"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	var next model.Envelope
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatal(err)
	}
	if next.Kind != model.KindStatus || next.Status.Status != "listening" {
		t.Errorf("expected status update envelope, got %+v", next)
	}
}
