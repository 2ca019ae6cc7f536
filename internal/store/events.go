package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"nova/internal/model"
)

const (
	DefaultEventTime = "00:00"
	dateLayout       = "2006-01-02"
)

// DefaultScriptAgents are User-Agent fragments that mark an event as
// created by the voice loop rather than the web frontend.
var DefaultScriptAgents = []string{"nova-voice", "Python"}

// EventStore keeps calendar events in insertion order and mirrors the whole
// collection to a JSON array file after every mutation. Mirror writes run
// under the store lock, so they are applied in mutation order.
type EventStore struct {
	mu     sync.RWMutex
	events []model.CalendarEvent
	lastID int64
	dirty  bool

	path         string
	scriptAgents []string
	now          func() time.Time
}

// OpenEventStore seeds the store from the mirror at path, creating it as an
// empty array when absent.
func OpenEventStore(path string, scriptAgents []string) *EventStore {
	if scriptAgents == nil {
		scriptAgents = DefaultScriptAgents
	}

	s := &EventStore{
		events:       make([]model.CalendarEvent, 0),
		path:         path,
		scriptAgents: scriptAgents,
		now:          time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := writeFileAtomic(path, []byte("[]")); err != nil {
			log.Error("Failed to create calendar file", "path", path, "err", err)
		}
	case err != nil:
		log.Error("Error loading calendar events", "path", path, "err", err)
	default:
		var events []model.CalendarEvent
		if err := json.Unmarshal(data, &events); err != nil {
			log.Error("Error loading calendar events", "path", path, "err", err)
			break
		}
		if events != nil {
			s.events = events
		}
	}

	for _, ev := range s.events {
		if n, err := strconv.ParseInt(ev.ID, 10, 64); err == nil && n > s.lastID {
			s.lastID = n
		}
	}

	log.Info("Loaded calendar events", "count", len(s.events), "path", path)
	return s
}

// Add validates and stores a new event. userAgent decides the event source.
func (s *EventStore) Add(f model.EventFields, userAgent string) (model.CalendarEvent, error) {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Date) == "" {
		return model.CalendarEvent{}, invalid("Title and date are required")
	}

	now := s.now()

	date, err := NormalizeDate(f.Date, now)
	if err != nil {
		return model.CalendarEvent{}, err
	}

	ev := model.CalendarEvent{
		Title:       f.Title,
		Date:        date,
		Time:        f.Time,
		Description: f.Description,
		CreatedAt:   model.Timestamp(now),
		Source:      s.sourceOf(userAgent),
	}
	if ev.Time == "" {
		ev.Time = DefaultEventTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.nextIDLocked(now)
	s.events = append(s.events, ev)
	s.persistLocked()

	return ev, nil
}

// ListByMonth returns events dated in the given month (0-11) and year.
func (s *EventStore) ListByMonth(month, year int) []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CalendarEvent, 0)
	for _, ev := range s.events {
		t, err := EventDate(ev.Date)
		if err != nil {
			continue
		}
		if int(t.Month())-1 == month && t.Year() == year {
			out = append(out, ev)
		}
	}

	return out
}

// Delete removes the event with the given id, if any. Deleting an unknown
// id is not an error; the result only reports whether something was removed.
func (s *EventStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for i, ev := range s.events {
		if ev.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			removed = true
			break
		}
	}
	s.persistLocked()

	return removed
}

func (s *EventStore) All() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]model.CalendarEvent, 0, len(s.events)), s.events...)
}

// Dirty reports whether the last mirror write failed.
func (s *EventStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Resync rewrites the mirror if a previous write failed.
func (s *EventStore) Resync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.persistLocked(); err != nil {
		return err
	}

	log.Info("Calendar file resynced", "path", s.path, "count", len(s.events))
	return nil
}

func (s *EventStore) persistLocked() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err == nil {
		err = writeFileAtomic(s.path, data)
	}
	if err != nil {
		s.dirty = true
		log.Error("Error writing calendar file", "path", s.path, "err", err)
		return fmt.Errorf("write calendar mirror: %w", err)
	}

	s.dirty = false
	return nil
}

// nextIDLocked derives an id from the wall clock in milliseconds and bumps
// it past the last issued id when two adds land in the same millisecond.
func (s *EventStore) nextIDLocked(now time.Time) string {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *EventStore) sourceOf(userAgent string) string {
	for _, token := range s.scriptAgents {
		if token != "" && strings.Contains(userAgent, token) {
			return model.SourceExternalScript
		}
	}
	return model.SourceFrontend
}

// NormalizeDate turns "YYYY-M-D", "YY-M-D", "M-D" or an ISO date-time into
// "YYYY-MM-DD". A missing or short year becomes the year of now. Dates that
// do not exist on the calendar are rejected.
func NormalizeDate(raw string, now time.Time) (string, error) {
	d := strings.TrimSpace(raw)
	if i := strings.IndexByte(d, 'T'); i >= 0 {
		d = d[:i]
	}

	var year, month, day string
	parts := strings.Split(d, "-")
	switch len(parts) {
	case 3:
		year, month, day = parts[0], parts[1], parts[2]
	case 2:
		month, day = parts[0], parts[1]
	default:
		return "", invalid("Invalid date %q, expected YYYY-MM-DD", raw)
	}

	y := now.Year()
	switch {
	case year != "" && !isDigits(year), len(year) > 4:
		return "", invalid("Invalid year in date %q", raw)
	case len(year) == 4:
		y, _ = strconv.Atoi(year)
	}

	m, err := strconv.Atoi(month)
	if err != nil || !isDigits(month) || m < 1 || m > 12 {
		return "", invalid("Invalid month in date %q", raw)
	}
	dd, err := strconv.Atoi(day)
	if err != nil || !isDigits(day) || dd < 1 || dd > 31 {
		return "", invalid("Invalid day in date %q", raw)
	}

	out := fmt.Sprintf("%04d-%02d-%02d", y, m, dd)
	if _, err := time.Parse(dateLayout, out); err != nil {
		return "", invalid("Invalid date %q, no such day", raw)
	}

	return out, nil
}

// EventDate reads a stored date. Mirrors written by older servers may hold
// unpadded dates or full ISO date-times.
func EventDate(raw string) (time.Time, error) {
	d := strings.TrimSpace(raw)
	if i := strings.IndexByte(d, 'T'); i >= 0 {
		d = d[:i]
	}
	return time.Parse("2006-1-2", d)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
