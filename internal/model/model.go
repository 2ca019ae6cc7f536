package model

import "time"

// TimestampLayout renders timestamps the way browsers render Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ForecastDay is one day of a weather forecast attached to a log entry.
type ForecastDay struct {
	Date         string  `json:"date"`
	Condition    string  `json:"condition"`
	MaxTempC     float64 `json:"max_temp_c"`
	MinTempC     float64 `json:"min_temp_c"`
	ChanceOfRain int     `json:"chance_of_rain"`
}

// LogEntry is a single interaction record. Keys match the files written by
// earlier versions of the server so old logs replay unchanged.
type LogEntry struct {
	Command       string        `json:"command"`
	WhoIsTalking  string        `json:"who_is_talking"`
	Response      *string       `json:"response,omitempty"`
	IsUserTalking bool          `json:"is_user_talking"`
	Timestamp     string        `json:"timestamp"`
	IsWeather     bool          `json:"isWeather"`
	Forecast      []ForecastDay `json:"forecast,omitempty"`
}

const (
	SourceFrontend       = "frontend"
	SourceExternalScript = "external-script"
)

type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Source      string `json:"source"`
}

// EventFields is the client-supplied part of a CalendarEvent.
type EventFields struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Description string `json:"description,omitempty"`
}

type StatusRecord struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StreamSummary describes one live channel.
type StreamSummary struct {
	IsLive       bool   `json:"isLive"`
	PreviewURL   string `json:"previewUrl"`
	Title        string `json:"title"`
	StreamerName string `json:"streamerName"`
	GameName     string `json:"gameName"`
	ViewerCount  int    `json:"viewerCount"`
}

type EnvelopeKind string

const (
	KindLog             EnvelopeKind = "log"
	KindStatus          EnvelopeKind = "status"
	KindCalendarAdded   EnvelopeKind = "calendar.added"
	KindCalendarDeleted EnvelopeKind = "calendar.deleted"
)

// Envelope is one message of the live feed.
type Envelope struct {
	Kind   EnvelopeKind   `json:"kind"`
	At     string         `json:"at"`
	Log    *LogEntry      `json:"log,omitempty"`
	Status *StatusRecord  `json:"status,omitempty"`
	Event  *CalendarEvent `json:"event,omitempty"`
	ID     string         `json:"id,omitempty"`
}
