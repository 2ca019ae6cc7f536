package server

import (
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/gin-gonic/gin"

	"nova/internal/model"
	"nova/internal/store"
)

const eventDuration = time.Hour

// handleICS exports every stored event as an iCalendar feed so external
// calendar apps can subscribe to it.
func (s *Server) handleICS(c *gin.Context) {
	cal := BuildCalendar(s.events.All(), time.Local)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}

// BuildCalendar converts events to VEVENTs. Events whose date cannot be
// parsed are left out; a malformed time falls back to midnight.
func BuildCalendar(events []model.CalendarEvent, loc *time.Location) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//nova//calendar//EN")

	for _, ev := range events {
		day, err := store.EventDate(ev.Date)
		if err != nil {
			continue
		}
		var hour, minute int
		if at, err := time.Parse("15:04", ev.Time); err == nil {
			hour, minute = at.Hour(), at.Minute()
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)

		vev := cal.AddEvent(ev.ID + "@nova")
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		vev.SetStartAt(start)
		vev.SetEndAt(start.Add(eventDuration))

		stamp := time.Now()
		if created, err := time.Parse(time.RFC3339, ev.CreatedAt); err == nil {
			vev.SetCreatedTime(created)
			stamp = created
		}
		vev.SetDtStampTime(stamp)
	}

	return cal
}
