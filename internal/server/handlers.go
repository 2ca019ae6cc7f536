package server

import (
	"errors"
	log "log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nova/internal/model"
	"nova/internal/store"
)

var errNoStreams = errors.New("stream lookup not configured")

type logRequest struct {
	Command       string              `json:"command"`
	WhoIsTalking  *string             `json:"who_is_talking"`
	Response      *string             `json:"response"`
	IsUserTalking bool                `json:"is_user_talking"`
	Timestamp     string              `json:"timestamp"`
	Forecast      []model.ForecastDay `json:"forecast"`
}

func (s *Server) handleLogData(c *gin.Context) {
	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Command == "" || req.WhoIsTalking == nil {
		c.JSON(http.StatusBadRequest, errorBody("Missing or invalid fields"))
		return
	}

	entry := model.LogEntry{
		Command:       req.Command,
		WhoIsTalking:  *req.WhoIsTalking,
		Response:      req.Response,
		IsUserTalking: req.IsUserTalking,
		Timestamp:     req.Timestamp,
		IsWeather:     strings.Contains(strings.ToLower(req.Command), "weather"),
		Forecast:      req.Forecast,
	}
	if entry.Timestamp == "" {
		entry.Timestamp = model.Timestamp(time.Now())
	}

	s.logs.Append(entry)
	s.hub.Publish(model.Envelope{Kind: model.KindLog, Log: &entry})

	attrs := []any{"who", entry.WhoIsTalking, "command", entry.Command, "user_talking", entry.IsUserTalking}
	if entry.Response != nil && *entry.Response != "" {
		attrs = append(attrs, "response", *entry.Response)
	}
	log.Info("Log received", attrs...)

	c.JSON(http.StatusOK, messageBody("Log received."))
}

func (s *Server) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.logs.All())
}

type statusRequest struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Missing status field"))
		return
	}

	rec, err := s.status.Set(req.Status, req.Timestamp)
	if err != nil {
		if store.IsValidation(err) {
			c.JSON(http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		internalError(c, "Error updating status", err)
		return
	}

	s.hub.Publish(model.Envelope{Kind: model.KindStatus, Status: &rec})
	log.Info("Status update", "status", rec.Status)

	c.JSON(http.StatusOK, messageBody("Status updated."))
}

func (s *Server) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Get())
}

func (s *Server) handleTwitchStream(c *gin.Context) {
	if s.streams == nil {
		internalError(c, "Error fetching stream data", errNoStreams)
		return
	}

	streams, err := s.streams.LiveStreams(c.Request.Context())
	if err != nil {
		internalError(c, "Error fetching stream data", err)
		return
	}

	c.JSON(http.StatusOK, streams)
}

func (s *Server) handleListEvents(c *gin.Context) {
	monthStr, yearStr := c.Query("month"), c.Query("year")
	if monthStr == "" || yearStr == "" {
		log.Warn("Missing month or year parameters", "month", monthStr, "year", yearStr)
		c.JSON(http.StatusBadRequest, errorBody("Month and year are required"))
		return
	}

	month, errM := strconv.Atoi(monthStr)
	year, errY := strconv.Atoi(yearStr)
	if errM != nil || errY != nil {
		c.JSON(http.StatusBadRequest, errorBody("Month and year must be integers"))
		return
	}

	events := s.events.ListByMonth(month, year)
	log.Debug("Fetched calendar events", "month", month, "year", year, "count", len(events))

	c.JSON(http.StatusOK, events)
}

func (s *Server) handleAddEvent(c *gin.Context) {
	var f model.EventFields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Title and date are required"))
		return
	}

	ev, err := s.events.Add(f, c.GetHeader("User-Agent"))
	if err != nil {
		if store.IsValidation(err) {
			log.Warn("Rejected calendar event", "title", f.Title, "date", f.Date, "err", err)
			c.JSON(http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		internalError(c, "Error adding calendar event", err)
		return
	}

	s.hub.Publish(model.Envelope{Kind: model.KindCalendarAdded, Event: &ev})
	log.Info("Event added", "id", ev.ID, "title", ev.Title, "date", ev.Date, "source", ev.Source)

	c.JSON(http.StatusOK, gin.H{
		"message": "Event added successfully",
		"event":   ev,
	})
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	id := c.Param("id")

	if s.events.Delete(id) {
		s.hub.Publish(model.Envelope{Kind: model.KindCalendarDeleted, ID: id})
		log.Info("Event deleted", "id", id)
	}

	c.JSON(http.StatusOK, messageBody("Event deleted successfully"))
}
