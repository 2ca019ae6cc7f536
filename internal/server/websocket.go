package server

import (
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"nova/internal/model"
)

const feedWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket streams store changes as JSON envelopes. The current
// status is sent first so a fresh client does not wait for the next update.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "err", err, "request_id", c.GetString(requestIDKey))
		return
	}
	defer conn.Close()

	entries, cancel := s.hub.Subscribe()
	defer cancel()

	// Read pump: only used to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	status := s.status.Get()
	first := model.Envelope{Kind: model.KindStatus, At: model.Timestamp(time.Now()), Status: &status}
	if err := s.writeEnvelope(conn, first); err != nil {
		return
	}

	log.Debug("Feed subscriber connected", "remote", c.Request.RemoteAddr)

	for {
		select {
		case <-gone:
			log.Debug("Feed subscriber left", "remote", c.Request.RemoteAddr)
			return
		case env, ok := <-entries:
			if !ok {
				return
			}
			if err := s.writeEnvelope(conn, env); err != nil {
				log.Warn("WebSocket write failed", "err", err)
				return
			}
		}
	}
}

func (s *Server) writeEnvelope(conn *websocket.Conn, env model.Envelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return conn.WriteJSON(env)
}
