package server

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nova/internal/hub"
	"nova/internal/model"
	"nova/internal/store"
)

const requestIDKey = "request_id"

// StreamLookup resolves the configured channels to live streams.
type StreamLookup interface {
	LiveStreams(ctx context.Context) ([]model.StreamSummary, error)
}

// Deps are the stores and proxies the router dispatches to.
type Deps struct {
	Logs    *store.LogStore
	Events  *store.EventStore
	Status  *store.StatusRegister
	Hub     *hub.Hub
	Streams StreamLookup

	// PublicDir is served for unmatched paths when it exists.
	PublicDir string
}

// Server is the request router of nova-server.
type Server struct {
	engine *gin.Engine

	logs    *store.LogStore
	events  *store.EventStore
	status  *store.StatusRegister
	hub     *hub.Hub
	streams StreamLookup
}

func New(d Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestID(), accessLog(), gin.CustomRecovery(recovery), cors.Default())

	if d.Hub == nil {
		d.Hub = hub.New()
	}

	s := &Server{
		engine:  engine,
		logs:    d.Logs,
		events:  d.Events,
		status:  d.Status,
		hub:     d.Hub,
		streams: d.Streams,
	}

	s.setupRoutes(d.PublicDir)
	return s
}

func (s *Server) setupRoutes(publicDir string) {
	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	s.engine.POST("/log-data", s.handleLogData)
	s.engine.GET("/logs", s.handleLogs)

	s.engine.POST("/status", s.handleSetStatus)
	s.engine.GET("/status", s.handleGetStatus)

	s.engine.GET("/twitch-stream", s.handleTwitchStream)

	s.engine.GET("/calendar-events", s.handleListEvents)
	s.engine.POST("/calendar-events", s.handleAddEvent)
	// Older voice scripts post here.
	s.engine.POST("/add-calendar-event", s.handleAddEvent)
	s.engine.DELETE("/calendar-events/:id", s.handleDeleteEvent)
	s.engine.GET("/calendar.ics", s.handleICS)

	s.engine.GET("/ws", s.handleWebSocket)

	if publicDir != "" {
		if st, err := os.Stat(publicDir); err == nil && st.IsDir() {
			s.engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(publicDir))))
		}
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("Nova server running", "url", "http://"+displayAddr(addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

func recovery(c *gin.Context, recovered any) {
	log.Error("Server error",
		"err", recovered,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("Internal server error"))
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

func messageBody(msg string) gin.H {
	return gin.H{"message": msg}
}

// internalError logs err with the request context and answers with a
// generic message.
func internalError(c *gin.Context, msg string, err error) {
	log.Error(msg,
		"err", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey),
	)
	c.JSON(http.StatusInternalServerError, errorBody(msg))
}
