package server

import (
	"fmt"
	log "log/slog"

	"github.com/robfig/cron/v3"

	"nova/internal/store"
)

// StartResync schedules rewrites of the calendar mirror after failed
// writes. The caller stops the returned scheduler on shutdown.
func StartResync(spec string, events *store.EventStore) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		if err := events.Resync(); err != nil {
			log.Warn("Calendar resync failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("resync schedule %q: %w", spec, err)
	}

	c.Start()
	log.Debug("Calendar resync scheduled", "spec", spec)

	return c, nil
}
