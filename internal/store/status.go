package store

import (
	"sync"
	"time"

	"nova/internal/model"
)

const DefaultStatus = "offline"

// StatusRegister holds the single current status. It is not persisted.
type StatusRegister struct {
	mu  sync.RWMutex
	cur model.StatusRecord
	now func() time.Time
}

func NewStatusRegister() *StatusRegister {
	r := &StatusRegister{now: time.Now}
	r.cur = model.StatusRecord{
		Status:    DefaultStatus,
		Timestamp: model.Timestamp(r.now()),
	}
	return r
}

// Set overwrites the current status. An empty timestamp means now.
func (r *StatusRegister) Set(status, timestamp string) (model.StatusRecord, error) {
	if status == "" {
		return model.StatusRecord{}, invalid("Missing status field")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if timestamp == "" {
		timestamp = model.Timestamp(r.now())
	}
	r.cur = model.StatusRecord{Status: status, Timestamp: timestamp}

	return r.cur, nil
}

func (r *StatusRegister) Get() model.StatusRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur
}
