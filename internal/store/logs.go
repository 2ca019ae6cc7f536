package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"os"
	"sync"

	"nova/internal/model"
)

const logQueueSize = 1024

// LogStore is the append-only interaction log. Entries become visible to
// All as soon as Append returns; the mirror file is appended to by a
// single background writer, and its failures never reach the caller.
type LogStore struct {
	mu      sync.RWMutex
	entries []model.LogEntry

	// sendMu orders queue sends and guards closed, so a full queue never
	// holds up readers.
	sendMu sync.Mutex
	closed bool

	path  string
	queue chan []byte
	done  chan struct{}
}

// OpenLogStore replays the newline-delimited mirror at path and starts the
// writer. A missing file is an empty log. A malformed file is reported and
// the store starts empty.
func OpenLogStore(path string) *LogStore {
	s := &LogStore{
		entries: make([]model.LogEntry, 0),
		path:    path,
		queue:   make(chan []byte, logQueueSize),
		done:    make(chan struct{}),
	}

	entries, err := replayLog(path)
	if err != nil {
		log.Error("Failed to load log entries", "path", path, "err", err)
	} else {
		s.entries = entries
		log.Info("Loaded log entries", "count", len(entries), "path", path)
	}

	go s.writer()

	return s
}

func replayLog(path string) ([]model.LogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make([]model.LogEntry, 0), nil
		}
		return nil, err
	}

	entries := make([]model.LogEntry, 0)
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var e model.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Append records e in memory and queues it for the mirror file.
func (s *LogStore) Append(e model.LogEntry) {
	line, err := json.Marshal(e)
	if err != nil {
		log.Error("Failed to encode log entry", "err", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if s.closed || err != nil {
		return
	}
	s.queue <- append(line, '\n')
}

// All returns the entries in append order.
func (s *LogStore) All() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]model.LogEntry, 0, len(s.entries)), s.entries...)
}

func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close flushes queued lines to the mirror and stops the writer.
func (s *LogStore) Close() {
	s.sendMu.Lock()
	if s.closed {
		s.sendMu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.sendMu.Unlock()

	<-s.done
}

func (s *LogStore) writer() {
	defer close(s.done)

	var f *os.File
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	for line := range s.queue {
		if f == nil {
			var err error
			f, err = os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				log.Error("Error writing to log file", "path", s.path, "err", err)
				f = nil
				continue
			}
		}

		if _, err := f.Write(line); err != nil {
			log.Error("Error writing to log file", "path", s.path, "err", err)
			f.Close()
			f = nil
		}
	}
}
