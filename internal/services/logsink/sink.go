// Package logsink holds the user-facing diagnostic log: a bounded,
// most-recent-first list of leveled entries.
package logsink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/d2r-multiplay/internal/dependencies/clock"
	"github.com/mcoot/d2r-multiplay/internal/model"
)

// DefaultCapacity is the number of entries retained when no capacity is configured
const DefaultCapacity = 200

// Sink is a bounded in-memory event log. Entries are ordered newest first;
// once the capacity is reached the oldest entry is dropped.
type Sink struct {
	mu       sync.RWMutex
	entries  []model.LogEntry
	capacity int
	onAdd    func(model.LogEntry)

	clock  clock.Clock
	logger *slog.Logger
}

// New creates a Sink. Every entry is mirrored to logger at the matching level.
func New(capacity int, clock clock.Clock, logger *slog.Logger) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Sink{
		entries:  make([]model.LogEntry, 0, capacity),
		capacity: capacity,
		clock:    clock,
		logger:   logger.With(slog.String("component", "logsink")),
	}
}

// Add appends an entry at the front of the log
func (s *Sink) Add(level model.LogLevel, category, message string) {
	entry := model.LogEntry{
		Time:     s.clock.Now(),
		Message:  message,
		Level:    level,
		Category: category,
	}

	s.mu.Lock()
	if len(s.entries) < s.capacity {
		s.entries = append(s.entries, model.LogEntry{})
	}
	copy(s.entries[1:], s.entries[:len(s.entries)-1])
	s.entries[0] = entry
	onAdd := s.onAdd
	s.mu.Unlock()

	if onAdd != nil {
		onAdd(entry)
	}

	s.logger.Log(context.Background(), slogLevel(level), message,
		slog.String("level_name", string(level)),
		slog.String("category", category))
}

// OnAdd registers fn to be called with every new entry, outside the lock
func (s *Sink) OnAdd(fn func(model.LogEntry)) {
	s.mu.Lock()
	s.onAdd = fn
	s.mu.Unlock()
}

// Info adds an info entry
func (s *Sink) Info(category, message string) { s.Add(model.LogLevelInfo, category, message) }

// Success adds a success entry
func (s *Sink) Success(category, message string) { s.Add(model.LogLevelSuccess, category, message) }

// Warn adds a warning entry
func (s *Sink) Warn(category, message string) { s.Add(model.LogLevelWarn, category, message) }

// Error adds an error entry
func (s *Sink) Error(category, message string) { s.Add(model.LogLevelError, category, message) }

// Entries returns a copy of the log, newest first
func (s *Sink) Entries() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of retained entries
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Capacity returns the maximum number of retained entries
func (s *Sink) Capacity() int {
	return s.capacity
}

// Clear removes all entries
func (s *Sink) Clear() {
	s.mu.Lock()
	s.entries = s.entries[:0]
	s.mu.Unlock()
}

func slogLevel(level model.LogLevel) slog.Level {
	switch level {
	case model.LogLevelWarn:
		return slog.LevelWarn
	case model.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
