// Package monitoring - fallback_log.go keeps recent fail-open events in memory.
//
// DESIGN: Ring buffer of the latest requests that were served unmodified
// because a step failed. Shown under recent_errors on the stats endpoint.
package monitoring

import (
	"sync"
	"time"
)

const maxFallbackLogEntries = 100

// FallbackEntry records one failed request.
type FallbackEntry struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Path      string    `json:"path"`
	Stage     string    `json:"stage"` // pass_through, origin, schema, rewrite, panic
	Error     string    `json:"error"`
}

// FallbackLog keeps a ring buffer of recent fallback events.
type FallbackLog struct {
	mu      sync.RWMutex
	entries []FallbackEntry
	total   int64
}

// NewFallbackLog creates a new fallback log.
func NewFallbackLog() *FallbackLog {
	return &FallbackLog{
		entries: make([]FallbackEntry, 0, maxFallbackLogEntries),
	}
}

// Record adds an event to the log.
func (l *FallbackLog) Record(entry FallbackEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if len(l.entries) >= maxFallbackLogEntries {
		// Shift: drop oldest
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = entry
	} else {
		l.entries = append(l.entries, entry)
	}
}

// Recent returns the most recent N entries (newest first).
func (l *FallbackLog) Recent(n int) []FallbackEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}

	result := make([]FallbackEntry, n)
	for i := 0; i < n; i++ {
		result[i] = l.entries[len(l.entries)-1-i]
	}
	return result
}

// Total returns how many events were ever recorded, including evicted ones.
func (l *FallbackLog) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
