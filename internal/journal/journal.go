package journal

import (
	"sync"

	"github.com/grovetools/devsync/pkg/models"
)

// Journal is a bounded, thread-safe history of patch results with pub/sub
// for real-time updates.
type Journal struct {
	mu          sync.RWMutex
	capacity    int
	results     []models.PatchResult // ring buffer
	next        int
	full        bool
	stats       Stats
	subscribers map[chan Update]struct{}
}

// New creates a journal keeping the last capacity results. A capacity of
// zero keeps nothing but still broadcasts.
func New(capacity int) *Journal {
	if capacity < 0 {
		capacity = 0
	}
	return &Journal{
		capacity:    capacity,
		results:     make([]models.PatchResult, capacity),
		subscribers: make(map[chan Update]struct{}),
	}
}

// Record stores a patch result and notifies subscribers.
func (j *Journal) Record(r models.PatchResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.capacity > 0 {
		j.results[j.next] = r
		j.next = (j.next + 1) % j.capacity
		if j.next == 0 {
			j.full = true
		}
	}
	switch r.Status {
	case models.StatusApplied:
		j.stats.Applied++
	case models.StatusUnchanged:
		j.stats.Unchanged++
	case models.StatusFailed:
		j.stats.Failed++
	}

	j.broadcast(Update{Type: UpdatePatch, Result: &r})
}

// Connected records a client that opened or closed its connection.
func (j *Journal) Connected(ev ConnectionEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if ev.Open {
		j.stats.Connections++
	} else if j.stats.Connections > 0 {
		j.stats.Connections--
	}
	j.broadcast(Update{Type: UpdateConnection, Connection: &ev})
}

// BroadcastConfigReload notifies subscribers that file was reloaded.
func (j *Journal) BroadcastConfigReload(file string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.broadcast(Update{Type: UpdateConfigReload, File: file})
}

// Recent returns up to n results, oldest first. n <= 0 returns all.
func (j *Journal) Recent(n int) []models.PatchResult {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var ordered []models.PatchResult
	if j.full {
		ordered = append(ordered, j.results[j.next:]...)
	}
	ordered = append(ordered, j.results[:j.next]...)

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// Stats returns a copy of the counters.
func (j *Journal) Stats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}

// Subscribe creates a new subscription channel for updates.
func (j *Journal) Subscribe() chan Update {
	j.mu.Lock()
	defer j.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	j.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (j *Journal) Unsubscribe(ch chan Update) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.subscribers[ch]; !ok {
		return
	}
	delete(j.subscribers, ch)
	close(ch)
}

// broadcast sends u without blocking. Callers hold mu.
func (j *Journal) broadcast(u Update) {
	for ch := range j.subscribers {
		select {
		case ch <- u:
		default:
			// Slow subscribers miss updates rather than stall the server
		}
	}
}
