package telemetry

import (
	"sync"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
)

const DefaultHistoryCapacity = 50

// History is a fixed-capacity ring of snapshots, oldest evicted first.
type History struct {
	mu       sync.RWMutex
	entries  []entities.Snapshot
	start    int
	size     int
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		entries:  make([]entities.Snapshot, capacity),
		capacity: capacity,
	}
}

// Append records a copy of snapshot. Snapshots without any monitored reading
// are skipped and Append returns false.
func (h *History) Append(snapshot entities.Snapshot) bool {
	if !snapshot.HasReading() {
		return false
	}
	entry := snapshot.Clone()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < h.capacity {
		h.entries[(h.start+h.size)%h.capacity] = entry
		h.size++
		return true
	}
	// full: overwrite the oldest slot and move the start forward
	h.entries[h.start] = entry
	h.start = (h.start + 1) % h.capacity
	return true
}

// Read returns the retained snapshots, oldest first.
func (h *History) Read() []entities.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]entities.Snapshot, h.size)
	for i := 0; i < h.size; i++ {
		result[i] = h.entries[(h.start+i)%h.capacity].Clone()
	}
	return result
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Capacity() int {
	return h.capacity
}
