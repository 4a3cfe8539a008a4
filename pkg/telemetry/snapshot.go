package telemetry

import (
	"sync"
	"time"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
)

// Store keeps the merged snapshot. Apply is called from a single goroutine,
// readers may call Snapshot concurrently.
type Store struct {
	mu      sync.RWMutex
	current entities.Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Apply merges an update into the snapshot and reports whether any field changed.
func (s *Store) Apply(update Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch update.Field {
	case entities.FieldDoor:
		if s.current.Door != nil && *s.current.Door == update.Flag {
			return false
		}
		flag := update.Flag
		s.current.Door = &flag
	case entities.FieldGPS:
		if s.current.GPS != nil && *s.current.GPS == update.Coordinate {
			return false
		}
		coordinate := update.Coordinate
		s.current.GPS = &coordinate
	default:
		slot := s.current.NumericSlot(update.Field)
		if slot == nil {
			return false
		}
		if *slot != nil && **slot == update.Number {
			return false
		}
		number := update.Number
		*slot = &number
	}
	return true
}

// Stamp sets the snapshot timestamp and returns a copy.
func (s *Store) Stamp(at time.Time) entities.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Timestamp = at
	return s.current.Clone()
}

func (s *Store) Snapshot() entities.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}
