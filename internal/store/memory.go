package store

import (
	"errors"
	"sync"
	"time"

	"github.com/Opulux135/driven-backend/internal/poi"
)

var (
	// ErrNotFound is returned when no snapshot is available for a country.
	ErrNotFound = errors.New("no snapshot for country")
)

// SnapshotHistory holds a time-ordered list of published snapshots for a
// country.
type SnapshotHistory struct {
	Snapshots []*poi.AggregationSnapshot
}

// MemoryStore is a concurrency-safe in-memory store of published
// aggregation snapshots, keyed by country code.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*SnapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per country
	maxAge     time.Duration // optional max age for snapshots
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SnapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveSnapshot appends a published snapshot for a country and enforces
// retention. Snapshots are immutable once published.
func (s *MemoryStore) SaveSnapshot(countryCode string, snapshot *poi.AggregationSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[countryCode]
	if !ok {
		history = &SnapshotHistory{}
		s.data[countryCode] = history
	}

	history.Snapshots = append(history.Snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots); i++ {
			if !history.Snapshots[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Snapshots) {
			history.Snapshots = history.Snapshots[i:]
		}
	}
}

// GetLatest returns the most recent snapshot for a country.
func (s *MemoryStore) GetLatest(countryCode string) (*poi.AggregationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[countryCode]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all snapshots for a country between from and to
// (inclusive).
func (s *MemoryStore) GetRange(countryCode string, from, to time.Time) ([]*poi.AggregationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[countryCode]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []*poi.AggregationSnapshot
	for _, snap := range history.Snapshots {
		if !snap.FetchedAt.Before(from) && !snap.FetchedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
