package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no reading has been decoded yet.
	ErrNotFound = errors.New("no weather data yet")
)

// Snapshot is the state exposed to readers of a Latest store.
type Snapshot[T any] struct {
	Weather   *T        `json:"weather,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	ErrorAt   time.Time `json:"errorAt,omitzero"`
}

// Latest is a concurrency-safe holder for the most recent reading.
// It keeps exactly one value; older readings are replaced, not retained.
type Latest[T any] struct {
	mu sync.RWMutex

	weather   *T
	updatedAt time.Time
	lastErr   error
	errorAt   time.Time

	now func() time.Time
}

// NewLatest creates an empty store.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{now: func() time.Time { return time.Now().UTC() }}
}

// Save replaces the stored reading and clears the last error.
func (s *Latest[T]) Save(w T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weather = &w
	s.updatedAt = s.now()
	s.lastErr = nil
	s.errorAt = time.Time{}
}

// Fail records err without discarding the last good reading.
func (s *Latest[T]) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	s.errorAt = s.now()
}

// Get returns the most recent reading.
func (s *Latest[T]) Get() (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.weather == nil {
		var zero T
		return zero, ErrNotFound
	}
	return *s.weather, nil
}

// Snapshot returns the reading together with the last error, if any.
func (s *Latest[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot[T]{
		UpdatedAt: s.updatedAt,
		ErrorAt:   s.errorAt,
	}
	if s.weather != nil {
		w := *s.weather
		snap.Weather = &w
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
