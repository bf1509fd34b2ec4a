package history

import (
	"fmt"
	"sync"

	"waterguard-backend/internal/models"
)

// Ring is a fixed-capacity buffer of the most recent readings for one
// device. Single writer (the simulation tick), multiple readers; reads
// always receive a copied snapshot so feature computation never sees a
// half-written buffer.
type Ring struct {
	mu       sync.RWMutex
	buffer   []models.SensorReading
	capacity int
}

// NewRing allocates a ring with the given capacity. Capacity is fixed
// for the ring's lifetime; a non-positive capacity is a configuration
// error and is surfaced to the caller.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}
	return &Ring{
		buffer:   make([]models.SensorReading, 0, capacity),
		capacity: capacity,
	}, nil
}

// Append adds a reading, evicting the oldest when full.
func (r *Ring) Append(reading models.SensorReading) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buffer) >= r.capacity {
		copy(r.buffer, r.buffer[1:])
		r.buffer = r.buffer[:len(r.buffer)-1]
	}
	r.buffer = append(r.buffer, reading)
}

// Snapshot returns a copy of the buffered readings, oldest first.
func (r *Ring) Snapshot() []models.SensorReading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SensorReading, len(r.buffer))
	copy(out, r.buffer)
	return out
}

// Recent returns a copy of the most recent n readings, oldest first.
func (r *Ring) Recent(n int) []models.SensorReading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > len(r.buffer) {
		n = len(r.buffer)
	}
	out := make([]models.SensorReading, n)
	copy(out, r.buffer[len(r.buffer)-n:])
	return out
}

// Latest returns the newest reading, if any.
func (r *Ring) Latest() (models.SensorReading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.buffer) == 0 {
		return models.SensorReading{}, false
	}
	return r.buffer[len(r.buffer)-1], true
}

// Len returns the current occupancy.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buffer)
}

// Capacity returns the fixed capacity.
func (r *Ring) Capacity() int {
	return r.capacity
}
