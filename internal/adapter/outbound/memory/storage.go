// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"sync"

	"github.com/securevibes/authgate/internal/domain/session"
)

// Storage implements session.Storage with an in-memory map.
// Thread-safe for concurrent access. Records do not outlive the process.
type Storage struct {
	records map[string][]byte
	mu      sync.RWMutex
}

// NewStorage creates an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{records: make(map[string][]byte)}
}

// Load returns a copy of the record stored under key.
// Returns session.ErrNotFound if no record exists.
func (s *Storage) Load(key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return nil, session.ErrNotFound
	}
	return copyBytes(data), nil
}

// Save stores a copy of data under key, replacing any previous record.
func (s *Storage) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = copyBytes(data)
	return nil
}

// Delete removes the record under key. Deleting an absent record is not an error.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

// Size returns the number of records currently stored.
func (s *Storage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Compile-time interface verification.
var _ session.Storage = (*Storage)(nil)
