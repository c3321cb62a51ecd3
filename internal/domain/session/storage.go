package session

import (
	"encoding/json"
	"fmt"
)

// DefaultKey is the name of the durable session record.
const DefaultKey = "auth"

// Storage is the durable key/value capability the Store persists through.
// This interface is defined in the domain to avoid circular imports.
// Implementations: file (state), sqlite, in-memory, and NopStorage.
type Storage interface {
	// Load returns the record stored under key.
	// Returns ErrNotFound if no record exists.
	Load(key string) ([]byte, error)

	// Save stores data under key, replacing any previous record.
	Save(key string, data []byte) error

	// Delete removes the record under key.
	// Deleting an absent record is not an error.
	Delete(key string) error
}

// NopStorage never persists anything. It is selected when durable storage
// is unavailable or disabled.
type NopStorage struct{}

// Load always returns ErrNotFound.
func (NopStorage) Load(string) ([]byte, error) { return nil, ErrNotFound }

// Save discards data.
func (NopStorage) Save(string, []byte) error { return nil }

// Delete does nothing.
func (NopStorage) Delete(string) error { return nil }

// Compile-time check that NopStorage implements Storage.
var _ Storage = NopStorage{}

// Encode serializes a session for durable storage.
func Encode(s Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Decode parses a durable record. Records that are not valid JSON or that
// violate the authenticated-session invariant are rejected with
// ErrMalformedRecord.
func Decode(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Anonymous(), fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := s.Validate(); err != nil {
		return Anonymous(), fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if !s.IsAuthenticated {
		// Only authenticated sessions are ever written; anything else
		// collapses to the anonymous default.
		return Anonymous(), nil
	}
	return s, nil
}
