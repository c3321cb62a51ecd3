// Package state provides file-based durable storage for client session
// records.
//
// All records live in one JSON document. This package provides atomic
// writes, file locking, and backup functionality.
package state

import "time"

// documentVersion is the current schema version of the storage document.
const documentVersion = "1"

// document is the top-level structure persisted on disk.
type document struct {
	// Version is the schema version for forward compatibility. Currently "1".
	Version string `json:"version"`

	// Records maps record names to their serialized values.
	Records map[string]string `json:"records"`

	// UpdatedAt is when this file was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

func newDocument() *document {
	return &document{
		Version: documentVersion,
		Records: make(map[string]string),
	}
}
