// Package store persists session transcripts.
package store

import "time"

// EventKind classifies a transcript event.
type EventKind string

const (
	EventEnter         EventKind = "enter"
	EventInventory     EventKind = "inventory"
	EventChoice        EventKind = "choice"
	EventInvalidChoice EventKind = "invalid_choice"
	EventEnd           EventKind = "end"
)

// Session is the header row of a transcript.
type Session struct {
	ID        string
	Entry     string
	StartedAt time.Time
	EndedAt   time.Time // zero while the session is running
	Outcome   string
}

// Event is one ordered entry in a transcript. Seq starts at 1.
type Event struct {
	Seq     int
	Kind    EventKind
	Address string
	Detail  string
	Ts      time.Time
}

// Store is the interface for transcript persistence. Implementations are
// safe for concurrent use by several sessions.
type Store interface {
	// BeginSession creates a session header.
	BeginSession(id, entry string) error
	// Append adds an event to a running session.
	Append(sessionID string, kind EventKind, address, detail string) error
	// EndSession records the outcome and end time.
	EndSession(id, outcome string) error
	// Session returns the header, or nil if not found.
	Session(id string) (*Session, error)
	// Sessions returns headers newest first. A limit of 0 returns all of them.
	Sessions(limit int) ([]Session, error)
	// Events returns events oldest first. A limit of 0 returns all of them.
	Events(sessionID string, limit int) ([]Event, error)
	// Close releases resources.
	Close() error
}

// MetadataStore extends Store with key/value metadata.
type MetadataStore interface {
	Store
	GetMetadata(key string) (string, error)
	SetMetadata(key, value string) error
}
