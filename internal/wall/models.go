package wall

import (
	"io"
	"time"
)

// StreamAddress identifies a network video source (e.g. "wss://host/live/cam1.flv").
// Duplicates are allowed; each occurrence occupies its own slot.
type StreamAddress string

// SlotCount is the number of visible slots in the wall.
type SlotCount int

// SupportedSlotCounts is the fixed set of slot counts a wall can be resized to.
var SupportedSlotCounts = []SlotCount{1, 2, 4, 6, 9}

// Valid reports whether n is one of SupportedSlotCounts.
func (n SlotCount) Valid() bool {
	_, ok := gridShapes[n]
	return ok
}

// GridShape is the rows x columns layout used to render a slot count.
type GridShape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Engine creates playback sessions. It is implemented by the playback engine
// (see internal/engine) and mocked in tests.
type Engine interface {
	CreateSession(address StreamAddress, transportHint string) (Session, error)
}

// Session is one playback of a stream address bound to a slot's rendering target.
type Session interface {
	ID() string
	// Attach binds the session to the rendering target it writes to.
	Attach(target io.Writer) error
	// Start begins playback. It must not block on network I/O.
	Start() error
	// Release stops playback and detaches from the target. It is idempotent.
	Release() error
	// State is a short human readable lifecycle state ("playing", "failed", ...).
	State() string
}

// AssignResult reports what happened to one address passed to AddStream.
type AssignResult struct {
	Slot      int           `json:"slot"`
	Address   StreamAddress `json:"address"`
	SessionID string        `json:"session_id,omitempty"`

	// Err is a SessionCreateFailure; the slot was left empty.
	Err error `json:"-"`
	// ReleaseErr is a SessionReleaseFailure of the session previously
	// occupying the slot. The replacement was still created.
	ReleaseErr error `json:"-"`
}

// SlotStatus is a read-only view of one slot.
type SlotStatus struct {
	Slot      int           `json:"slot"`
	Address   StreamAddress `json:"address,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	State     string        `json:"state"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Viewers   int           `json:"viewers"`
}

// Snapshot is a read-only view of the whole wall.
type Snapshot struct {
	SlotCount  SlotCount    `json:"slot_count"`
	Grid       GridShape    `json:"grid"`
	Cursor     int          `json:"cursor"`
	Generation uint64       `json:"generation"`
	SlotCounts []SlotCount  `json:"slot_counts"`
	Slots      []SlotStatus `json:"slots"`
}

// Slot states reported for slots without a session.
const (
	StateEmpty = "empty"
)
