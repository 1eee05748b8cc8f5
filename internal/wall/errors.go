package wall

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is used for empty stream addresses. AddStream skips
	// them silently; it is exported for callers that validate up front.
	ErrInvalidAddress = errors.New("invalid stream address")

	// ErrUnsupportedSlotCount is returned by SetSlotCount for counts outside
	// SupportedSlotCounts or outside the counts offered by the wall.
	ErrUnsupportedSlotCount = errors.New("unsupported slot count")

	// ErrSlotOutOfRange is returned when addressing a slot index that does not
	// exist in the current pool.
	ErrSlotOutOfRange = errors.New("slot index out of range")

	// ErrTargetClosed is returned by writes to a rendering target whose slot
	// has been destroyed.
	ErrTargetClosed = errors.New("render target closed")

	// ErrWallClosed is returned once Close has been called.
	ErrWallClosed = errors.New("wall closed")
)

// Session operations reported in SessionError.
const (
	OpCreate  = "create"
	OpRelease = "release"
)

// SessionError wraps a playback engine failure for one slot. Op is OpCreate for
// a session that could not be created, attached or started, and OpRelease for
// a prior session whose teardown failed.
type SessionError struct {
	Op      string
	Slot    int
	Address StreamAddress
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s slot %d (%s): %v", e.Op, e.Slot, e.Address, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
