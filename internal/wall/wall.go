package wall

import (
	"fmt"
	"log/slog"
	"sync"

	"video-wall/internal/platform/metrics"
)

// DefaultTransportHint is passed to the engine when Options leaves it empty.
const DefaultTransportHint = "flv"

// DefaultViewerBuffer is the number of chunks buffered per viewer of a slot.
const DefaultViewerBuffer = 64

// Options configures a Wall.
type Options struct {
	// SlotCounts are the counts SetSlotCount accepts. Empty means all of
	// SupportedSlotCounts.
	SlotCounts []SlotCount
	// DefaultSlotCount is the slot count the wall starts with (default 1).
	DefaultSlotCount SlotCount
	TransportHint    string
	ViewerBuffer     int
	Logger           *slog.Logger
	Metrics          *metrics.Metrics
}

// Wall is the control surface of one video wall. Operations are applied
// one at a time in call order; it is safe for concurrent use.
type Wall struct {
	mu         sync.Mutex
	ctl        *controller
	count      SlotCount
	grid       GridShape
	slotCounts []SlotCount
	closed     bool
	log        *slog.Logger
}

// New returns a wall with DefaultSlotCount empty slots.
func New(engine Engine, opts Options) (*Wall, error) {
	if engine == nil {
		return nil, fmt.Errorf("wall: nil engine")
	}

	slotCounts := opts.SlotCounts
	if len(slotCounts) == 0 {
		slotCounts = SupportedSlotCounts
	}
	for _, n := range slotCounts {
		if !n.Valid() {
			return nil, fmt.Errorf("wall: slot count %d: %w", n, ErrUnsupportedSlotCount)
		}
	}

	def := opts.DefaultSlotCount
	if def == 0 {
		def = 1
	}
	if !offers(slotCounts, def) {
		return nil, fmt.Errorf("wall: default slot count %d: %w", def, ErrUnsupportedSlotCount)
	}

	hint := opts.TransportHint
	if hint == "" {
		hint = DefaultTransportHint
	}
	viewerBuffer := opts.ViewerBuffer
	if viewerBuffer <= 0 {
		viewerBuffer = DefaultViewerBuffer
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	w := &Wall{
		ctl:        newController(engine, hint, viewerBuffer, log, opts.Metrics),
		slotCounts: append([]SlotCount(nil), slotCounts...),
		log:        log,
	}
	w.resize(def)
	return w, nil
}

// AddStream assigns each address to the next slot in round-robin order,
// replacing whatever the slot was playing. Empty addresses are ignored.
// A failure on one address does not stop the remaining ones; failures are
// reported per address in the results.
func (w *Wall) AddStream(addresses ...StreamAddress) []AssignResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.log.Warn("add stream on closed wall", slog.Int("addresses", len(addresses)))
		return nil
	}
	return w.ctl.assignAll(addresses)
}

// SetSlotCount drops every session and rebuilds the wall with n empty slots.
// Previously playing addresses are not re-added. Counts that are not offered
// are rejected with ErrUnsupportedSlotCount and leave the wall unchanged.
func (w *Wall) SetSlotCount(n SlotCount) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWallClosed
	}
	if !n.Valid() || !offers(w.slotCounts, n) {
		return fmt.Errorf("slot count %d: %w", n, ErrUnsupportedSlotCount)
	}
	w.resize(n)
	return nil
}

// resize must be called with w.mu held.
func (w *Wall) resize(n SlotCount) {
	grid, _ := Resolve(n)
	w.ctl.rebuild(n)
	w.count = n
	w.grid = grid
}

// SlotCount returns the current number of slots.
func (w *Wall) SlotCount() SlotCount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Grid returns the grid shape of the current slot count.
func (w *Wall) Grid() GridShape {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.grid
}

// SlotCounts returns the slot counts the wall accepts.
func (w *Wall) SlotCounts() []SlotCount {
	return append([]SlotCount(nil), w.slotCounts...)
}

// Snapshot returns the current state of the wall.
func (w *Wall) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		SlotCount:  w.count,
		Grid:       w.grid,
		Cursor:     w.ctl.cursor.Value(),
		Generation: w.ctl.pool.generation,
		SlotCounts: append([]SlotCount(nil), w.slotCounts...),
		Slots:      make([]SlotStatus, 0, w.ctl.pool.size()),
	}
	for i := 0; i < w.ctl.pool.size(); i++ {
		snap.Slots = append(snap.Slots, w.ctl.slotStatus(i))
	}
	return snap
}

// ActiveSessions returns the number of slots holding a session.
func (w *Wall) ActiveSessions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctl.registry.active()
}

// Target returns the rendering target of slot i in the current generation.
func (w *Wall) Target(i int) (*Target, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWallClosed
	}
	t, ok := w.ctl.pool.target(i)
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", i, ErrSlotOutOfRange)
	}
	return t, nil
}

// Close releases every session and closes every slot. It is idempotent.
func (w *Wall) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.ctl.close()
	w.log.Info("wall closed")
}

func offers(counts []SlotCount, n SlotCount) bool {
	for _, c := range counts {
		if c == n {
			return true
		}
	}
	return false
}
