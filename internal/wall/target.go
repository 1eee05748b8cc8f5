package wall

import "sync"

// Target is the rendering target of one slot: a relay that fans the bytes
// written by the slot's session out to every subscribed viewer.
//
// Writes never block on viewers. A viewer whose buffer is full misses the
// chunk. The first chunk written after reset is kept as the stream prologue
// (the FLV header) and replayed to viewers that join later.
type Target struct {
	index      int
	generation uint64
	buffer     int

	mu         sync.Mutex
	viewers    map[uint64]chan []byte
	nextViewer uint64
	prologue   []byte
	written    uint64
	closed     bool
}

func newTarget(index int, generation uint64, buffer int) *Target {
	if buffer < 1 {
		buffer = 1
	}
	return &Target{
		index:      index,
		generation: generation,
		buffer:     buffer,
		viewers:    make(map[uint64]chan []byte),
	}
}

// Index returns the slot index the target renders.
func (t *Target) Index() int { return t.index }

// Generation returns the pool generation the target belongs to.
func (t *Target) Generation() uint64 { return t.generation }

// Write implements io.Writer.
func (t *Target) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrTargetClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	chunk := make([]byte, len(p))
	copy(chunk, p)
	if t.prologue == nil {
		t.prologue = chunk
	}
	for _, ch := range t.viewers {
		select {
		case ch <- chunk:
		default:
		}
	}
	t.written += uint64(len(p))
	return len(p), nil
}

// Subscribe registers a viewer. The returned channel is closed when the
// target is closed or cancel is called.
func (t *Target) Subscribe() (<-chan []byte, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, ErrTargetClosed
	}

	ch := make(chan []byte, t.buffer)
	if t.prologue != nil {
		ch <- t.prologue
	}
	id := t.nextViewer
	t.nextViewer++
	t.viewers[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.viewers[id]; ok {
			delete(t.viewers, id)
			close(c)
		}
	}
	return ch, cancel, nil
}

// Viewers returns the number of subscribed viewers.
func (t *Target) Viewers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.viewers)
}

// Written returns the number of bytes written since the target was created.
func (t *Target) Written() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// reset drops the prologue before a new session is attached.
func (t *Target) reset() {
	t.mu.Lock()
	t.prologue = nil
	t.mu.Unlock()
}

// Close ends every viewer subscription. Later writes fail with ErrTargetClosed.
func (t *Target) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.viewers {
		delete(t.viewers, id)
		close(ch)
	}
	t.prologue = nil
}
