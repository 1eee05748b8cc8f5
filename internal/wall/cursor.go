package wall

// cursor selects the slot that receives the next assigned stream.
// It is not safe for concurrent use; the Wall serializes access.
type cursor struct {
	pos  int
	size int
}

func newCursor(size int) *cursor {
	if size < 1 {
		size = 1
	}
	return &cursor{size: size}
}

// Next returns the current slot index and advances, wrapping to 0 after size-1.
func (c *cursor) Next() int {
	i := c.pos
	c.pos = (c.pos + 1) % c.size
	return i
}

// Value returns the index Next would return without advancing.
func (c *cursor) Value() int {
	return c.pos
}

// Reset moves the cursor back to slot 0.
func (c *cursor) Reset() {
	c.pos = 0
}

// Clamp adopts a new slot count. A position that no longer exists wraps to 0.
func (c *cursor) Clamp(size int) {
	if size < 1 {
		size = 1
	}
	c.size = size
	if c.pos >= size {
		c.pos = 0
	}
}
