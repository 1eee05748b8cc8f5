package wall

// pool owns the slots of the current generation and their rendering targets.
// Slots are never reused: rebuild discards the whole set and allocates a new one.
type pool struct {
	generation   uint64
	targets      []*Target
	viewerBuffer int
}

func newPool(viewerBuffer int) *pool {
	return &pool{viewerBuffer: viewerBuffer}
}

// rebuild closes every target of the old generation and allocates n empty
// slots. Sessions must have been released by the caller beforehand.
func (p *pool) rebuild(n SlotCount) {
	p.close()
	p.generation++
	p.targets = make([]*Target, int(n))
	for i := range p.targets {
		p.targets[i] = newTarget(i, p.generation, p.viewerBuffer)
	}
}

func (p *pool) size() int {
	return len(p.targets)
}

func (p *pool) target(i int) (*Target, bool) {
	if i < 0 || i >= len(p.targets) {
		return nil, false
	}
	return p.targets[i], true
}

func (p *pool) close() {
	for _, t := range p.targets {
		t.Close()
	}
	p.targets = nil
}
