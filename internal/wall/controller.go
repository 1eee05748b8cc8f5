package wall

import (
	"log/slog"
	"strings"
	"time"

	"video-wall/internal/platform/metrics"
)

// controller binds stream addresses to slots. It owns the slot pool, the
// session registry and the round-robin cursor. Callers serialize access.
type controller struct {
	engine  Engine
	hint    string
	log     *slog.Logger
	metrics *metrics.Metrics

	pool     *pool
	registry *registry
	cursor   *cursor
}

func newController(engine Engine, hint string, viewerBuffer int, log *slog.Logger, m *metrics.Metrics) *controller {
	return &controller{
		engine:   engine,
		hint:     hint,
		log:      log,
		metrics:  m,
		pool:     newPool(viewerBuffer),
		registry: newRegistry(0),
		cursor:   newCursor(1),
	}
}

// assignAll assigns each address in input order. Empty addresses are skipped
// without moving the cursor; every other address consumes exactly one slot.
func (c *controller) assignAll(addresses []StreamAddress) []AssignResult {
	results := make([]AssignResult, 0, len(addresses))
	for _, addr := range addresses {
		if res, ok := c.assign(addr); ok {
			results = append(results, res)
		}
	}
	return results
}

// assign plays address in the slot under the cursor. The prior session of that
// slot is released before the replacement is created.
func (c *controller) assign(address StreamAddress) (AssignResult, bool) {
	address = StreamAddress(strings.TrimSpace(string(address)))
	if address == "" {
		return AssignResult{}, false
	}

	slot := c.cursor.Next()
	res := AssignResult{Slot: slot, Address: address}

	if err := c.release(slot); err != nil {
		res.ReleaseErr = err
	}

	target, _ := c.pool.target(slot)
	target.reset()

	session, err := c.engine.CreateSession(address, c.hint)
	if err != nil {
		res.Err = c.createFailed(slot, address, err)
		return res, true
	}
	if err := session.Attach(target); err != nil {
		c.discard(slot, session)
		res.Err = c.createFailed(slot, address, err)
		return res, true
	}
	if err := session.Start(); err != nil {
		c.discard(slot, session)
		res.Err = c.createFailed(slot, address, err)
		return res, true
	}

	c.registry.set(slot, &entry{
		session:   session,
		address:   address,
		startedAt: time.Now().UTC(),
	})
	res.SessionID = session.ID()

	c.metrics.IncSessionsStarted()
	c.metrics.SetActiveSessions(c.registry.active())
	c.log.Info("stream assigned",
		slog.Int("slot", slot),
		slog.String("address", string(address)),
		slog.String("session_id", res.SessionID),
		slog.Uint64("generation", c.pool.generation))

	return res, true
}

// release tears down the session in slot, if any. The slot is empty afterwards
// even when the engine reports a failure.
func (c *controller) release(slot int) error {
	e := c.registry.take(slot)
	if e == nil {
		return nil
	}
	defer c.metrics.SetActiveSessions(c.registry.active())

	if err := e.session.Release(); err != nil {
		c.metrics.IncReleaseFailures()
		c.log.Warn("session release failed",
			slog.Int("slot", slot),
			slog.String("address", string(e.address)),
			slog.String("session_id", e.session.ID()),
			slog.String("error", err.Error()))
		return &SessionError{Op: OpRelease, Slot: slot, Address: e.address, Err: err}
	}

	c.log.Debug("session released",
		slog.Int("slot", slot),
		slog.String("session_id", e.session.ID()))
	return nil
}

// discard releases a session that never made it into the registry.
func (c *controller) discard(slot int, session Session) {
	if err := session.Release(); err != nil {
		c.log.Debug("discarding half-built session failed",
			slog.Int("slot", slot),
			slog.String("session_id", session.ID()),
			slog.String("error", err.Error()))
	}
}

func (c *controller) createFailed(slot int, address StreamAddress, err error) error {
	c.metrics.IncCreateFailures()
	c.log.Error("session create failed",
		slog.Int("slot", slot),
		slog.String("address", string(address)),
		slog.String("error", err.Error()))
	return &SessionError{Op: OpCreate, Slot: slot, Address: address, Err: err}
}

// releaseAll releases every session of the current pool generation.
func (c *controller) releaseAll() {
	for i := 0; i < c.pool.size(); i++ {
		_ = c.release(i)
	}
}

// rebuild discards every slot and session and allocates n empty slots.
func (c *controller) rebuild(n SlotCount) {
	c.releaseAll()
	c.pool.rebuild(n)
	c.registry.reset(int(n))
	c.cursor.Clamp(int(n))
	c.cursor.Reset()

	c.metrics.IncRebuilds()
	c.metrics.SetSlotCount(int(n))
	c.metrics.SetActiveSessions(0)
	c.log.Info("slot pool rebuilt",
		slog.Int("slot_count", int(n)),
		slog.Uint64("generation", c.pool.generation))
}

// close releases every session and closes every target.
func (c *controller) close() {
	c.releaseAll()
	c.pool.close()
	c.registry.reset(0)
	c.metrics.SetActiveSessions(0)
}

func (c *controller) slotStatus(i int) SlotStatus {
	st := SlotStatus{Slot: i, State: StateEmpty}
	if t, ok := c.pool.target(i); ok {
		st.Viewers = t.Viewers()
	}
	if e := c.registry.get(i); e != nil {
		started := e.startedAt
		st.Address = e.address
		st.SessionID = e.session.ID()
		st.State = e.session.State()
		st.StartedAt = &started
	}
	return st
}
