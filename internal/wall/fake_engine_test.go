package wall

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
)

var errEngineBroken = errors.New("engine broken")

// fakeEngine records every engine call in order so tests can check that a
// slot's previous session is released before its replacement is created.
type fakeEngine struct {
	mu       sync.Mutex
	events   []string
	sessions []*fakeSession
	next     int

	failCreate  map[StreamAddress]bool
	failStart   map[StreamAddress]bool
	failRelease map[StreamAddress]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		failCreate:  make(map[StreamAddress]bool),
		failStart:   make(map[StreamAddress]bool),
		failRelease: make(map[StreamAddress]bool),
	}
}

func (e *fakeEngine) CreateSession(address StreamAddress, hint string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, "create:"+string(address))
	if e.failCreate[address] {
		return nil, errEngineBroken
	}
	e.next++
	s := &fakeSession{
		id:      fmt.Sprintf("s%d", e.next),
		address: address,
		hint:    hint,
		engine:  e,
		state:   "idle",
	}
	e.sessions = append(e.sessions, s)
	return s, nil
}

func (e *fakeEngine) record(ev string) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *fakeEngine) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func (e *fakeEngine) Sessions() []*fakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakeSession(nil), e.sessions...)
}

type fakeSession struct {
	id      string
	address StreamAddress
	hint    string
	engine  *fakeEngine

	mu       sync.Mutex
	target   io.Writer
	state    string
	releases int
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Attach(target io.Writer) error {
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
	s.engine.record("attach:" + string(s.address))
	return nil
}

func (s *fakeSession) Start() error {
	s.engine.record("start:" + string(s.address))
	s.engine.mu.Lock()
	fail := s.engine.failStart[s.address]
	s.engine.mu.Unlock()
	if fail {
		return errEngineBroken
	}
	s.mu.Lock()
	s.state = "playing"
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Release() error {
	s.engine.record("release:" + string(s.address))
	s.mu.Lock()
	s.releases++
	s.target = nil
	s.state = "released"
	s.mu.Unlock()

	s.engine.mu.Lock()
	fail := s.engine.failRelease[s.address]
	s.engine.mu.Unlock()
	if fail {
		return fs.ErrClosed
	}
	return nil
}

func (s *fakeSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

func (s *fakeSession) Target() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWall(e Engine, n SlotCount) (*Wall, error) {
	return New(e, Options{DefaultSlotCount: n, Logger: discardLogger()})
}

// slotAddresses returns the address playing in each slot ("" when empty).
func slotAddresses(w *Wall) []StreamAddress {
	snap := w.Snapshot()
	out := make([]StreamAddress, len(snap.Slots))
	for i, st := range snap.Slots {
		out[i] = st.Address
	}
	return out
}
