package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type transport int

const (
	transportWebsocket transport = iota
	transportHTTP
)

// Session lifecycle states.
const (
	StateIdle       = "idle"
	StateConnecting = "connecting"
	StatePlaying    = "playing"
	StateEnded      = "ended"
	StateFailed     = "failed"
	StateReleased   = "released"
)

// Session is one FLV playback. It implements wall.Session.
type Session struct {
	id     string
	url    *url.URL
	kind   transport
	engine *FLVEngine

	mu       sync.Mutex
	target   io.Writer
	conn     io.Closer
	state    string
	err      error
	started  bool
	released bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func newSession(e *FLVEngine, id string, u *url.URL, kind transport) *Session {
	return &Session{
		id:     id,
		url:    u,
		kind:   kind,
		engine: e,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Address returns the stream address the session plays.
func (s *Session) Address() string { return s.url.String() }

// State returns the current lifecycle state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended playback, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the pump goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Attach binds the render target. Attaching again replaces the target.
func (s *Session) Attach(target io.Writer) error {
	if target == nil {
		return ErrNotAttached
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	s.target = target
	return nil
}

// Start opens the stream in the background and returns immediately.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.released:
		return ErrReleased
	case s.started:
		return ErrAlreadyStarted
	case s.target == nil:
		return ErrNotAttached
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true
	s.state = StateConnecting

	go s.run(ctx)
	return nil
}

// Release stops playback and detaches the target. It waits for the pump
// goroutine up to the engine release timeout. Calling it again is a no-op.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.target = nil
	s.state = StateReleased
	started := s.started
	if s.cancel != nil {
		s.cancel()
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if !started {
		return nil
	}

	timer := time.NewTimer(s.engine.cfg.ReleaseTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("session %s: %w", s.id, ErrReleaseTimeout)
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	log := s.engine.log.With(
		slog.String("session_id", s.id),
		slog.String("address", s.url.String()))

	var err error
	switch s.kind {
	case transportWebsocket:
		err = s.pumpWebsocket(ctx)
	default:
		err = s.pumpHTTP(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		log.Debug("playback stopped by release")
		return
	}
	if err != nil && !errors.Is(err, io.EOF) {
		s.state = StateFailed
		s.err = err
		log.Warn("playback failed", slog.String("error", err.Error()))
		return
	}
	s.state = StateEnded
	log.Info("stream ended")
}

func (s *Session) pumpWebsocket(ctx context.Context) error {
	conn, resp, err := s.engine.dialer.DialContext(ctx, s.url.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url.Redacted(), err)
	}
	if !s.connected(conn) {
		conn.Close()
		return nil
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return io.EOF
			}
			return err
		}
		if err := s.deliver(data); err != nil {
			return err
		}
	}
}

func (s *Session) pumpHTTP(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return err
	}
	resp, err := s.engine.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", s.url.Redacted(), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("get %s: unexpected status %d", s.url.Redacted(), resp.StatusCode)
	}
	if !s.connected(resp.Body) {
		resp.Body.Close()
		return nil
	}

	buf := make([]byte, s.engine.cfg.ReadBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if werr := s.deliver(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

// connected records the open connection so Release can close it. It reports
// false when the session was released while dialing.
func (s *Session) connected(conn io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false
	}
	s.conn = conn
	s.state = StatePlaying
	return true
}

// deliver writes p to the attached target. A detached session stops the pump.
func (s *Session) deliver(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return ErrReleased
	}
	_, err := s.target.Write(p)
	return err
}
