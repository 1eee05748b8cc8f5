// Package engine is the playback engine behind the video wall. It pulls FLV
// streams over WebSocket (ws, wss) or HTTP (http, https) and writes the raw
// stream bytes into the slot's rendering target. It does not demux or decode.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"video-wall/internal/wall"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TransportFLV is the only transport hint the engine understands.
const TransportFLV = "flv"

// Defaults applied by New for zero Config fields.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReleaseTimeout   = 5 * time.Second
	DefaultReadBufferSize   = 32 * 1024
)

var (
	ErrUnsupportedScheme    = errors.New("unsupported stream scheme")
	ErrUnsupportedTransport = errors.New("unsupported transport hint")
	ErrAlreadyStarted       = errors.New("session already started")
	ErrNotAttached          = errors.New("session has no render target")
	ErrReleased             = errors.New("session released")
	ErrReleaseTimeout       = errors.New("session did not stop before release timeout")
)

// Config tunes the engine.
type Config struct {
	HandshakeTimeout time.Duration
	ReleaseTimeout   time.Duration
	ReadBufferSize   int
}

// FLVEngine creates FLV playback sessions. It implements wall.Engine.
type FLVEngine struct {
	cfg    Config
	dialer *websocket.Dialer
	client *http.Client
	log    *slog.Logger
}

// New returns an engine using cfg. Zero fields take the package defaults.
func New(cfg Config, log *slog.Logger) *FLVEngine {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = DefaultReleaseTimeout
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}
	if log == nil {
		log = slog.Default()
	}

	return &FLVEngine{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   cfg.ReadBufferSize,
		},
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.HandshakeTimeout,
			},
		},
		log: log,
	}
}

// CreateSession implements wall.Engine. It validates the address and hint but
// does no network I/O; the connection is opened by Start.
func (e *FLVEngine) CreateSession(address wall.StreamAddress, hint string) (wall.Session, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint != "" && hint != TransportFLV {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, hint)
	}

	u, err := url.Parse(string(address))
	if err != nil {
		return nil, fmt.Errorf("parse stream address: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrUnsupportedScheme, address)
	}

	var kind transport
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		kind = transportWebsocket
	case "http", "https":
		kind = transportHTTP
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	return newSession(e, uuid.NewString(), u, kind), nil
}
