package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// supportedSlotCounts mirrors the slot counts a wall can render.
var supportedSlotCounts = map[int]bool{1: true, 2: true, 4: true, 6: true, 9: true}

// Wall is the layout file of a video wall (wall.yaml).
type Wall struct {
	// DefaultSlotCount is the number of slots shown at startup.
	DefaultSlotCount int `yaml:"default_slot_count"`
	// SlotCounts are the counts a host may switch to.
	SlotCounts []int `yaml:"slot_counts"`
	// Streams are assigned to the slots at startup, in order.
	Streams       []string `yaml:"streams"`
	TransportHint string   `yaml:"transport_hint"`
	ViewerBuffer  int      `yaml:"viewer_buffer"`

	Engine struct {
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		ReleaseTimeout   time.Duration `yaml:"release_timeout"`
		ReadBufferSize   int           `yaml:"read_buffer_size"`
	} `yaml:"engine"`
}

// DefaultWall returns the layout used when no file is present.
func DefaultWall() *Wall {
	w := &Wall{
		DefaultSlotCount: 1,
		SlotCounts:       []int{1, 2, 4, 6, 9},
		TransportHint:    "flv",
		ViewerBuffer:     64,
	}
	w.Engine.HandshakeTimeout = 10 * time.Second
	w.Engine.ReleaseTimeout = 5 * time.Second
	w.Engine.ReadBufferSize = 32 * 1024
	return w
}

// LoadWall reads the layout file at path on top of DefaultWall. A missing file
// yields the defaults.
func LoadWall(path string) (*Wall, error) {
	cfg := DefaultWall()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wall config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wall config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wall config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the layout only uses renderable slot counts and that
// the default count is one of the offered counts.
func (w *Wall) Validate() error {
	if len(w.SlotCounts) == 0 {
		return fmt.Errorf("slot_counts must not be empty")
	}
	offered := false
	for _, n := range w.SlotCounts {
		if !supportedSlotCounts[n] {
			return fmt.Errorf("slot_counts: %d is not one of 1, 2, 4, 6, 9", n)
		}
		if n == w.DefaultSlotCount {
			offered = true
		}
	}
	if !offered {
		return fmt.Errorf("default_slot_count %d must be listed in slot_counts", w.DefaultSlotCount)
	}
	if w.ViewerBuffer <= 0 {
		return fmt.Errorf("viewer_buffer must be > 0")
	}
	if w.Engine.HandshakeTimeout <= 0 {
		return fmt.Errorf("engine.handshake_timeout must be > 0")
	}
	if w.Engine.ReleaseTimeout <= 0 {
		return fmt.Errorf("engine.release_timeout must be > 0")
	}
	if w.Engine.ReadBufferSize <= 0 {
		return fmt.Errorf("engine.read_buffer_size must be > 0")
	}
	return nil
}
