// Package config loads the scheduler's policy file. Transport settings
// (listen address, database, NATS) come from the environment; this file
// carries the scheduling policy knobs an operator may want to pin.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/playout-hub/scheduler/internal/timeline"
)

// Config is the YAML policy file. Every field is optional; zero values are
// normalized to the defaults below, so a partial or missing file is fine.
type Config struct {
	// Timezone is the IANA zone the schedule day is interpreted in.
	Timezone string `yaml:"timezone"`

	// SnapWindow is how close an existing event's end must be for a dropped
	// candidate to snap behind it (Go duration string, default "5m").
	SnapWindow string `yaml:"snap_window"`

	// SlotGap separates back-to-back placements (default "1s").
	SlotGap string `yaml:"slot_gap"`

	// PastPolicy is "reject" (default) or "clamp". Reject refuses any
	// placement at or before now; clamp pulls it forward to now plus one
	// second instead.
	PastPolicy string `yaml:"past_policy"`

	// AllowResize enables the resize operation, which is off by default
	// because durations normally follow the source media.
	AllowResize bool `yaml:"allow_resize"`

	// WindowSpanMinutes is the time span the rendered timeline represents,
	// used by drop-position mapping (default 1440, a full day).
	WindowSpanMinutes int `yaml:"window_span_minutes"`
}

func Default() *Config {
	return &Config{
		Timezone:          "UTC",
		SnapWindow:        "5m",
		SlotGap:           "1s",
		PastPolicy:        string(timeline.PastReject),
		WindowSpanMinutes: 24 * 60,
	}
}

func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.SnapWindow == "" {
		c.SnapWindow = "5m"
	}
	if c.SlotGap == "" {
		c.SlotGap = "1s"
	}
	if c.PastPolicy != string(timeline.PastClamp) {
		c.PastPolicy = string(timeline.PastReject)
	}
	if c.WindowSpanMinutes <= 0 {
		c.WindowSpanMinutes = 24 * 60
	}
}

// Load reads the policy file at path. An empty path or a missing file yields
// the defaults; a present but unparsable file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Policy converts the file's policy knobs into the timeline policy.
func (c *Config) Policy() (timeline.Policy, error) {
	snap, err := time.ParseDuration(c.SnapWindow)
	if err != nil || snap <= 0 {
		return timeline.Policy{}, fmt.Errorf("invalid snap_window %q", c.SnapWindow)
	}
	gap, err := time.ParseDuration(c.SlotGap)
	if err != nil || gap <= 0 {
		return timeline.Policy{}, fmt.Errorf("invalid slot_gap %q", c.SlotGap)
	}
	p := timeline.DefaultPolicy()
	p.SnapWindow = snap
	p.SlotGap = gap
	p.PastPolicy = timeline.PastPolicy(c.PastPolicy)
	p.AllowResize = c.AllowResize
	return p, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
