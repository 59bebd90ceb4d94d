// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package config reduces the urc.Init API footprint using functional
// options, the same pattern and naming the teacher's config.go applies
// to vu.NewEngine:
//
//	eng, err := vu.NewEngine(
//	   vu.Title("Keyboard Controller"),
//	   vu.Size(200, 200, 900, 400),
//	   vu.Background(0.45, 0.45, 0.45, 1.0),
//	)
//
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the attributes an application sets before constructing
// urc.System.
type Config struct {
	Title      string
	Windowed   bool
	X, Y       int32
	W, H       int32
	Background [4]float32

	Backend       string // "immediate" or "deferred"; resolved to urc.BackendChoice by the caller.
	SlotCountHint int
	Debug         bool
}

// Defaults provides reasonable values so an application runs even if no
// attributes are set.
var Defaults = Config{
	Title:         "URC",
	Windowed:      false,
	X:             0,
	Y:             0,
	W:             1280,
	H:             720,
	Background:    [4]float32{0, 0, 0, 1},
	Backend:       "immediate",
	SlotCountHint: 2,
	Debug:         false,
}

// Option overrides one or more Config attributes.
type Option func(*Config)

// Title sets the window title when using windowed mode.
func Title(t string) Option { return func(c *Config) { c.Title = t } }

// Size sets the window's top-left corner and size in pixels.
func Size(x, y, w, h int32) Option {
	return func(c *Config) {
		if x >= 0 && x < 10_000 {
			c.X = x
		}
		if y >= 0 && y < 10_000 {
			c.Y = y
		}
		if w > 10 && w < 10_000 {
			c.W = w
		}
		if h > 10 && h < 10_000 {
			c.H = h
		}
	}
}

// Windowed requests windowed mode instead of fullscreen.
func Windowed() Option { return func(c *Config) { c.Windowed = true } }

// Background sets the display clear color.
func Background(r, g, b, a float32) Option {
	return func(c *Config) { c.Background = [4]float32{r, g, b, a} }
}

// Backend chooses "immediate" (OpenGL) or "deferred" (Vulkan).
func Backend(name string) Option { return func(c *Config) { c.Backend = name } }

// SlotCountHint sets the requested number of frame slots in flight.
func SlotCountHint(n int) Option { return func(c *Config) { c.SlotCountHint = n } }

// Debug turns on debug-mode checks (ordering-violation fatality,
// owning-thread assertion).
func Debug(on bool) Option { return func(c *Config) { c.Debug = on } }

// Build applies opts over Defaults and returns the resulting Config.
func Build(opts ...Option) Config {
	c := Defaults
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// fileConfig mirrors Config's fields for YAML unmarshaling; only
// fields present in the file override Defaults, so a partial file is
// valid.
type fileConfig struct {
	Title         *string   `yaml:"title"`
	Windowed      *bool     `yaml:"windowed"`
	X             *int32    `yaml:"x,omitempty"`
	Y             *int32    `yaml:"y,omitempty"`
	W             *int32    `yaml:"w,omitempty"`
	H             *int32    `yaml:"h,omitempty"`
	Background    *[4]float32 `yaml:"background,omitempty"`
	Backend       *string   `yaml:"backend"`
	SlotCountHint *int      `yaml:"slot_count_hint"`
	Debug         *bool     `yaml:"debug"`
}

// Load reads a YAML file and returns the Options needed to apply its
// contents over Defaults, so deployment-time backend choice, slot-count
// hint, and debug mode can live in a checked-in file instead of literals
// passed to urc.Init in main.go.
func Load(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	var opts []Option
	if fc.Title != nil {
		t := *fc.Title
		opts = append(opts, Title(t))
	}
	if fc.Windowed != nil && *fc.Windowed {
		opts = append(opts, Windowed())
	}
	if fc.X != nil && fc.Y != nil && fc.W != nil && fc.H != nil {
		opts = append(opts, Size(*fc.X, *fc.Y, *fc.W, *fc.H))
	}
	if fc.Background != nil {
		bg := *fc.Background
		opts = append(opts, Background(bg[0], bg[1], bg[2], bg[3]))
	}
	if fc.Backend != nil {
		opts = append(opts, Backend(*fc.Backend))
	}
	if fc.SlotCountHint != nil {
		opts = append(opts, SlotCountHint(*fc.SlotCountHint))
	}
	if fc.Debug != nil {
		opts = append(opts, Debug(*fc.Debug))
	}
	return opts, nil
}
