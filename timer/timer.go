// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package timer is the Timer / oscillator boundary collaborator named in
// §6: it gives the application a monotonic clock (now() -> seconds) and,
// following the teacher's Timing struct, a per-update accumulator the
// application resets every tick to measure update/render/elapsed time.
package timer

import "time"

// Now returns seconds elapsed since an arbitrary fixed point, monotonic
// within a process run. It is the concrete implementation of §6's Timer
// boundary contract.
func Now() float64 {
	return time.Since(epoch).Seconds()
}

// epoch is the fixed point Now measures from; time.Since uses its
// monotonic clock reading.
var epoch = time.Now()

// Timing collects main-loop timing numbers between Zero calls, the same
// shape as the teacher's Timing struct.
type Timing struct {
	start   time.Time
	Elapsed time.Duration // total loop time since the last Zero.
	Update  time.Duration // time spent in the previous update.
	Renders int           // render requests since the last Zero.
}

// Zero resets all accumulators and starts timing the next tick.
func (t *Timing) Zero() {
	t.Elapsed, t.Update, t.Renders = 0, 0, 0
	t.start = time.Now()
}

// Mark records the update phase's duration, measured from the most
// recent Zero, and advances Elapsed to the current time.
func (t *Timing) Mark() {
	now := time.Now()
	t.Update = now.Sub(t.start)
	t.Elapsed = now.Sub(t.start)
}

// Render increments the render-request counter for this tick.
func (t *Timing) Render() { t.Renders++ }
