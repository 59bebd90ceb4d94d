// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import "testing"

func TestValidateFrameTransition(t *testing.T) {
	if err := validateFrameTransition(FrameIdle, FrameRecording); err != nil {
		t.Errorf("idle->recording should be legal: %v", err)
	}
	if err := validateFrameTransition(FrameIdle, FrameInFlight); err == nil {
		t.Error("idle->in-flight should skip recording and be rejected")
	}
	if err := validateFrameTransition(FrameInFlight, FrameIdle); err != nil {
		t.Errorf("in-flight->idle should be legal: %v", err)
	}
}

func TestSchedulerAcquireAdvancesSlotsRoundRobin(t *testing.T) {
	fences := []fence{alwaysSignaledFence{}, alwaysSignaledFence{}}
	sc := newScheduler(2, fences)
	s1, err := sc.acquire()
	if err != nil {
		t.Fatal(err)
	}
	if s1.index != 0 || s1.state != FrameRecording {
		t.Errorf("first acquire got slot %d state %v", s1.index, s1.state)
	}
	s1.state = FrameInFlight
	s2, err := sc.acquire()
	if err != nil {
		t.Fatal(err)
	}
	if s2.index != 1 {
		t.Errorf("second acquire got slot %d, want 1", s2.index)
	}
}

func TestSchedulerFrameIDMonotonic(t *testing.T) {
	fences := []fence{alwaysSignaledFence{}, alwaysSignaledFence{}}
	sc := newScheduler(2, fences)
	slot1, _ := sc.acquire()
	slot1.state = FrameInFlight
	slot2, _ := sc.acquire()
	if slot2.frameID <= slot1.frameID {
		t.Errorf("frame id should be strictly increasing: %d then %d", slot1.frameID, slot2.frameID)
	}
}

func TestSchedulerStats(t *testing.T) {
	fences := []fence{alwaysSignaledFence{}, alwaysSignaledFence{}}
	sc := newScheduler(2, fences)
	stats := sc.stats()
	if stats.SlotCount != 2 {
		t.Errorf("SlotCount = %d, want 2", stats.SlotCount)
	}
}
