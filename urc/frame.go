// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// frame.go is the Frame Scheduler, component B. It owns a small ring of
// frame slots, each carrying its own Stream and fence, and drives the
// idle -> recording -> in-flight -> idle state machine from §5. The
// fixed-size slot ring with index-modulo advancement follows the
// teacher's swapchain-image bookkeeping in render/vulkan.go.

import "fmt"

// FrameState is the per-frame lifecycle state from §5.
type FrameState uint8

const (
	FrameIdle FrameState = iota
	FrameRecording
	FrameInFlight
)

func (f FrameState) String() string {
	switch f {
	case FrameIdle:
		return "idle"
	case FrameRecording:
		return "recording"
	case FrameInFlight:
		return "in-flight"
	default:
		return "unknown-frame-state"
	}
}

// PassState is the render-pass lifecycle state from §5.
type PassState uint8

const (
	PassOutside PassState = iota
	PassInside
)

// fence abstracts the backend's completion signal for one frame slot. The
// immediate backend's fence is always already-signaled (no GPU queue to
// wait on); the deferred backend's is a real Vulkan fence wrapped by
// internal/vkb.
type fence interface {
	wait()
	signaled() bool
	reset()
}

// alwaysSignaledFence is the immediate backend's trivial fence: GL calls
// are made synchronously against the current context, so a slot is never
// actually in flight once EndFrame returns.
type alwaysSignaledFence struct{}

func (alwaysSignaledFence) wait()         {}
func (alwaysSignaledFence) signaled() bool { return true }
func (alwaysSignaledFence) reset()         {}

// FrameSlot is one of the N frame-in-flight slots named in §4.B.
type FrameSlot struct {
	index   int
	state   FrameState
	pass    PassState
	stream  *Stream
	fence   fence
	frameID uint64 // monotonic frame counter value this slot is (or was) recording.

	// compositeDisplays is the z-ordered plan computed at AcquireFrame;
	// compositeEmitted guards against emitting it twice if the app opens
	// more than one render pass against the main surface in one frame.
	compositeDisplays []*VirtualDisplay
	compositeEmitted  bool
}

// FrameStats is a point-in-time snapshot of scheduler activity, carried
// over from the teacher's timing.go/profile.go style frame counters.
type FrameStats struct {
	FrameIndex      uint64
	SlotsInFlight   int
	SlotCount       int
	LastAcquireWait bool // true if the most recent AcquireFrame had to wait on a fence.
}

// scheduler holds the slot ring and the monotonic frame counter.
type scheduler struct {
	slots     []*FrameSlot
	next      int // next slot index to acquire.
	frameID   uint64
	lastWait  bool
}

func newScheduler(slotCount int, fences []fence) *scheduler {
	sc := &scheduler{slots: make([]*FrameSlot, slotCount)}
	for i := range sc.slots {
		sc.slots[i] = &FrameSlot{index: i, stream: newStream(), fence: fences[i]}
	}
	return sc
}

// acquire blocks, if necessary, on the oldest slot's fence and returns it
// ready for recording. Only this call may block, per §5.
func (sc *scheduler) acquire() (*FrameSlot, *Error) {
	slot := sc.slots[sc.next]
	if slot.state == FrameInFlight {
		sc.lastWait = !slot.fence.signaled()
		slot.fence.wait()
	} else {
		sc.lastWait = false
	}
	slot.fence.reset()
	slot.stream.reset()
	slot.state = FrameRecording
	slot.pass = PassOutside
	slot.compositeDisplays = nil
	slot.compositeEmitted = false
	sc.frameID++
	slot.frameID = sc.frameID
	sc.next = (sc.next + 1) % len(sc.slots)
	return slot, nil
}

// retire transitions a slot from in-flight back to idle once its fence
// has signaled; called by System between acquires to reclaim resources
// queued for deletion during that slot's frame.
func (sc *scheduler) retire(slot *FrameSlot) bool {
	if slot.state == FrameInFlight && slot.fence.signaled() {
		slot.state = FrameIdle
		return true
	}
	return false
}

func (sc *scheduler) stats() FrameStats {
	inFlight := 0
	for _, s := range sc.slots {
		if s.state == FrameInFlight {
			inFlight++
		}
	}
	return FrameStats{
		FrameIndex:      sc.frameID,
		SlotsInFlight:   inFlight,
		SlotCount:       len(sc.slots),
		LastAcquireWait: sc.lastWait,
	}
}

// validateFrameTransition returns an error if moving to want from have is not
// allowed by the Frame state machine (§5): idle -> recording -> in-flight
// -> idle, with no skipping.
func validateFrameTransition(have, want FrameState) *Error {
	ok := (have == FrameIdle && want == FrameRecording) ||
		(have == FrameRecording && want == FrameInFlight) ||
		(have == FrameInFlight && want == FrameIdle)
	if !ok {
		return newError("frame-transition", InvalidState, fmt.Sprintf("%s->%s", have, want), nil)
	}
	return nil
}
