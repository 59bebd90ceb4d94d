// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import "testing"

func TestSlotsAllocReusesFreedSlotWithBumpedGeneration(t *testing.T) {
	var s slots
	idx1, gen1 := s.alloc()
	h1 := makeHandle(KindTexture, idx1, gen1)
	s.free_(h1)
	idx2, gen2 := s.alloc()
	if idx2 != idx1 {
		t.Fatalf("expected slot reuse, got idx %d want %d", idx2, idx1)
	}
	if gen2 != gen1+1 {
		t.Fatalf("expected generation bump, got %d want %d", gen2, gen1+1)
	}
}

func TestSlotsValidDetectsStaleHandle(t *testing.T) {
	var s slots
	idx, gen := s.alloc()
	h := makeHandle(KindBuffer, idx, gen)
	if !s.valid(h) {
		t.Fatal("freshly allocated handle should be valid")
	}
	s.free_(h)
	if s.valid(h) {
		t.Fatal("handle should be stale after free")
	}
	idx2, gen2 := s.alloc()
	newH := makeHandle(KindBuffer, idx2, gen2)
	if s.valid(h) {
		t.Fatal("old handle should remain stale after slot reuse")
	}
	if !s.valid(newH) {
		t.Fatal("reused slot's new handle should be valid")
	}
}

func TestHandleIsNull(t *testing.T) {
	var h Handle
	if !h.IsNull() {
		t.Error("zero-value handle should be null")
	}
	nonNull := makeHandle(KindMesh, 1, 0)
	if nonNull.IsNull() {
		t.Error("handle with non-zero index should not be null")
	}
}

func TestLiveCount(t *testing.T) {
	var s slots
	h1idx, h1gen := s.alloc()
	_, _ = s.alloc()
	if s.liveCount() != 2 {
		t.Fatalf("liveCount = %d, want 2", s.liveCount())
	}
	s.free_(makeHandle(KindShader, h1idx, h1gen))
	if s.liveCount() != 1 {
		t.Fatalf("liveCount after free = %d, want 1", s.liveCount())
	}
}
