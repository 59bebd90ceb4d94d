// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import "testing"

func TestStreamAppendAndReset(t *testing.T) {
	s := newStream()
	s.append(Packet{Op: OpBeginRenderPass})
	s.append(Packet{Op: OpEndRenderPass})
	if len(s.packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(s.packets))
	}
	s.reset()
	if len(s.packets) != 0 || len(s.firstRef) != 0 {
		t.Error("reset should clear packets and firstRef")
	}
}

func TestStreamArenaRoundTrip(t *testing.T) {
	s := newStream()
	off, n := s.writeArena([]byte("hello"))
	p := Packet{PayloadOffset: off, PayloadLen: n}
	if string(s.payload(p)) != "hello" {
		t.Errorf("payload = %q, want hello", s.payload(p))
	}
}

func TestStreamNoteFirstRefIgnoresNullHandle(t *testing.T) {
	s := newStream()
	s.noteFirstRef(Handle{}, 3)
	if len(s.firstRef) != 0 {
		t.Error("null handle should not be tracked")
	}
}

func TestStreamNoteFirstRefKeepsFirstNotedIndex(t *testing.T) {
	s := newStream()
	h := makeHandle(KindBuffer, 1, 0)
	s.noteFirstRef(h, 5)
	s.noteFirstRef(h, 2)
	if s.firstRef[h] != 5 {
		t.Errorf("firstRef = %d, want 5 (first write wins)", s.firstRef[h])
	}
}

func TestOpcodeStrings(t *testing.T) {
	if OpDraw.String() != "draw" || OpDispatch.String() != "dispatch" {
		t.Error("opcode String() should return the documented names")
	}
	if Opcode(255).String() != "unknown-opcode" {
		t.Error("unrecognized opcode should report unknown-opcode")
	}
}
