// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// verifier.go is the Update-Before-Draw Verifier, component G. It tracks
// the first packet index at which each handle is referenced within a
// frame (via Stream.firstRef) and flags an update-buffer/update-texture
// packet that appears after a draw already read the same handle. Debug
// builds treat this as fatal (returns an OrderingViolation error);
// release builds log a warning exactly once per offending handle and let
// the frame proceed, matching the two-tier severity the teacher applies
// to GL error checking in render/vulkan_debug.go vs vulkan_release.go.

import "log/slog"

type verifier struct {
	debug bool
	log   *slog.Logger
	warned map[Handle]bool
}

func newVerifier(debug bool, log *slog.Logger) *verifier {
	return &verifier{debug: debug, log: log, warned: make(map[Handle]bool)}
}

// checkUpdate is called when an update-buffer/update-texture-region
// packet is about to be appended for h. If h was already referenced
// earlier in this frame's stream, that is an ordering violation: the
// update would race (in the deferred backend) or silently reorder
// (in the immediate backend) against a read the scheduler already
// committed to.
func (v *verifier) checkUpdate(s *Stream, h Handle, op Opcode) *Error {
	firstIdx, seen := s.firstRef[h]
	if !seen {
		return nil
	}
	_ = firstIdx
	if v.debug {
		return newError(op.String(), OrderingViolation, h.Kind.String(), nil)
	}
	if !v.warned[h] {
		v.warned[h] = true
		if v.log != nil {
			v.log.Warn("update after read in same frame", "op", op.String(), "kind", h.Kind.String())
		}
	}
	return nil
}

// warned is never cleared between frames: it is kept for the verifier's
// whole lifetime ("warn-once-per-handle", not once-per-frame) per §4.G.
