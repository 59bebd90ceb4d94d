// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// state.go validates the render-pass and compute-dispatch state machines
// from §5, on top of the frame state machine already enforced in
// frame.go. Render pass: outside -> inside -> outside, no nesting.
// Compute dispatch: only legal outside a render pass.

import "fmt"

func validatePassTransition(have, want PassState) *Error {
	ok := (have == PassOutside && want == PassInside) ||
		(have == PassInside && want == PassOutside)
	if !ok {
		return newError("render-pass-transition", InvalidState, fmt.Sprintf("%v->%v", have, want), nil)
	}
	return nil
}

func (p PassState) String() string {
	if p == PassInside {
		return "inside"
	}
	return "outside"
}

// validateCompute checks that a dispatch (or compute-pipeline/storage
// bind leading up to one) is legal given the current pass state: compute
// work may only be recorded outside a render pass.
func validateCompute(pass PassState) *Error {
	if pass == PassInside {
		return newError("dispatch", InvalidState, "inside render pass", nil)
	}
	return nil
}

// validateDraw checks that a draw call is legal given the current pass
// state: all draw-* opcodes require an active render pass.
func validateDraw(pass PassState) *Error {
	if pass == PassOutside {
		return newError("draw", InvalidState, "outside render pass", nil)
	}
	return nil
}
