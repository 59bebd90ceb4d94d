// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import "testing"

func TestVerifierDebugModeFatalOnUpdateAfterRead(t *testing.T) {
	v := newVerifier(true, nil)
	s := newStream()
	h := makeHandle(KindBuffer, 1, 0)
	s.noteFirstRef(h, 0)
	err := v.checkUpdate(s, h, OpUpdateBuffer)
	if err == nil || err.Kind != OrderingViolation {
		t.Fatalf("expected OrderingViolation in debug mode, got %v", err)
	}
}

func TestVerifierReleaseModeWarnsOncePerHandle(t *testing.T) {
	v := newVerifier(false, nil)
	s := newStream()
	h := makeHandle(KindBuffer, 1, 0)
	s.noteFirstRef(h, 0)
	if err := v.checkUpdate(s, h, OpUpdateBuffer); err != nil {
		t.Fatalf("release mode should not fail the call, got %v", err)
	}
	if !v.warned[h] {
		t.Error("handle should be marked warned after first violation")
	}
	// A second violation on the same handle must not panic or re-escalate.
	if err := v.checkUpdate(s, h, OpUpdateBuffer); err != nil {
		t.Fatalf("second release-mode violation should also be nil, got %v", err)
	}
}

func TestVerifierAllowsUpdateBeforeAnyRead(t *testing.T) {
	v := newVerifier(true, nil)
	s := newStream()
	h := makeHandle(KindBuffer, 1, 0)
	if err := v.checkUpdate(s, h, OpUpdateBuffer); err != nil {
		t.Fatalf("update before any read should be legal, got %v", err)
	}
}
