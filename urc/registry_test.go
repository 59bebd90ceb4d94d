// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import "testing"

func TestCreateDestroyTexture(t *testing.T) {
	r := newRegistry()
	h, err := r.CreateTexture(64, 64, FormatRGBA8, UsageSampled, 1, "test.go:1")
	if err != nil {
		t.Fatal(err)
	}
	tex, err := r.LookupTexture(h)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Usage&UsageStorage == 0 {
		t.Error("every texture should be compute-ready by default")
	}
	if err := r.DestroyTexture(h, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := r.LookupTexture(h); err == nil {
		t.Fatal("lookup after destroy should fail")
	}
}

func TestCreateTextureRejectsBadDims(t *testing.T) {
	r := newRegistry()
	if _, err := r.CreateTexture(0, 10, FormatRGBA8, UsageSampled, 1, "x"); err == nil {
		t.Fatal("expected invalid-argument for zero width")
	} else if err.Kind != InvalidArgument {
		t.Fatalf("got kind %v, want InvalidArgument", err.Kind)
	}
}

func TestMeshOwnsItsBuffers(t *testing.T) {
	r := newRegistry()
	h, err := r.CreateMesh(1024, 256, 32, "mesh.go:1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := r.LookupMesh(h)
	if err != nil {
		t.Fatal(err)
	}
	if m.VertexBuffer.IsNull() || m.IndexBuffer.IsNull() {
		t.Fatal("mesh should own non-null vertex/index buffers")
	}
	if _, err := r.LookupBuffer(m.VertexBuffer); err != nil {
		t.Fatal("mesh's vertex buffer should be independently lookupable")
	}
	if err := r.DestroyMesh(h, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := r.LookupBuffer(m.VertexBuffer); err == nil {
		t.Fatal("destroying a mesh should destroy its vertex buffer")
	}
}

func TestLeaksReportsStillLiveResources(t *testing.T) {
	r := newRegistry()
	_, err := r.CreateTexture(8, 8, FormatRGBA8, UsageSampled, 1, "leaker.go:42")
	if err != nil {
		t.Fatal(err)
	}
	leaks := r.leaks()
	if len(leaks) != 1 {
		t.Fatalf("got %d leaks, want 1", len(leaks))
	}
	if leaks[0].Kind != KindTexture || leaks[0].Attribution != "leaker.go:42" {
		t.Errorf("leak diagnostic = %+v", leaks[0])
	}
}

func TestLeaksEmptyWhenAllDestroyed(t *testing.T) {
	r := newRegistry()
	h, _ := r.CreateBuffer(16, UsageUniform, "ok.go:1")
	r.DestroyBuffer(h, 0)
	if leaks := r.leaks(); len(leaks) != 0 {
		t.Fatalf("got %d leaks, want 0", len(leaks))
	}
}

func TestVirtualDisplayOwnsAttachments(t *testing.T) {
	r := newRegistry()
	d, err := r.CreateVirtualDisplay(7, 320, 240, 1, ScaleFit, BlendAlpha, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if d.ColorAttachment.IsNull() || d.DepthAttachment.IsNull() {
		t.Fatal("virtual display should own non-null attachments")
	}
	if err := r.DestroyVirtualDisplay(7, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := r.LookupTexture(d.ColorAttachment); err == nil {
		t.Fatal("destroying a virtual display should destroy its color attachment")
	}
}

func TestStaleHandleAfterGenerationBump(t *testing.T) {
	r := newRegistry()
	h1, _ := r.CreateBuffer(16, UsageUniform, "a")
	r.DestroyBuffer(h1, 0)
	h2, _ := r.CreateBuffer(16, UsageUniform, "b")
	if h1.index() == h2.index() {
		if _, err := r.LookupBuffer(h1); err == nil {
			t.Fatal("stale handle into a reused slot should fail lookup")
		}
	}
}
