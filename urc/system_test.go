// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import (
	"context"
	"testing"

	"github.com/coldforge/urc/urc/shaderlib"
)

// S1: clear-and-present. A single frame with a render pass that touches
// no resources still records, submits and retires cleanly.
func TestScenarioClearAndPresent(t *testing.T) {
	back := newFakeBackend(2)
	sys, err := Init(back, WithSlotCountHint(2))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer sys.Shutdown()

	clear := [4]float32{0, 12.0 / 255, 24.0 / 255, 1}
	if err := sys.AcquireFrame(); err != nil {
		t.Fatalf("AcquireFrame: %v", err)
	}
	if err := sys.BeginRenderPass(MainDisplayID, LoadOpClear, clear, LoadOpDontCare, 0); err != nil {
		t.Fatalf("BeginRenderPass: %v", err)
	}
	if err := sys.SetViewport(Rect{0, 0, 1280, 720}); err != nil {
		t.Fatalf("SetViewport: %v", err)
	}
	if err := sys.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass: %v", err)
	}
	if err := sys.EndFrame(context.Background()); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if back.submitCalls != 1 {
		t.Errorf("submitCalls = %d, want 1", back.submitCalls)
	}
	want := [4]byte{0, 12, 24, 255}
	if back.mainColor != want {
		t.Errorf("main surface cleared to %v, want %v", back.mainColor, want)
	}
	if sys.FrameStats().FrameIndex != 1 {
		t.Errorf("FrameIndex = %d, want 1", sys.FrameStats().FrameIndex)
	}
}

// S2: compute multiply + readback. Two storage buffers bound to a
// compute pipeline, dispatched, and the output buffer inspected after
// the frame retires.
func TestScenarioComputeMultiplyAndReadback(t *testing.T) {
	back := newFakeBackend(1)
	sys, err := Init(back, WithSlotCountHint(1))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer sys.Shutdown()

	in := []float32{1, 2, 3, 4}
	storageUsage := UsageBufferStorage | UsageBufferTransferSrc | UsageBufferTransferDst
	inH, err := sys.CreateBuffer(uint64(len(in)*4), storageUsage, "s2-in")
	if err != nil {
		t.Fatalf("CreateBuffer in: %v", err)
	}
	outH, err := sys.CreateBuffer(uint64(len(in)*4), storageUsage, "s2-out")
	if err != nil {
		t.Fatalf("CreateBuffer out: %v", err)
	}
	compH, err := sys.CreateCompute(shaderlib.Multiply(), LayoutTwoStorageBuffers, "s2-multiply")
	if err != nil {
		t.Fatalf("CreateCompute: %v", err)
	}

	if err := sys.AcquireFrame(); err != nil {
		t.Fatalf("AcquireFrame: %v", err)
	}
	if err := sys.UpdateBuffer(inH, 0, float32Bytes(in)); err != nil {
		t.Fatalf("UpdateBuffer: %v", err)
	}
	if err := sys.BindComputePipeline(compH); err != nil {
		t.Fatalf("BindComputePipeline: %v", err)
	}
	if err := sys.BindComputeStorageBuffer(inH, 0); err != nil {
		t.Fatalf("BindComputeStorageBuffer in: %v", err)
	}
	if err := sys.BindComputeStorageBuffer(outH, 1); err != nil {
		t.Fatalf("BindComputeStorageBuffer out: %v", err)
	}
	if err := sys.SetPushConstant(float32Bytes([]float32{2})); err != nil {
		t.Fatalf("SetPushConstant: %v", err)
	}
	if err := sys.Dispatch(1, 1, 1); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := sys.PipelineBarrier(StageComputeWrite, StageHostRead); err != nil {
		t.Fatalf("PipelineBarrier: %v", err)
	}
	if err := sys.EndFrame(context.Background()); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	got := bytesToFloat32(back.buffers[outH])
	want := []float32{2, 4, 6, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// S3: virtual-display compositing. Two virtual displays at distinct z,
// one opaque and one half-transparent, are each cleared to a solid
// color; compositing them onto the main surface must blend in z order
// and produce the documented pixel.
func TestScenarioVirtualDisplayCompositing(t *testing.T) {
	back := newFakeBackend(1)
	sys, err := Init(back, WithSlotCountHint(1), WithSurfaceSize(640, 480))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer sys.Shutdown()

	if err := sys.CreateVirtualDisplay(1, 320, 240, 0, ScaleFit, BlendOpaque, 1); err != nil {
		t.Fatalf("CreateVirtualDisplay 1: %v", err)
	}
	if err := sys.CreateVirtualDisplay(2, 320, 240, 1, ScaleFit, BlendAlpha, 1); err != nil {
		t.Fatalf("CreateVirtualDisplay 2: %v", err)
	}
	sys.reg.findDisplay(2).Opacity = 0.5

	if err := sys.AcquireFrame(); err != nil {
		t.Fatalf("AcquireFrame: %v", err)
	}
	red := [4]float32{1, 0, 0, 1}
	blue := [4]float32{0, 0, 1, 1}
	if err := sys.BeginRenderPass(1, LoadOpClear, red, LoadOpDontCare, 0); err != nil {
		t.Fatalf("BeginRenderPass d1: %v", err)
	}
	if err := sys.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass d1: %v", err)
	}
	if err := sys.BeginRenderPass(2, LoadOpClear, blue, LoadOpDontCare, 0); err != nil {
		t.Fatalf("BeginRenderPass d2: %v", err)
	}
	if err := sys.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass d2: %v", err)
	}

	quads := 0
	if err := sys.BeginRenderPass(MainDisplayID, LoadOpClear, [4]float32{0, 0, 0, 1}, LoadOpDontCare, 0); err != nil {
		t.Fatalf("BeginRenderPass main: %v", err)
	}
	for _, p := range sys.cur.stream.packets {
		if p.Op == OpDrawQuad {
			quads++
		}
	}
	if quads != 2 {
		t.Errorf("expected 2 composited quads in the main pass, got %d", quads)
	}
	if err := sys.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass main: %v", err)
	}
	if err := sys.EndFrame(context.Background()); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}

	want := [4]byte{127, 0, 127, 255}
	for i, c := range back.mainColor {
		diff := int(c) - int(want[i])
		if diff < -1 || diff > 1 {
			t.Errorf("composited main color = %v, want %v (±1 rounding)", back.mainColor, want)
			break
		}
	}
}

// S4: ordering violation detection. Updating a buffer's contents after
// it has already been bound for a read within the same frame must be
// rejected in debug mode.
func TestScenarioOrderingViolationDetection(t *testing.T) {
	back := newFakeBackend(1)
	sys, err := Init(back, WithSlotCountHint(1), WithDebug(true))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer sys.Shutdown()

	bufH, err := sys.CreateBuffer(64, UsageVertex, "s4-buf")
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := sys.AcquireFrame(); err != nil {
		t.Fatalf("AcquireFrame: %v", err)
	}
	if err := sys.BeginRenderPass(MainDisplayID, LoadOpDontCare, [4]float32{}, LoadOpDontCare, 0); err != nil {
		t.Fatalf("BeginRenderPass: %v", err)
	}
	if err := sys.BindVertexBuffer(bufH, 0); err != nil {
		t.Fatalf("BindVertexBuffer: %v", err)
	}
	if err := sys.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass: %v", err)
	}
	if err := sys.UpdateBuffer(bufH, 0, make([]byte, 16)); err == nil {
		t.Fatal("expected an ordering violation updating a buffer already read this frame")
	} else if err.Kind != OrderingViolation {
		t.Errorf("Kind = %v, want OrderingViolation", err.Kind)
	}
}

// S5: swapchain resize. Resize must propagate to the backend and mark
// every visible virtual display dirty for recomposite.
func TestScenarioSwapchainResize(t *testing.T) {
	back := newFakeBackend(1)
	sys, err := Init(back, WithSlotCountHint(1), WithSurfaceSize(800, 600))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer sys.Shutdown()

	if err := sys.CreateVirtualDisplay(1, 320, 180, 0, ScaleFit, BlendAlpha, 1); err != nil {
		t.Fatalf("CreateVirtualDisplay: %v", err)
	}
	d := sys.reg.findDisplay(1)
	d.dirty = false

	if err := sys.Resize(1024, 768); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if back.resizeCalls != 1 || back.lastWidth != 1024 || back.lastHeight != 768 {
		t.Errorf("backend resize not propagated: %+v", back)
	}
	if !d.dirty {
		t.Error("visible virtual display should be marked dirty after resize")
	}
}

// S6: leak detection. Resources created but never destroyed must be
// reported by Shutdown's leak diagnostic.
func TestScenarioLeakDetection(t *testing.T) {
	back := newFakeBackend(1)
	sys, err := Init(back, WithSlotCountHint(1))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := sys.CreateBuffer(64, UsageVertex, "leaked-buffer"); err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if _, err := sys.CreateTexture(4, 4, FormatRGBA8, UsageSampled, 1, "leaked-texture"); err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	leaks := sys.Shutdown()
	if len(leaks) < 2 {
		t.Fatalf("expected at least 2 leaked resources, got %d: %+v", len(leaks), leaks)
	}
	found := map[string]bool{}
	for _, l := range leaks {
		found[l.Attribution] = true
	}
	if !found["leaked-buffer"] || !found["leaked-texture"] {
		t.Errorf("leak diagnostics missing expected attributions: %+v", leaks)
	}
}
