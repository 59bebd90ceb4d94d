// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// backend.go declares the capability-set interface shared by the
// immediate (component D) and deferred (component E) executors. Both
// backends implement the exact same surface; only their internal
// execution semantics differ (walk-and-call per packet vs record-then-
// submit a native command buffer), matching the teacher's pattern of one
// Renderer interface with an OpenGL and a (partial) Vulkan implementation
// in render/opengl.go and render/vulkan.go.

import "context"

// BackendChoice selects which executor System.Init wires up.
type BackendChoice uint8

const (
	BackendImmediate BackendChoice = iota // OpenGL 4.6 Core
	BackendDeferred                       // Vulkan 1.1
)

func (b BackendChoice) String() string {
	if b == BackendDeferred {
		return "deferred"
	}
	return "immediate"
}

// backend is implemented by the immediate and deferred executors. System
// calls the create/destroy/update methods synchronously from its
// application-facing API methods and hands each recorded Stream to submit
// at EndFrame.
type backend interface {
	// choice reports which BackendChoice this executor implements.
	choice() BackendChoice

	// slotCount returns how many frame slots this backend wants in
	// flight: 2 for immediate, 2 or 3 for deferred depending on the
	// swapchain image count negotiated with the surface.
	slotCount() int

	// newFence creates one per-slot completion fence, of whatever kind
	// this backend actually needs to wait on.
	newFence() fence

	// createTexture/createBuffer/createShader/createCompute allocate the
	// backend-owned resource and store it on the registry entry's opaque
	// backend field. Called synchronously by System's create-* methods,
	// never deferred into a Stream.
	createTexture(t *Texture) *Error
	createBuffer(b *Buffer) *Error
	compileShader(sh *Shader, bridge *shaderBridge) *Error
	createCompute(c *ComputePipeline, bridge *shaderBridge) *Error

	destroyTexture(t *Texture)
	destroyBuffer(b *Buffer)
	destroyShader(sh *Shader)
	destroyCompute(c *ComputePipeline)

	// updateBufferNow / updateTextureNow perform an immediate host->device
	// copy outside of Stream recording, used by System for the
	// update-buffer/update-texture-region operations which, per §4.C,
	// take effect immediately rather than being deferred to frame end.
	updateBufferNow(b *Buffer, offset int, data []byte) *Error
	updateTextureNow(t *Texture, region Rect, data []byte) *Error

	// submit consumes a fully recorded Stream for one frame slot. For the
	// immediate backend this walks packets and issues GL calls inline;
	// for the deferred backend this records a native command buffer and
	// submits it, arming slot.fence.
	submit(ctx context.Context, slot *FrameSlot, reg *Registry) *Error

	// resizeSurface is called when the owning window reports a size
	// change; it recreates the swapchain (deferred) or no-ops beyond
	// updating the cached viewport (immediate).
	resizeSurface(width, height int) *Error

	// shutdown releases backend-global state (device, instance, GL
	// context teardown hooks) once every resource has been destroyed.
	shutdown()
}
