// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// system.go is the System type, the single entry point applications hold.
// It wires together the registry (A), stream/scheduler (B/C), backend (D
// or E), compositor (F), verifier (G), and shader bridge (H), and exposes
// the operation set named in §6. Every method here must be called from
// the thread that created System (§5); in debug mode that is asserted
// with an OS thread-id check, the way the teacher guards GL context
// affinity in render/vulkan_debug.go.

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/coldforge/urc/urc/shaderlib"
)

// Option configures System at construction, following the teacher's
// functional-options style in config.go.
type Option func(*options)

type options struct {
	backend       BackendChoice
	slotCountHint int
	debug         bool
	log           *slog.Logger
	surfaceWidth  int
	surfaceHeight int
}

func defaultOptions() options {
	return options{
		backend:       BackendImmediate,
		slotCountHint: 2,
		debug:         false,
		log:           slog.Default(),
		surfaceWidth:  1280,
		surfaceHeight: 720,
	}
}

func WithBackend(b BackendChoice) Option { return func(o *options) { o.backend = b } }
func WithSlotCountHint(n int) Option     { return func(o *options) { o.slotCountHint = n } }
func WithDebug(on bool) Option           { return func(o *options) { o.debug = on } }
func WithLogger(l *slog.Logger) Option   { return func(o *options) { o.log = l } }
func WithSurfaceSize(w, h int) Option {
	return func(o *options) { o.surfaceWidth, o.surfaceHeight = w, h }
}

// System is the Unified Rendering Core's single entry point.
type System struct {
	opts options
	log  *slog.Logger

	reg    *Registry
	sched  *scheduler
	back   backend
	comp   *compositor
	verify *verifier
	bridge *shaderBridge

	last lastError

	ownerThread int
	cur         *FrameSlot // the slot currently being recorded, nil outside AcquireFrame/EndFrame.

	surfaceW, surfaceH int32

	// quadPipeline/textPipeline are the internal pipelines §4.C requires
	// draw-quad/draw-text (and the virtual-display compositor) to bind
	// before issuing their draw, compiled once at Init.
	quadPipeline, textPipeline Handle
}

// Init constructs a System with the given backend wired in. back is
// supplied by the caller, built with NewImmediateBackend or
// NewDeferredBackend (or a test double).
func Init(back backend, opt ...Option) (*System, *Error) {
	o := defaultOptions()
	for _, fn := range opt {
		fn(&o)
	}
	slotCount := back.slotCount()
	if o.slotCountHint > 0 {
		slotCount = o.slotCountHint
	}
	if slotCount < 2 {
		slotCount = 2
	}
	fences := make([]fence, slotCount)
	for i := range fences {
		fences[i] = back.newFence()
	}
	s := &System{
		opts:     o,
		log:      o.log,
		reg:      newRegistry(),
		sched:    newScheduler(slotCount, fences),
		back:     back,
		comp:     newCompositor(),
		verify:   newVerifier(o.debug, o.log),
		bridge:   newShaderBridge(),
		surfaceW: int32(o.surfaceWidth),
		surfaceH: int32(o.surfaceHeight),
	}
	s.ownerThread = unix.Gettid()

	qv, qf := shaderlib.Quad()
	qh, qerr := s.CreateShader(qv, qf, nil, "urc.internal.quad")
	if qerr != nil {
		return nil, qerr
	}
	s.quadPipeline = qh

	tv, tf := shaderlib.Text()
	textContract := []VertexAttribute{
		{Location: 0, ElementCount: 2, Scalar: ScalarFloat32, Offset: 0},
		{Location: 1, ElementCount: 2, Scalar: ScalarFloat32, Offset: 8},
	}
	th, terr := s.CreateShader(tv, tf, textContract, "urc.internal.text")
	if terr != nil {
		return nil, terr
	}
	s.textPipeline = th

	return s, nil
}

// checkThread asserts the caller is on the owning thread, in debug mode
// only (release builds pay no syscall per call).
func (s *System) checkThread(op string) *Error {
	if !s.opts.debug {
		return nil
	}
	if tid := unix.Gettid(); tid != s.ownerThread {
		return s.fail(newError(op, InvalidState, fmt.Sprintf("called from thread %d, owned by %d", tid, s.ownerThread), nil))
	}
	return nil
}

func (s *System) fail(e *Error) *Error {
	s.last.set(e)
	if e.Kind == BackendFailure || e.Kind == SurfaceLost {
		s.log.Warn("urc operation failed", "op", e.Op, "kind", e.Kind.String(), "attribution", e.Attribution)
	}
	return e
}

// Shutdown tears down the backend and reports any still-live resources,
// per §4.A's teardown contract and scenario S6.
func (s *System) Shutdown() []LeakDiagnostic {
	s.DestroyShader(s.quadPipeline)
	s.DestroyShader(s.textPipeline)
	leaks := s.reg.leaks()
	for _, l := range leaks {
		s.log.Error("resource leak at shutdown", "kind", l.Kind.String(), "attribution", l.Attribution)
	}
	s.back.shutdown()
	return leaks
}

// FrameStats returns a snapshot of scheduler activity.
func (s *System) FrameStats() FrameStats { return s.sched.stats() }

// ---- frame lifecycle ----

// AcquireFrame begins recording the next frame slot. It is the only call
// that may block (§5), waiting on the oldest slot's fence for the
// deferred backend.
func (s *System) AcquireFrame() *Error {
	if err := s.checkThread("acquire-frame"); err != nil {
		return err
	}
	if s.cur != nil {
		return s.fail(newError("acquire-frame", InvalidState, "already recording", nil))
	}
	for _, slot := range s.sched.slots {
		if s.sched.retire(slot) {
			s.reg.reclaim(slot.frameID)
		}
	}
	slot, err := s.sched.acquire()
	if err != nil {
		return s.fail(err)
	}
	s.cur = slot
	slot.compositeDisplays = s.comp.plan(s.reg)
	return nil
}

// EndFrame closes recording and submits the frame to the backend,
// arming the slot's fence.
func (s *System) EndFrame(ctx context.Context) *Error {
	if err := s.checkThread("end-frame"); err != nil {
		return err
	}
	if s.cur == nil {
		return s.fail(newError("end-frame", InvalidState, "not recording", nil))
	}
	if s.cur.pass == PassInside {
		return s.fail(newError("end-frame", InvalidState, "render pass still open", nil))
	}
	slot := s.cur
	if err := validateFrameTransition(slot.state, FrameInFlight); err != nil {
		return s.fail(err)
	}
	slot.state = FrameInFlight
	if err := s.back.submit(ctx, slot, s.reg); err != nil {
		return s.fail(err)
	}
	s.cur = nil
	return nil
}

// Resize notifies the backend and compositor of a new main-surface size,
// per scenario S5.
func (s *System) Resize(width, height int) *Error {
	if err := s.checkThread("resize"); err != nil {
		return err
	}
	if err := s.back.resizeSurface(width, height); err != nil {
		return s.fail(err)
	}
	s.surfaceW, s.surfaceH = int32(width), int32(height)
	for _, d := range s.reg.VisibleDisplays() {
		markDirty(d)
	}
	return nil
}

// ---- resource creation ----

func (s *System) CreateTexture(width, height int, format PixelFormat, usage TextureUsage, mips int, attribution string) (Handle, *Error) {
	h, err := s.reg.CreateTexture(width, height, format, usage, mips, attribution)
	if err != nil {
		return Handle{}, s.fail(err)
	}
	t, _ := s.reg.LookupTexture(h)
	if err := s.back.createTexture(t); err != nil {
		s.reg.textures.destroy(h)
		return Handle{}, s.fail(err)
	}
	return h, nil
}

func (s *System) DestroyTexture(h Handle) *Error {
	t, err := s.reg.LookupTexture(h)
	if err != nil {
		return s.fail(err)
	}
	s.back.destroyTexture(t)
	frameID := s.sched.frameID
	return s.reg.DestroyTexture(h, frameID)
}

func (s *System) CreateBuffer(size uint64, usage BufferUsage, attribution string) (Handle, *Error) {
	h, err := s.reg.CreateBuffer(size, usage, attribution)
	if err != nil {
		return Handle{}, s.fail(err)
	}
	b, _ := s.reg.LookupBuffer(h)
	if err := s.back.createBuffer(b); err != nil {
		s.reg.buffers.destroy(h)
		return Handle{}, s.fail(err)
	}
	return h, nil
}

func (s *System) DestroyBuffer(h Handle) *Error {
	b, err := s.reg.LookupBuffer(h)
	if err != nil {
		return s.fail(err)
	}
	s.back.destroyBuffer(b)
	return s.reg.DestroyBuffer(h, s.sched.frameID)
}

func (s *System) CreateMesh(vertexBytes, indexBytes uint64, vertexStride uint32, attribution string) (Handle, *Error) {
	h, err := s.reg.CreateMesh(vertexBytes, indexBytes, vertexStride, attribution)
	if err != nil {
		return Handle{}, s.fail(err)
	}
	m, _ := s.reg.LookupMesh(h)
	vb, _ := s.reg.LookupBuffer(m.VertexBuffer)
	ib, _ := s.reg.LookupBuffer(m.IndexBuffer)
	if err := s.back.createBuffer(vb); err != nil {
		return Handle{}, s.fail(err)
	}
	if err := s.back.createBuffer(ib); err != nil {
		return Handle{}, s.fail(err)
	}
	return h, nil
}

func (s *System) DestroyMesh(h Handle) *Error {
	m, err := s.reg.LookupMesh(h)
	if err != nil {
		return s.fail(err)
	}
	if vb, e := s.reg.LookupBuffer(m.VertexBuffer); e == nil {
		s.back.destroyBuffer(vb)
	}
	if ib, e := s.reg.LookupBuffer(m.IndexBuffer); e == nil {
		s.back.destroyBuffer(ib)
	}
	return s.reg.DestroyMesh(h, s.sched.frameID)
}

// CreateShader compiles vertexSrc/fragmentSrc (or accepts precompiled
// SPIR-V when sources are empty, per component H's absent-tolerant
// contract) and builds a graphics pipeline against contract.
func (s *System) CreateShader(vertexSrc, fragmentSrc string, contract []VertexAttribute, attribution string) (Handle, *Error) {
	h, err := s.reg.CreateShader(attribution)
	if err != nil {
		return Handle{}, s.fail(err)
	}
	sh, _ := s.reg.LookupShader(h)
	sh.VertexSource, sh.FragmentSource, sh.Contract = vertexSrc, fragmentSrc, contract
	if err := s.bridge.compileGraphics(sh); err != nil {
		s.reg.shaders.destroy(h)
		return Handle{}, s.fail(err)
	}
	if err := s.back.compileShader(sh, s.bridge); err != nil {
		s.reg.shaders.destroy(h)
		return Handle{}, s.fail(err)
	}
	return h, nil
}

func (s *System) DestroyShader(h Handle) *Error {
	sh, err := s.reg.LookupShader(h)
	if err != nil {
		return s.fail(err)
	}
	s.back.destroyShader(sh)
	return s.reg.DestroyShader(h, s.sched.frameID)
}

func (s *System) CreateCompute(source string, layout DescriptorLayoutKind, attribution string) (Handle, *Error) {
	h, err := s.reg.CreateCompute(layout, attribution)
	if err != nil {
		return Handle{}, s.fail(err)
	}
	c, _ := s.reg.LookupCompute(h)
	c.ComputeSource = source
	if err := s.bridge.compileCompute(c); err != nil {
		s.reg.computes.destroy(h)
		return Handle{}, s.fail(err)
	}
	if err := s.back.createCompute(c, s.bridge); err != nil {
		s.reg.computes.destroy(h)
		return Handle{}, s.fail(err)
	}
	return h, nil
}

func (s *System) DestroyCompute(h Handle) *Error {
	c, err := s.reg.LookupCompute(h)
	if err != nil {
		return s.fail(err)
	}
	s.back.destroyCompute(c)
	return s.reg.DestroyCompute(h, s.sched.frameID)
}

// CreateVirtualDisplay allocates an off-screen color+depth target
// composited into the main surface each frame (§4.F).
func (s *System) CreateVirtualDisplay(id int32, width, height, z int, scaling ScalingMode, blend BlendMode, timeMultiplier float64) *Error {
	d, err := s.reg.CreateVirtualDisplay(id, width, height, z, scaling, blend, timeMultiplier)
	if err != nil {
		return s.fail(err)
	}
	color, _ := s.reg.LookupTexture(d.ColorAttachment)
	depth, _ := s.reg.LookupTexture(d.DepthAttachment)
	if err := s.back.createTexture(color); err != nil {
		return s.fail(err)
	}
	if err := s.back.createTexture(depth); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *System) DestroyVirtualDisplay(id int32) *Error {
	if err := s.reg.DestroyVirtualDisplay(id, s.sched.frameID); err != nil {
		return s.fail(err)
	}
	return nil
}

// SetVirtualDisplayVisible toggles a display's visibility and marks it
// dirty for the next composite pass.
func (s *System) SetVirtualDisplayVisible(id int32, visible bool) *Error {
	d := s.reg.findDisplay(id)
	if d == nil {
		return s.fail(newError("set-virtual-display-visible", InvalidArgument, "", nil))
	}
	d.Visible = visible
	markDirty(d)
	return nil
}

// ---- recording ----

func (s *System) streamOrErr(op string) (*Stream, *Error) {
	if s.cur == nil {
		return nil, s.fail(newError(op, InvalidState, "no frame recording", nil))
	}
	return s.cur.stream, nil
}

// BeginRenderPass opens a render pass against target (MainDisplayID for
// the main surface, or a virtual display's ID) and records its load/store
// actions for the color and depth attachments, per §4.C/§4.D. Clear sets
// the clear state and clears; load is a no-op; don't-care is also a
// no-op.
//
// Opening a pass against MainDisplayID also emits the virtual-display
// compositor's planned draw-quad sequence (computed at AcquireFrame) the
// first time this frame, ahead of whatever the caller draws next, so the
// composited layers land underneath the application's own main-surface
// drawing.
func (s *System) BeginRenderPass(target int32, colorLoad LoadOp, colorClear [4]float32, depthLoad LoadOp, depthClear float32) *Error {
	stream, err := s.streamOrErr("begin-render-pass")
	if err != nil {
		return err
	}
	if target != MainDisplayID && s.reg.findDisplay(target) == nil {
		return s.fail(newError("begin-render-pass", InvalidArgument, "", nil))
	}
	if err := validatePassTransition(s.cur.pass, PassInside); err != nil {
		return s.fail(err)
	}
	s.cur.pass = PassInside
	stream.append(Packet{
		Op: OpBeginRenderPass, Target: target,
		ColorLoad: colorLoad, ColorStore: StoreOpStore, ColorClear: colorClear,
		DepthLoad: depthLoad, DepthStore: StoreOpStore, DepthClear: depthClear,
	})
	if target == MainDisplayID && !s.cur.compositeEmitted {
		s.comp.emit(stream, s.cur.compositeDisplays, s.surfaceW, s.surfaceH, s.quadPipeline)
		s.cur.compositeEmitted = true
	}
	return nil
}

func (s *System) EndRenderPass() *Error {
	stream, err := s.streamOrErr("end-render-pass")
	if err != nil {
		return err
	}
	if err := validatePassTransition(s.cur.pass, PassOutside); err != nil {
		return s.fail(err)
	}
	s.cur.pass = PassOutside
	stream.append(Packet{Op: OpEndRenderPass})
	return nil
}

func (s *System) SetViewport(r Rect) *Error {
	stream, err := s.streamOrErr("set-viewport")
	if err != nil {
		return err
	}
	stream.append(Packet{Op: OpSetViewport, Rect: r})
	return nil
}

func (s *System) SetScissor(r Rect) *Error {
	stream, err := s.streamOrErr("set-scissor")
	if err != nil {
		return err
	}
	stream.append(Packet{Op: OpSetScissor, Rect: r})
	return nil
}

func (s *System) BindPipeline(h Handle) *Error {
	stream, err := s.streamOrErr("bind-pipeline")
	if err != nil {
		return err
	}
	if err := validateDraw(s.cur.pass); err != nil {
		return s.fail(err)
	}
	idx := stream.append(Packet{Op: OpBindPipeline, Handle: h})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) BindVertexBuffer(h Handle, binding uint32) *Error {
	stream, err := s.streamOrErr("bind-vertex-buffer")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindVertexBuffer, Handle: h, Location: binding})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) BindIndexBuffer(h Handle) *Error {
	stream, err := s.streamOrErr("bind-index-buffer")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindIndexBuffer, Handle: h})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) SetVertexAttribute(a VertexAttribute) *Error {
	stream, err := s.streamOrErr("set-vertex-attribute")
	if err != nil {
		return err
	}
	stream.append(Packet{
		Op: OpSetVertexAttribute, Location: a.Location, ElementCount: a.ElementCount,
		Scalar: a.Scalar, Normalized: a.Normalized, Offset: a.Offset,
	})
	return nil
}

func (s *System) BindUniformBuffer(h Handle, binding uint32) *Error {
	stream, err := s.streamOrErr("bind-uniform-buffer")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindUniformBuffer, Handle: h, Location: binding})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) BindStorageBuffer(h Handle, binding uint32) *Error {
	stream, err := s.streamOrErr("bind-storage-buffer")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindStorageBuffer, Handle: h, Location: binding})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) BindSampledTexture(h Handle, binding uint32) *Error {
	stream, err := s.streamOrErr("bind-sampled-texture")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindSampledTexture, Handle: h, Location: binding})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) SetPushConstant(data []byte) *Error {
	stream, err := s.streamOrErr("set-push-constant")
	if err != nil {
		return err
	}
	off, n := stream.writeArena(data)
	stream.append(Packet{Op: OpSetPushConstant, PayloadOffset: off, PayloadLen: n})
	return nil
}

// Draw with vertexCount of zero is a no-op: state is validated but no
// packet is recorded, so no backend call beyond the state setup already
// issued by earlier bind-* calls ever reaches the GPU.
func (s *System) Draw(vertexCount, instanceCount, firstVertex uint32) *Error {
	stream, err := s.streamOrErr("draw")
	if err != nil {
		return err
	}
	if err := validateDraw(s.cur.pass); err != nil {
		return s.fail(err)
	}
	if vertexCount == 0 {
		return nil
	}
	stream.append(Packet{Op: OpDraw, VertexCount: vertexCount, InstanceCount: instanceCount, FirstVertex: firstVertex})
	return nil
}

// DrawIndexed with indexCount of zero is a no-op, mirroring Draw.
func (s *System) DrawIndexed(indexCount, instanceCount, firstIndex uint32) *Error {
	stream, err := s.streamOrErr("draw-indexed")
	if err != nil {
		return err
	}
	if err := validateDraw(s.cur.pass); err != nil {
		return s.fail(err)
	}
	if indexCount == 0 {
		return nil
	}
	stream.append(Packet{Op: OpDrawIndexed, IndexCount: indexCount, InstanceCount: instanceCount, FirstIndex: firstIndex})
	return nil
}

func (s *System) DrawMesh(h Handle) *Error {
	stream, err := s.streamOrErr("draw-mesh")
	if err != nil {
		return err
	}
	if err := validateDraw(s.cur.pass); err != nil {
		return s.fail(err)
	}
	idx := stream.append(Packet{Op: OpDrawMesh, Handle: h})
	stream.noteFirstRef(h, idx)
	return nil
}

// DrawQuad draws URC's built-in textured quad pipeline (shaderlib) with
// texture h into rect, used both by application code and internally by
// the compositor.
func (s *System) DrawQuad(h Handle, rect Rect) *Error {
	stream, err := s.streamOrErr("draw-quad")
	if err != nil {
		return err
	}
	if err := validateDraw(s.cur.pass); err != nil {
		return s.fail(err)
	}
	stream.append(Packet{Op: OpBindPipeline, Handle: s.quadPipeline})
	idx := stream.append(Packet{Op: OpDrawQuad, Handle: h, Rect: rect})
	stream.noteFirstRef(h, idx)
	return nil
}

// DrawText draws run with URC's built-in text pipeline at the baseline
// implied by rect, using the font atlas texture h (populated by the
// fontatlas package).
func (s *System) DrawText(h Handle, rect Rect, run string, pointSize float32) *Error {
	stream, err := s.streamOrErr("draw-text")
	if err != nil {
		return err
	}
	if err := validateDraw(s.cur.pass); err != nil {
		return s.fail(err)
	}
	stream.append(Packet{Op: OpBindPipeline, Handle: s.textPipeline})
	off, n := stream.writeArena([]byte(run))
	idx := stream.append(Packet{
		Op: OpDrawText, Handle: h, Rect: rect, PayloadOffset: off, PayloadLen: n,
		Text: struct {
			FontAttribution string
			PointSize       float32
		}{PointSize: pointSize},
	})
	stream.noteFirstRef(h, idx)
	return nil
}

// UpdateBuffer performs an immediate host->device write to buffer h,
// checked by the verifier against earlier reads this frame.
func (s *System) UpdateBuffer(h Handle, offset int, data []byte) *Error {
	stream, err := s.streamOrErr("update-buffer")
	if err != nil {
		return err
	}
	if err := s.verify.checkUpdate(stream, h, OpUpdateBuffer); err != nil {
		return s.fail(err)
	}
	b, lerr := s.reg.LookupBuffer(h)
	if lerr != nil {
		return s.fail(lerr)
	}
	if err := s.back.updateBufferNow(b, offset, data); err != nil {
		return s.fail(err)
	}
	off, n := stream.writeArena(data)
	stream.append(Packet{Op: OpUpdateBuffer, Handle: h, Offset: uint32(offset), PayloadOffset: off, PayloadLen: n})
	return nil
}

// UpdateTextureRegion performs an immediate host->device write to a
// sub-region of texture h.
func (s *System) UpdateTextureRegion(h Handle, region Rect, data []byte) *Error {
	stream, err := s.streamOrErr("update-texture-region")
	if err != nil {
		return err
	}
	if err := s.verify.checkUpdate(stream, h, OpUpdateTextureRegion); err != nil {
		return s.fail(err)
	}
	t, lerr := s.reg.LookupTexture(h)
	if lerr != nil {
		return s.fail(lerr)
	}
	if err := s.back.updateTextureNow(t, region, data); err != nil {
		return s.fail(err)
	}
	off, n := stream.writeArena(data)
	stream.append(Packet{Op: OpUpdateTextureRegion, Handle: h, Rect: region, PayloadOffset: off, PayloadLen: n})
	return nil
}

// ---- compute ----

func (s *System) BindComputePipeline(h Handle) *Error {
	stream, err := s.streamOrErr("bind-compute-pipeline")
	if err != nil {
		return err
	}
	if err := validateCompute(s.cur.pass); err != nil {
		return s.fail(err)
	}
	idx := stream.append(Packet{Op: OpBindComputePipeline, Handle: h})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) BindComputeStorageBuffer(h Handle, binding uint32) *Error {
	stream, err := s.streamOrErr("bind-compute-storage-buffer")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindComputeStorageBuffer, Handle: h, Location: binding})
	stream.noteFirstRef(h, idx)
	return nil
}

func (s *System) BindComputeStorageImage(h Handle, binding uint32) *Error {
	stream, err := s.streamOrErr("bind-compute-storage-image")
	if err != nil {
		return err
	}
	idx := stream.append(Packet{Op: OpBindComputeStorageImage, Handle: h, Location: binding})
	stream.noteFirstRef(h, idx)
	return nil
}

// Dispatch with a zero group count on any axis is a no-op, matching Draw's
// zero-vertex short-circuit.
func (s *System) Dispatch(groupsX, groupsY, groupsZ uint32) *Error {
	stream, err := s.streamOrErr("dispatch")
	if err != nil {
		return err
	}
	if err := validateCompute(s.cur.pass); err != nil {
		return s.fail(err)
	}
	if groupsX == 0 || groupsY == 0 || groupsZ == 0 {
		return nil
	}
	stream.append(Packet{Op: OpDispatch, GroupsX: groupsX, GroupsY: groupsY, GroupsZ: groupsZ})
	return nil
}

// PipelineBarrier records an explicit synchronization point between
// srcMask and dstMask, the closed 10-value pipeline-stage/access set from
// §4.C. A barrier mapping for the immediate backend collapses these to
// the appropriate immediate-backend memory-barrier bits; the deferred
// backend translates them into native Vulkan pipeline-stage/access
// flags.
func (s *System) PipelineBarrier(srcMask, dstMask StageMask) *Error {
	stream, err := s.streamOrErr("pipeline-barrier")
	if err != nil {
		return err
	}
	stream.append(Packet{Op: OpPipelineBarrier, SrcStageMask: srcMask, DstStageMask: dstMask})
	return nil
}
