// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// stream.go is the Command Stream, component C: a tagged-variant sequence
// of opcodes recorded during a frame's recording phase and consumed exactly
// once at frame end. The packet shape and the "inline payload bytes live in
// a frame-owned arena" pattern follow the teacher's render/packet.go, which
// records draw calls into a reusable packet slice rather than allocating
// per call.

// Opcode enumerates every recordable command, matching §4.C.
type Opcode uint8

const (
	OpBeginRenderPass Opcode = iota
	OpEndRenderPass
	OpSetViewport
	OpSetScissor
	OpBindPipeline
	OpBindVertexBuffer
	OpBindIndexBuffer
	OpSetVertexAttribute
	OpBindUniformBuffer
	OpBindStorageBuffer
	OpBindSampledTexture
	OpSetPushConstant
	OpDraw
	OpDrawIndexed
	OpDrawMesh
	OpDrawQuad
	OpDrawText
	OpUpdateBuffer
	OpUpdateTextureRegion
	OpBindComputePipeline
	OpBindComputeStorageBuffer
	OpBindComputeStorageImage
	OpDispatch
	OpPipelineBarrier
)

func (o Opcode) String() string {
	switch o {
	case OpBeginRenderPass:
		return "begin-render-pass"
	case OpEndRenderPass:
		return "end-render-pass"
	case OpSetViewport:
		return "set-viewport"
	case OpSetScissor:
		return "set-scissor"
	case OpBindPipeline:
		return "bind-pipeline"
	case OpBindVertexBuffer:
		return "bind-vertex-buffer"
	case OpBindIndexBuffer:
		return "bind-index-buffer"
	case OpSetVertexAttribute:
		return "set-vertex-attribute"
	case OpBindUniformBuffer:
		return "bind-uniform-buffer"
	case OpBindStorageBuffer:
		return "bind-storage-buffer"
	case OpBindSampledTexture:
		return "bind-sampled-texture"
	case OpSetPushConstant:
		return "set-push-constant"
	case OpDraw:
		return "draw"
	case OpDrawIndexed:
		return "draw-indexed"
	case OpDrawMesh:
		return "draw-mesh"
	case OpDrawQuad:
		return "draw-quad"
	case OpDrawText:
		return "draw-text"
	case OpUpdateBuffer:
		return "update-buffer"
	case OpUpdateTextureRegion:
		return "update-texture-region"
	case OpBindComputePipeline:
		return "bind-compute-pipeline"
	case OpBindComputeStorageBuffer:
		return "bind-compute-storage-buffer"
	case OpBindComputeStorageImage:
		return "bind-compute-storage-image"
	case OpDispatch:
		return "dispatch"
	case OpPipelineBarrier:
		return "pipeline-barrier"
	default:
		return "unknown-opcode"
	}
}

// Rect is a pixel-space rectangle used by viewport/scissor and the
// compositor (component F).
type Rect struct {
	X, Y, W, H int32
}

// LoadOp selects what begin-render-pass does to an attachment before the
// pass's first draw, per §4.C.
type LoadOp uint8

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// StoreOp selects what end-render-pass does to an attachment's contents.
type StoreOp uint8

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// StageMask is a bitset over the closed 10-value pipeline-stage/access set
// from §4.C's pipeline-barrier opcode. Both backends translate a mask into
// their own native barrier bits; the immediate backend collapses every set
// bit to the matching GL memory-barrier bit, the deferred backend ORs in
// the matching vk.PipelineStageFlags/vk.AccessFlags.
type StageMask uint16

const (
	StageVertexRead StageMask = 1 << iota
	StageVertexWrite
	StageFragmentRead
	StageFragmentWrite
	StageComputeRead
	StageComputeWrite
	StageTransferRead
	StageTransferWrite
	StageHostRead
	StageHostWrite
)

// Packet is one recorded command. Only the fields relevant to Op are
// populated; the rest hold zero values. This mirrors the teacher's
// packet.go approach of one flat struct reused across call kinds rather
// than an interface-typed slice, trading a few unused fields for zero
// per-command allocation.
type Packet struct {
	Op Opcode

	Handle  Handle // pipeline/buffer/texture/mesh target, depending on Op.
	Handle2 Handle // second handle, e.g. index buffer alongside vertex buffer.

	Rect Rect // viewport/scissor/draw-quad destination.

	// begin-render-pass target/load-store state (§4.C). Target is
	// MainDisplayID for the main surface or a virtual display's ID.
	Target     int32
	ColorLoad  LoadOp
	ColorStore StoreOp
	ColorClear [4]float32
	DepthLoad  LoadOp
	DepthStore StoreOp
	DepthClear float32

	// pipeline-barrier stage masks (§4.C).
	SrcStageMask StageMask
	DstStageMask StageMask

	Location     uint32 // binding point / vertex-attribute location.
	ElementCount uint32
	Scalar       ScalarType
	Normalized   bool
	Offset       uint32
	Stride       uint32

	VertexCount   uint32
	IndexCount    uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstIndex    uint32

	GroupsX, GroupsY, GroupsZ uint32

	// Payload indexes into the frame's byte arena (Stream.arena) for
	// update-buffer / update-texture-region / push-constant bytes and
	// draw-text's UTF-8 run, avoiding a per-packet allocation.
	PayloadOffset int
	PayloadLen    int

	Text struct {
		FontAttribution string
		PointSize       float32
	}
}

// Stream is the per-frame command buffer. It is append-only during
// recording and is walked exactly once, by the immediate executor
// (component D) or the deferred executor (component E), in submit after
// EndFrame closes recording.
type Stream struct {
	packets []Packet
	arena   []byte

	// firstRef records, for every handle seen this frame, the packet
	// index at which it was first referenced. The verifier (component G)
	// uses this to detect update-after-read ordering violations.
	firstRef map[Handle]int

	insideRenderPass bool
	computeActive    bool
}

func newStream() *Stream {
	return &Stream{firstRef: make(map[Handle]int)}
}

func (s *Stream) reset() {
	s.packets = s.packets[:0]
	s.arena = s.arena[:0]
	for k := range s.firstRef {
		delete(s.firstRef, k)
	}
	s.insideRenderPass = false
	s.computeActive = false
}

// append records one packet and returns its index.
func (s *Stream) append(p Packet) int {
	idx := len(s.packets)
	s.packets = append(s.packets, p)
	return idx
}

// noteFirstRef records idx as the first-reference ordinal for h if h has
// not yet been seen this frame. Called by System for every handle that
// appears as a read (bind-*, draw-*) target.
func (s *Stream) noteFirstRef(h Handle, idx int) {
	if h.IsNull() {
		return
	}
	if _, seen := s.firstRef[h]; !seen {
		s.firstRef[h] = idx
	}
}

// writeArena copies b into the frame arena and returns (offset, len) for
// a packet's PayloadOffset/PayloadLen.
func (s *Stream) writeArena(b []byte) (int, int) {
	off := len(s.arena)
	s.arena = append(s.arena, b...)
	return off, len(b)
}

func (s *Stream) payload(p Packet) []byte {
	return s.arena[p.PayloadOffset : p.PayloadOffset+p.PayloadLen]
}
