// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// resources.go holds the §3 Data Model entity definitions. The Registry
// (registry.go) owns instances of these; callers only ever see Handles.

// TextureUsage mirrors §3's usage set. All textures are compute-ready by
// default: Registry.CreateTexture folds UsageStorage into every texture's
// usage, whichever backend is active.
type TextureUsage uint8

const (
	UsageSampled TextureUsage = 1 << iota
	UsageStorage
	UsageColorAttachment
	UsageDepthAttachment
	UsageTransferSrc
	UsageTransferDst
)

// Texture is the §3 Texture entity.
type Texture struct {
	Handle       Handle
	Width        int
	Height       int
	Format       PixelFormat
	Usage        TextureUsage
	MipLevels    int
	Attribution  string // creation site / file name, for leak diagnostics.
	backendImage any    // opaque backend-owned resource.
}

// PixelFormat is the closed set of formats URC textures can hold.
type PixelFormat uint8

const (
	FormatRGBA8 PixelFormat = iota
	FormatDepth32F
)

// BufferUsage mirrors §3's usage-flags set, a bitmask since a buffer may
// serve several roles at once (e.g. storage+transfer for S2's readback).
type BufferUsage uint8

const (
	UsageVertex BufferUsage = 1 << iota
	UsageIndex
	UsageUniform
	UsageBufferStorage
	UsageIndirect
	UsageBufferTransferSrc
	UsageBufferTransferDst
)

// Buffer is the §3 Buffer entity.
type Buffer struct {
	Handle       Handle
	Size         uint64
	Usage        BufferUsage
	Attribution  string
	backendBuf   any
	hostShadow   []byte // immediate-backend and readback staging copy.
}

// Mesh is the §3 Mesh entity. Its vertex and index buffers are created in
// the buffer table and are destroyed with the mesh; they are not hidden
// from the buffer registry, and LookupBuffer resolves them like any other
// buffer handle.
type Mesh struct {
	Handle       Handle
	VertexBuffer Handle
	IndexBuffer  Handle
	VertexCount  uint32
	IndexCount   uint32
	VertexStride uint32
	Attribution  string
}

// ScalarType is the closed set of per-attribute element types usable in a
// vertex-input contract (§3 Shader).
type ScalarType uint8

const (
	ScalarFloat32 ScalarType = iota
	ScalarUint8
	ScalarUint16
	ScalarUint32
)

// VertexAttribute is one entry of a Shader's vertex-input contract:
// (location, element-count, scalar-type, normalized, offset).
type VertexAttribute struct {
	Location     uint32
	ElementCount uint32
	Scalar       ScalarType
	Normalized   bool
	Offset       uint32
}

// Shader is the §3 graphics-pipeline entity. The vertex-input contract is
// recorded explicitly by the caller (set-vertex-attribute, §4.C) before the
// first draw that uses the pipeline in a frame; it is not inferred.
type Shader struct {
	Handle         Handle
	VertexSource   string
	FragmentSource string
	VertexSPIRV    []byte // set once the bridge (component H) has compiled it.
	FragmentSPIRV  []byte
	Contract       []VertexAttribute
	Attribution    string
	backendPipe    any
}

// DescriptorLayoutKind is the enumerated compute descriptor-layout shape
// named in §3's Compute pipeline entity.
type DescriptorLayoutKind uint8

const (
	LayoutTwoStorageBuffers DescriptorLayoutKind = iota
	LayoutOneStorageBufferOneImage
	LayoutTwoStorageImages
)

// ComputePipeline is the §3 Compute pipeline entity.
type ComputePipeline struct {
	Handle        Handle
	ComputeSource string
	ComputeSPIRV  []byte
	Layout        DescriptorLayoutKind
	Attribution   string
	backendPipe   any
}

// ScalingMode is the closed set of virtual-display scaling policies (§4.F).
type ScalingMode uint8

const (
	ScaleInteger ScalingMode = iota
	ScaleFit
	ScaleStretch
)

// BlendMode is the closed set of virtual-display blend equations (§4.F).
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendAlpha
	BlendAdditive
	BlendMultiply
)

// MainDisplayID is the reserved id denoting the main window surface (§3, §4.F).
const MainDisplayID int32 = -1

// VirtualDisplay is the §3 Virtual display entity. It exclusively owns its
// color and depth attachment textures: they are created with the display
// and destroyed with it.
type VirtualDisplay struct {
	ID                 int32
	Width, Height      int
	Z                  int
	Scaling            ScalingMode
	Blend              BlendMode
	Opacity            float32
	Visible            bool
	dirty              bool
	FrameTimeMult      float64
	ColorAttachment    Handle
	DepthAttachment    Handle
	lastCompositeMS    float64
}
