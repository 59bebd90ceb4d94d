// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// registry.go is the Resource Registry, component A: process-wide tables
// for textures, buffers, meshes, shaders, compute pipelines, and virtual
// displays, addressed through generational Handles (handle.go). Table
// shape follows the teacher's eids allocator (eid.go): a growable slot
// array plus a free list, generation-bumped on reuse.

import "fmt"

// table is a generic per-kind resource table. Resources are stored by
// value in res, indexed by the handle's index portion; slots tracks
// liveness and generation.
type table[T any] struct {
	kind ResourceKind
	s    slots
	res  []T
}

func newTable[T any](kind ResourceKind) *table[T] {
	return &table[T]{kind: kind}
}

func (t *table[T]) create() (Handle, *T) {
	idx, gen := t.s.alloc()
	if idx >= maxHandleIdx {
		return Handle{}, nil
	}
	if int(idx) == len(t.res) {
		var zero T
		t.res = append(t.res, zero)
	}
	h := makeHandle(t.kind, idx, gen)
	return h, &t.res[idx]
}

func (t *table[T]) lookup(h Handle) (*T, bool) {
	if h.Kind != t.kind || !t.s.valid(h) {
		return nil, false
	}
	return &t.res[h.index()], true
}

func (t *table[T]) destroy(h Handle) bool {
	if h.Kind != t.kind || !t.s.valid(h) {
		return false
	}
	t.s.free_(h)
	return true
}

// LeakDiagnostic names one resource still live at teardown.
type LeakDiagnostic struct {
	Kind        ResourceKind
	Attribution string
}

// attributed is implemented by every resource type so the registry can
// report a useful leak diagnostic without a type switch per kind.
type attributed interface {
	attribution() string
}

func (r Texture) attribution() string         { return r.Attribution }
func (r Buffer) attribution() string          { return r.Attribution }
func (r Mesh) attribution() string            { return r.Attribution }
func (r Shader) attribution() string          { return r.Attribution }
func (r ComputePipeline) attribution() string { return r.Attribution }

// Registry is the process-wide resource registry, component A. One
// instance is created by System.Init and torn down by System.Shutdown.
type Registry struct {
	textures  *table[Texture]
	buffers   *table[Buffer]
	meshes    *table[Mesh]
	shaders   *table[Shader]
	computes  *table[ComputePipeline]
	displays  *table[VirtualDisplay]

	// pendingDeletion records every destroy call with the frame index it
	// was made in. The table slot itself is freed at destroy time, whether
	// or not an in-flight frame still uses the resource; reclaim only
	// drops the entries whose frame has retired.
	pendingDeletion []pendingFree
}

type pendingFree struct {
	handle     Handle
	frameIndex uint64
}

func newRegistry() *Registry {
	return &Registry{
		textures: newTable[Texture](KindTexture),
		buffers:  newTable[Buffer](KindBuffer),
		meshes:   newTable[Mesh](KindMesh),
		shaders:  newTable[Shader](KindShader),
		computes: newTable[ComputePipeline](KindCompute),
		displays: newTable[VirtualDisplay](KindVirtualDisplay),
	}
}

// CreateTexture allocates a new texture slot. The backend is responsible
// for populating backendImage once the resource is bound.
func (r *Registry) CreateTexture(width, height int, format PixelFormat, usage TextureUsage, mips int, attribution string) (Handle, *Error) {
	if width <= 0 || height <= 0 {
		return Handle{}, newError("create-texture", InvalidArgument, attribution, nil)
	}
	h, t := r.textures.create()
	if t == nil {
		return Handle{}, newError("create-texture", OutOfResources, attribution, nil)
	}
	// Compute-ready by default: fold in storage usage unconditionally,
	// matching §3 "All textures are compute-ready by default".
	usage |= UsageStorage
	*t = Texture{Handle: h, Width: width, Height: height, Format: format, Usage: usage, MipLevels: mips, Attribution: attribution}
	return h, nil
}

func (r *Registry) LookupTexture(h Handle) (*Texture, *Error) {
	t, ok := r.textures.lookup(h)
	if !ok {
		return nil, newError("lookup-texture", StaleHandle, "", nil)
	}
	return t, nil
}

func (r *Registry) DestroyTexture(h Handle, frameIndex uint64) *Error {
	if !r.textures.destroy(h) {
		return newError("destroy-texture", StaleHandle, "", nil)
	}
	r.pendingDeletion = append(r.pendingDeletion, pendingFree{h, frameIndex})
	return nil
}

// CreateBuffer allocates a new buffer slot.
func (r *Registry) CreateBuffer(size uint64, usage BufferUsage, attribution string) (Handle, *Error) {
	if size == 0 {
		return Handle{}, newError("create-buffer", InvalidArgument, attribution, nil)
	}
	h, b := r.buffers.create()
	if b == nil {
		return Handle{}, newError("create-buffer", OutOfResources, attribution, nil)
	}
	*b = Buffer{Handle: h, Size: size, Usage: usage, Attribution: attribution}
	return h, nil
}

func (r *Registry) LookupBuffer(h Handle) (*Buffer, *Error) {
	b, ok := r.buffers.lookup(h)
	if !ok {
		return nil, newError("lookup-buffer", StaleHandle, "", nil)
	}
	return b, nil
}

func (r *Registry) DestroyBuffer(h Handle, frameIndex uint64) *Error {
	if !r.buffers.destroy(h) {
		return newError("destroy-buffer", StaleHandle, "", nil)
	}
	r.pendingDeletion = append(r.pendingDeletion, pendingFree{h, frameIndex})
	return nil
}

// CreateMesh allocates a mesh that owns two freshly created buffers. The
// buffers live in the buffer table, so LookupBuffer resolves their
// handles; DestroyMesh destroys them together with the mesh.
func (r *Registry) CreateMesh(vertexBytes, indexBytes uint64, vertexStride uint32, attribution string) (Handle, *Error) {
	vh, err := r.CreateBuffer(vertexBytes, UsageVertex|UsageBufferTransferDst, attribution+":vbuf")
	if err != nil {
		return Handle{}, err
	}
	ih, err := r.CreateBuffer(indexBytes, UsageIndex|UsageBufferTransferDst, attribution+":ibuf")
	if err != nil {
		r.buffers.destroy(vh)
		return Handle{}, err
	}
	h, m := r.meshes.create()
	if m == nil {
		r.buffers.destroy(vh)
		r.buffers.destroy(ih)
		return Handle{}, newError("create-mesh", OutOfResources, attribution, nil)
	}
	*m = Mesh{Handle: h, VertexBuffer: vh, IndexBuffer: ih, VertexStride: vertexStride, Attribution: attribution}
	return h, nil
}

func (r *Registry) LookupMesh(h Handle) (*Mesh, *Error) {
	m, ok := r.meshes.lookup(h)
	if !ok {
		return nil, newError("lookup-mesh", StaleHandle, "", nil)
	}
	return m, nil
}

// DestroyMesh destroys a mesh and both buffers it owns.
func (r *Registry) DestroyMesh(h Handle, frameIndex uint64) *Error {
	m, ok := r.meshes.lookup(h)
	if !ok {
		return newError("destroy-mesh", StaleHandle, "", nil)
	}
	r.DestroyBuffer(m.VertexBuffer, frameIndex)
	r.DestroyBuffer(m.IndexBuffer, frameIndex)
	r.meshes.destroy(h)
	r.pendingDeletion = append(r.pendingDeletion, pendingFree{h, frameIndex})
	return nil
}

func (r *Registry) CreateShader(attribution string) (Handle, *Error) {
	h, s := r.shaders.create()
	if s == nil {
		return Handle{}, newError("create-shader", OutOfResources, attribution, nil)
	}
	*s = Shader{Handle: h, Attribution: attribution}
	return h, nil
}

func (r *Registry) LookupShader(h Handle) (*Shader, *Error) {
	s, ok := r.shaders.lookup(h)
	if !ok {
		return nil, newError("lookup-shader", StaleHandle, "", nil)
	}
	return s, nil
}

func (r *Registry) DestroyShader(h Handle, frameIndex uint64) *Error {
	if !r.shaders.destroy(h) {
		return newError("destroy-shader", StaleHandle, "", nil)
	}
	r.pendingDeletion = append(r.pendingDeletion, pendingFree{h, frameIndex})
	return nil
}

func (r *Registry) CreateCompute(layout DescriptorLayoutKind, attribution string) (Handle, *Error) {
	h, c := r.computes.create()
	if c == nil {
		return Handle{}, newError("create-compute-pipeline", OutOfResources, attribution, nil)
	}
	*c = ComputePipeline{Handle: h, Layout: layout, Attribution: attribution}
	return h, nil
}

func (r *Registry) LookupCompute(h Handle) (*ComputePipeline, *Error) {
	c, ok := r.computes.lookup(h)
	if !ok {
		return nil, newError("lookup-compute-pipeline", StaleHandle, "", nil)
	}
	return c, nil
}

func (r *Registry) DestroyCompute(h Handle, frameIndex uint64) *Error {
	if !r.computes.destroy(h) {
		return newError("destroy-compute-pipeline", StaleHandle, "", nil)
	}
	r.pendingDeletion = append(r.pendingDeletion, pendingFree{h, frameIndex})
	return nil
}

// CreateVirtualDisplay allocates a virtual display along with its color
// and depth attachment textures (§4.F).
func (r *Registry) CreateVirtualDisplay(id int32, width, height int, z int, scaling ScalingMode, blend BlendMode, multiplier float64) (*VirtualDisplay, *Error) {
	if width <= 0 || height <= 0 {
		return nil, newError("create-virtual-display", InvalidArgument, "", nil)
	}
	color, err := r.CreateTexture(width, height, FormatRGBA8, UsageColorAttachment|UsageSampled, 1, fmt.Sprintf("vd[%d].color", id))
	if err != nil {
		return nil, err
	}
	depth, err := r.CreateTexture(width, height, FormatDepth32F, UsageDepthAttachment, 1, fmt.Sprintf("vd[%d].depth", id))
	if err != nil {
		r.textures.destroy(color)
		return nil, err
	}
	_, d := r.displays.create()
	if d == nil {
		r.textures.destroy(color)
		r.textures.destroy(depth)
		return nil, newError("create-virtual-display", OutOfResources, "", nil)
	}
	*d = VirtualDisplay{
		ID: id, Width: width, Height: height, Z: z, Scaling: scaling, Blend: blend,
		Opacity: 1, Visible: true, dirty: true, FrameTimeMult: multiplier,
		ColorAttachment: color, DepthAttachment: depth,
	}
	return d, nil
}

// DestroyVirtualDisplay destroys a display and both attachments it owns.
func (r *Registry) DestroyVirtualDisplay(id int32, frameIndex uint64) *Error {
	d := r.findDisplay(id)
	if d == nil {
		return newError("destroy-virtual-display", InvalidArgument, "", nil)
	}
	r.DestroyTexture(d.ColorAttachment, frameIndex)
	r.DestroyTexture(d.DepthAttachment, frameIndex)
	for i := range r.displays.res {
		if r.displays.s.live[i] && r.displays.res[i].ID == id {
			r.displays.s.live[i] = false
			r.displays.s.generations[i]++
			r.displays.s.free = append(r.displays.s.free, uint32(i))
		}
	}
	return nil
}

func (r *Registry) findDisplay(id int32) *VirtualDisplay {
	for i := range r.displays.res {
		if r.displays.s.live[i] && r.displays.res[i].ID == id {
			return &r.displays.res[i]
		}
	}
	return nil
}

// VisibleDisplays returns all live, visible displays for the compositor.
func (r *Registry) VisibleDisplays() []*VirtualDisplay {
	out := []*VirtualDisplay{}
	for i := range r.displays.res {
		if r.displays.s.live[i] && r.displays.res[i].Visible {
			out = append(out, &r.displays.res[i])
		}
	}
	return out
}

// reclaim drops pending-deletion entries whose frame has retired; it
// frees no resource, since destroy already did. System.AcquireFrame calls
// it when a slot retires.
func (r *Registry) reclaim(retiredFrameIndex uint64) {
	kept := r.pendingDeletion[:0]
	for _, p := range r.pendingDeletion {
		if p.frameIndex <= retiredFrameIndex {
			continue // already dropped from its table at destroy time.
		}
		kept = append(kept, p)
	}
	r.pendingDeletion = kept
}

// leaks walks every table and reports still-live resources, per §4.A's
// teardown contract and testable-property 1 / scenario S6.
func (r *Registry) leaks() []LeakDiagnostic {
	var out []LeakDiagnostic
	collect := func(kind ResourceKind, s *slots, attr func(int) string) {
		for i, live := range s.live {
			if live {
				out = append(out, LeakDiagnostic{Kind: kind, Attribution: attr(i)})
			}
		}
	}
	collect(KindTexture, &r.textures.s, func(i int) string { return r.textures.res[i].Attribution })
	collect(KindBuffer, &r.buffers.s, func(i int) string { return r.buffers.res[i].Attribution })
	collect(KindMesh, &r.meshes.s, func(i int) string { return r.meshes.res[i].Attribution })
	collect(KindShader, &r.shaders.s, func(i int) string { return r.shaders.res[i].Attribution })
	collect(KindCompute, &r.computes.s, func(i int) string { return r.computes.res[i].Attribution })
	collect(KindVirtualDisplay, &r.displays.s, func(i int) string {
		return fmt.Sprintf("id=%d", r.displays.res[i].ID)
	})
	return out
}
