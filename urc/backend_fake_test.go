// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// backend_fake_test.go provides a software-only backend used to exercise
// System's scenarios without a real GL/Vulkan context, the same role the
// teacher's render_test.go plays with its own stub packet-consuming
// renderer in render/render_test.go.

import (
	"context"
	"encoding/binary"
	"math"
)

type fakeBackend struct {
	slots        int
	buffers      map[Handle][]byte
	textures     map[Handle]bool
	shaders      map[Handle]bool
	computes     map[Handle]bool
	resizeCalls  int
	submitCalls  int
	lastWidth    int
	lastHeight   int
	failNextCreateTexture bool

	// mainColor is the last color the main surface was cleared/composited
	// to, as whole bytes; targetColors does the same per virtual-display
	// color-attachment handle, keyed by the Handle begin-render-pass's
	// VD lookup resolves to, so a later draw-quad referencing that same
	// handle can read back what was rendered into it this frame.
	mainColor    [4]byte
	targetColors map[Handle][4]byte
}

func newFakeBackend(slots int) *fakeBackend {
	return &fakeBackend{
		slots: slots, buffers: map[Handle][]byte{}, textures: map[Handle]bool{},
		shaders: map[Handle]bool{}, computes: map[Handle]bool{},
		targetColors: map[Handle][4]byte{},
	}
}

func (b *fakeBackend) choice() BackendChoice { return BackendImmediate }
func (b *fakeBackend) slotCount() int        { return b.slots }
func (b *fakeBackend) newFence() fence       { return alwaysSignaledFence{} }

func (b *fakeBackend) createTexture(t *Texture) *Error {
	if b.failNextCreateTexture {
		b.failNextCreateTexture = false
		return newError("create-texture", OutOfResources, t.Attribution, nil)
	}
	b.textures[t.Handle] = true
	return nil
}
func (b *fakeBackend) createBuffer(buf *Buffer) *Error {
	b.buffers[buf.Handle] = make([]byte, buf.Size)
	return nil
}
func (b *fakeBackend) compileShader(sh *Shader, bridge *shaderBridge) *Error {
	b.shaders[sh.Handle] = true
	return nil
}
func (b *fakeBackend) createCompute(c *ComputePipeline, bridge *shaderBridge) *Error {
	b.computes[c.Handle] = true
	return nil
}

func (b *fakeBackend) destroyTexture(t *Texture) { delete(b.textures, t.Handle) }
func (b *fakeBackend) destroyBuffer(buf *Buffer)  { delete(b.buffers, buf.Handle) }
func (b *fakeBackend) destroyShader(sh *Shader)   { delete(b.shaders, sh.Handle) }
func (b *fakeBackend) destroyCompute(c *ComputePipeline) { delete(b.computes, c.Handle) }

func (b *fakeBackend) updateBufferNow(buf *Buffer, offset int, data []byte) *Error {
	dst, ok := b.buffers[buf.Handle]
	if !ok {
		return newError("update-buffer", InvalidState, "", nil)
	}
	copy(dst[offset:], data)
	return nil
}

func (b *fakeBackend) updateTextureNow(t *Texture, region Rect, data []byte) *Error { return nil }

func (b *fakeBackend) resizeSurface(width, height int) *Error {
	b.resizeCalls++
	b.lastWidth, b.lastHeight = width, height
	return nil
}

func (b *fakeBackend) shutdown() {}

// submit walks the stream and, in addition to counting the call,
// emulates the one compute program the test suite's shaderlib pipeline
// needs (multiply-by-factor) so S2 can assert on readback contents
// without a real GPU.
func (b *fakeBackend) submit(ctx context.Context, slot *FrameSlot, reg *Registry) *Error {
	b.submitCalls++
	var boundStorage [8]Handle
	var pushConstant []byte
	for _, p := range slot.stream.packets {
		switch p.Op {
		case OpBeginRenderPass:
			if p.ColorLoad != LoadOpClear {
				continue
			}
			clear := floatColorToBytes(p.ColorClear)
			if p.Target == MainDisplayID {
				b.mainColor = clear
				continue
			}
			if d := reg.findDisplay(p.Target); d != nil {
				b.targetColors[d.ColorAttachment] = clear
			}
		case OpDrawQuad:
			src, ok := b.targetColors[p.Handle]
			if !ok {
				continue
			}
			d := displayByColorAttachment(reg, p.Handle)
			if d == nil {
				continue
			}
			b.mainColor = blendOver(b.mainColor, src, d.Blend, d.Opacity)
		case OpBindComputeStorageBuffer:
			if int(p.Location) < len(boundStorage) {
				boundStorage[p.Location] = p.Handle
			}
		case OpSetPushConstant:
			pushConstant = slot.stream.payload(p)
		case OpDispatch:
			in, out := b.buffers[boundStorage[0]], b.buffers[boundStorage[1]]
			if in == nil || out == nil || len(pushConstant) < 4 {
				continue
			}
			factor := math.Float32frombits(binary.LittleEndian.Uint32(pushConstant))
			n := len(in) / 4
			for i := 0; i < n; i++ {
				v := math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
				binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v*factor))
			}
		}
	}
	return nil
}

func displayByColorAttachment(reg *Registry, h Handle) *VirtualDisplay {
	for _, d := range reg.VisibleDisplays() {
		if d.ColorAttachment == h {
			return d
		}
	}
	return nil
}

func floatColorToBytes(c [4]float32) [4]byte {
	var out [4]byte
	for i, v := range c {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[i] = byte(v*255 + 0.5)
	}
	return out
}

// blendOver composites src over dst per the compositor's fixed-function
// blend modes (compositor.go's blendFactors), with BlendAlpha/BlendAdditive
// scaled by the display's opacity in addition to the clear color's own
// alpha channel.
func blendOver(dst, src [4]byte, mode BlendMode, opacity float32) [4]byte {
	if mode == BlendOpaque {
		return src
	}
	srcA := (float32(src[3]) / 255) * opacity
	var out [4]byte
	for i := 0; i < 4; i++ {
		s, d := float32(src[i]), float32(dst[i])
		var v float32
		switch mode {
		case BlendAdditive:
			v = d + s*srcA
		case BlendMultiply:
			v = d * (s / 255)
		default: // BlendAlpha
			v = s*srcA + d*(1-srcA)
		}
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[i] = byte(v + 0.5)
	}
	return out
}

func float32Bytes(vs []float32) []byte {
	b := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
