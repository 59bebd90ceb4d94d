// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// compositor.go is the Virtual Display Compositor, component F. It turns
// the registry's live virtual displays into a z-ordered sequence of
// composite packets drawn as textured quads over the main swapchain
// image, following the same "emit a draw-quad per visible layer, back to
// front" approach the teacher's pass.go uses for its 2D overlay pass.

// BlendFactors names the source/destination blend factors a backend must
// configure for one BlendMode. These mirror the fixed-function blend
// equations named in §4.F; URC does not expose a programmable blend API.
type BlendFactors struct {
	SrcRGB, DstRGB   string
	SrcAlpha, DstAlpha string
}

func blendFactors(m BlendMode) BlendFactors {
	switch m {
	case BlendOpaque:
		return BlendFactors{"one", "zero", "one", "zero"}
	case BlendAlpha:
		return BlendFactors{"src-alpha", "one-minus-src-alpha", "one", "one-minus-src-alpha"}
	case BlendAdditive:
		return BlendFactors{"src-alpha", "one", "one", "one"}
	case BlendMultiply:
		return BlendFactors{"dst-color", "zero", "dst-alpha", "zero"}
	default:
		return BlendFactors{"one", "zero", "one", "zero"}
	}
}

// destRect computes the destination rectangle, in target pixels, a
// virtual display's color attachment should be drawn into given the
// target (main swapchain or another display's) dimensions, per the
// display's ScalingMode.
func destRect(d *VirtualDisplay, targetW, targetH int32) Rect {
	srcW, srcH := int32(d.Width), int32(d.Height)
	switch d.Scaling {
	case ScaleStretch:
		return Rect{0, 0, targetW, targetH}
	case ScaleInteger:
		factor := int32(1)
		for {
			next := factor + 1
			if srcW*next > targetW || srcH*next > targetH {
				break
			}
			factor = next
		}
		if factor < 1 {
			factor = 1
		}
		w, h := srcW*factor, srcH*factor
		return Rect{(targetW - w) / 2, (targetH - h) / 2, w, h}
	case ScaleFit:
		fallthrough
	default:
		scaleX := float64(targetW) / float64(srcW)
		scaleY := float64(targetH) / float64(srcH)
		scale := scaleX
		if scaleY < scale {
			scale = scaleY
		}
		w := int32(float64(srcW) * scale)
		h := int32(float64(srcH) * scale)
		return Rect{(targetW - w) / 2, (targetH - h) / 2, w, h}
	}
}

// compositor orders the registry's live virtual displays by z and emits
// one draw-quad packet per visible display into the target stream.
type compositor struct {
	order []*VirtualDisplay
}

func newCompositor() *compositor { return &compositor{} }

// plan sorts the currently visible displays by ascending Z (painter's
// algorithm, back to front) and returns them. MainDisplayID is never
// included: the main window surface is the final composite target, not
// a layer drawn onto itself.
func (c *compositor) plan(reg *Registry) []*VirtualDisplay {
	c.order = c.order[:0]
	for _, d := range reg.VisibleDisplays() {
		if d.ID == MainDisplayID {
			continue
		}
		c.order = append(c.order, d)
	}
	// insertion sort: display counts are small (single digits in practice).
	for i := 1; i < len(c.order); i++ {
		for j := i; j > 0 && c.order[j].Z < c.order[j-1].Z; j-- {
			c.order[j], c.order[j-1] = c.order[j-1], c.order[j]
		}
	}
	return c.order
}

// emit records the composite pass into s: one bind-pipeline for URC's
// internal quad pipeline followed by one draw-quad per display in the
// order produced by plan, targeting targetW/targetH (the main surface's
// current size, which may have just changed per a resize).
func (c *compositor) emit(s *Stream, displays []*VirtualDisplay, targetW, targetH int32, quadPipeline Handle) {
	if len(displays) == 0 {
		return
	}
	s.append(Packet{Op: OpBindPipeline, Handle: quadPipeline})
	for _, d := range displays {
		rect := destRect(d, targetW, targetH)
		idx := s.append(Packet{
			Op:     OpDrawQuad,
			Handle: d.ColorAttachment,
			Rect:   rect,
		})
		s.noteFirstRef(d.ColorAttachment, idx)
		d.dirty = false
	}
}

// markDirty flags a display as needing recomposite next frame; called by
// System.SetVirtualDisplayVisible and, for every visible display, by
// System.Resize.
func markDirty(d *VirtualDisplay) { d.dirty = true }
