// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

import "testing"

func TestDestRectStretchFillsTarget(t *testing.T) {
	d := &VirtualDisplay{Width: 320, Height: 180, Scaling: ScaleStretch}
	r := destRect(d, 1280, 720)
	if r != (Rect{0, 0, 1280, 720}) {
		t.Errorf("stretch rect = %+v", r)
	}
}

func TestDestRectFitPreservesAspect(t *testing.T) {
	d := &VirtualDisplay{Width: 320, Height: 180, Scaling: ScaleFit}
	r := destRect(d, 1280, 1280)
	if r.W > 1280 || r.H > 1280 {
		t.Errorf("fit rect exceeds target: %+v", r)
	}
	if r.X < 0 || r.Y < 0 {
		t.Errorf("fit rect should be centered, got %+v", r)
	}
	if int(r.W)*d.Height != int(r.H)*d.Width {
		t.Errorf("fit rect should keep the 320:180 aspect ratio, got %+v", r)
	}
}

func TestDestRectIntegerPicksWholeMultiple(t *testing.T) {
	d := &VirtualDisplay{Width: 100, Height: 100, Scaling: ScaleInteger}
	r := destRect(d, 350, 350)
	if r.W%100 != 0 || r.H%100 != 0 {
		t.Errorf("integer scaling should pick a whole multiple, got %+v", r)
	}
	if r.W != 300 || r.H != 300 {
		t.Errorf("expected 3x scale (300x300), got %+v", r)
	}
}

func TestCompositorPlanOrdersByZAscending(t *testing.T) {
	r := newRegistry()
	r.CreateVirtualDisplay(1, 64, 64, 5, ScaleFit, BlendAlpha, 1)
	r.CreateVirtualDisplay(2, 64, 64, 1, ScaleFit, BlendAlpha, 1)
	r.CreateVirtualDisplay(3, 64, 64, 3, ScaleFit, BlendAlpha, 1)

	c := newCompositor()
	order := c.plan(r)
	if len(order) != 3 {
		t.Fatalf("got %d displays, want 3", len(order))
	}
	if order[0].ID != 2 || order[1].ID != 3 || order[2].ID != 1 {
		ids := []int32{order[0].ID, order[1].ID, order[2].ID}
		t.Errorf("expected z-ascending order [2,3,1], got %v", ids)
	}
}

func TestCompositorPlanExcludesMainDisplay(t *testing.T) {
	r := newRegistry()
	r.CreateVirtualDisplay(MainDisplayID, 64, 64, 0, ScaleFit, BlendAlpha, 1)
	order := newCompositor().plan(r)
	for _, d := range order {
		if d.ID == MainDisplayID {
			t.Error("plan should never include the main display as a layer")
		}
	}
}

func TestCompositorPlanSkipsHiddenDisplays(t *testing.T) {
	r := newRegistry()
	r.CreateVirtualDisplay(9, 64, 64, 0, ScaleFit, BlendAlpha, 1)
	d := r.findDisplay(9)
	d.Visible = false
	order := newCompositor().plan(r)
	if len(order) != 0 {
		t.Errorf("hidden display should not appear in composite plan, got %d entries", len(order))
	}
}

func TestBlendFactors(t *testing.T) {
	cases := []BlendMode{BlendOpaque, BlendAlpha, BlendAdditive, BlendMultiply}
	for _, m := range cases {
		f := blendFactors(m)
		if f.SrcRGB == "" || f.DstRGB == "" {
			t.Errorf("blendFactors(%v) left a factor empty: %+v", m, f)
		}
	}
}
