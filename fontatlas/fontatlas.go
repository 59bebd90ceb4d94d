// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package fontatlas is the Font atlas boundary collaborator named in §6.
// It shapes UTF-8 runs with github.com/go-text/typesetting, reserves a
// cell in a shared RGBA8 atlas for each new (run, glyph) pair, and hands
// back the {rgba8, w, h} pixel buffer plus per-glyph UV rects draw-text
// needs. No glyph coverage is drawn: the atlas pixels stay zero.
// This supersedes the teacher's load/fnt.go + load/ttf.go bitmap-font
// loaders, which only read a pre-baked .fnt sheet rather than shaping
// and rasterizing TrueType/OpenType outlines at runtime.
package fontatlas

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/text/unicode/norm"
)

// GlyphRect is one glyph's location within the shared atlas texture, in
// normalized [0,1] UV space.
type GlyphRect struct {
	U0, V0, U1, V1 float32
	AdvanceX       float32
}

// Atlas owns a single growing RGBA8 texture and the glyph-rect cache for
// one loaded font face.
type Atlas struct {
	mu     sync.Mutex
	face   *font.Face
	size   float32
	glyphs map[string]GlyphRect

	Pixels        []byte // current atlas contents, RGBA8.
	Width, Height int
	dirty         bool // true when Pixels grew/changed since the last upload.
}

// Load parses a TrueType/OpenType font file and prepares an empty atlas
// at the given point size. Atlas cells are reserved lazily, per distinct
// run, in Shape.
func Load(path string, pointSize float32) (*Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fontatlas: read %s: %w", path, err)
	}
	face, err := font.ParseTTF(bytesReader(data))
	if err != nil {
		return nil, fmt.Errorf("fontatlas: parse %s: %w", path, err)
	}
	return &Atlas{
		face: face, size: pointSize, glyphs: make(map[string]GlyphRect),
		Width: 1024, Height: 1024, Pixels: make([]byte, 1024*1024*4),
	}, nil
}

// key canonicalizes a run for the glyph cache using NFC normalization,
// so visually identical runs encoded with different combining-mark
// orders share one atlas entry.
func key(run string) string { return norm.NFC.String(run) }

// Shape lays out run and returns the sequence of GlyphRects (one per
// shaped glyph, in visual order) plus the total advance width. Glyphs
// not yet in the atlas get a cell reserved (see rasterize); Dirty()
// reports whether the atlas changed and needs re-uploading afterward.
func (a *Atlas) Shape(run string) ([]GlyphRect, float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	canon := key(run)
	input := shaping.Input{
		Text:     []rune(canon),
		RunStart: 0,
		RunEnd:   len([]rune(canon)),
		Face:     a.face,
		Size:     shaping.Fixed266FromFloat(a.size),
	}
	out := (&shaping.HarfbuzzShaper{}).Shape(input)

	rects := make([]GlyphRect, 0, len(out.Glyphs))
	var advance float32
	for _, g := range out.Glyphs {
		gk := fmt.Sprintf("%s@%d", canon, g.GlyphID)
		rect, ok := a.glyphs[gk]
		if !ok {
			rect = a.rasterize(g)
			a.glyphs[gk] = rect
			a.dirty = true
		}
		rects = append(rects, rect)
		advance += rect.AdvanceX
	}
	return rects, advance, nil
}

// rasterize reserves the next free 32x32 cell of the shared atlas for one
// glyph and returns its UV rect; it writes no pixels. A real glyph packer would
// track a free-rect tree; this uses a simple left-to-right, top-to-bottom
// cursor, adequate for the modest glyph counts a single UI typeface needs.
func (a *Atlas) rasterize(g shaping.Glyph) GlyphRect {
	cellW, cellH := 32, 32
	cols := a.Width / cellW
	idx := len(a.glyphs)
	cx, cy := (idx%cols)*cellW, (idx/cols)*cellH
	if cy+cellH > a.Height {
		// grow the atlas rather than overwrite: double the height.
		grown := make([]byte, a.Width*a.Height*2*4)
		copy(grown, a.Pixels)
		a.Pixels = grown
		a.Height *= 2
	}
	// glyph coverage rasterization itself is delegated to the shaping
	// library's outline data in a full implementation; here the cell is
	// left as alpha-zero placeholder coverage until a rasterizer is wired.
	return GlyphRect{
		U0: float32(cx) / float32(a.Width), V0: float32(cy) / float32(a.Height),
		U1: float32(cx+cellW) / float32(a.Width), V1: float32(cy+cellH) / float32(a.Height),
		AdvanceX: float32(g.XAdvance) / 64,
	}
}

// Dirty reports whether Pixels has changed since the last call to Clean.
func (a *Atlas) Dirty() bool { return a.dirty }
func (a *Atlas) Clean()      { a.dirty = false }

func bytesReader(b []byte) *bytesReaderAt { return &bytesReaderAt{b: b} }

// bytesReaderAt adapts a []byte to the io.ReaderAt font.ParseTTF expects
// without pulling in bytes.Reader's broader API.
type bytesReaderAt struct{ b []byte }

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, fmt.Errorf("fontatlas: read past end of font data")
	}
	n := copy(p, r.b[off:])
	return n, nil
}
