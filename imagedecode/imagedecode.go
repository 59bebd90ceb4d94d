// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package imagedecode is the Image decode boundary collaborator named in
// §6: it turns an encoded image (png/jpeg/bmp/tiff) into the CPU-side
// {rgba8, w, h} pixel buffer create-texture-from-pixels needs. It widens
// the teacher's load.Png (io.Reader -> image.Image, PNG only) to the
// format set golang.org/x/image adds decoders for.
package imagedecode

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Pixels is the decoded CPU-side image: tightly packed RGBA8, row-major,
// top-to-bottom.
type Pixels struct {
	RGBA8         []byte
	Width, Height int
}

// Decode reads an encoded image from r and converts it to Pixels. format
// selects the decoder ("png", "jpeg", "bmp", "tiff"); an unrecognized
// format is an error rather than a sniff, since the caller (application
// asset loading) already knows the source extension.
func Decode(r io.Reader, format string) (Pixels, error) {
	var img image.Image
	var err error
	switch format {
	case "png":
		img, err = png.Decode(r)
	case "jpeg", "jpg":
		img, err = jpeg.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	case "tiff":
		img, err = tiff.Decode(r)
	default:
		return Pixels{}, fmt.Errorf("imagedecode: unsupported format %q", format)
	}
	if err != nil {
		return Pixels{}, fmt.Errorf("imagedecode: decode %s: %w", format, err)
	}
	return toRGBA8(img), nil
}

func toRGBA8(img image.Image) Pixels {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return Pixels{RGBA8: rgba.Pix, Width: b.Dx(), Height: b.Dy()}
}
