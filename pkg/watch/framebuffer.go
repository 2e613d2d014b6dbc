// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package watch

import (
	"image"
	"image/color"

	"github.com/Thermoquad/metasim/pkg/metawatch"
)

const channels = 3

// Framebuffer is one display mode's 96x96 RGB pixel buffer. The panel is
// monochrome, so every pixel is either white or black on all channels.
type Framebuffer struct {
	Pix []uint8
}

// NewFramebuffer returns a blank (all white) buffer
func NewFramebuffer() *Framebuffer {
	fb := &Framebuffer{Pix: make([]uint8, metawatch.DisplayWidth*metawatch.DisplayHeight*channels)}
	fb.Clear()
	return fb
}

// Clear paints every pixel white
func (fb *Framebuffer) Clear() {
	for i := range fb.Pix {
		fb.Pix[i] = 0xFF
	}
}

// SetRow unpacks a writeLCD row into pixel row r.Index
func (fb *Framebuffer) SetRow(r metawatch.LCDRow) {
	y := int(r.Index)
	for x := 0; x < metawatch.DisplayWidth; x++ {
		v := uint8(0x00)
		if r.White(x) {
			v = 0xFF
		}
		off := fb.offset(x, y)
		fb.Pix[off] = v
		fb.Pix[off+1] = v
		fb.Pix[off+2] = v
	}
}

// White reports whether pixel (x, y) is white
func (fb *Framebuffer) White(x, y int) bool {
	return fb.Pix[fb.offset(x, y)] != 0
}

// Clone returns an independent copy
func (fb *Framebuffer) Clone() *Framebuffer {
	return &Framebuffer{Pix: append([]uint8(nil), fb.Pix...)}
}

func (fb *Framebuffer) offset(x, y int) int {
	return (y*metawatch.DisplayWidth + x) * channels
}

// ColorModel implements image.Image
func (fb *Framebuffer) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image
func (fb *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, metawatch.DisplayWidth, metawatch.DisplayHeight)
}

// At implements image.Image
func (fb *Framebuffer) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(fb.Bounds())) {
		return color.RGBA{}
	}
	off := fb.offset(x, y)
	return color.RGBA{R: fb.Pix[off], G: fb.Pix[off+1], B: fb.Pix[off+2], A: 0xFF}
}
