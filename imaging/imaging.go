// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imaging normalises a decoded image into the grayscale
// matrices the hash kernels in package imghash operate on, using
// Rec. 601 luminance coefficients. The
// two resize filters the kernels need, nearest neighbour and
// triangle, are implemented directly against image.Image rather than
// pulling in a general-purpose resize library.
package imaging

import (
	"image"
	"math"
)

// Gray is a square or rectangular grayscale matrix, row-major,
// values in [0,255].
type Gray struct {
	W, H int
	Pix  []float64 // row-major, len == W*H
}

func newGray(w, h int) *Gray {
	return &Gray{W: w, H: h, Pix: make([]float64, w*h)}
}

func (g *Gray) At(x, y int) float64 { return g.Pix[y*g.W+x] }
func (g *Gray) Set(x, y int, v float64) {
	g.Pix[y*g.W+x] = v
}

// Luminance converts an RGBA sample to 8-bit luminance using the
// Rec. 601 coefficients, rounded to the nearest integer.
func Luminance(r, g, b uint32) float64 {
	// r,g,b come in as 16-bit samples from image.Color.RGBA(); reduce
	// to 8-bit before weighting so the result matches a conventional
	// 0-255 gray value.
	rr, gg, bb := float64(r>>8), float64(g>>8), float64(b>>8)
	return math.Round(0.299*rr + 0.587*gg + 0.114*bb)
}

// Filter selects the resampling kernel used by ResizeGray.
type Filter int

const (
	// Nearest is used by the Mean/Gradient/DoubleGradient family.
	Nearest Filter = iota
	// Triangle (bilinear) approximates the Lanczos/triangle
	// requirement for the DCT kernel's larger working resolution.
	Triangle
)

// ResizeGray resizes img to an n x n grayscale matrix using filter.
func ResizeGray(img image.Image, n int, filter Filter) *Gray {
	switch filter {
	case Triangle:
		return resizeTriangle(img, n, n)
	default:
		return resizeNearest(img, n, n)
	}
}

func resizeNearest(img image.Image, w, h int) *Gray {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	out := newGray(w, h)
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*sw/w
			r, g, bl, _ := img.At(sx, sy).RGBA()
			out.Set(x, y, Luminance(r, g, bl))
		}
	}
	return out
}

// resizeTriangle is a separable bilinear resize: each destination
// sample is the weighted average of the (up to) four nearest source
// pixels, weighted by triangular (linear) falloff.
func resizeTriangle(img image.Image, w, h int) *Gray {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	out := newGray(w, h)

	xScale := float64(sw) / float64(w)
	yScale := float64(sh) / float64(h)

	for y := 0; y < h; y++ {
		sy := (float64(y)+0.5)*yScale - 0.5
		y0 := int(sy)
		fy := sy - float64(y0)
		y1 := y0 + 1
		y0 = clamp(y0, 0, sh-1)
		y1 = clamp(y1, 0, sh-1)

		for x := 0; x < w; x++ {
			sx := (float64(x)+0.5)*xScale - 0.5
			x0 := int(sx)
			fx := sx - float64(x0)
			x1 := x0 + 1
			x0 = clamp(x0, 0, sw-1)
			x1 = clamp(x1, 0, sw-1)

			v00 := sampleLuminance(img, b, x0, y0)
			v10 := sampleLuminance(img, b, x1, y0)
			v01 := sampleLuminance(img, b, x0, y1)
			v11 := sampleLuminance(img, b, x1, y1)

			top := v00*(1-fx) + v10*fx
			bottom := v01*(1-fx) + v11*fx
			out.Set(x, y, top*(1-fy)+bottom*fy)
		}
	}
	return out
}

func sampleLuminance(img image.Image, b image.Rectangle, x, y int) float64 {
	r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
	return Luminance(r, g, bl)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mean returns the arithmetic mean of every sample in g.
func (g *Gray) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range g.Pix {
		sum += v
	}
	return sum / float64(len(g.Pix))
}
