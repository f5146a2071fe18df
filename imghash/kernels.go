// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imghash implements the perceptual hash kernels: Mean,
// Gradient, DoubleGradient, DCT and Block. Each kernel takes a
// decoded image and a model.HashSettings and returns a bithash.Hash
// whose bit length is a pure function of the settings (see
// BitLength). The pixel-sampling and luminance-weighting techniques
// generalise from a fixed 8x8 grid to an arbitrary hash_size.
package imghash

import (
	"fmt"
	"image"

	"github.com/abonander/img-dup/bithash"
	"github.com/abonander/img-dup/imaging"
	"github.com/abonander/img-dup/model"
)

// BitLength returns the number of bits a hash produced under s will
// have.
func BitLength(s model.HashSettings) int {
	n := s.Size
	switch s.Kind {
	case model.Mean:
		return n * n
	case model.Gradient:
		return n * (n - 1)
	case model.DoubleGradient:
		return 2 * n * (n - 1)
	case model.DCT:
		return n * n
	case model.Block:
		return n * n
	default:
		return 0
	}
}

// Prime triggers any one-shot precomputation a kernel needs before
// the first image of a run is hashed, so worker threads never race
// on lazy initialisation. Only DCT currently needs this (its cosine
// basis, cached per distinct resolution).
func Prime(s model.HashSettings) {
	if s.Kind == model.DCT {
		primeDCT(s.Size * 4)
	}
}

// Compute dispatches to the kernel named by s.Kind.
func Compute(img image.Image, s model.HashSettings) (bithash.Hash, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return bithash.Hash{}, fmt.Errorf("imghash: zero-sized image")
	}
	switch s.Kind {
	case model.Mean:
		return meanHash(img, s.Size), nil
	case model.Gradient:
		return gradientHash(img, s.Size), nil
	case model.DoubleGradient:
		return doubleGradientHash(img, s.Size), nil
	case model.DCT:
		return dctHash(img, s.Size), nil
	case model.Block:
		return blockHash(img, s.Size), nil
	default:
		return bithash.Hash{}, fmt.Errorf("imghash: unknown hash kind %v", s.Kind)
	}
}

func meanHash(img image.Image, n int) bithash.Hash {
	g := imaging.ResizeGray(img, n, imaging.Nearest)
	mean := g.Mean()
	bits := make([]bool, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			bits = append(bits, g.At(x, y) >= mean)
		}
	}
	return bithash.NewFromBits(bits)
}

// gradientHash emits, for every row, one bit per adjacent pixel
// pair: left < right.
func gradientHash(img image.Image, n int) bithash.Hash {
	g := imaging.ResizeGray(img, n, imaging.Nearest)
	bits := make([]bool, 0, n*(n-1))
	for y := 0; y < n; y++ {
		for x := 0; x < n-1; x++ {
			bits = append(bits, g.At(x, y) < g.At(x+1, y))
		}
	}
	return bithash.NewFromBits(bits)
}

// doubleGradientHash concatenates the row-wise gradient with the
// column-wise gradient computed over the same resized matrix.
func doubleGradientHash(img image.Image, n int) bithash.Hash {
	g := imaging.ResizeGray(img, n, imaging.Nearest)
	bits := make([]bool, 0, 2*n*(n-1))
	for y := 0; y < n; y++ {
		for x := 0; x < n-1; x++ {
			bits = append(bits, g.At(x, y) < g.At(x+1, y))
		}
	}
	for x := 0; x < n; x++ {
		for y := 0; y < n-1; y++ {
			bits = append(bits, g.At(x, y) < g.At(x, y+1))
		}
	}
	return bithash.NewFromBits(bits)
}

// blockHash splits the original (un-resized) RGBA image into an
// n x n grid of equal-sized blocks, ignoring any fractional
// remainder past the last full block on each axis, averages the
// luminance of each block and emits a bit for every block whose mean
// is at or above the overall mean of the sampled region.
func blockHash(img image.Image, n int) bithash.Hash {
	bounds := img.Bounds()
	blockW := bounds.Dx() / n
	blockH := bounds.Dy() / n

	sums := make([]float64, n*n)
	for by := 0; by < n; by++ {
		for bx := 0; bx < n; bx++ {
			var sum float64
			x0, y0 := bounds.Min.X+bx*blockW, bounds.Min.Y+by*blockH
			for y := y0; y < y0+blockH; y++ {
				for x := x0; x < x0+blockW; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					sum += imaging.Luminance(r, g, b)
				}
			}
			sums[bx+n*by] = sum / float64(blockW*blockH)
		}
	}

	overall := 0.0
	for _, m := range sums {
		overall += m
	}
	overall /= float64(n * n)

	bits := make([]bool, n*n)
	for i, m := range sums {
		bits[i] = m >= overall
	}
	return bithash.NewFromBits(bits)
}
