// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package imghash

import (
	"image"
	"math"
	"sync"

	"github.com/abonander/img-dup/bithash"
	"github.com/abonander/img-dup/imaging"
)

// dctBasis is the process-wide, write-once, read-many cosine basis
// for one resolution N. It is built once per distinct N and then
// only ever read, so it is safe to share across worker goroutines
// without further locking once published.
type dctBasis struct {
	n    int
	cos  [][]float64 // cos[u][x] = cos(pi*(2x+1)*u / (2n))
	norm []float64   // per-u normalisation factor (alpha(u) * sqrt(2/n))
}

var (
	dctMu    sync.Mutex
	dctCache = map[int]*dctBasis{}
)

// primeDCT builds and caches the cosine basis for resolution n if
// it is not already cached. Calling it before the first hash of a
// run avoids every worker racing to build the same table on first
// use.
func primeDCT(n int) *dctBasis {
	dctMu.Lock()
	defer dctMu.Unlock()
	if b, ok := dctCache[n]; ok {
		return b
	}
	b := buildDCTBasis(n)
	dctCache[n] = b
	return b
}

func buildDCTBasis(n int) *dctBasis {
	b := &dctBasis{n: n, cos: make([][]float64, n), norm: make([]float64, n)}
	for u := 0; u < n; u++ {
		row := make([]float64, n)
		for x := 0; x < n; x++ {
			row[x] = math.Cos(math.Pi * float64(2*x+1) * float64(u) / float64(2*n))
		}
		b.cos[u] = row
		alpha := math.Sqrt(2.0 / float64(n))
		if u == 0 {
			alpha = math.Sqrt(1.0 / float64(n))
		}
		b.norm[u] = alpha
	}
	return b
}

// dctHash runs a separable 2-D DCT-II over an N=hash_size*4
// grayscale matrix (resized with a triangle filter, the closest
// stdlib-free approximation to Lanczos available without an image
// resampling dependency), crops to the top-left hash_size x
// hash_size block of coefficients - the DC term is kept in the crop
// so the produced hash always has exactly hash_size^2 bits, matching
// the bit-length table - and emits one bit per coefficient: c >=
// mean(cropped).
func dctHash(img image.Image, hashSize int) bithash.Hash {
	n := hashSize * 4
	basis := primeDCT(n)

	g := imaging.ResizeGray(img, n, imaging.Triangle)

	// Separable 2-D DCT: transform columns, then rows, but only the
	// first hashSize basis rows/columns are ever needed, so only
	// those are computed.
	tmp := make([][]float64, hashSize)
	for u := 0; u < hashSize; u++ {
		tmp[u] = make([]float64, n)
		cu := basis.cos[u]
		for x := 0; x < n; x++ {
			sum := 0.0
			for y := 0; y < n; y++ {
				sum += g.At(x, y) * cu[y]
			}
			tmp[u][x] = sum * basis.norm[u]
		}
	}

	coeffs := make([]float64, hashSize*hashSize)
	for v := 0; v < hashSize; v++ {
		cv := basis.cos[v]
		for u := 0; u < hashSize; u++ {
			sum := 0.0
			for x := 0; x < n; x++ {
				sum += tmp[u][x] * cv[x]
			}
			coeffs[u+v*hashSize] = sum * basis.norm[v]
		}
	}

	mean := 0.0
	for _, c := range coeffs {
		mean += c
	}
	mean /= float64(len(coeffs))

	bits := make([]bool, len(coeffs))
	for i, c := range coeffs {
		bits[i] = c >= mean
	}
	return bithash.NewFromBits(bits)
}
