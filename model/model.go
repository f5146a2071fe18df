// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package model holds the value types shared by every stage of the
// img-dup pipeline: the loader, the hash kernels, the work pool and
// the collator all exchange data through these types and nothing
// else.
package model

import "github.com/abonander/img-dup/bithash"

// HashKind names one of the supported perceptual hash algorithms.
type HashKind int

const (
	Mean HashKind = iota
	Gradient
	DoubleGradient
	DCT
	Block
)

func (k HashKind) String() string {
	switch k {
	case Mean:
		return "mean"
	case Gradient:
		return "grad"
	case DoubleGradient:
		return "dblgrad"
	case DCT:
		return "dct"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// ParseHashKind parses the CLI spelling of a hash type.
func ParseHashKind(s string) (HashKind, bool) {
	switch s {
	case "mean":
		return Mean, true
	case "grad":
		return Gradient, true
	case "dblgrad":
		return DoubleGradient, true
	case "dct":
		return DCT, true
	case "block":
		return Block, true
	default:
		return 0, false
	}
}

// HashSettings configures a hash kernel run. BitLength is a pure
// function of (Size, Kind); see imghash.BitLength.
type HashSettings struct {
	Size int
	Kind HashKind
}

// SearchSettings configures the directory walk.
type SearchSettings struct {
	Dir       string
	Recursive bool
	Exts      map[string]bool
}

// CompareMode selects how the collator derives similar-image lists.
type CompareMode struct {
	// KNearest, when true, reports the Value nearest neighbours of
	// every image. Otherwise MaxDist reports every neighbour within
	// Hamming distance Value.
	KNearest bool
	Value    int
}

// Image is the metadata the loader produces for a successfully
// decoded file.
type Image struct {
	Path       string
	Width      int
	Height     int
	Size       int // in-memory size in bytes, subpixel count * subpixel size
	LoadMs     int64
}

// HashedImage is an Image plus its perceptual hash.
type HashedImage struct {
	Image
	Hash   bithash.Hash
	HashMs int64
}

// Neighbour is one entry of a HashedImage's similar-image list.
type Neighbour struct {
	Path string
	Dist int
}

// ErrorKind classifies a per-file failure.
type ErrorKind int

const (
	Io ErrorKind = iota
	Decode
	DimensionMismatch
	Panicked
)

func (k ErrorKind) String() string {
	switch k {
	case Io:
		return "io"
	case Decode:
		return "decode"
	case DimensionMismatch:
		return "dimension_mismatch"
	case Panicked:
		return "panic"
	default:
		return "unknown"
	}
}

// FileError records why a single path could not be turned into a
// HashedImage. It satisfies the error interface so it can travel
// through errorlist.List alongside ordinary errors.
type FileError struct {
	Path    string
	Kind    ErrorKind
	Message string
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Kind.String() + ": " + e.Message
}

// WorkStatus is a cumulative, value-copied snapshot of pipeline
// progress. Every field is monotonically non-decreasing over the
// life of one run.
type WorkStatus struct {
	Count      int
	Errors     int
	TotalBytes int64
	LoadTimeMs int64
	HashTimeMs int64
}

// AvgLoadMs derives the average load time on read; it is never stored.
func (s WorkStatus) AvgLoadMs() float64 {
	n := s.Count
	if n == 0 {
		n = 1
	}
	return float64(s.LoadTimeMs) / float64(n)
}

// AvgHashMs derives the average hash time on read.
func (s WorkStatus) AvgHashMs() float64 {
	n := s.Count
	if n == 0 {
		n = 1
	}
	return float64(s.HashTimeMs) / float64(n)
}
