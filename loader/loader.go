// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader turns a file path into a decoded image plus the
// metadata the rest of the pipeline needs: magic-byte format
// detection (image.Decode already guesses from content, never the
// extension) and wall-clock timing around the open and decode.
//
// Decoding WebP is supported transparently via the blank import of
// github.com/deepteams/webp, which registers itself with the
// standard image package exactly like image/gif and image/png do.
package loader

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "github.com/deepteams/webp"

	"github.com/abonander/img-dup/model"
)

// subpixelSize is the byte size of one subpixel sample once an
// image is decoded to image.Image's generic color model; used to
// derive Image.Size, the image's in-memory footprint (subpixel
// count * subpixel size).
const subpixelSize = 2 // color.RGBA64's 16-bit channels, the widest common denominator

// Load opens, decodes and times the image at path. A decode panic
// (a handful of third-party decoders are not fuzz-hardened) is
// caught and converted to a model.FileError with Kind Panicked
// rather than taking the calling worker down.
func Load(path string) (img image.Image, meta model.Image, ferr *model.FileError) {
	defer func() {
		if r := recover(); r != nil {
			ferr = &model.FileError{Path: path, Kind: model.Panicked, Message: fmt.Sprint(r)}
			img = nil
		}
	}()

	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, model.Image{}, &model.FileError{Path: path, Kind: model.Io, Message: err.Error()}
	}
	defer f.Close()

	br := bufio.NewReader(f)

	decoded, _, err := image.Decode(br)
	if err != nil {
		return nil, model.Image{}, &model.FileError{Path: path, Kind: model.Decode, Message: err.Error()}
	}

	elapsed := time.Since(start)
	b := decoded.Bounds()
	size := b.Dx() * b.Dy() * 4 * subpixelSize // 4 channels (RGBA)

	meta = model.Image{
		Path:   path,
		Width:  b.Dx(),
		Height: b.Dy(),
		Size:   size,
		LoadMs: elapsed.Milliseconds(),
	}
	return decoded, meta, nil
}
