// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/abonander/img-dup/model"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDecodesValidPNG(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 16, 24)

	img, meta, ferr := Load(path)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 24 {
		t.Errorf("bounds = %v, want 16x24", img.Bounds())
	}
	if meta.Width != 16 || meta.Height != 24 {
		t.Errorf("meta dims = %dx%d, want 16x24", meta.Width, meta.Height)
	}
	if meta.Size <= 0 {
		t.Errorf("meta.Size = %d, want > 0", meta.Size)
	}
}

func TestLoadMissingFileIsIoError(t *testing.T) {
	_, _, ferr := Load(filepath.Join(t.TempDir(), "nope.png"))
	if ferr == nil {
		t.Fatal("expected error for missing file")
	}
	if ferr.Kind != model.Io {
		t.Errorf("kind = %v, want Io", ferr.Kind)
	}
}

func TestLoadCorruptFileIsDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, ferr := Load(path)
	if ferr == nil {
		t.Fatal("expected decode error for random bytes")
	}
	if ferr.Kind != model.Decode {
		t.Errorf("kind = %v, want Decode", ferr.Kind)
	}
}

func TestLoadIgnoresWrongExtension(t *testing.T) {
	dir := t.TempDir()
	// Real PNG bytes behind a misleading extension: the loader must
	// trust the magic bytes, not the suffix.
	realPath := writePNG(t, dir, "a.png", 4, 4)
	data, err := os.ReadFile(realPath)
	if err != nil {
		t.Fatal(err)
	}
	mismatched := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(mismatched, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, ferr := Load(mismatched)
	if ferr != nil {
		t.Fatalf("magic-byte detection should have succeeded: %v", ferr)
	}
}
