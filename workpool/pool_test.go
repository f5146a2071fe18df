// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workpool

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abonander/img-dup/model"
)

func writeSolidPNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
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

func TestRunCountsEveryPath(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSolidPNG(t, dir, "a.png", color.White),
		writeSolidPNG(t, dir, "b.png", color.Black),
		filepath.Join(dir, "missing.png"),
	}

	settings := model.HashSettings{Size: 8, Kind: model.Mean}
	var snapshots []model.WorkStatus
	results := Run(paths, settings, 2, 10*time.Millisecond, func(s model.WorkStatus) {
		snapshots = append(snapshots, s)
	})

	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}

	errs, ok := 0, 0
	for _, r := range results {
		if r.Err != nil {
			errs++
		} else {
			ok++
		}
	}
	if errs != 1 {
		t.Errorf("errs = %d, want 1", errs)
	}
	if ok != 2 {
		t.Errorf("ok = %d, want 2", ok)
	}

	if len(snapshots) == 0 {
		t.Fatal("expected at least one status snapshot")
	}
	last := snapshots[len(snapshots)-1]
	if last.Count+last.Errors != len(paths) {
		t.Errorf("final status count+errors = %d, want %d", last.Count+last.Errors, len(paths))
	}
}
