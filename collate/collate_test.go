// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collate

import (
	"fmt"
	"testing"
	"time"

	"github.com/abonander/img-dup/bithash"
	"github.com/abonander/img-dup/model"
)

func bits(s string) bithash.Hash {
	bs := make([]bool, len(s))
	for i, c := range s {
		bs[i] = c == '1'
	}
	return bithash.NewFromBits(bs)
}

func TestRunKNearestIdenticalImages(t *testing.T) {
	images := make([]model.HashedImage, 3)
	for i := range images {
		images[i] = model.HashedImage{
			Image: model.Image{Path: fmt.Sprintf("img%d.png", i)},
			Hash:  bits("0000"),
		}
	}

	got, err := Run(images, model.CompareMode{KNearest: true, Value: 2}, 2, time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, sims := range got.Similars {
		if len(sims) != 2 {
			t.Errorf("image %d: got %d similars, want 2", i, len(sims))
		}
		for _, s := range sims {
			if s.Dist != 0 {
				t.Errorf("image %d: expected dist 0 for identical images, got %d", i, s.Dist)
			}
			if s.Path == images[i].Path {
				t.Errorf("image %d: similars included itself", i)
			}
		}
	}
}

func TestRunMaxDistThreshold(t *testing.T) {
	hashes := []string{"0000", "0000", "1111", "1111", "0011"}
	images := make([]model.HashedImage, len(hashes))
	for i, h := range hashes {
		images[i] = model.HashedImage{
			Image: model.Image{Path: fmt.Sprintf("img%d.png", i)},
			Hash:  bits(h),
		}
	}

	got, err := Run(images, model.CompareMode{KNearest: false, Value: 0}, 2, time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Similars[0]) != 1 || got.Similars[0][0].Path != "img1.png" {
		t.Errorf("image 0 similars = %v, want [img1.png]", got.Similars[0])
	}
	if len(got.Similars[2]) != 1 || got.Similars[2][0].Path != "img3.png" {
		t.Errorf("image 2 similars = %v, want [img3.png]", got.Similars[2])
	}
	if len(got.Similars[4]) != 0 {
		t.Errorf("image 4 similars = %v, want none", got.Similars[4])
	}
}

func TestRunKNearestZeroWithDuplicates(t *testing.T) {
	images := make([]model.HashedImage, 2)
	for i := range images {
		images[i] = model.HashedImage{
			Image: model.Image{Path: fmt.Sprintf("img%d.png", i)},
			Hash:  bits("0000"),
		}
	}

	got, err := Run(images, model.CompareMode{KNearest: true, Value: 0}, 2, time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, sims := range got.Similars {
		if len(sims) != 0 {
			t.Errorf("image %d: got %d similars, want 0 for k-nearest=0", i, len(sims))
		}
	}
}

func TestRunDimensionMismatchIsFatal(t *testing.T) {
	images := []model.HashedImage{
		{Image: model.Image{Path: "a.png"}, Hash: bits("0000")},
		{Image: model.Image{Path: "b.png"}, Hash: bits("00000")},
	}
	_, err := Run(images, model.CompareMode{KNearest: true, Value: 1}, 1, time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
