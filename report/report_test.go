// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/abonander/img-dup/bithash"
	"github.com/abonander/img-dup/errorlist"
	"github.com/abonander/img-dup/model"
)

func TestBuildCountsAndEchoesSettings(t *testing.T) {
	images := []model.HashedImage{
		{
			Image: model.Image{Path: "a.png", Width: 8, Height: 8, LoadMs: 1},
			Hash:  bithash.NewFromBits([]bool{true, false, true, false}),
		},
	}
	similars := [][]model.Neighbour{{{Path: "b.png", Dist: 3}}}
	errs := errorlist.List{}.Append(&model.FileError{Path: "bad.png", Kind: model.Decode, Message: "truncated"})

	search := model.SearchSettings{Dir: ".", Recursive: true, Exts: map[string]bool{"png": true, "jpg": true}}
	hs := model.HashSettings{Size: 8, Kind: model.Gradient}
	mode := model.CompareMode{KNearest: true, Value: 5}

	r := Build(search, hs, mode, 4, images, similars, errs, 10, 20, 30, 100)

	if r.Stats.Total != 2 || r.Stats.Hashed != 1 || r.Stats.Errors != 1 {
		t.Fatalf("unexpected stats: %+v", r.Stats)
	}
	if r.Settings.HashType != "grad" || r.Settings.Compare.Kind != "k_nearest" || r.Settings.Compare.Value != 5 {
		t.Fatalf("unexpected settings: %+v", r.Settings)
	}
	if len(r.Settings.Exts) != 2 {
		t.Fatalf("expected two exts, got %v", r.Settings.Exts)
	}
	if len(r.Images) != 1 || r.Images[0].Similars[0].Path != "b.png" {
		t.Fatalf("unexpected images: %+v", r.Images)
	}
	if len(r.Errors) != 1 || r.Errors[0].Kind != "decode" {
		t.Fatalf("unexpected errors: %+v", r.Errors)
	}
}

func TestWriteProducesValidJSON(t *testing.T) {
	r := Build(
		model.SearchSettings{Exts: map[string]bool{"png": true}},
		model.HashSettings{Size: 8, Kind: model.Mean},
		model.CompareMode{KNearest: false, Value: 0},
		1, nil, nil, nil, 0, 0, 0, 0,
	)

	var buf bytes.Buffer
	if err := Write(&buf, r, 2); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output was not valid JSON: %v", err)
	}
	for _, key := range []string{"settings", "stats", "images", "errors"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
}
