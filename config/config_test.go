// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, list, err := Parse([]string{"testdata"})
	if err != nil {
		t.Fatal(err)
	}
	if list {
		t.Fatal("did not expect --list-hash-types")
	}
	if !cfg.Compare.KNearest || cfg.Compare.Value != 5 {
		t.Errorf("expected default k-nearest=5, got %+v", cfg.Compare)
	}
	if cfg.Hash.Size != 8 {
		t.Errorf("expected default hash-size=8, got %d", cfg.Hash.Size)
	}
	if !cfg.Search.Exts["png"] || !cfg.Search.Exts["gif"] || !cfg.Search.Exts["jpg"] {
		t.Errorf("expected default extensions, got %v", cfg.Search.Exts)
	}
	if cfg.Search.Dir != "testdata" {
		t.Errorf("expected positional dir, got %q", cfg.Search.Dir)
	}
}

func TestParseRejectsBothKNearestAndDistance(t *testing.T) {
	_, _, err := Parse([]string{"--k-nearest=3", "--distance=2"})
	if err == nil {
		t.Fatal("expected mutual-exclusion error")
	}
}

func TestParseRejectsNoDefaultExtsWithoutExt(t *testing.T) {
	_, _, err := Parse([]string{"--no-default-exts"})
	if err == nil {
		t.Fatal("expected missing --ext error")
	}
}

func TestParseListHashTypes(t *testing.T) {
	_, list, err := Parse([]string{"--list-hash-types"})
	if err != nil {
		t.Fatal(err)
	}
	if !list {
		t.Fatal("expected list flag to short-circuit parsing")
	}
}

func TestParseCustomExtReplacesDefaults(t *testing.T) {
	cfg, _, err := Parse([]string{"--no-default-exts", "--ext=bmp"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Search.Exts) != 1 || !cfg.Search.Exts["bmp"] {
		t.Errorf("expected only bmp, got %v", cfg.Search.Exts)
	}
}
