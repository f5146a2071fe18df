// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report builds and serializes the single JSON document a run
// produces. Marshalling is deliberately plain encoding/json: the
// document is small and fixed-shape, so a dedicated codec would buy
// nothing.
package report

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/abonander/img-dup/errorlist"
	"github.com/abonander/img-dup/model"
)

// Settings mirrors the run configuration the report must echo back,
// so a report is self-describing without the original command line.
type Settings struct {
	HashSize  int      `json:"hash_size"`
	HashType  string   `json:"hash_type"`
	Compare   Compare  `json:"compare"`
	Recursive bool     `json:"recursive"`
	Exts      []string `json:"exts"`
	Threads   int      `json:"threads"`
}

// Compare echoes the CompareMode a run was given.
type Compare struct {
	Kind  string `json:"kind"`
	Value int    `json:"value"`
}

// Stats carries the run's aggregate counters and stage timings.
type Stats struct {
	Total     int   `json:"total"`
	Hashed    int   `json:"hashed"`
	Errors    int   `json:"errors"`
	ElapsedMs int64 `json:"elapsed_ms"`
	LoadMs    int64 `json:"load_ms"`
	HashMs    int64 `json:"hash_ms"`
	CollateMs int64 `json:"collate_ms"`
}

// Similar is one entry of an image's similars list.
type Similar struct {
	Path string `json:"path"`
	Dist int    `json:"dist"`
}

// ImageEntry is one successfully hashed image.
type ImageEntry struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Dimensions [2]int    `json:"dimensions"`
	LoadMs     int64     `json:"load_ms"`
	HashMs     int64     `json:"hash_ms"`
	Similars   []Similar `json:"similars"`
}

// ErrorEntry is one per-file failure.
type ErrorEntry struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Report is the top-level document written to the outfile.
type Report struct {
	Settings Settings     `json:"settings"`
	Stats    Stats        `json:"stats"`
	Images   []ImageEntry `json:"images"`
	Errors   []ErrorEntry `json:"errors"`
}

// errKind renders a model.ErrorKind the way the report's "kind" field
// spells it; Panicked collapses to "panic".
func errKind(k model.ErrorKind) string {
	if k == model.Panicked {
		return "panic"
	}
	return k.String()
}

// Build assembles a Report from one completed run. elapsedMs is the
// wall-clock time from pipeline start to report assembly; it is the
// only timing not already owned by one of the pipeline stages.
func Build(settings model.SearchSettings, hs model.HashSettings, mode model.CompareMode, threads int,
	images []model.HashedImage, similars [][]model.Neighbour, errs errorlist.List,
	loadMs, hashMs, collateMs, elapsedMs int64) Report {

	exts := make([]string, 0, len(settings.Exts))
	for e := range settings.Exts {
		exts = append(exts, e)
	}
	sort.Strings(exts)

	compareKind := "max_dist"
	if mode.KNearest {
		compareKind = "k_nearest"
	}

	imgEntries := make([]ImageEntry, len(images))
	for i, img := range images {
		sims := make([]Similar, len(similars[i]))
		for j, n := range similars[i] {
			sims[j] = Similar{Path: n.Path, Dist: n.Dist}
		}
		imgEntries[i] = ImageEntry{
			Path:       img.Path,
			Hash:       img.Hash.Base64(),
			Dimensions: [2]int{img.Width, img.Height},
			LoadMs:     img.LoadMs,
			HashMs:     img.HashMs,
			Similars:   sims,
		}
	}

	errEntries := make([]ErrorEntry, 0, len(errs))
	for _, e := range errs {
		fe, ok := e.(*model.FileError)
		if !ok {
			errEntries = append(errEntries, ErrorEntry{Kind: "decode", Message: e.Error()})
			continue
		}
		errEntries = append(errEntries, ErrorEntry{
			Path:    fe.Path,
			Kind:    errKind(fe.Kind),
			Message: fe.Message,
		})
	}

	return Report{
		Settings: Settings{
			HashSize:  hs.Size,
			HashType:  hs.Kind.String(),
			Compare:   Compare{Kind: compareKind, Value: mode.Value},
			Recursive: settings.Recursive,
			Exts:      exts,
			Threads:   threads,
		},
		Stats: Stats{
			Total:     len(images) + len(errEntries),
			Hashed:    len(images),
			Errors:    len(errEntries),
			ElapsedMs: elapsedMs,
			LoadMs:    loadMs,
			HashMs:    hashMs,
			CollateMs: collateMs,
		},
		Images: imgEntries,
		Errors: errEntries,
	}
}

// Write serializes r to w, indenting by indent spaces when indent > 0.
func Write(w io.Writer, r Report, indent int) error {
	enc := json.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent("", spaces(indent))
	}
	return enc.Encode(r)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
