// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline exposes the three sequential stage handles of a
// run - search, load-and-hash, collate - composing walk, workpool
// and collate in order. The onPath and onStatus callbacks are invoked
// only from the goroutine that called the stage method, never from a
// worker. The onTick callback of Collate is not: collate.Run invokes
// it from a separate ticker goroutine while the tree is being built.
package pipeline

import (
	"time"

	"github.com/abonander/img-dup/collate"
	"github.com/abonander/img-dup/errorlist"
	"github.com/abonander/img-dup/model"
	"github.com/abonander/img-dup/walk"
	"github.com/abonander/img-dup/workpool"
)

// Search is the entry stage: it owns nothing until Run is called.
type Search struct {
	settings model.SearchSettings
}

// NewSearch begins the first stage of a run.
func NewSearch(settings model.SearchSettings) *Search {
	return &Search{settings: settings}
}

// Run walks the configured directory, calling onPath for every
// matching file, and returns the Ready handle for the next stage.
func (s *Search) Run(onPath func(path string)) (*Ready, error) {
	var paths []string
	collect := func(p string) {
		paths = append(paths, p)
		if onPath != nil {
			onPath(p)
		}
	}
	if err := walk.Search(s.settings, collect); err != nil {
		return nil, err
	}
	return &Ready{paths: paths}, nil
}

// Ready owns the discovered path list and nothing else; its pool is
// created fresh in LoadAndHash.
type Ready struct {
	paths []string
}

// Paths returns the discovered file paths.
func (r *Ready) Paths() []string { return r.paths }

// LoadAndHash loads and hashes every discovered path on a worker
// pool sized by threads (0 meaning logical CPU count), reporting
// WorkStatus snapshots to onStatus, and returns the Hashed handle.
func (r *Ready) LoadAndHash(settings model.HashSettings, threads int, tick time.Duration, onStatus func(model.WorkStatus)) *Hashed {
	results := workpool.Run(r.paths, settings, threads, tick, onStatus)

	images := make([]model.HashedImage, 0, len(results))
	errs := errorlist.List{}
	for _, res := range results {
		if res.Err != nil {
			errs = errs.Append(res.Err)
			continue
		}
		images = append(images, res.Image)
	}

	return &Hashed{images: images, errors: errs}
}

// Hashed owns every successfully hashed image plus the per-file
// errors accumulated so far; its pool is created fresh in Collate.
type Hashed struct {
	images []model.HashedImage
	errors errorlist.List
}

// Images returns every successfully hashed image.
func (h *Hashed) Images() []model.HashedImage { return h.images }

// Errors returns the per-file errors accumulated during loading and
// hashing.
func (h *Hashed) Errors() errorlist.List { return h.errors }

// Collate builds the VP-tree and derives every image's similar list
// per mode, reporting a tick to onTick during the build phase, and
// returns the final Collated result.
func (h *Hashed) Collate(mode model.CompareMode, threads int, tick time.Duration, onTick func()) (*Collated, error) {
	result, err := collate.Run(h.images, mode, threads, tick, onTick)
	if err != nil {
		return nil, err
	}
	return &Collated{images: h.images, errors: h.errors, result: result}, nil
}

// Collated is the terminal stage: the hashed images, their similar
// lists, the per-file errors and the stage timings, ready to be
// turned into a report.
type Collated struct {
	images []model.HashedImage
	errors errorlist.List
	result collate.Collated
}

func (c *Collated) Images() []model.HashedImage   { return c.images }
func (c *Collated) Errors() errorlist.List        { return c.errors }
func (c *Collated) Similars() [][]model.Neighbour { return c.result.Similars }
func (c *Collated) BuildMs() int64                { return c.result.BuildMs }
func (c *Collated) CollateMs() int64              { return c.result.CollateMs }
