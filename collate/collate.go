// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collate drives the VP-tree build on the pipeline's worker
// threads and then derives, for every hashed image, the list of
// similar images the final report needs.
package collate

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/abonander/img-dup/bithash"
	"github.com/abonander/img-dup/model"
	"github.com/abonander/img-dup/vptree"
)

// Collated is the outcome of one collation pass: the built tree (for
// anyone who wants further ad-hoc queries) and, aligned 1:1 with the
// input images, every image's similar list.
type Collated struct {
	Tree      *vptree.Tree
	Similars  [][]model.Neighbour
	BuildMs   int64
	CollateMs int64
}

// Run builds the tree and answers the per-image query CompareMode
// selects, reporting progress on tick via onTick while the tree is
// under construction. The only error Run can return is
// bithash.ErrDimensionMismatch, which means two images in images
// were hashed under different HashSettings; that is a configuration
// error, and the caller should treat it as fatal rather than folding
// it into the per-file error list.
func Run(images []model.HashedImage, mode model.CompareMode, threads int, tick time.Duration, onTick func()) (Collated, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}

	for _, img := range images {
		if img.Hash.Size() != images[0].Hash.Size() {
			return Collated{}, fmt.Errorf("%w: %d vs %d", bithash.ErrDimensionMismatch, images[0].Hash.Size(), img.Hash.Size())
		}
	}

	buildStart := time.Now()
	done := make(chan struct{})
	if onTick != nil {
		go func() {
			t := time.NewTicker(tick)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					onTick()
				}
			}
		}()
	}
	tree := vptree.BuildParallel(images, threads)
	close(done)
	buildMs := time.Since(buildStart).Milliseconds()

	collateStart := time.Now()
	similars, err := queryAll(tree, images, mode, threads)
	if err != nil {
		return Collated{}, err
	}
	collateMs := time.Since(collateStart).Milliseconds()

	return Collated{Tree: tree, Similars: similars, BuildMs: buildMs, CollateMs: collateMs}, nil
}

// queryAll issues the per-image query in parallel across up to
// threads goroutines, preserving the 1:1 index alignment with
// images so the caller never has to re-match by path.
func queryAll(tree *vptree.Tree, images []model.HashedImage, mode model.CompareMode, threads int) ([][]model.Neighbour, error) {
	out := make([][]model.Neighbour, len(images))
	if len(images) == 0 {
		return out, nil
	}

	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for i := range images {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			n, err := query(tree, images[i].Hash, i, mode)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			out[i] = n
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func query(tree *vptree.Tree, h bithash.Hash, i int, mode model.CompareMode) ([]model.Neighbour, error) {
	if mode.KNearest {
		return tree.NearestExcludingSelf(i, mode.Value)
	}
	neighbours, err := tree.Within(h, mode.Value)
	if err != nil {
		return nil, err
	}
	return withoutSelf(neighbours, i, tree), nil
}

func withoutSelf(neighbours []model.Neighbour, i int, tree *vptree.Tree) []model.Neighbour {
	self := tree.ItemPath(i)
	out := neighbours[:0]
	for _, n := range neighbours {
		if n.Path == self {
			continue
		}
		out = append(out, n)
	}
	return out
}
