// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vptree implements the vantage-point tree over
// model.HashedImage values using Hamming distance: a binary metric
// tree that partitions points by distance from a chosen vantage
// point, letting range and k-nearest queries prune whole subtrees via
// the triangle inequality instead of scanning every image.
package vptree

import (
	"container/heap"
	"math"
	"sort"
	"sync"

	"github.com/abonander/img-dup/bithash"
	"github.com/abonander/img-dup/model"
)

// Tree is an immutable vantage-point tree built once over a fixed
// slice of items; querying never mutates it.
type Tree struct {
	items []model.HashedImage
	root  *node
}

type node struct {
	vantage   int // index into Tree.items
	mu        int
	near, far *node
}

// Build constructs a VP-tree over items. The vantage at every level
// is the first element of the slice being partitioned, which keeps
// construction deterministic for a given input order; the median
// used to split near/far is found by nth-element selection
// (quickselect), not a full sort.
func Build(items []model.HashedImage) *Tree {
	t := &Tree{items: items}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	t.root = build(items, idx)
	return t
}

// BuildParallel is Build, but the near/far subtrees are constructed
// concurrently on up to workers goroutines - the collator uses this
// to re-use the pipeline's worker pool threads during the O(n log n)
// build phase instead of leaving them idle while one goroutine walks
// the whole recursion alone.
func BuildParallel(items []model.HashedImage, workers int) *Tree {
	if workers < 1 {
		workers = 1
	}
	t := &Tree{items: items}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sem := make(chan struct{}, workers)
	t.root = buildParallel(items, idx, sem)
	return t
}

func buildParallel(items []model.HashedImage, idx []int, sem chan struct{}) *node {
	if len(idx) == 0 {
		return nil
	}
	if len(idx) == 1 {
		return &node{vantage: idx[0]}
	}

	vantage := idx[0]
	rest := idx[1:]
	cands := make([]cand, len(rest))
	for i, j := range rest {
		cands[i] = cand{idx: j, dist: bithash.MustDistance(items[vantage].Hash, items[j].Hash)}
	}
	mu := selectMedian(cands)

	var nearIdx, farIdx []int
	for _, c := range cands {
		if c.dist <= mu {
			nearIdx = append(nearIdx, c.idx)
		} else {
			farIdx = append(farIdx, c.idx)
		}
	}

	n := &node{vantage: vantage, mu: mu}

	select {
	case sem <- struct{}{}:
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			n.near = buildParallel(items, nearIdx, sem)
		}()
		n.far = buildParallel(items, farIdx, sem)
		wg.Wait()
	default:
		n.near = buildParallel(items, nearIdx, sem)
		n.far = buildParallel(items, farIdx, sem)
	}

	return n
}

func build(items []model.HashedImage, idx []int) *node {
	if len(idx) == 0 {
		return nil
	}
	if len(idx) == 1 {
		return &node{vantage: idx[0]}
	}

	vantage := idx[0]
	rest := idx[1:]

	cands := make([]cand, len(rest))
	for i, j := range rest {
		cands[i] = cand{idx: j, dist: bithash.MustDistance(items[vantage].Hash, items[j].Hash)}
	}

	mu := selectMedian(cands)

	var nearIdx, farIdx []int
	for _, c := range cands {
		if c.dist <= mu {
			nearIdx = append(nearIdx, c.idx)
		} else {
			farIdx = append(farIdx, c.idx)
		}
	}

	return &node{
		vantage: vantage,
		mu:      mu,
		near:    build(items, nearIdx),
		far:     build(items, farIdx),
	}
}

type cand = struct {
	idx  int
	dist int
}

// selectMedian returns the (lower) median distance in cands using
// quickselect, partitioning cands in place; it leaves cands in an
// unspecified order, which is fine since callers only need the
// value, not the partitioned positions (ties must still land in the
// "near" partition, which the caller re-derives with one O(n)
// scan against the returned value).
func selectMedian(cands []cand) int {
	if len(cands) == 0 {
		return 0
	}
	k := (len(cands) - 1) / 2
	return quickselect(cands, k)
}

func quickselect(cands []cand, k int) int {
	lo, hi := 0, len(cands)-1
	for lo < hi {
		pivotIndex := partition(cands, lo, hi, (lo+hi)/2)
		switch {
		case k == pivotIndex:
			lo, hi = pivotIndex, pivotIndex
		case k < pivotIndex:
			hi = pivotIndex - 1
		default:
			lo = pivotIndex + 1
		}
	}
	return cands[k].dist
}

func partition(cands []cand, lo, hi, pivotIndex int) int {
	pivot := cands[pivotIndex].dist
	cands[pivotIndex], cands[hi] = cands[hi], cands[pivotIndex]
	store := lo
	for i := lo; i < hi; i++ {
		if cands[i].dist < pivot {
			cands[i], cands[store] = cands[store], cands[i]
			store++
		}
	}
	cands[store], cands[hi] = cands[hi], cands[store]
	return store
}

// heapItem is one candidate in the bounded max-heap KNearest and
// NearestExcludingSelf use to track the k best matches seen so far.
type heapItem struct {
	idx  int
	dist int
}

type maxHeap []heapItem

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func pushCandidate(h *maxHeap, k, idx, dist int) {
	if h.Len() < k {
		heap.Push(h, heapItem{idx: idx, dist: dist})
		return
	}
	if k > 0 && dist < (*h)[0].dist {
		heap.Pop(h)
		heap.Push(h, heapItem{idx: idx, dist: dist})
	}
}

func worstDist(h *maxHeap, k int) int {
	if h.Len() < k {
		return math.MaxInt
	}
	return (*h)[0].dist
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ItemPath returns the path of the i-th item as given to Build, for
// callers that need to recover identity from an index.
func (t *Tree) ItemPath(i int) string { return t.items[i].Path }

// KNearest returns up to k items in ascending distance order, ties
// broken by ascending construction-order index. An empty tree
// returns an empty result, never an error.
func (t *Tree) KNearest(query bithash.Hash, k int) ([]model.Neighbour, error) {
	if t.root == nil || k <= 0 {
		return nil, nil
	}
	h := &maxHeap{}
	heap.Init(h)

	var walkErr error
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil || walkErr != nil {
			return
		}
		d, err := bithash.Distance(query, t.items[n.vantage].Hash)
		if err != nil {
			walkErr = err
			return
		}
		pushCandidate(h, k, n.vantage, d)

		if n.near == nil && n.far == nil {
			return
		}

		searchNearFirst := d <= n.mu
		first, second := n.near, n.far
		if !searchNearFirst {
			first, second = n.far, n.near
		}

		walk(first)
		if walkErr != nil {
			return
		}
		if !(h.Len() == k && abs(d-n.mu) >= worstDist(h, k)) {
			walk(second)
		}
	}
	walk(t.root)
	if walkErr != nil {
		return nil, walkErr
	}
	return sortedNeighbours(*h, t.items), nil
}

// Within returns every item within Hamming distance radius of query,
// in unspecified order.
func (t *Tree) Within(query bithash.Hash, radius int) ([]model.Neighbour, error) {
	if t.root == nil {
		return nil, nil
	}
	var out []model.Neighbour
	var walkErr error
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil || walkErr != nil {
			return
		}
		d, err := bithash.Distance(query, t.items[n.vantage].Hash)
		if err != nil {
			walkErr = err
			return
		}
		if d <= radius {
			out = append(out, model.Neighbour{Path: t.items[n.vantage].Path, Dist: d})
		}
		if d-radius <= n.mu {
			walk(n.near)
		}
		if d+radius >= n.mu {
			walk(n.far)
		}
	}
	walk(t.root)
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

// NearestExcludingSelf returns the k nearest neighbours of
// t.items[i], excluding the item itself by identity (its path, which
// is unique per element in the tree), not by hash value - two items
// with an identical hash still show up as each other's neighbour at
// distance 0.
func (t *Tree) NearestExcludingSelf(i, k int) ([]model.Neighbour, error) {
	got, err := t.KNearest(t.items[i].Hash, k+1)
	if err != nil {
		return nil, err
	}
	self := t.items[i].Path
	out := make([]model.Neighbour, 0, k)
	for _, n := range got {
		if len(out) == k {
			break
		}
		if n.Path == self {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func sortedNeighbours(h maxHeap, items []model.HashedImage) []model.Neighbour {
	cands := make([]heapItem, len(h))
	copy(cands, h)
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].idx < cands[j].idx
	})
	out := make([]model.Neighbour, len(cands))
	for i, c := range cands {
		out[i] = model.Neighbour{Path: items[c.idx].Path, Dist: c.dist}
	}
	return out
}
