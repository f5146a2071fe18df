// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workpool is the bounded, back-pressured load-hash worker
// pool and its status aggregator. Concurrency is delegated to
// github.com/pinterest/bender's semaphore-gated concurrent load test
// runner rather than a hand-rolled deque or atomic cursor: a channel
// of requests, a WorkerSemaphore capping how many run at once, an
// executor, and a recorder channel folded by a single consumer -
// with images in place of HTTP tests.
package workpool

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/pinterest/bender"

	"github.com/abonander/img-dup/imghash"
	"github.com/abonander/img-dup/loader"
	"github.com/abonander/img-dup/model"
)

// Result is the outcome of processing one path: exactly one of
// Image or Err is set.
type Result struct {
	Image model.HashedImage
	Err   *model.FileError
}

// capacity is the bounded channel size: ceil(log2(n)) clamped to
// [1,64].
func capacity(n int) int {
	if n <= 1 {
		return 1
	}
	c := int(math.Ceil(math.Log2(float64(n))))
	if c < 1 {
		c = 1
	}
	if c > 64 {
		c = 64
	}
	return c
}

// Run loads and hashes every path in paths using threadCount worker
// slots (0 meaning runtime.NumCPU()), delivering a WorkStatus
// snapshot to onStatus at most once per tick and always for the
// final result. It returns every Result in unspecified order.
func Run(paths []string, settings model.HashSettings, threadCount int, tick time.Duration, onStatus func(model.WorkStatus)) []Result {
	if threadCount <= 0 {
		threadCount = runtime.NumCPU()
	}
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}

	// DCT priming: one-shot cosine matrix precomputation before any
	// worker starts, so the first hash of a run never lock-steps on
	// lazy initialisation.
	imghash.Prime(settings)

	if len(paths) == 0 {
		return nil
	}

	requests := make(chan interface{})
	go func() {
		for _, p := range paths {
			requests <- p
		}
		close(requests)
	}()

	recorder := make(chan interface{}, capacity(len(paths)))

	executor := func(now int64, r interface{}) (interface{}, error) {
		path := r.(string)
		return process(path, settings), nil
	}

	sem := bender.NewWorkerSemaphore()
	go func() { sem.Signal(threadCount) }()

	bender.LoadTestConcurrency(sem, requests, executor, recorder)

	results := make([]Result, 0, len(paths))
	var status model.WorkStatus
	var mu sync.Mutex
	lastTick := time.Now()

	fold := func(raw interface{}) {
		ev, ok := raw.(*bender.EndRequestEvent)
		if !ok {
			return
		}
		res, ok := ev.Response.(Result)
		if !ok {
			return
		}

		mu.Lock()
		results = append(results, res)
		if res.Err != nil {
			status.Errors++
		} else {
			status.Count++
			status.TotalBytes += int64(res.Image.Size)
			status.LoadTimeMs += res.Image.LoadMs
			status.HashTimeMs += res.Image.HashMs
		}
		snapshot := status
		done := status.Count+status.Errors == len(paths)
		emit := done || time.Since(lastTick) >= tick
		if emit {
			lastTick = time.Now()
		}
		mu.Unlock()

		if onStatus != nil && emit {
			onStatus(snapshot)
		}
	}

	bender.Record(recorder, fold)

	return results
}

// process is the per-path fault boundary: a decoder or kernel panic
// is caught here and reported as model.Panicked rather than
// escaping into the pool's goroutine and taking a worker down.
func process(path string, settings model.HashSettings) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: &model.FileError{
				Path:    path,
				Kind:    model.Panicked,
				Message: fmt.Sprint(r),
			}}
		}
	}()

	img, meta, ferr := loader.Load(path)
	if ferr != nil {
		return Result{Err: ferr}
	}

	start := time.Now()
	h, err := imghash.Compute(img, settings)
	if err != nil {
		return Result{Err: &model.FileError{Path: path, Kind: model.Decode, Message: err.Error()}}
	}
	hashMs := time.Since(start).Milliseconds()

	return Result{Image: model.HashedImage{
		Image:  meta,
		Hash:   h,
		HashMs: hashMs,
	}}
}
