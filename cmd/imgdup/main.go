// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command imgdup walks a directory tree, perceptually hashes every
// image it finds and reports each image's nearest neighbours as a
// JSON document.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/mgutz/ansi"
	"go.uber.org/zap"

	"github.com/abonander/img-dup/config"
	"github.com/abonander/img-dup/errorlist"
	"github.com/abonander/img-dup/model"
	"github.com/abonander/img-dup/pipeline"
	"github.com/abonander/img-dup/report"
)

const (
	exitOK       = 0
	exitArgError = 2
	exitFatalIO  = 1
)

var verbose = os.Getenv("IMGDUP_VERBOSE") != ""

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, listTypes, err := config.Parse(args)
	if err != nil {
		errorlist.PrintlnFatal(err)
		return exitArgError
	}
	if listTypes {
		for _, t := range config.ListHashTypes() {
			fmt.Println(t)
		}
		return exitOK
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	runID := uuid.Must(uuid.NewV7()).String()
	log := logger.With(zap.String("run_id", runID))

	start := time.Now()
	log.Info("starting run", zap.String("dir", cfg.Search.Dir), zap.Int("threads", cfg.Threads))

	search := pipeline.NewSearch(cfg.Search)
	ready, err := search.Run(func(path string) {
		if verbose {
			fmt.Fprintln(os.Stderr, ansi.Color(path, "black+h"))
		}
	})
	if err != nil {
		errorlist.PrintlnFatal(err)
		return exitFatalIO
	}
	log.Info("search complete", zap.Int("paths", len(ready.Paths())))

	var lastStatus model.WorkStatus
	hashed := ready.LoadAndHash(cfg.Hash, cfg.Threads, 250*time.Millisecond, func(s model.WorkStatus) {
		lastStatus = s
		if verbose {
			fmt.Fprintf(os.Stderr, "%s count=%d errors=%d avg_load=%.1fms avg_hash=%.1fms\n",
				ansi.Color("progress", "cyan"), s.Count, s.Errors, s.AvgLoadMs(), s.AvgHashMs())
		}
	})
	log.Info("load+hash complete",
		zap.Int("hashed", len(hashed.Images())),
		zap.Int("errors", len(hashed.Errors())))

	var buildMs, collateMs int64
	collated, err := hashed.Collate(cfg.Compare, cfg.Threads, 250*time.Millisecond, func() {
		if verbose {
			fmt.Fprintln(os.Stderr, ansi.Color("building index...", "yellow"))
		}
	})
	if err != nil {
		errorlist.PrintlnFatal(fmt.Errorf("fatal: %w", err))
		return exitFatalIO
	}
	buildMs = collated.BuildMs()
	collateMs = collated.CollateMs()
	log.Info("collate complete",
		zap.Int64("build_ms", buildMs),
		zap.Int64("collate_ms", collateMs))

	if verbose {
		fmt.Fprintf(os.Stderr, "%# v\n", pretty.Formatter(lastStatus))
	}

	elapsedMs := time.Since(start).Milliseconds()
	doc := report.Build(cfg.Search, cfg.Hash, cfg.Compare, cfg.Threads,
		collated.Images(), collated.Similars(), collated.Errors(),
		lastStatus.LoadTimeMs, lastStatus.HashTimeMs, collateMs, elapsedMs)
	_ = buildMs // folded into log, not part of the report schema

	out, err := os.Create(cfg.Outfile)
	if err != nil {
		errorlist.PrintlnFatal(fmt.Errorf("cannot create outfile %q: %w", cfg.Outfile, err))
		return exitFatalIO
	}
	defer out.Close()

	if err := report.Write(out, doc, cfg.PrettyIndent); err != nil {
		errorlist.PrintlnFatal(fmt.Errorf("cannot write outfile %q: %w", cfg.Outfile, err))
		return exitFatalIO
	}

	log.Info("run complete",
		zap.Int64("elapsed_ms", elapsedMs),
		zap.Int64("build_ms", buildMs),
		zap.Int64("collate_ms", collateMs),
		zap.String("outfile", cfg.Outfile))

	return exitOK
}
