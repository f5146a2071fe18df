// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config wires the command-line flags, an optional hjson
// config file and the validation that turns both into the model
// types the pipeline needs. It is the one place img-dup's flag
// parser lives.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/asaskevich/govalidator"
	hjson "github.com/hjson/hjson-go"

	"github.com/abonander/img-dup/errorlist"
	"github.com/abonander/img-dup/model"
	"github.com/abonander/img-dup/walk"
)

// Config is the fully parsed and validated run configuration.
type Config struct {
	Search       model.SearchSettings
	Hash         model.HashSettings
	Compare      model.CompareMode
	Threads      int
	Outfile      string
	PrettyIndent int
	ListTypes    bool
}

// file mirrors the subset of flags an hjson config file may set; any
// flag also given on the command line overrides the file.
type file struct {
	Threads       *int     `json:"threads"`
	Ext           []string `json:"ext"`
	NoDefaultExts *bool    `json:"no_default_exts"`
	Recursive     *bool    `json:"recursive"`
	Outfile       *string  `json:"outfile"`
	HashSize      *int     `json:"hash_size"`
	HashType      *string  `json:"hash_type"`
	KNearest      *int     `json:"k_nearest"`
	Distance      *int     `json:"distance"`
	PrettyIndent  *int     `json:"pretty_indent"`
}

// exts is the repeatable --ext flag.
type exts []string

func (e *exts) String() string     { return strings.Join(*e, ",") }
func (e *exts) Set(v string) error { *e = append(*e, strings.ToLower(v)); return nil }

// Parse parses args (os.Args[1:] in production) against fs, merges in
// configPath if non-empty, validates the result and returns a Config
// ready for the pipeline. A non-nil error is always an
// errorlist.List and is fatal: the caller should print it with
// errorlist.PrintlnFatal and exit 2.
func Parse(args []string) (Config, bool, error) {
	fs := flag.NewFlagSet("img-dup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	threads := fs.Int("threads", runtime.NumCPU(), "number of worker threads")
	var extFlags exts
	fs.Var(&extFlags, "ext", "file extension to scan for (repeatable)")
	noDefaultExts := fs.Bool("no-default-exts", false, "do not scan the default extensions {gif,png,jpg}")
	recursive := fs.Bool("recursive", false, "recurse into subdirectories")
	outfile := fs.String("outfile", "img-dup.json", "report output path")
	hashSize := fs.Int("hash-size", 8, "hash size parameter")
	hashType := fs.String("hash-type", "grad", "one of mean|block|grad|dblgrad|dct")
	kNearest := fs.Int("k-nearest", -1, "report the k nearest neighbours of every image")
	distance := fs.Int("distance", -1, "report every neighbour within this Hamming distance")
	listTypes := fs.Bool("list-hash-types", false, "print supported hash types and exit")
	prettyIndent := fs.Int("pretty-indent", 0, "indent width for the JSON report (0: compact)")
	configPath := fs.String("config", "", "optional hjson config file")

	if err := fs.Parse(args); err != nil {
		return Config{}, false, errorlist.List{}.Append(err)
	}

	if *listTypes {
		return Config{}, true, nil
	}

	var cfgFile file
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return Config{}, false, errorlist.List{}.Append(fmt.Errorf("config: %w", err))
		}
		if err := hjson.Unmarshal(raw, &cfgFile); err != nil {
			return Config{}, false, errorlist.List{}.Append(fmt.Errorf("config: %w", err))
		}
	}

	threadsVal := flagOrFile(fs, "threads", *threads, cfgFile.Threads)
	recursiveVal := flagOrFileBool(fs, "recursive", *recursive, cfgFile.Recursive)
	outfileVal := flagOrFileString(fs, "outfile", *outfile, cfgFile.Outfile)
	hashSizeVal := flagOrFile(fs, "hash-size", *hashSize, cfgFile.HashSize)
	hashTypeVal := flagOrFileString(fs, "hash-type", *hashType, cfgFile.HashType)
	prettyIndentVal := flagOrFile(fs, "pretty-indent", *prettyIndent, cfgFile.PrettyIndent)
	kNearestVal := *kNearest
	distanceVal := *distance
	if !flagSet(fs, "k-nearest") && cfgFile.KNearest != nil {
		kNearestVal = *cfgFile.KNearest
	}
	if !flagSet(fs, "distance") && cfgFile.Distance != nil {
		distanceVal = *cfgFile.Distance
	}

	noDefaultExtsVal := flagOrFileBool(fs, "no-default-exts", *noDefaultExts, cfgFile.NoDefaultExts)
	extList := append([]string{}, extFlags...)
	if len(extList) == 0 {
		extList = cfgFile.Ext
	}

	dir := "."
	if rest := fs.Args(); len(rest) > 0 {
		dir = rest[0]
	}

	errs := errorlist.List{}

	if threadsVal < 1 {
		errs = errs.Append(fmt.Errorf("--threads must be >= 1, got %d", threadsVal))
	}
	if hashSizeVal < 1 {
		errs = errs.Append(fmt.Errorf("--hash-size must be >= 1, got %d", hashSizeVal))
	}
	kind, ok := model.ParseHashKind(hashTypeVal)
	if !ok {
		errs = errs.Append(fmt.Errorf("--hash-type %q is not one of mean|block|grad|dblgrad|dct", hashTypeVal))
	}
	if noDefaultExtsVal && len(extList) == 0 {
		errs = errs.Append(fmt.Errorf("--no-default-exts requires at least one --ext"))
	}
	if prettyIndentVal < 0 {
		errs = errs.Append(fmt.Errorf("--pretty-indent must be >= 1 if given (0 disables indenting), got %d", prettyIndentVal))
	}
	if kNearestVal >= 0 && distanceVal >= 0 {
		errs = errs.Append(fmt.Errorf("--k-nearest and --distance are mutually exclusive"))
	}
	if kNearestVal < 0 && distanceVal < 0 {
		kNearestVal = 5 // default per specification
	}
	if isPath, _ := govalidator.IsFilePath(outfileVal); !isPath {
		errs = errs.Append(fmt.Errorf("--outfile %q is not a valid file path", outfileVal))
	}

	exts := make(map[string]bool, len(extList))
	for _, e := range extList {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	if !noDefaultExtsVal {
		for e := range walk.DefaultExts() {
			exts[e] = true
		}
	}

	if err := errs.AsError(); err != nil {
		return Config{}, false, err
	}

	mode := model.CompareMode{KNearest: kNearestVal >= 0, Value: kNearestVal}
	if !mode.KNearest {
		mode.Value = distanceVal
	}

	return Config{
		Search: model.SearchSettings{
			Dir:       dir,
			Recursive: recursiveVal,
			Exts:      exts,
		},
		Hash:         model.HashSettings{Size: hashSizeVal, Kind: kind},
		Compare:      mode,
		Threads:      threadsVal,
		Outfile:      outfileVal,
		PrettyIndent: prettyIndentVal,
		ListTypes:    false,
	}, false, nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func flagOrFile(fs *flag.FlagSet, name string, flagVal int, fileVal *int) int {
	if flagSet(fs, name) || fileVal == nil {
		return flagVal
	}
	return *fileVal
}

func flagOrFileBool(fs *flag.FlagSet, name string, flagVal bool, fileVal *bool) bool {
	if flagSet(fs, name) || fileVal == nil {
		return flagVal
	}
	return *fileVal
}

func flagOrFileString(fs *flag.FlagSet, name string, flagVal string, fileVal *string) string {
	if flagSet(fs, name) || fileVal == nil {
		return flagVal
	}
	return *fileVal
}

// ListHashTypes returns every supported --hash-type spelling, in the
// order --list-hash-types should print them.
func ListHashTypes() []string {
	return []string{"mean", "grad", "dblgrad", "dct", "block"}
}
