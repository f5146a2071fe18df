// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package walk is the directory walker img-dup drives through a
// simple callback: a pure filesystem traversal with no pipeline
// logic of its own.
package walk

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/abonander/img-dup/model"
)

// Search walks settings.Dir, calling onPath for every regular file
// whose lowercased extension is in settings.Exts. Symlinks to
// regular files are followed; symlinked directories are never
// recursed into, which is the only cycle-avoidance the walker needs.
// If settings.Recursive is false, only the top-level directory is
// scanned.
func Search(settings model.SearchSettings, onPath func(path string)) error {
	root := settings.Dir
	if root == "" {
		root = "."
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && !settings.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := resolveSymlink(path, d)
		if err != nil {
			return nil // unreadable entry: skip rather than abort the whole walk
		}
		if info.IsDir() {
			return nil // symlinked directory: never recursed into
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		if matchesExt(path, settings.Exts) {
			onPath(path)
		}
		return nil
	})
}

// resolveSymlink follows d if it is a symlink, returning the target's
// os.FileInfo; for anything else it is a thin wrapper around d.Info.
func resolveSymlink(path string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&os.ModeSymlink != 0 {
		return os.Stat(path) // os.Stat follows the link
	}
	return d.Info()
}

func matchesExt(path string, exts map[string]bool) bool {
	if len(exts) == 0 {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return exts[ext]
}

// DefaultExts is the extension set the CLI scans unless
// --no-default-exts is set; any --ext values are added to it.
func DefaultExts() map[string]bool {
	return map[string]bool{"gif": true, "png": true, "jpg": true}
}
