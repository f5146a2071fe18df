// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errorlist collects errors. img-dup uses it both for the
// per-file model.FileError values accumulated during a run and for
// fatal argument/outfile errors reported before any work begins.
package errorlist

import (
	"fmt"
	"os"
	"strings"

	"github.com/mgutz/ansi"
)

// List is a collection of errors.
type List []error

// Append err to el. A nil err is a no-op; appending another List
// flattens it instead of nesting.
func (el List) Append(err error) List {
	if err == nil {
		return el
	}
	if list, ok := err.(List); ok {
		return append(el, list...)
	}
	return append(el, err)
}

// Error implements the error interface.
func (el List) Error() string {
	return strings.Join(el.AsStrings(), ";  ")
}

// AsError returns el, or nil if el is empty, so a List can be
// handed back through a plain `error` return without a caller
// having to special-case "no errors" as a non-nil empty slice.
func (el List) AsError() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// AsStrings flattens el (and any nested List) to one string per
// leaf error.
func (el List) AsStrings() []string {
	s := []string{}
	for _, e := range el {
		if nel, ok := e.(List); ok {
			s = append(s, nel.AsStrings()...)
		} else {
			s = append(s, e.Error())
		}
	}
	return s
}

var fatalColor = ansi.ColorFunc("red+b")

// PrintlnFatal prints err to stderr as the single-line diagnostic a
// fatal (argument or outfile) error requires, colorized when stderr
// is a character device such as a terminal. If err is a List, every
// line is printed, still as one message per line.
func PrintlnFatal(err error) {
	if err == nil {
		return
	}
	color := func(s string) string { return s }
	if fi, serr := os.Stderr.Stat(); serr == nil && fi.Mode()&os.ModeCharDevice != 0 {
		color = fatalColor
	}
	if el, ok := err.(List); ok {
		for _, msg := range el.AsStrings() {
			fmt.Fprintln(os.Stderr, color(msg))
		}
		return
	}
	fmt.Fprintln(os.Stderr, color(err.Error()))
}
