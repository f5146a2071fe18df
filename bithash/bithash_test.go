// Copyright 2024 The img-dup Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bithash

import "testing"

func TestDistanceSelfZero(t *testing.T) {
	h := NewFromBits([]bool{true, false, true, true, false, false, true, false, true})
	d, err := Distance(h, h)
	if err != nil {
		t.Fatal(err)
	}
	if d != 0 {
		t.Errorf("distance(h,h) = %d, want 0", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := NewFromBits([]bool{true, false, true, false, true})
	b := NewFromBits([]bool{true, true, true, true, false})
	d1, _ := Distance(a, b)
	d2, _ := Distance(b, a)
	if d1 != d2 {
		t.Errorf("distance not symmetric: %d vs %d", d1, d2)
	}
	if d1 < 0 || d1 > a.Size() {
		t.Errorf("distance %d out of range [0,%d]", d1, a.Size())
	}
}

func TestDistanceMismatch(t *testing.T) {
	a := NewFromBits([]bool{true, false, true})
	b := NewFromBits([]bool{true, false, true, true})
	if _, err := Distance(a, b); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestTrailingBitsMasked(t *testing.T) {
	// size=5 packed into one byte: trailing 3 bits must not count.
	h := New(5, []byte{0xFF})
	g := New(5, []byte{0xF8}) // same top 5 bits (11111), differing padding only
	d, err := Distance(h, g)
	if err != nil {
		t.Fatal(err)
	}
	if d != 0 {
		t.Errorf("padding bits leaked into distance: got %d, want 0", d)
	}
}

func TestBase64RoundTrip(t *testing.T) {
	h := NewFromBits([]bool{true, false, true, true, false, false, true, false, true, true, false})
	s := h.Base64()
	got, err := FromBase64(s, h.Size())
	if err != nil {
		t.Fatal(err)
	}
	d, err := Distance(h, got)
	if err != nil {
		t.Fatal(err)
	}
	if d != 0 {
		t.Errorf("round trip changed hash: distance %d", d)
	}
	if got.Size() != h.Size() {
		t.Errorf("round trip changed size: got %d, want %d", got.Size(), h.Size())
	}
}

func TestFromBase64BadLength(t *testing.T) {
	h := NewFromBits([]bool{true, false, true, true, false, false, true, false})
	s := h.Base64()
	if _, err := FromBase64(s, 100); err == nil {
		t.Fatal("expected error decoding base64 with mismatched size")
	}
}
