// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestTreeDepth(t *testing.T) {
	tests := []struct {
		leaves uint64
		depth  uint32
	}{
		{1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3},
		{6, 3}, {7, 3}, {8, 3}, {10, 4}, {16, 4},
		{17, 5}, {1 << 32, 32},
	}
	for _, test := range tests {
		if got := TreeDepth(test.leaves); got != test.depth {
			t.Errorf("TreeDepth(%d) = %d, want %d", test.leaves, got, test.depth)
		}
	}
}

func TestLocatorGeometry(t *testing.T) {
	tests := []struct {
		leaves uint64
		counts []uint64
		prefix []uint64
	}{
		{1, []uint64{1}, []uint64{0}},
		{2, []uint64{2, 1}, []uint64{0, 2}},
		{3, []uint64{4, 2, 1}, []uint64{0, 4, 6}},
		{4, []uint64{4, 2, 1}, []uint64{0, 4, 6}},
		{5, []uint64{6, 4, 2, 1}, []uint64{0, 6, 10, 12}},
		{9, []uint64{10, 6, 4, 2, 1}, []uint64{0, 10, 16, 20, 22}},
	}
	for _, test := range tests {
		locator, err := NewLocator(test.leaves)
		if err != nil {
			t.Fatalf("NewLocator(%d): %v", test.leaves, err)
		}
		if got := locator.CountPerDepth(); !slices.Equal(got, test.counts) {
			t.Errorf("%d leaves: counts = %v, want %v", test.leaves, got, test.counts)
		}
		if got := locator.PrefixCountPerDepth(); !slices.Equal(got, test.prefix) {
			t.Errorf("%d leaves: prefix = %v, want %v", test.leaves, got, test.prefix)
		}
		last := len(test.counts) - 1
		if got, want := locator.RootSlot(), test.prefix[last]; got != want {
			t.Errorf("%d leaves: root slot = %d, want %d", test.leaves, got, want)
		}
		if got, want := locator.SlotCount(), test.prefix[last]+1; got != want {
			t.Errorf("%d leaves: slot count = %d, want %d", test.leaves, got, want)
		}
	}
}

func TestLocatorEvenBelowRoot(t *testing.T) {
	for leaves := uint64(1); leaves <= 200; leaves++ {
		locator, err := NewLocator(leaves)
		if err != nil {
			t.Fatalf("NewLocator(%d): %v", leaves, err)
		}
		counts := locator.CountPerDepth()
		for depth, count := range counts[:len(counts)-1] {
			if count%2 != 0 {
				t.Fatalf("%d leaves: depth %d has odd count %d", leaves, depth, count)
			}
		}
		if counts[len(counts)-1] != 1 {
			t.Fatalf("%d leaves: root depth has %d slots", leaves, counts[len(counts)-1])
		}
	}
}

func TestLocatorCopiesAreIndependent(t *testing.T) {
	locator, err := NewLocator(5)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	counts := locator.CountPerDepth()
	counts[0] = 99
	if locator.CountPerDepth()[0] != 6 {
		t.Error("mutating CountPerDepth result changed the locator")
	}
}

func TestNewLocatorRejectsZero(t *testing.T) {
	if _, err := NewLocator(0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("NewLocator(0) error = %v, want ErrInvalidParameter", err)
	}
}

func TestLocatorSlot(t *testing.T) {
	locator, err := NewLocator(5)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}

	slot, err := locator.Slot(1, 3)
	if err != nil || slot != 9 {
		t.Errorf("Slot(1, 3) = (%d, %v), want 9", slot, err)
	}
	slot, err = locator.Slot(0, 5)
	if err != nil || slot != 5 {
		t.Errorf("Slot(0, 5) padding = (%d, %v), want 5", slot, err)
	}

	if _, err := locator.Slot(0, 6); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Slot(0, 6) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := locator.Slot(4, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Slot(4, 0) error = %v, want ErrInvalidParameter", err)
	}
}

func TestLocatorVerifyPath(t *testing.T) {
	locator, err := NewLocator(5)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}

	tests := []struct {
		leaf uint64
		path []PathEntry
	}{
		{0, []PathEntry{{0, 1}, {1, 7}, {2, 11}, {3, 12}}},
		{3, []PathEntry{{0, 2}, {1, 6}, {2, 11}, {3, 12}}},
		{4, []PathEntry{{0, 5}, {1, 9}, {2, 10}, {3, 12}}},
	}
	for _, test := range tests {
		path, err := locator.VerifyPath(test.leaf)
		if err != nil {
			t.Fatalf("VerifyPath(%d): %v", test.leaf, err)
		}
		if !slices.Equal(path, test.path) {
			t.Errorf("VerifyPath(%d) = %v, want %v", test.leaf, path, test.path)
		}
	}

	if _, err := locator.VerifyPath(5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("VerifyPath(5) error = %v, want ErrInvalidParameter", err)
	}
}

func TestLocatorVerifyPathSingleLeaf(t *testing.T) {
	locator, err := NewLocator(1)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	path, err := locator.VerifyPath(0)
	if err != nil {
		t.Fatalf("VerifyPath: %v", err)
	}
	if !slices.Equal(path, []PathEntry{{0, 0}}) {
		t.Errorf("VerifyPath(0) = %v, want root only", path)
	}
}

func TestLocatorNodeRegionSize(t *testing.T) {
	locator, err := NewLocator(3)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	if got := locator.NodeRegionSize(32); got != 7*32 {
		t.Errorf("NodeRegionSize(32) = %d, want %d", got, 7*32)
	}
}

func TestLocatorRejectsOverflowingLeafCounts(t *testing.T) {
	for _, leaves := range []uint64{math.MaxUint64, 1<<63 + 1} {
		_, err := NewLocator(leaves)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("NewLocator(%d) error = %v, want ErrInvalidParameter", leaves, err)
		}
	}
}

func TestLocatorHugeRegion(t *testing.T) {
	locator, err := NewLocator(1 << 62)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	if got := locator.SlotCount(); got != 1<<63-1 {
		t.Errorf("SlotCount() = %d, want %d", got, uint64(1<<63-1))
	}
	if got := locator.NodeRegionSize(32); got != math.MaxInt64 {
		t.Errorf("NodeRegionSize(32) = %d, want saturation at MaxInt64", got)
	}
	if locator.FitsIn(math.MaxInt64, 32) {
		t.Error("FitsIn(MaxInt64, 32) = true for 2^63-1 slots of 32 bytes")
	}

	small, err := NewLocator(3)
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}
	if !small.FitsIn(7*32, 32) || small.FitsIn(7*32-1, 32) || small.FitsIn(-1, 32) {
		t.Error("FitsIn boundary wrong for 7 slots of 32 bytes")
	}
}
