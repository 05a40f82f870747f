// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// Locator is the geometry of a tree with a given leaf count. It maps
// every (depth, index) pair to a slot in the flat node region and
// computes verification paths. Depth 0 is the leaves; the root sits
// at [Locator.TotalDepth].
//
// Every depth below the root holds an even number of slots: an odd
// count is padded by one slot that stores a copy of its left
// neighbour (see [Builder.Finalize]).
type Locator struct {
	leafCount  uint64
	totalDepth uint32

	countPerDepth       []uint64
	prefixCountPerDepth []uint64
}

// PathEntry is one element of a verification path: the depth of the
// node and its slot in the node region.
type PathEntry struct {
	Depth uint32 `json:"depth"`
	Slot  uint64 `json:"slot"`
}

// TreeDepth returns ceil(log2(leafCount)), the depth of the root. A
// single leaf is its own root at depth 0. The result for zero leaves
// is 0; [NewLocator] rejects that case.
func TreeDepth(leafCount uint64) uint32 {
	if leafCount <= 1 {
		return 0
	}
	return uint32(bits.Len64(leafCount - 1))
}

// NewLocator builds the geometry for leafCount leaves. Zero leaves, or
// a count whose padded slot total does not fit in a uint64, fail with
// [ErrInvalidParameter].
func NewLocator(leafCount uint64) (*Locator, error) {
	if leafCount == 0 {
		return nil, fmt.Errorf("%w: leaf count must be positive", ErrInvalidParameter)
	}

	totalDepth := TreeDepth(leafCount)
	counts := make([]uint64, totalDepth+1)
	count := leafCount
	for depth := range totalDepth + 1 {
		if depth != totalDepth && count%2 != 0 {
			if count == math.MaxUint64 {
				return nil, fmt.Errorf("%w: %d leaves overflow the slot index space", ErrInvalidParameter, leafCount)
			}
			count++
		}
		counts[depth] = count
		count /= 2
	}
	if counts[totalDepth] != 1 {
		return nil, fmt.Errorf("%w: geometry for %d leaves ends with %d root slots",
			ErrInvalidState, leafCount, counts[totalDepth])
	}

	prefix := make([]uint64, totalDepth+1)
	var running, carry uint64
	for depth, c := range counts {
		prefix[depth] = running
		running, carry = bits.Add64(running, c, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: %d leaves overflow the slot index space", ErrInvalidParameter, leafCount)
		}
	}

	return &Locator{
		leafCount:           leafCount,
		totalDepth:          totalDepth,
		countPerDepth:       counts,
		prefixCountPerDepth: prefix,
	}, nil
}

// LeafCount returns the number of real leaves.
func (l *Locator) LeafCount() uint64 { return l.leafCount }

// TotalDepth returns the depth of the root.
func (l *Locator) TotalDepth() uint32 { return l.totalDepth }

// CountPerDepth returns the number of slots at each depth, padding
// included. The returned slice is a copy.
func (l *Locator) CountPerDepth() []uint64 {
	return slices.Clone(l.countPerDepth)
}

// PrefixCountPerDepth returns, for each depth, the slot at which that
// depth begins. The returned slice is a copy.
func (l *Locator) PrefixCountPerDepth() []uint64 {
	return slices.Clone(l.prefixCountPerDepth)
}

// SlotCount returns the total number of slots in the node region.
func (l *Locator) SlotCount() uint64 {
	return l.prefixCountPerDepth[l.totalDepth] + l.countPerDepth[l.totalDepth]
}

// NodeRegionSize returns the byte length of the node region for the
// given digest size, saturating at math.MaxInt64 for geometries no
// stream can hold.
func (l *Locator) NodeRegionSize(digestSize int) int64 {
	if digestSize <= 0 {
		return 0
	}
	slots := l.SlotCount()
	if slots > uint64(math.MaxInt64/digestSize) {
		return math.MaxInt64
	}
	return int64(slots) * int64(digestSize)
}

// FitsIn reports whether a node region of digestSize slots fits in
// available bytes.
func (l *Locator) FitsIn(available int64, digestSize int) bool {
	if available < 0 || digestSize <= 0 {
		return false
	}
	return uint64(available)/uint64(digestSize) >= l.SlotCount()
}

// Slot returns the position of node (depth, index) in the node region.
// Coordinates outside the geometry fail with [ErrInvalidParameter].
func (l *Locator) Slot(depth uint32, index uint64) (uint64, error) {
	if depth > l.totalDepth {
		return 0, fmt.Errorf("%w: depth %d exceeds tree depth %d", ErrInvalidParameter, depth, l.totalDepth)
	}
	if index >= l.countPerDepth[depth] {
		return 0, fmt.Errorf("%w: index %d out of range [0, %d) at depth %d",
			ErrInvalidParameter, index, l.countPerDepth[depth], depth)
	}
	return l.prefixCountPerDepth[depth] + index, nil
}

// RootSlot returns the slot holding the root hash, which is always
// the last slot of the node region.
func (l *Locator) RootSlot() uint64 {
	return l.prefixCountPerDepth[l.totalDepth]
}

// VerifyPath returns the sibling of leafIndex at every depth below the
// root, followed by the root itself. The result always has
// TotalDepth()+1 entries. A consumer recomputes the root by hashing
// the claimed leaf with each sibling in order: when the running index
// is even the running hash is the left operand, otherwise the right.
func (l *Locator) VerifyPath(leafIndex uint64) ([]PathEntry, error) {
	if leafIndex >= l.leafCount {
		return nil, fmt.Errorf("%w: leaf index %d out of range [0, %d)",
			ErrInvalidParameter, leafIndex, l.leafCount)
	}

	path := make([]PathEntry, 0, l.totalDepth+1)
	index := leafIndex
	for depth := range l.totalDepth {
		sibling := index + 1
		if index%2 != 0 {
			sibling = index - 1
		}
		path = append(path, PathEntry{
			Depth: depth,
			Slot:  l.prefixCountPerDepth[depth] + sibling,
		})
		index /= 2
	}
	path = append(path, PathEntry{
		Depth: l.totalDepth,
		Slot:  l.RootSlot(),
	})
	return path, nil
}
