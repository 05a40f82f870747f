// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"fmt"
	"io"
)

// node is a tree node in flight: either merged into its parent or
// written to the sink and dropped.
type node struct {
	hash  []byte
	depth uint32
	index uint64
}

// BuilderConfig configures [NewBuilder].
type BuilderConfig struct {
	// LeafCount is the number of leaves the tree will hold. Must be
	// positive.
	LeafCount uint64

	// Method is the digest algorithm for every node.
	Method HashMethod

	// Sink receives every node at its slot. Nil builds the root
	// without persisting anything, which is how a reader rebuilds the
	// root from stored leaves.
	Sink Sink

	// NodeOffset is the byte offset in Sink where slot 0 begins,
	// i.e. the size of the header that precedes the node region.
	NodeOffset int64
}

// Builder computes a tree root incrementally from leaf hashes. Leaves
// may arrive in batches of any size; completed sibling pairs are
// merged as soon as both exist, so the pending stack never holds more
// than TotalDepth+1 nodes regardless of batching.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	method     HashMethod
	digestSize int
	locator    *Locator

	leafCount uint64
	appended  uint64

	// stack holds pending nodes with strictly decreasing depth from
	// bottom to top.
	stack []node

	sink       Sink
	nodeOffset int64

	finalized bool
	failure   error
}

// NewBuilder returns a Builder for cfg.LeafCount leaves.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if !cfg.Method.valid() {
		return nil, fmt.Errorf("%w: unsupported hash method %s", ErrInvalidParameter, cfg.Method)
	}
	if cfg.NodeOffset < 0 {
		return nil, fmt.Errorf("%w: negative node offset %d", ErrInvalidParameter, cfg.NodeOffset)
	}
	locator, err := NewLocator(cfg.LeafCount)
	if err != nil {
		return nil, err
	}
	return &Builder{
		method:     cfg.Method,
		digestSize: cfg.Method.DigestSize(),
		locator:    locator,
		leafCount:  cfg.LeafCount,
		stack:      make([]node, 0, locator.TotalDepth()+1),
		sink:       cfg.Sink,
		nodeOffset: cfg.NodeOffset,
	}, nil
}

// Locator returns the geometry the builder writes against.
func (b *Builder) Locator() *Locator { return b.locator }

// LeavesAppended returns the number of leaves appended so far.
func (b *Builder) LeavesAppended() uint64 { return b.appended }

// PendingNodes returns the current size of the pending stack.
func (b *Builder) PendingNodes() int { return len(b.stack) }

// AppendLeafHashes adds leaf digests in order. The batch is validated
// before any leaf is applied: a batch that would exceed the declared
// leaf count, or that holds a digest of the wrong size, fails with
// [ErrInvalidParameter] and leaves the builder unchanged.
//
// An I/O failure while persisting nodes poisons the builder: the
// partially written stream must be discarded.
func (b *Builder) AppendLeafHashes(hashes [][]byte) error {
	if err := b.usable(); err != nil {
		return err
	}
	if uint64(len(hashes)) > b.leafCount-b.appended {
		return fmt.Errorf("%w: appending %d leaves to %d of %d would exceed the leaf count",
			ErrInvalidParameter, len(hashes), b.appended, b.leafCount)
	}
	for i, hash := range hashes {
		if len(hash) != b.digestSize {
			return fmt.Errorf("%w: leaf hash %d is %d bytes, want %d",
				ErrInvalidParameter, i, len(hash), b.digestSize)
		}
	}

	for _, hash := range hashes {
		b.stack = append(b.stack, node{
			hash:  append(make([]byte, 0, b.digestSize), hash...),
			depth: 0,
			index: b.appended,
		})
		b.appended++

		if err := b.collapse(); err != nil {
			b.failure = err
			return err
		}
	}
	return nil
}

// collapse merges the top two pending nodes while they share a depth.
func (b *Builder) collapse() error {
	for len(b.stack) >= 2 {
		right := b.stack[len(b.stack)-1]
		left := b.stack[len(b.stack)-2]
		if left.depth != right.depth {
			return nil
		}
		b.stack = b.stack[:len(b.stack)-2]
		if err := b.merge(left, right); err != nil {
			return err
		}
	}
	return nil
}

// merge pushes the parent of left and right and persists both
// children.
func (b *Builder) merge(left, right node) error {
	b.stack = append(b.stack, node{
		hash:  b.method.HashPair(left.hash, right.hash),
		depth: left.depth + 1,
		index: left.index / 2,
	})
	if err := b.writeNode(left); err != nil {
		return err
	}
	return b.writeNode(right)
}

// Finalize closes the tree and returns the root hash. A node left
// without a right sibling at any depth is paired with a copy of
// itself placed at the next index; that copy is persisted into the
// padding slot reserved by the [Locator]. Changing this rule changes
// every root hash, so it is part of the format.
//
// Finalizing with no leaves or with fewer leaves than the builder was
// sized for fails with [ErrInvalidState] and leaves the builder as it
// was, so the missing leaves can still be appended. A second Finalize
// also fails with [ErrInvalidState].
func (b *Builder) Finalize() ([]byte, error) {
	if err := b.usable(); err != nil {
		return nil, err
	}
	if len(b.stack) == 0 {
		return nil, fmt.Errorf("%w: no leaf hashes appended", ErrInvalidState)
	}
	if b.appended != b.leafCount {
		return nil, fmt.Errorf("%w: %d of %d leaf hashes appended", ErrInvalidState, b.appended, b.leafCount)
	}

	for len(b.stack) > 1 {
		top := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]

		var left, right node
		if below := b.stack[len(b.stack)-1]; below.depth == top.depth {
			b.stack = b.stack[:len(b.stack)-1]
			left, right = below, top
		} else {
			left = top
			right = node{hash: top.hash, depth: top.depth, index: top.index + 1}
		}

		if err := b.merge(left, right); err != nil {
			b.failure = err
			return nil, err
		}
	}

	root := b.stack[0]
	if root.depth != b.locator.TotalDepth() || root.index != 0 {
		b.failure = fmt.Errorf("%w: root landed at depth %d index %d, want depth %d index 0 (%d of %d leaves appended)",
			ErrInvalidState, root.depth, root.index, b.locator.TotalDepth(), b.appended, b.leafCount)
		return nil, b.failure
	}
	if err := b.writeNode(root); err != nil {
		b.failure = err
		return nil, err
	}

	b.stack = b.stack[:0]
	b.finalized = true
	return root.hash, nil
}

// usable reports whether the builder still accepts operations.
func (b *Builder) usable() error {
	if b.finalized {
		return fmt.Errorf("%w: tree already finalized", ErrInvalidState)
	}
	if b.failure != nil {
		return fmt.Errorf("%w: builder failed earlier: %v", ErrInvalidState, b.failure)
	}
	return nil
}

// writeNode persists n at its slot when a sink is attached.
func (b *Builder) writeNode(n node) error {
	if b.sink == nil {
		return nil
	}
	slot, err := b.locator.Slot(n.depth, n.index)
	if err != nil {
		return err
	}
	offset := b.nodeOffset + int64(slot)*int64(b.digestSize)
	if _, err := b.sink.Seek(offset, io.SeekStart); err != nil {
		return ioError(err, "seeking to slot %d at offset %d", slot, offset)
	}
	if _, err := b.sink.Write(n.hash); err != nil {
		return ioError(err, "writing slot %d", slot)
	}
	return nil
}
