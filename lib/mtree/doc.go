// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mtree implements the Merkle hash tree behind "MTREE" object
// identifiers: a byte object split into fixed-size leaves is hashed
// into a binary tree, the tree is persisted in a flat seekable layout,
// and verification paths for single leaves are served from that layout
// without re-reading the object.
//
// A persisted stream has two parts:
//
//	[u32 LE meta_len][metadata record][node region]
//
// The metadata record ([Metadata]) is u64 data_size, u64 leaf_size, a
// presence byte, and an optional u32-length-prefixed algorithm name,
// all little-endian. The node region is a sequence of digest-sized
// slots ordered by depth (0 = leaves) and then by index. The [Locator]
// owns the offset arithmetic; every depth below the root has an even
// slot count, and an odd node at the right edge is paired with a copy
// of itself stored in the padding slot.
//
// The write path is [NewWriter] (or [WriteObject] to hash an io.Reader
// directly) driving a [Builder] whose pending stack stays within
// log2(leaves)+1 entries however the leaves are batched. The read path
// is [Load], which rebuilds the root from the stored leaves with the
// same Builder and then answers [Reader.VerifyPath] and [Reader.Prove]
// by seeking into the node region. [Proof.Verify] is the consumer side.
//
// Errors wrap one of [ErrIO], [ErrInvalidData], [ErrInvalidParameter],
// or [ErrInvalidState]. Nothing in this package panics on caller
// input.
package mtree
