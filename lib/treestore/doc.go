// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package treestore keeps persisted Merkle tree streams on local disk,
// addressed by their MTREE object id.
//
// A tree enters the store in one of two ways. [Store.Ingest] hashes an
// io.Reader in leaf-size chunks and commits the result in one call.
// [Store.Create] returns a [PendingTree] for producers that compute
// leaf hashes themselves; they append batches and call
// [PendingTree.Commit]. Either way the stream is built under tmp/,
// checksummed with BLAKE3, made read-only, and renamed into objects/.
// A CBOR [Record] describing the tree is written alongside. Committing
// a tree whose id is already stored keeps the existing copy.
//
// [Store.Open] returns a [Tree] whose mtree.Reader answers proof
// queries; the stream is held under a shared flock while open.
// [Store.Check] re-verifies a stored tree from the checksum down to
// every internal node.
//
// Failures specific to the store wrap [ErrNotFound], [ErrCorrupt], or
// [ErrInvalidObject]; errors from the tree engine keep their mtree
// sentinel.
package treestore
