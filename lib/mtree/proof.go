// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"bytes"
	"fmt"

	"github.com/bureau-foundation/ndn/lib/codec"
	"github.com/bureau-foundation/ndn/lib/objid"
)

// Proof is a self-contained inclusion proof for one leaf: enough to
// recompute the tree root from the leaf digest without access to the
// stream. Proofs travel as deterministic CBOR ([EncodeProof]) or JSON.
type Proof struct {
	// Object identifies the tree the proof is for.
	Object objid.ObjectID `json:"object"`

	// HashAlgorithm names the digest algorithm; empty means
	// [DefaultHashMethod].
	HashAlgorithm string `json:"hash_algorithm,omitempty"`

	// LeafCount is the number of leaves in the tree. The verifier
	// derives the expected path geometry from it.
	LeafCount uint64 `json:"leaf_count"`

	// LeafIndex is the position of the proven leaf.
	LeafIndex uint64 `json:"leaf_index"`

	// Leaf is the digest of the proven leaf chunk.
	Leaf []byte `json:"leaf"`

	// Path is the verification path as returned by
	// [Reader.VerifyPath]: siblings from the leaves upward, then the
	// root.
	Path []ProofNode `json:"path"`
}

// Prove reads the leaf digest and verification path of leafIndex and
// bundles them with the tree identity.
func (r *Reader) Prove(leafIndex uint64) (*Proof, error) {
	leaf, err := r.LeafHash(leafIndex)
	if err != nil {
		return nil, err
	}
	path, err := r.VerifyPath(leafIndex)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Object:        r.ObjectID(),
		HashAlgorithm: r.metadata.HashAlgorithm,
		LeafCount:     r.locator.LeafCount(),
		LeafIndex:     leafIndex,
		Leaf:          leaf,
		Path:          path,
	}, nil
}

// ComputeRoot folds leaf with the sibling entries of path (every entry
// but the last) and returns the resulting root. At each depth the
// running hash is the left operand when the running index is even and
// the right operand when it is odd. The final path entry, the stored
// root, is not consulted.
func ComputeRoot(method HashMethod, leafIndex uint64, leaf []byte, path []ProofNode) ([]byte, error) {
	if !method.valid() {
		return nil, fmt.Errorf("%w: unsupported hash method %s", ErrInvalidParameter, method)
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty verification path", ErrInvalidData)
	}
	digestSize := method.DigestSize()
	if len(leaf) != digestSize {
		return nil, fmt.Errorf("%w: leaf digest is %d bytes, want %d", ErrInvalidData, len(leaf), digestSize)
	}

	current := leaf
	index := leafIndex
	for i, sibling := range path[:len(path)-1] {
		if len(sibling.Hash) != digestSize {
			return nil, fmt.Errorf("%w: path entry %d is %d bytes, want %d",
				ErrInvalidData, i, len(sibling.Hash), digestSize)
		}
		if index%2 == 0 {
			current = method.HashPair(current, sibling.Hash)
		} else {
			current = method.HashPair(sibling.Hash, current)
		}
		index /= 2
	}
	return current, nil
}

// Verify checks the proof end to end: the path geometry matches a tree
// of LeafCount leaves, folding the leaf through the path reproduces
// the stored root entry, and that root is the hash named by Object.
// Any failure wraps [ErrInvalidData] (or [ErrInvalidParameter] for an
// unknown algorithm).
func (p *Proof) Verify() error {
	if p.Object.Type != objid.TypeMerkleTree {
		return fmt.Errorf("%w: object type %q is not %q", ErrInvalidData, p.Object.Type, objid.TypeMerkleTree)
	}
	method := DefaultHashMethod
	if p.HashAlgorithm != "" {
		parsed, err := ParseHashMethod(p.HashAlgorithm)
		if err != nil {
			return err
		}
		method = parsed
	}

	locator, err := NewLocator(p.LeafCount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	expected, err := locator.VerifyPath(p.LeafIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(p.Path) != len(expected) {
		return fmt.Errorf("%w: path has %d entries, tree of %d leaves needs %d",
			ErrInvalidData, len(p.Path), p.LeafCount, len(expected))
	}
	for i, entry := range expected {
		if p.Path[i].Depth != entry.Depth || p.Path[i].Slot != entry.Slot {
			return fmt.Errorf("%w: path entry %d is (depth %d, slot %d), want (depth %d, slot %d)",
				ErrInvalidData, i, p.Path[i].Depth, p.Path[i].Slot, entry.Depth, entry.Slot)
		}
	}

	computed, err := ComputeRoot(method, p.LeafIndex, p.Leaf, p.Path)
	if err != nil {
		return err
	}
	if !bytes.Equal(computed, p.Path[len(p.Path)-1].Hash) {
		return fmt.Errorf("%w: leaf %d does not reconstruct the stored root", ErrInvalidData, p.LeafIndex)
	}
	if !bytes.Equal(computed, p.Object.Hash) {
		return fmt.Errorf("%w: reconstructed root does not match object %s", ErrInvalidData, p.Object.Short())
	}
	return nil
}

// EncodeProof serializes p as deterministic CBOR.
func EncodeProof(p *Proof) ([]byte, error) {
	data, err := codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding proof: %w", err)
	}
	return data, nil
}

// DecodeProof parses a proof produced by [EncodeProof]. Malformed CBOR
// fails with [ErrInvalidData]; the proof itself is not verified.
func DecodeProof(data []byte) (*Proof, error) {
	var p Proof
	if err := codec.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: decoding proof: %v", ErrInvalidData, err)
	}
	return &p, nil
}
