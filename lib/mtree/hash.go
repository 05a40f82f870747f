// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// HashMethod is the digest algorithm used for every node of a tree.
// The numeric values are not persisted; streams record the algorithm
// by name (see [Metadata]).
type HashMethod uint8

const (
	// SHA256 produces 32-byte digests. It is the default method.
	SHA256 HashMethod = iota

	// SHA512 produces 64-byte digests.
	SHA512
)

// DefaultHashMethod is used whenever a tree's metadata does not name
// an algorithm.
const DefaultHashMethod = SHA256

// ParseHashMethod maps an algorithm name to a HashMethod. Names are
// case-exact: "sha256" or "sha512".
func ParseHashMethod(name string) (HashMethod, error) {
	switch name {
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	default:
		return 0, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidParameter, name)
	}
}

// String returns the algorithm name accepted by [ParseHashMethod].
func (m HashMethod) String() string {
	switch m {
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// DigestSize returns the length of every digest produced by m, and
// therefore the size of one slot in the persisted node region.
func (m HashMethod) DigestSize() int {
	switch m {
	case SHA512:
		return sha512.Size
	default:
		return sha256.Size
	}
}

// New returns a fresh streaming hasher for m.
func (m HashMethod) New() hash.Hash {
	switch m {
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// HashLeaf returns the digest of one data chunk. Producers use it to
// turn a fixed-size slice of the object into a leaf hash.
func (m HashMethod) HashLeaf(chunk []byte) []byte {
	switch m {
	case SHA512:
		sum := sha512.Sum512(chunk)
		return sum[:]
	default:
		sum := sha256.Sum256(chunk)
		return sum[:]
	}
}

// HashPair returns the parent digest of two sibling nodes: the hash of
// left followed by right, with no length prefix or separator. Writers
// and readers reproduce this independently, so the byte order is part
// of the persisted format.
func (m HashMethod) HashPair(left, right []byte) []byte {
	h := m.New()
	_, _ = h.Write(left)
	_, _ = h.Write(right)
	return h.Sum(make([]byte, 0, m.DigestSize()))
}

func (m HashMethod) valid() bool {
	return m == SHA256 || m == SHA512
}
