// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bureau-foundation/ndn/lib/objid"
)

// LoadOptions tunes [Load]. A nil *LoadOptions uses the defaults.
type LoadOptions struct {
	// NodeCacheSize is the number of node digests kept in an LRU
	// cache across VerifyPath calls. Upper levels of the tree appear
	// in every proof, so a small cache removes most seeks for
	// repeated queries. Zero disables the cache.
	NodeCacheSize int

	// Logger receives a debug record once the tree is loaded. Nil
	// uses slog.Default().
	Logger *slog.Logger
}

// ProofNode is one resolved element of a verification path: the node's
// depth, its slot in the node region, and the stored digest.
type ProofNode struct {
	Depth uint32 `json:"depth"`
	Slot  uint64 `json:"slot"`
	Hash  []byte `json:"hash"`
}

// Reader serves a persisted tree. Load rebuilds the root from the
// stored leaves; VerifyPath then answers proof queries by seeking into
// the node region. The Reader owns its source and assumes the bytes do
// not change for its lifetime.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	source     Source
	metadata   Metadata
	method     HashMethod
	digestSize int
	headerSize int64
	locator    *Locator
	root       []byte

	cache *lru.Cache[uint64, []byte]
}

// Load reads the header and every leaf digest from source, rebuilds
// the root with a sink-less [Builder], and returns a Reader. The root
// is computed from the leaves, not read from the root slot, so it is
// the root a writer produces from the same leaves.
func Load(source Source, options *LoadOptions) (*Reader, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidParameter)
	}
	if options == nil {
		options = &LoadOptions{}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := source.Seek(0, io.SeekStart); err != nil {
		return nil, ioError(err, "seeking to stream start")
	}
	metadata, headerSize, err := readHeader(source)
	if err != nil {
		return nil, err
	}
	method, err := metadata.HashMethod()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	leafCount := metadata.LeafCount()
	builder, err := NewBuilder(BuilderConfig{LeafCount: leafCount, Method: method})
	if err != nil {
		// The leaf count comes from the stream, so a geometry the
		// locator rejects is a malformed header.
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	locator := builder.Locator()
	digestSize := method.DigestSize()

	size, err := streamSize(source)
	if err != nil {
		return nil, ioError(err, "measuring stream size")
	}
	if !locator.FitsIn(size-headerSize, digestSize) {
		return nil, fmt.Errorf("%w: stream is %d bytes, geometry of %d leaves needs %d slots of %d bytes after a %d-byte header",
			ErrInvalidData, size, leafCount, locator.SlotCount(), digestSize, headerSize)
	}

	// Leaves are contiguous right after the header, so read them
	// through a buffer in batches.
	buffered := bufio.NewReaderSize(source, 64*1024)
	batch := make([][]byte, 0, leafBatchSize)
	for leaf := uint64(0); leaf < leafCount; leaf++ {
		hash := make([]byte, digestSize)
		if _, err := io.ReadFull(buffered, hash); err != nil {
			return nil, ioError(err, "reading leaf hash %d", leaf)
		}
		batch = append(batch, hash)
		if len(batch) == leafBatchSize || leaf == leafCount-1 {
			if err := builder.AppendLeafHashes(batch); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	root, err := builder.Finalize()
	if err != nil {
		return nil, err
	}

	reader := &Reader{
		source:     source,
		metadata:   metadata,
		method:     method,
		digestSize: digestSize,
		headerSize: headerSize,
		locator:    locator,
		root:       root,
	}
	if options.NodeCacheSize > 0 {
		reader.cache, err = lru.New[uint64, []byte](options.NodeCacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: node cache: %v", ErrInvalidParameter, err)
		}
	}

	logger.Debug("merkle tree loaded",
		"object", reader.ObjectID().Short(),
		"leaves", leafCount,
		"depth", locator.TotalDepth(),
		"hash", method.String(),
	)
	return reader, nil
}

// Metadata returns the decoded header.
func (r *Reader) Metadata() Metadata { return r.metadata }

// HashMethod returns the digest algorithm of the tree.
func (r *Reader) HashMethod() HashMethod { return r.method }

// Locator returns the tree geometry.
func (r *Reader) Locator() *Locator { return r.locator }

// HeaderSize returns the byte offset of node slot 0.
func (r *Reader) HeaderSize() int64 { return r.headerSize }

// LeafCount returns the number of leaves.
func (r *Reader) LeafCount() uint64 { return r.locator.LeafCount() }

// LeafSize returns the leaf chunk size in bytes.
func (r *Reader) LeafSize() uint64 { return r.metadata.LeafSize }

// DataSize returns the size of the hashed object in bytes.
func (r *Reader) DataSize() uint64 { return r.metadata.DataSize }

// Root returns a copy of the root hash computed at load time.
func (r *Reader) Root() []byte {
	return append([]byte(nil), r.root...)
}

// ObjectID returns the content identifier of the tree.
func (r *Reader) ObjectID() objid.ObjectID {
	return objid.New(objid.TypeMerkleTree, r.root)
}

// VerifyPath returns the stored digests along the verification path
// of leafIndex: one sibling per depth, then the root slot. An index
// past the last leaf fails with [ErrInvalidParameter]; seek and read
// failures with [ErrIO].
func (r *Reader) VerifyPath(leafIndex uint64) ([]ProofNode, error) {
	entries, err := r.locator.VerifyPath(leafIndex)
	if err != nil {
		return nil, err
	}

	path := make([]ProofNode, 0, len(entries))
	for _, entry := range entries {
		hash, err := r.readSlot(entry.Slot)
		if err != nil {
			return nil, err
		}
		path = append(path, ProofNode{Depth: entry.Depth, Slot: entry.Slot, Hash: hash})
	}
	return path, nil
}

// LeafHash returns the stored digest of leaf leafIndex.
func (r *Reader) LeafHash(leafIndex uint64) ([]byte, error) {
	if leafIndex >= r.locator.LeafCount() {
		return nil, fmt.Errorf("%w: leaf index %d out of range [0, %d)",
			ErrInvalidParameter, leafIndex, r.locator.LeafCount())
	}
	return r.readSlot(leafIndex)
}

// readSlot returns the digest stored at slot, consulting the node
// cache first.
func (r *Reader) readSlot(slot uint64) ([]byte, error) {
	if r.cache != nil {
		if hash, ok := r.cache.Get(slot); ok {
			return append([]byte(nil), hash...), nil
		}
	}

	offset := r.headerSize + int64(slot)*int64(r.digestSize)
	if _, err := r.source.Seek(offset, io.SeekStart); err != nil {
		return nil, ioError(err, "seeking to slot %d at offset %d", slot, offset)
	}
	hash := make([]byte, r.digestSize)
	if _, err := io.ReadFull(r.source, hash); err != nil {
		return nil, ioError(err, "reading slot %d", slot)
	}

	if r.cache != nil {
		r.cache.Add(slot, append([]byte(nil), hash...))
	}
	return hash, nil
}

// checkBatchPairs bounds the number of parent digests CheckNodes holds
// in memory at once.
const checkBatchPairs = 4096

// CheckNodes verifies every internal slot of the node region against
// the leaves: each padding slot must repeat its left neighbour, each
// stored parent must equal HashPair of its two stored children, and
// the stored root must equal the root rebuilt at load time. The first
// mismatch fails with [ErrInvalidData].
func (r *Reader) CheckNodes() error {
	counts := r.locator.CountPerDepth()
	width := r.locator.LeafCount()
	for depth := range r.locator.TotalDepth() {
		if width%2 == 1 {
			pair, err := r.readRun(depth, width-1, 2)
			if err != nil {
				return err
			}
			if !bytes.Equal(pair[:r.digestSize], pair[r.digestSize:]) {
				return fmt.Errorf("%w: padding node (depth %d, index %d) does not repeat its left neighbour",
					ErrInvalidData, depth, width)
			}
		}
		width = (width + 1) / 2

		pairs := counts[depth] / 2
		for first := uint64(0); first < pairs; first += checkBatchPairs {
			n := min(checkBatchPairs, pairs-first)

			children, err := r.readRun(depth, 2*first, 2*n)
			if err != nil {
				return err
			}
			parents, err := r.readRun(depth+1, first, n)
			if err != nil {
				return err
			}

			for i := range n {
				left := children[2*i*uint64(r.digestSize) : (2*i+1)*uint64(r.digestSize)]
				right := children[(2*i+1)*uint64(r.digestSize) : (2*i+2)*uint64(r.digestSize)]
				stored := parents[i*uint64(r.digestSize) : (i+1)*uint64(r.digestSize)]
				if !bytes.Equal(r.method.HashPair(left, right), stored) {
					return fmt.Errorf("%w: node (depth %d, index %d) does not match its children",
						ErrInvalidData, depth+1, first+i)
				}
			}
		}
	}

	storedRoot, err := r.readSlot(r.locator.RootSlot())
	if err != nil {
		return err
	}
	if !bytes.Equal(storedRoot, r.root) {
		return fmt.Errorf("%w: stored root does not match root rebuilt from leaves", ErrInvalidData)
	}
	return nil
}

// readRun reads count consecutive digests starting at (depth, index),
// bypassing the node cache.
func (r *Reader) readRun(depth uint32, index, count uint64) ([]byte, error) {
	slot, err := r.locator.Slot(depth, index)
	if err != nil {
		return nil, err
	}
	offset := r.headerSize + int64(slot)*int64(r.digestSize)
	if _, err := r.source.Seek(offset, io.SeekStart); err != nil {
		return nil, ioError(err, "seeking to slot %d at offset %d", slot, offset)
	}
	run := make([]byte, count*uint64(r.digestSize))
	if _, err := io.ReadFull(r.source, run); err != nil {
		return nil, ioError(err, "reading %d slots from slot %d", count, slot)
	}
	return run, nil
}
