// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/ndn/lib/objid"
)

// writerState tracks the Initialized → Appending → Finalized lifecycle.
type writerState uint8

const (
	writerInitialized writerState = iota
	writerAppending
	writerFinalized
)

// Writer persists a tree to a [Sink]: the length-prefixed metadata
// header first, then every node at its slot as the [Builder] produces
// it. The Writer owns the sink exclusively from construction until
// Finalize returns; a Writer abandoned before Finalize leaves a
// partial stream that must be discarded.
//
// Typical usage:
//
//	writer, err := mtree.NewWriter(file, metadata)
//	err = writer.AppendLeafHashes(batch) // repeated
//	root, err := writer.Finalize()
type Writer struct {
	metadata   Metadata
	method     HashMethod
	headerSize int64
	builder    *Builder

	state writerState
	root  []byte
}

// NewWriter writes the header for metadata at offset 0 of sink and
// returns a Writer ready for leaf hashes.
func NewWriter(sink Sink, metadata Metadata) (*Writer, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidParameter)
	}
	if metadata.LeafSize == 0 {
		return nil, fmt.Errorf("%w: leaf size must be positive", ErrInvalidParameter)
	}
	method, err := metadata.HashMethod()
	if err != nil {
		return nil, err
	}
	leafCount := metadata.LeafCount()
	if leafCount == 0 {
		return nil, fmt.Errorf("%w: data size must be positive", ErrInvalidParameter)
	}

	if _, err := sink.Seek(0, io.SeekStart); err != nil {
		return nil, ioError(err, "seeking to stream start")
	}
	headerSize, err := writeHeader(sink, metadata)
	if err != nil {
		return nil, err
	}

	builder, err := NewBuilder(BuilderConfig{
		LeafCount:  leafCount,
		Method:     method,
		Sink:       sink,
		NodeOffset: headerSize,
	})
	if err != nil {
		return nil, err
	}

	return &Writer{
		metadata:   metadata,
		method:     method,
		headerSize: headerSize,
		builder:    builder,
	}, nil
}

// Metadata returns the metadata written to the header.
func (w *Writer) Metadata() Metadata { return w.metadata }

// HashMethod returns the digest algorithm resolved from the metadata.
func (w *Writer) HashMethod() HashMethod { return w.method }

// HeaderSize returns the byte offset of node slot 0.
func (w *Writer) HeaderSize() int64 { return w.headerSize }

// LeavesAppended returns the number of leaf hashes accepted so far.
func (w *Writer) LeavesAppended() uint64 { return w.builder.LeavesAppended() }

// AppendLeafHashes forwards a batch of leaf digests to the builder.
// After Finalize it fails with [ErrInvalidState].
func (w *Writer) AppendLeafHashes(hashes [][]byte) error {
	if w.state == writerFinalized {
		return fmt.Errorf("%w: append after finalize", ErrInvalidState)
	}
	w.state = writerAppending
	return w.builder.AppendLeafHashes(hashes)
}

// Finalize checks that exactly Metadata.LeafCount() leaves were
// appended ([ErrInvalidData] otherwise), completes the tree, and
// returns the root hash.
func (w *Writer) Finalize() ([]byte, error) {
	if w.state == writerFinalized {
		return nil, fmt.Errorf("%w: tree already finalized", ErrInvalidState)
	}

	expected := w.metadata.LeafCount()
	if appended := w.builder.LeavesAppended(); appended != expected {
		return nil, fmt.Errorf("%w: appended %d leaves, metadata declares %d",
			ErrInvalidData, appended, expected)
	}

	root, err := w.builder.Finalize()
	if err != nil {
		return nil, err
	}
	w.state = writerFinalized
	w.root = root
	return append([]byte(nil), root...), nil
}

// ObjectID returns the identifier of the finalized tree. Before
// Finalize it fails with [ErrInvalidState].
func (w *Writer) ObjectID() (objid.ObjectID, error) {
	if w.state != writerFinalized {
		return objid.ObjectID{}, fmt.Errorf("%w: tree not finalized", ErrInvalidState)
	}
	return objid.New(objid.TypeMerkleTree, w.root), nil
}

// leafBatchSize is the number of leaf digests WriteObject hands to the
// builder per call.
const leafBatchSize = 256

// WriteObject hashes the object read from data in LeafSize chunks and
// persists the resulting tree to sink. data must yield exactly
// metadata.DataSize bytes; a short or long object fails with
// [ErrInvalidData]. The context is checked between batches; a
// cancelled build returns ctx.Err() and leaves a partial stream that
// must be discarded.
func WriteObject(ctx context.Context, sink Sink, data io.Reader, metadata Metadata) (*Writer, error) {
	writer, err := NewWriter(sink, metadata)
	if err != nil {
		return nil, err
	}

	// Leaves are streamed through the hasher, so memory does not
	// depend on LeafSize.
	batch := make([][]byte, 0, leafBatchSize)
	remaining := metadata.DataSize
	for leaf := uint64(0); remaining > 0; leaf++ {
		size := min(remaining, metadata.LeafSize)
		hasher := writer.method.New()
		copied, err := io.CopyN(hasher, data, int64(size))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: object ended after %d of %d bytes",
					ErrInvalidData, metadata.DataSize-remaining+uint64(copied), metadata.DataSize)
			}
			return nil, ioError(err, "reading leaf %d", leaf)
		}
		remaining -= size
		batch = append(batch, hasher.Sum(nil))

		if len(batch) == leafBatchSize || remaining == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := writer.AppendLeafHashes(batch); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	var extra [1]byte
	n, err := io.ReadFull(data, extra[:])
	if n > 0 {
		return nil, fmt.Errorf("%w: object is longer than declared size %d", ErrInvalidData, metadata.DataSize)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ioError(err, "reading past declared size")
	}

	if _, err := writer.Finalize(); err != nil {
		return nil, err
	}
	return writer, nil
}
