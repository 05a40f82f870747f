// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package treestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/ndn/lib/mtree"
)

// PendingTree is a tree being written into the store from leaf hashes
// the caller computes. Nothing is visible to readers until Commit.
// Exactly one of Commit or Abort must be called.
type PendingTree struct {
	store     *Store
	file      *os.File
	writer    *mtree.Writer
	finalized bool
	done      bool
}

// Create starts a new tree with the given metadata. The stream is
// built in a temp file held under an exclusive lock.
func (s *Store) Create(metadata mtree.Metadata) (*PendingTree, error) {
	file, err := s.createTemp()
	if err != nil {
		return nil, err
	}
	writer, err := mtree.NewWriter(file, metadata)
	if err != nil {
		discardTemp(file)
		return nil, err
	}
	return &PendingTree{store: s, file: file, writer: writer}, nil
}

// Metadata returns the metadata the tree was created with.
func (p *PendingTree) Metadata() mtree.Metadata { return p.writer.Metadata() }

// AppendLeafHashes forwards a batch of leaf digests to the writer.
func (p *PendingTree) AppendLeafHashes(hashes [][]byte) error {
	if p.done {
		return fmt.Errorf("%w: pending tree already committed or aborted", mtree.ErrInvalidState)
	}
	return p.writer.AppendLeafHashes(hashes)
}

// Commit finalizes the tree and publishes it. If a tree with the same
// object id is already stored, the new stream is discarded and the
// existing record returned. On failure the temp stream is removed.
func (p *PendingTree) Commit() (*Record, error) {
	if p.done {
		return nil, fmt.Errorf("%w: pending tree already committed or aborted", mtree.ErrInvalidState)
	}
	p.done = true

	record, err := p.commit()
	if err != nil {
		discardTemp(p.file)
		return nil, err
	}
	return record, nil
}

func (p *PendingTree) commit() (*Record, error) {
	s := p.store

	if !p.finalized {
		if _, err := p.writer.Finalize(); err != nil {
			return nil, fmt.Errorf("finalizing tree: %w", err)
		}
	}
	id, err := p.writer.ObjectID()
	if err != nil {
		return nil, err
	}

	if err := p.file.Sync(); err != nil {
		return nil, fmt.Errorf("syncing stream: %w", err)
	}
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking stream: %w", err)
	}
	checksum, size, err := checksumStream(p.file)
	if err != nil {
		return nil, fmt.Errorf("checksumming stream: %w", err)
	}
	if err := p.file.Chmod(0o444); err != nil {
		return nil, fmt.Errorf("making stream read-only: %w", err)
	}
	tmpPath := p.file.Name()
	if err := p.file.Close(); err != nil {
		return nil, fmt.Errorf("closing stream: %w", err)
	}

	lock, err := s.lockStore()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			s.logger.Warn("releasing store lock", "error", err)
		}
	}()

	finalPath := s.objectPath(id)
	if _, err := os.Stat(finalPath); err == nil {
		existing, err := s.readRecord(id)
		if err == nil {
			os.Remove(tmpPath)
			s.logger.Debug("tree already stored", "object", id.Short())
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrCorrupt) {
			return nil, err
		}
		// A stream without a usable record is replaced below.
		s.logger.Warn("replacing stored tree with missing record", "object", id.Short())
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating object shard directory: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("renaming stream to %s: %w", finalPath, err)
	}

	metadata := p.writer.Metadata()
	locator, err := mtree.NewLocator(metadata.LeafCount())
	if err != nil {
		return nil, err
	}
	record := &Record{
		Version:    RecordVersion,
		Object:     id,
		Metadata:   metadata,
		LeafCount:  metadata.LeafCount(),
		Depth:      locator.TotalDepth(),
		StreamSize: size,
		Checksum:   checksum,
		Created:    s.clock.Now().UTC(),
	}
	if err := s.writeRecord(record); err != nil {
		return nil, err
	}

	s.logger.Info("tree committed",
		"object", id.Short(),
		"leaves", record.LeafCount,
		"depth", record.Depth,
		"bytes", size,
	)
	return record, nil
}

// Abort discards the pending tree. Calling Abort after Commit or a
// previous Abort does nothing.
func (p *PendingTree) Abort() {
	if p.done {
		return
	}
	p.done = true
	discardTemp(p.file)
}
