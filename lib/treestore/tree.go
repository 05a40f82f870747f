// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package treestore

import (
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
)

// Tree is an opened stored tree. The stream is held under a shared
// lock until Close.
type Tree struct {
	// Reader serves proofs from the stream.
	Reader *mtree.Reader

	// Record is the stored record of the tree.
	Record *Record

	file *os.File
}

// Open loads the stored tree id. The root rebuilt from the stream's
// leaves must match id, otherwise Open fails with ErrCorrupt.
func (s *Store) Open(id objid.ObjectID) (*Tree, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	file, err := os.Open(s.objectPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("opening %s: %w", id.Short(), err)
	}
	if err := flock(file, false); err != nil {
		file.Close()
		return nil, err
	}

	tree, err := s.load(id, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return tree, nil
}

func (s *Store) load(id objid.ObjectID, file *os.File) (*Tree, error) {
	record, err := s.readRecord(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: stream for %s has no record", ErrCorrupt, id.Short())
		}
		return nil, err
	}

	reader, err := mtree.Load(file, &mtree.LoadOptions{
		NodeCacheSize: s.nodeCacheSize,
		Logger:        s.logger,
	})
	if err != nil {
		if errors.Is(err, mtree.ErrInvalidData) {
			return nil, fmt.Errorf("%w: loading %s: %v", ErrCorrupt, id.Short(), err)
		}
		return nil, fmt.Errorf("loading %s: %w", id.Short(), err)
	}
	if !reader.ObjectID().Equal(id) {
		return nil, fmt.Errorf("%w: stream for %s rebuilds to %s", ErrCorrupt, id.Short(), reader.ObjectID().Short())
	}

	return &Tree{Reader: reader, Record: record, file: file}, nil
}

// Close releases the lock and closes the stream.
func (t *Tree) Close() error {
	if t.file == nil {
		return nil
	}
	err := errors.Join(funlock(t.file), t.file.Close())
	t.file = nil
	return err
}
