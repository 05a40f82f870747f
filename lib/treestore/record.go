// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package treestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/ndn/lib/codec"
	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
)

// RecordVersion is the current record schema version.
const RecordVersion = 1

// Record describes one stored tree. It is written as CBOR next to the
// stream when the tree is committed and is what List and Stat return.
type Record struct {
	Version int `json:"version"`

	// Object is the tree identity: MTREE plus the root hash.
	Object objid.ObjectID `json:"object"`

	// Metadata is the header of the persisted stream.
	Metadata mtree.Metadata `json:"metadata"`

	LeafCount uint64 `json:"leaf_count"`
	Depth     uint32 `json:"depth"`

	// StreamSize is the length of the persisted stream in bytes.
	StreamSize int64 `json:"stream_size"`

	// Checksum is the BLAKE3 digest of the whole persisted stream.
	// Check compares it before looking at any node.
	Checksum []byte `json:"checksum"`

	Created time.Time `json:"created"`
}

// writeRecord writes record atomically via a temp file and rename.
func (s *Store) writeRecord(record *Record) error {
	data, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", record.Object.Short(), err)
	}

	tmpFile, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "record-*.cbor")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing record: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing record: %w", err)
	}

	if err := os.Rename(tmpPath, s.recordPath(record.Object)); err != nil {
		return fmt.Errorf("renaming record for %s: %w", record.Object.Short(), err)
	}
	success = true
	return nil
}

// readRecord loads the record of id. A missing record is ErrNotFound;
// an undecodable one is ErrCorrupt.
func (s *Store) readRecord(id objid.ObjectID) (*Record, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading record for %s: %w", id.Short(), err)
	}

	var record Record
	if err := codec.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: decoding record for %s: %v", ErrCorrupt, id.Short(), err)
	}
	if !record.Object.Equal(id) {
		return nil, fmt.Errorf("%w: record for %s names %s", ErrCorrupt, id.Short(), record.Object.Short())
	}
	return &record, nil
}
