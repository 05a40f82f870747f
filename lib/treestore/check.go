// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package treestore

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
)

// CheckReport is the result of [Store.Check]. Each stage runs only if
// the previous one passed; Problems explains the first failure.
type CheckReport struct {
	Object objid.ObjectID `json:"object"`

	// StreamSize is the length of the stream on disk.
	StreamSize int64 `json:"stream_size"`

	// ChecksumOK is true when the BLAKE3 digest of the stream matches
	// the record.
	ChecksumOK bool `json:"checksum_ok"`

	// RootOK is true when the root rebuilt from the stored leaves
	// equals the object hash.
	RootOK bool `json:"root_ok"`

	// NodesOK is true when every stored internal node matches its
	// children.
	NodesOK bool `json:"nodes_ok"`

	Problems []string `json:"problems,omitempty"`
}

// OK reports whether every stage passed.
func (r *CheckReport) OK() bool {
	return r.ChecksumOK && r.RootOK && r.NodesOK
}

// Check verifies the stored tree id end to end: stream checksum
// against the record, rebuilt root against the id, and every stored
// node against its children. Integrity failures are reported in the
// CheckReport; the error return is for a missing object or an I/O
// failure.
func (s *Store) Check(id objid.ObjectID) (*CheckReport, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	report := &CheckReport{Object: id}

	file, err := os.Open(s.objectPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("opening %s: %w", id.Short(), err)
	}
	defer file.Close()
	if err := flock(file, false); err != nil {
		return nil, err
	}

	record, err := s.readRecord(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
			report.Problems = append(report.Problems, fmt.Sprintf("record: %v", err))
			return report, nil
		}
		return nil, err
	}

	checksum, size, err := checksumStream(file)
	if err != nil {
		return nil, fmt.Errorf("checksumming %s: %w", id.Short(), err)
	}
	report.StreamSize = size
	if size != record.StreamSize || !bytes.Equal(checksum, record.Checksum) {
		report.Problems = append(report.Problems, fmt.Sprintf(
			"stream checksum mismatch (%d bytes on disk, record says %d)", size, record.StreamSize))
		return report, nil
	}
	report.ChecksumOK = true

	reader, err := mtree.Load(file, &mtree.LoadOptions{Logger: s.logger})
	if err != nil {
		if errors.Is(err, mtree.ErrInvalidData) {
			report.Problems = append(report.Problems, fmt.Sprintf("load: %v", err))
			return report, nil
		}
		return nil, fmt.Errorf("loading %s: %w", id.Short(), err)
	}
	if !reader.ObjectID().Equal(id) {
		report.Problems = append(report.Problems, fmt.Sprintf("leaves rebuild to %s", reader.ObjectID()))
		return report, nil
	}
	report.RootOK = true

	if err := reader.CheckNodes(); err != nil {
		if errors.Is(err, mtree.ErrInvalidData) {
			report.Problems = append(report.Problems, err.Error())
			return report, nil
		}
		return nil, fmt.Errorf("checking nodes of %s: %w", id.Short(), err)
	}
	report.NodesOK = true

	s.logger.Debug("tree checked", "object", id.Short(), "bytes", size)
	return report, nil
}
