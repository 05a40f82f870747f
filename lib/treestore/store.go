// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package treestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/ndn/lib/clock"
	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
)

// Directory and file names within the store root.
const (
	objectsDir = "objects"
	recordsDir = "records"
	tmpDir     = "tmp"
	lockFile   = "lock"

	objectSuffix = ".mtree"
	recordSuffix = ".cbor"
)

var (
	// ErrNotFound reports an object with no stream or no record.
	ErrNotFound = errors.New("treestore: object not found")

	// ErrCorrupt reports a stored stream or record that disagrees with
	// its own identity.
	ErrCorrupt = errors.New("treestore: corrupt object")

	// ErrInvalidObject reports an object id the store cannot hold:
	// wrong type or empty hash.
	ErrInvalidObject = errors.New("treestore: invalid object id")
)

// Config configures [New].
type Config struct {
	// Root is the store directory. Created if missing.
	Root string

	// NodeCacheSize is passed to mtree.Load for every opened tree.
	NodeCacheSize int

	// Logger receives commit and open records. Nil uses
	// slog.Default().
	Logger *slog.Logger

	// Clock stamps records. Nil uses clock.Real().
	Clock clock.Clock
}

// Store is a local directory of persisted tree streams addressed by
// object id:
//
//	<root>/objects/<hex[0:2]>/<hex>.mtree   stream, read-only
//	<root>/records/<hex>.cbor              CBOR Record
//	<root>/tmp/                            streams being built
//
// Streams are built in tmp/ and renamed into objects/ on commit, so a
// reader never sees a partial stream. The store is safe for use by
// several goroutines and several processes; publication is serialized
// by an flock on <root>/lock.
type Store struct {
	root          string
	nodeCacheSize int
	logger        *slog.Logger
	clock         clock.Clock
}

// New opens the store at cfg.Root, creating the directory layout if
// it does not exist.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("treestore: root directory is required")
	}
	for _, dir := range []string{
		cfg.Root,
		filepath.Join(cfg.Root, objectsDir),
		filepath.Join(cfg.Root, recordsDir),
		filepath.Join(cfg.Root, tmpDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{
		root:          cfg.Root,
		nodeCacheSize: cfg.NodeCacheSize,
		logger:        logger,
		clock:         clk,
	}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// ObjectPath returns the path of the persisted stream for id. An id
// the store cannot address fails with ErrInvalidObject.
func (s *Store) ObjectPath(id objid.ObjectID) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return s.objectPath(id), nil
}

// objectPath requires an id that passed validateID.
func (s *Store) objectPath(id objid.ObjectID) string {
	hexHash := id.Hex()
	return filepath.Join(s.root, objectsDir, hexHash[:2], hexHash+objectSuffix)
}

func (s *Store) recordPath(id objid.ObjectID) string {
	return filepath.Join(s.root, recordsDir, id.Hex()+recordSuffix)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.root, lockFile)
}

// validateID rejects ids the store cannot address.
func validateID(id objid.ObjectID) error {
	if id.Type != objid.TypeMerkleTree {
		return fmt.Errorf("%w: type %q is not %s", ErrInvalidObject, id.Type, objid.TypeMerkleTree)
	}
	if len(id.Hash) == 0 {
		return fmt.Errorf("%w: empty hash", ErrInvalidObject)
	}
	return nil
}

// Exists reports whether a stream for id is stored.
func (s *Store) Exists(id objid.ObjectID) bool {
	if validateID(id) != nil {
		return false
	}
	_, err := os.Stat(s.objectPath(id))
	return err == nil
}

// Stat returns the record of id.
func (s *Store) Stat(id objid.ObjectID) (*Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.readRecord(id)
}

// List returns the records of every stored tree, sorted by object id
// string. A record that cannot be decoded is logged and skipped.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, recordsDir))
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		id, err := objid.Parse(objid.TypeMerkleTree + ":" + strings.TrimSuffix(name, recordSuffix))
		if err != nil {
			s.logger.Warn("skipping unrecognized record file", "name", name)
			continue
		}
		record, err := s.readRecord(id)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "object", id.Short(), "error", err)
			continue
		}
		records = append(records, record)
	}

	slices.SortFunc(records, func(a, b *Record) int {
		return strings.Compare(a.Object.String(), b.Object.String())
	})
	return records, nil
}

// Ingest hashes data in metadata.LeafSize chunks, persists the tree,
// and commits it. data must yield exactly metadata.DataSize bytes.
func (s *Store) Ingest(ctx context.Context, data io.Reader, metadata mtree.Metadata) (*Record, error) {
	file, err := s.createTemp()
	if err != nil {
		return nil, err
	}
	writer, err := mtree.WriteObject(ctx, file, data, metadata)
	if err != nil {
		discardTemp(file)
		return nil, fmt.Errorf("building tree: %w", err)
	}
	pending := &PendingTree{store: s, file: file, writer: writer, finalized: true}
	return pending.Commit()
}

// createTemp creates a locked temp file for a stream under tmp/.
func (s *Store) createTemp() (*os.File, error) {
	file, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "tree-*"+objectSuffix)
	if err != nil {
		return nil, fmt.Errorf("creating temp stream: %w", err)
	}
	if err := flock(file, true); err != nil {
		discardTemp(file)
		return nil, err
	}
	return file, nil
}

// discardTemp closes and removes a temp stream.
func discardTemp(file *os.File) {
	file.Close()
	os.Remove(file.Name())
}

// checksumStream returns the BLAKE3 digest and length of everything
// readable from r.
func checksumStream(r io.Reader) ([]byte, int64, error) {
	hasher := blake3.New()
	size, err := io.Copy(hasher, r)
	if err != nil {
		return nil, 0, err
	}
	return hasher.Sum(nil), size, nil
}
