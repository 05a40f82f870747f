// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objid

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// TypeMerkleTree is the object type of a persisted Merkle hash tree.
// Its hash is the tree root.
const TypeMerkleTree = "MTREE"

// shortHexLength is the number of hex characters [ObjectID.Short]
// keeps from the hash.
const shortHexLength = 12

// ErrMalformed is wrapped by every [Parse] and UnmarshalText failure.
var ErrMalformed = errors.New("objid: malformed object id")

// ObjectID is a typed content identifier: an object type tag paired
// with the raw digest that addresses the object.
type ObjectID struct {
	Type string
	Hash []byte
}

// New returns an ObjectID for hash under objectType. The hash is
// copied.
func New(objectType string, hash []byte) ObjectID {
	return ObjectID{Type: objectType, Hash: append([]byte(nil), hash...)}
}

// Parse parses the canonical "TYPE:hex" form produced by String.
func Parse(text string) (ObjectID, error) {
	objectType, hexHash, found := strings.Cut(text, ":")
	if !found {
		return ObjectID{}, fmt.Errorf("%w: %q has no type separator", ErrMalformed, text)
	}
	if objectType == "" {
		return ObjectID{}, fmt.Errorf("%w: %q has an empty type", ErrMalformed, text)
	}
	if hexHash == "" {
		return ObjectID{}, fmt.Errorf("%w: %q has an empty hash", ErrMalformed, text)
	}
	hash, err := hex.DecodeString(hexHash)
	if err != nil {
		return ObjectID{}, fmt.Errorf("%w: %q: %v", ErrMalformed, text, err)
	}
	return ObjectID{Type: objectType, Hash: hash}, nil
}

// String returns the canonical "TYPE:hex" form. This is the format
// used in records, logs, and CLI output.
func (id ObjectID) String() string {
	return id.Type + ":" + hex.EncodeToString(id.Hash)
}

// Hex returns the lowercase hex encoding of the hash alone. The store
// uses it for file names.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id.Hash)
}

// Short returns the type followed by the first 12 hex characters of
// the hash, for log lines and tables.
func (id ObjectID) Short() string {
	full := hex.EncodeToString(id.Hash)
	if len(full) > shortHexLength {
		full = full[:shortHexLength]
	}
	return id.Type + ":" + full
}

// Equal reports whether id and other name the same object.
func (id ObjectID) Equal(other ObjectID) bool {
	return id.Type == other.Type && bytes.Equal(id.Hash, other.Hash)
}

// IsZero reports whether id is the zero value.
func (id ObjectID) IsZero() bool {
	return id.Type == "" && len(id.Hash) == 0
}

// MarshalText implements encoding.TextMarshaler, so ObjectIDs encode
// as their canonical string in JSON, YAML, and CBOR.
func (id ObjectID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return []byte{}, nil
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// yields the zero ObjectID.
func (id *ObjectID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ObjectID{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
