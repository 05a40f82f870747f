// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Header layout constants.
const (
	// headerLengthSize is the 4-byte little-endian length that precedes
	// the metadata record.
	headerLengthSize = 4

	// metadataFixedSize covers data_size, leaf_size, and the algorithm
	// presence flag.
	metadataFixedSize = 8 + 8 + 1

	// maxMetadataSize bounds the record length accepted from a stream.
	// A valid record is at most a few dozen bytes; anything near this
	// limit is a corrupt or foreign stream.
	maxMetadataSize = 64 * 1024
)

// Metadata describes the shape of a tree: the total object size, the
// size of each leaf chunk, and optionally the hash algorithm name. It
// is immutable once constructed.
type Metadata struct {
	// DataSize is the total size of the hashed object in bytes.
	DataSize uint64 `json:"data_size"`

	// LeafSize is the size of every leaf chunk except possibly the
	// last one. Always positive.
	LeafSize uint64 `json:"leaf_size"`

	// HashAlgorithm names the digest algorithm. Empty means the
	// stream carries no name and [DefaultHashMethod] applies.
	HashAlgorithm string `json:"hash_algorithm,omitempty"`
}

// NewMetadata validates and returns a Metadata. A zero leaf size, an
// empty object, or an unknown algorithm name fail with
// [ErrInvalidParameter].
func NewMetadata(dataSize, leafSize uint64, hashAlgorithm string) (Metadata, error) {
	if leafSize == 0 {
		return Metadata{}, fmt.Errorf("%w: leaf size must be positive", ErrInvalidParameter)
	}
	if dataSize == 0 {
		return Metadata{}, fmt.Errorf("%w: data size must be positive", ErrInvalidParameter)
	}
	if hashAlgorithm != "" {
		if _, err := ParseHashMethod(hashAlgorithm); err != nil {
			return Metadata{}, err
		}
	}
	return Metadata{
		DataSize:      dataSize,
		LeafSize:      leafSize,
		HashAlgorithm: hashAlgorithm,
	}, nil
}

// LeafCount returns ceil(DataSize / LeafSize), or 0 when LeafSize is
// zero (which [NewMetadata] and the decoder both reject).
func (m Metadata) LeafCount() uint64 {
	if m.LeafSize == 0 {
		return 0
	}
	count := m.DataSize / m.LeafSize
	if m.DataSize%m.LeafSize != 0 {
		count++
	}
	return count
}

// HashMethod resolves HashAlgorithm, falling back to
// [DefaultHashMethod] when it is empty.
func (m Metadata) HashMethod() (HashMethod, error) {
	if m.HashAlgorithm == "" {
		return DefaultHashMethod, nil
	}
	return ParseHashMethod(m.HashAlgorithm)
}

// MarshalBinary encodes the metadata record (without the 4-byte length
// prefix): u64 data_size, u64 leaf_size, a presence byte, and when
// present a u32 length followed by the UTF-8 algorithm name. All
// integers are little-endian.
func (m Metadata) MarshalBinary() ([]byte, error) {
	if !utf8.ValidString(m.HashAlgorithm) {
		return nil, fmt.Errorf("%w: hash algorithm name is not valid UTF-8", ErrInvalidParameter)
	}

	size := metadataFixedSize
	if m.HashAlgorithm != "" {
		size += 4 + len(m.HashAlgorithm)
	}

	buffer := make([]byte, 0, size)
	buffer = binary.LittleEndian.AppendUint64(buffer, m.DataSize)
	buffer = binary.LittleEndian.AppendUint64(buffer, m.LeafSize)
	if m.HashAlgorithm == "" {
		buffer = append(buffer, 0)
	} else {
		buffer = append(buffer, 1)
		buffer = binary.LittleEndian.AppendUint32(buffer, uint32(len(m.HashAlgorithm)))
		buffer = append(buffer, m.HashAlgorithm...)
	}
	return buffer, nil
}

// UnmarshalBinary decodes a metadata record produced by
// [Metadata.MarshalBinary]. Every structural problem, including
// trailing bytes, a zero leaf size, and an unknown algorithm name,
// fails with [ErrInvalidData].
func (m *Metadata) UnmarshalBinary(data []byte) error {
	if len(data) < metadataFixedSize {
		return fmt.Errorf("%w: metadata record is %d bytes, need at least %d",
			ErrInvalidData, len(data), metadataFixedSize)
	}

	decoded := Metadata{
		DataSize: binary.LittleEndian.Uint64(data[0:8]),
		LeafSize: binary.LittleEndian.Uint64(data[8:16]),
	}

	rest := data[metadataFixedSize:]
	switch flag := data[16]; flag {
	case 0:
	case 1:
		if len(rest) < 4 {
			return fmt.Errorf("%w: metadata record truncated in algorithm name length", ErrInvalidData)
		}
		nameLength := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(nameLength) > uint64(len(rest)) {
			return fmt.Errorf("%w: algorithm name length %d exceeds remaining %d bytes",
				ErrInvalidData, nameLength, len(rest))
		}
		name := rest[:nameLength]
		rest = rest[nameLength:]
		if !utf8.Valid(name) {
			return fmt.Errorf("%w: algorithm name is not valid UTF-8", ErrInvalidData)
		}
		decoded.HashAlgorithm = string(name)
		if _, err := ParseHashMethod(decoded.HashAlgorithm); err != nil {
			return fmt.Errorf("%w: unsupported hash algorithm %q", ErrInvalidData, decoded.HashAlgorithm)
		}
	default:
		return fmt.Errorf("%w: invalid algorithm presence flag %d", ErrInvalidData, flag)
	}

	if len(rest) != 0 {
		return fmt.Errorf("%w: %d trailing bytes after metadata record", ErrInvalidData, len(rest))
	}
	if decoded.LeafSize == 0 {
		return fmt.Errorf("%w: leaf size is zero", ErrInvalidData)
	}
	if decoded.DataSize == 0 {
		return fmt.Errorf("%w: data size is zero", ErrInvalidData)
	}

	*m = decoded
	return nil
}

// writeHeader writes the length-prefixed metadata record to w and
// returns the total header size, which is where node slot 0 begins.
func writeHeader(w io.Writer, m Metadata) (int64, error) {
	record, err := m.MarshalBinary()
	if err != nil {
		return 0, err
	}

	var lengthBytes [headerLengthSize]byte
	binary.LittleEndian.PutUint32(lengthBytes[:], uint32(len(record)))
	if _, err := w.Write(lengthBytes[:]); err != nil {
		return 0, ioError(err, "writing metadata length")
	}
	if _, err := w.Write(record); err != nil {
		return 0, ioError(err, "writing metadata record")
	}
	return int64(headerLengthSize + len(record)), nil
}

// readHeader reads the length-prefixed metadata record from r and
// returns it with the total header size.
func readHeader(r io.Reader) (Metadata, int64, error) {
	var lengthBytes [headerLengthSize]byte
	if _, err := io.ReadFull(r, lengthBytes[:]); err != nil {
		return Metadata{}, 0, headerReadError(err, "reading metadata length")
	}

	length := binary.LittleEndian.Uint32(lengthBytes[:])
	if length > maxMetadataSize {
		return Metadata{}, 0, fmt.Errorf("%w: metadata length %d exceeds limit %d",
			ErrInvalidData, length, maxMetadataSize)
	}

	record := make([]byte, length)
	if _, err := io.ReadFull(r, record); err != nil {
		return Metadata{}, 0, headerReadError(err, "reading metadata record (%d bytes)", length)
	}

	var m Metadata
	if err := m.UnmarshalBinary(record); err != nil {
		return Metadata{}, 0, err
	}
	return m, int64(headerLengthSize) + int64(length), nil
}

// headerReadError classifies a failed header read: running out of
// bytes means the stream is not a tree, anything else is the medium.
func headerReadError(err error, format string, args ...any) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: stream truncated while %s", ErrInvalidData, fmt.Sprintf(format, args...))
	}
	return ioError(err, format, args...)
}
