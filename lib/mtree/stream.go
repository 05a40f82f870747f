// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"errors"
	"fmt"
	"io"
)

// Source is the read side of a persisted tree: exact-length reads at
// exact offsets. *os.File and *[Buffer] satisfy it.
type Source interface {
	io.Reader
	io.Seeker
}

// Sink is the write side of a persisted tree. The [Writer] seeks to
// every node's slot before writing it, so the sink must accept writes
// at arbitrary offsets, including past its current end.
type Sink interface {
	io.Writer
	io.Seeker
}

// Buffer is an in-memory [Source] and [Sink]. Writes past the end grow
// the buffer and zero-fill any gap, matching the behaviour of a sparse
// file. The zero value is an empty buffer ready for use.
type Buffer struct {
	data     []byte
	position int64
}

// NewBuffer returns a Buffer holding a copy of data, positioned at
// offset 0.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: append([]byte(nil), data...)}
}

// Bytes returns the buffer contents. The slice aliases the buffer
// until the next write.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Read implements io.Reader.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.position >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[b.position:])
	b.position += int64(n)
	return n, nil
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.position + int64(len(p))
	if end > int64(len(b.data)) {
		if end > int64(cap(b.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.data))))
			copy(grown, b.data)
			b.data = grown
		} else {
			previous := len(b.data)
			b.data = b.data[:end]
			clear(b.data[previous:])
		}
	}
	n := copy(b.data[b.position:], p)
	b.position += int64(n)
	return n, nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.position + offset
	case io.SeekEnd:
		target = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("mtree: invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errors.New("mtree: negative seek position")
	}
	b.position = target
	return target, nil
}

// streamSize returns the total length of s and restores its position.
func streamSize(s io.Seeker) (int64, error) {
	current, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(current, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
