// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"errors"
	"io"
)

// ErrInjected is returned by the failing fakes once their budget is
// spent.
var ErrInjected = errors.New("testutil: injected I/O failure")

// FailingWriteSeeker accepts WritesBeforeFailure writes into an
// in-memory buffer and fails every write after that with
// [ErrInjected]. Seeks always succeed unless FailSeek is set.
type FailingWriteSeeker struct {
	WritesBeforeFailure int
	FailSeek            bool

	data     []byte
	position int64
	writes   int
}

// Write stores p at the current position or fails once the budget is
// spent.
func (f *FailingWriteSeeker) Write(p []byte) (int, error) {
	if f.writes >= f.WritesBeforeFailure {
		return 0, ErrInjected
	}
	f.writes++
	end := f.position + int64(len(p))
	if end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	copy(f.data[f.position:], p)
	f.position = end
	return len(p), nil
}

// Seek moves the write position.
func (f *FailingWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	if f.FailSeek {
		return 0, ErrInjected
	}
	return seek(&f.position, int64(len(f.data)), offset, whence)
}

// Writes returns the number of successful writes.
func (f *FailingWriteSeeker) Writes() int { return f.writes }

// FailingReadSeeker serves Data but fails every read that starts at
// or after FailAt with [ErrInjected].
type FailingReadSeeker struct {
	Data   []byte
	FailAt int64

	position int64
}

// Read copies from Data, stopping short of FailAt.
func (f *FailingReadSeeker) Read(p []byte) (int, error) {
	if f.position >= f.FailAt {
		return 0, ErrInjected
	}
	if f.position >= int64(len(f.Data)) {
		return 0, io.EOF
	}
	limit := min(int64(len(f.Data)), f.FailAt)
	n := copy(p, f.Data[f.position:limit])
	f.position += int64(n)
	return n, nil
}

// Seek moves the read position.
func (f *FailingReadSeeker) Seek(offset int64, whence int) (int64, error) {
	return seek(&f.position, int64(len(f.Data)), offset, whence)
}

func seek(position *int64, size, offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = *position + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, errors.New("testutil: invalid whence")
	}
	if target < 0 {
		return 0, errors.New("testutil: negative position")
	}
	*position = target
	return target, nil
}
