// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestBufferWritePastEndZeroFills(t *testing.T) {
	var buffer Buffer
	if _, err := buffer.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := buffer.Write([]byte{1, 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := []byte{0, 0, 0, 0, 1, 2}; !bytes.Equal(buffer.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", buffer.Bytes(), want)
	}

	buffer.Seek(1, io.SeekStart)
	buffer.Write([]byte{9})
	if want := []byte{0, 9, 0, 0, 1, 2}; !bytes.Equal(buffer.Bytes(), want) {
		t.Errorf("overwrite: Bytes() = %v, want %v", buffer.Bytes(), want)
	}
}

func TestBufferRead(t *testing.T) {
	buffer := NewBuffer([]byte("hello"))
	data, err := io.ReadAll(buffer)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadAll = %q", data)
	}
	if _, err := buffer.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("Read at end error = %v, want EOF", err)
	}
}

func TestBufferSeek(t *testing.T) {
	buffer := NewBuffer([]byte("abcdef"))
	if position, err := buffer.Seek(-2, io.SeekEnd); err != nil || position != 4 {
		t.Errorf("Seek(-2, End) = (%d, %v), want 4", position, err)
	}
	if _, err := buffer.Seek(-10, io.SeekCurrent); err == nil {
		t.Error("negative seek succeeded")
	}
	if _, err := buffer.Seek(0, 42); err == nil {
		t.Error("invalid whence succeeded")
	}
}

func TestStreamSizeRestoresPosition(t *testing.T) {
	buffer := NewBuffer([]byte("0123456789"))
	buffer.Seek(3, io.SeekStart)
	size, err := streamSize(buffer)
	if err != nil || size != 10 {
		t.Fatalf("streamSize = (%d, %v), want 10", size, err)
	}
	position, _ := buffer.Seek(0, io.SeekCurrent)
	if position != 3 {
		t.Errorf("position after streamSize = %d, want 3", position)
	}
}
