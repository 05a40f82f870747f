// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"bytes"
	"context"
	"testing"
)

// referenceLevels builds the tree level by level: every level with
// more than one node and an odd count gets a copy of its last node
// appended before pairing. The result lists every level from the
// leaves to the root, padding included.
func referenceLevels(method HashMethod, leaves [][]byte) [][][]byte {
	level := append([][]byte(nil), leaves...)
	var levels [][][]byte
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		levels = append(levels, level)
		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, method.HashPair(level[i], level[i+1]))
		}
		level = next
	}
	return append(levels, level)
}

func referenceRoot(method HashMethod, leaves [][]byte) []byte {
	levels := referenceLevels(method, leaves)
	return levels[len(levels)-1][0]
}

// referenceLayout returns the expected node region: every level
// concatenated from the leaves up.
func referenceLayout(method HashMethod, leaves [][]byte) []byte {
	var region bytes.Buffer
	for _, level := range referenceLevels(method, leaves) {
		for _, node := range level {
			region.Write(node)
		}
	}
	return region.Bytes()
}

// chunkHashes hashes data in leafSize chunks.
func chunkHashes(method HashMethod, data []byte, leafSize int) [][]byte {
	var hashes [][]byte
	for start := 0; start < len(data); start += leafSize {
		end := min(start+leafSize, len(data))
		hashes = append(hashes, method.HashLeaf(data[start:end]))
	}
	return hashes
}

// buildStream persists data as a tree and returns the stream bytes
// and the writer.
func buildStream(t *testing.T, data []byte, leafSize uint64, algorithm string) ([]byte, *Writer) {
	t.Helper()
	metadata, err := NewMetadata(uint64(len(data)), leafSize, algorithm)
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	sink := &Buffer{}
	writer, err := WriteObject(context.Background(), sink, bytes.NewReader(data), metadata)
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	return sink.Bytes(), writer
}
