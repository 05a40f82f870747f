// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math/rand/v2"
)

// Payload returns size pseudo-random bytes determined entirely by
// seed. The same seed always yields the same bytes, so expected roots
// computed in one test stay valid in another.
func Payload(seed uint64, size int) []byte {
	source := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	data := make([]byte, size)
	for i := 0; i < size; i += 8 {
		value := source.Uint64()
		for j := 0; j < 8 && i+j < size; j++ {
			data[i+j] = byte(value >> (8 * j))
		}
	}
	return data
}

// Digests returns count distinct pseudo-random digests of digestSize
// bytes each, derived from seed. They stand in for leaf hashes where
// a test only cares about tree shape.
func Digests(seed uint64, count, digestSize int) [][]byte {
	flat := Payload(seed, count*digestSize)
	digests := make([][]byte, count)
	for i := range digests {
		digests[i] = flat[i*digestSize : (i+1)*digestSize : (i+1)*digestSize]
	}
	return digests
}
