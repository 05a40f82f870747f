// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR configuration for tree
// records and inclusion proofs.
//
// JSON is the external format (CLI --json output). CBOR is the
// internal one: the per-tree record files in the store and the
// portable proof encoding. Every package encodes through this one
// configuration, which uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
//
// # Struct Tags
//
// Types that appear in both CLI JSON output and CBOR carry only `json`
// tags; fxamacker/cbor falls back to them when `cbor` tags are absent.
// Types that are only ever CBOR carry `cbor` tags. Never put both on
// one field.
package codec
