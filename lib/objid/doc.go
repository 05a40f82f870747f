// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objid defines typed content identifiers. An [ObjectID] pairs
// an object type tag such as [TypeMerkleTree] with the digest that
// addresses the object, and renders as "TYPE:hex".
//
// This package has no internal dependencies.
package objid
