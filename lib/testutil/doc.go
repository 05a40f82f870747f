// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the tree packages.
//
// [Payload] and [Digests] produce deterministic pseudo-random bytes
// from a seed, so tests can build the same object or the same set of
// leaf hashes in several places without fixture files.
//
// [FailingWriteSeeker] and [FailingReadSeeker] stand in for sinks and
// sources that break partway through, for exercising I/O error paths.
//
// [RequireErrorIs] and [RequireNoError] call t.Fatalf on failure
// rather than returning, since a failed precondition is not
// recoverable.
//
// This package has no internal dependencies.
package testutil
