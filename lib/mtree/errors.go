// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mtree

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly
// one of these, so callers classify failures with errors.Is.
var (
	// ErrIO wraps a read, write, or seek failure of the underlying
	// medium. The underlying error is wrapped as well.
	ErrIO = errors.New("mtree: i/o failure")

	// ErrInvalidData reports a malformed or self-inconsistent header,
	// a stream too short for its declared geometry, a leaf count that
	// does not match the metadata at finalize, or a proof that does not
	// reconstruct its root.
	ErrInvalidData = errors.New("mtree: invalid data")

	// ErrInvalidParameter reports a caller-supplied value outside the
	// accepted range: leaf index past the last leaf, unknown hash
	// algorithm, zero leaf size, appending past the declared leaf count.
	ErrInvalidParameter = errors.New("mtree: invalid parameter")

	// ErrInvalidState reports an operation that is not valid at this
	// point of an object's lifecycle, such as finalizing before any leaf
	// was appended or appending after finalize.
	ErrInvalidState = errors.New("mtree: invalid state")
)

// ioError wraps err with ErrIO and a context phrase.
func ioError(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, fmt.Sprintf(format, args...), err)
}
