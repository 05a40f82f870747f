// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"errors"
	"fmt"
)

// TB is the subset of testing.TB the helpers need. Taking an interface
// lets the helpers be exercised against a recorder in their own tests.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireErrorIs fails the test unless errors.Is(err, target).
//
//	testutil.RequireErrorIs(t, err, mtree.ErrInvalidParameter, "leaf %d", index)
func RequireErrorIs(t TB, err, target error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error wrapping %v, got nil: %s", target, formatMessage(msgAndArgs))
		return
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error wrapping %v, got %v: %s", target, err, formatMessage(msgAndArgs))
	}
}

// RequireNoError fails the test if err is non-nil.
func RequireNoError(t TB, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v: %s", err, formatMessage(msgAndArgs))
	}
}

// formatMessage formats optional message arguments into a string.
// Accepts either a single string or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}
