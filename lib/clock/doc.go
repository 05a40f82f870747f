// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps records accepts a [Clock] instead of calling
// time.Now directly. Production wiring passes Real(); tests pass
// Fake() and move it explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store, err := treestore.New(treestore.Config{Root: dir, Clock: c})
//	c.Advance(time.Hour)
package clock
