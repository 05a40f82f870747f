// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package treestore

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// flock applies an advisory lock to file, retrying on EINTR.
// exclusive selects LOCK_EX over LOCK_SH. The lock is released when
// the file is closed.
func flock(file *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	for {
		err := unix.Flock(int(file.Fd()), how)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("locking %s: %w", file.Name(), err)
		}
		return nil
	}
}

// funlock releases a lock taken by flock.
func funlock(file *os.File) error {
	if err := unix.Flock(int(file.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlocking %s: %w", file.Name(), err)
	}
	return nil
}

// storeLock is the store-wide lock serializing publication, so two
// processes committing the same tree agree on which one wins.
type storeLock struct {
	file *os.File
}

func (s *Store) lockStore() (*storeLock, error) {
	file, err := os.OpenFile(s.lockPath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening store lock: %w", err)
	}
	if err := flock(file, true); err != nil {
		file.Close()
		return nil, err
	}
	return &storeLock{file: file}, nil
}

// release unlocks and closes the lock file. Closing drops the lock
// even when the explicit unlock fails.
func (l *storeLock) release() error {
	return errors.Join(funlock(l.file), l.file.Close())
}
