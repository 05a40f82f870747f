// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command mtree builds, inspects, and proves Merkle hash trees over
// large objects. See "mtree --help".
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/ndn/cmd/mtree/commands"
)

func main() {
	if err := run(); err != nil {
		// check and verify print their own report and return an
		// error carrying only the exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
