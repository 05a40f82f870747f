// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the mtree CLI.
//
// The central type is [Command]: a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. [Command.Execute] handles flag parsing, subcommand
// routing, and help output with examples. An unknown subcommand or
// flag gets a "did you mean" suggestion when a known name is within
// edit distance 3.
//
// [JSONOutput] adds --json to a command, [NewCommandLogger] builds the
// slog logger for a run, and [ExitError] lets a command exit non-zero
// after printing its own report.
package cli
