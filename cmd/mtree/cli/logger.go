// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger for a command run.
// format is "text", "json", or "auto"; auto uses slog.TextHandler when
// stderr is a terminal and slog.JSONHandler when it is piped or
// redirected, so scripted runs produce machine-parseable logs.
//
// Callers scope the logger with command context via With():
//
//	logger := cli.NewCommandLogger(cfg.SlogLevel(), cfg.Log.Format).With(
//	    "command", "build",
//	)
func NewCommandLogger(level slog.Leveler, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format, term.IsTerminal(int(os.Stderr.Fd())))
}

func newLogger(w io.Writer, level slog.Leveler, format string, terminal bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	useText := format == "text" || (format != "json" && terminal)
	if useText {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
