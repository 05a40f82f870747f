// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "mtree",
		Subcommands: []*Command{
			{
				Name: "build",
				Run: func(args []string) error {
					called = "build"
					return nil
				},
			},
			{
				Name: "proof",
				Run: func(args []string) error {
					called = "proof"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"proof"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "proof" {
		t.Errorf("dispatched to %q, want %q", called, "proof")
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var leafSize uint64
	var received []string

	command := &Command{
		Name: "build",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flagSet.Uint64Var(&leafSize, "leaf-size", 0, "leaf size")
			return flagSet
		},
		Run: func(args []string) error {
			received = args
			return nil
		},
	}

	if err := command.Execute([]string{"--leaf-size", "4096", "object.bin"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if leafSize != 4096 {
		t.Errorf("leafSize = %d, want 4096", leafSize)
	}
	if len(received) != 1 || received[0] != "object.bin" {
		t.Errorf("args = %v, want [object.bin]", received)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "mtree",
		Subcommands: []*Command{
			{Name: "verify", Run: func([]string) error { return nil }},
			{Name: "list", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"verfy"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "verify"`) {
		t.Errorf("error = %q, want a suggestion for verify", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "build",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flagSet.Uint64("leaf-size", 0, "leaf size")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--leaf-sise", "10"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --leaf-size?") {
		t.Errorf("error = %q, want a suggestion for --leaf-size", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:       "mtree",
		HelpOutput: &help,
		Subcommands: []*Command{
			{Name: "list", Summary: "List stored trees", Run: func([]string) error { return nil }},
		},
	}

	if err := root.Execute(nil); err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Fatalf("Execute(nil) error = %v, want subcommand required", err)
	}
	if !strings.Contains(help.String(), "List stored trees") {
		t.Errorf("help output missing subcommand summary:\n%s", help.String())
	}
}

func TestCommand_Execute_Help(t *testing.T) {
	var help bytes.Buffer
	ran := false
	root := &Command{
		Name:       "mtree",
		HelpOutput: &help,
		Subcommands: []*Command{
			{
				Name:        "proof",
				Description: "Print the inclusion proof of one leaf.",
				Examples: []Example{
					{Description: "Prove leaf 3", Command: "mtree proof MTREE:ab12 3"},
				},
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("proof", pflag.ContinueOnError)
					flagSet.String("out", "", "write CBOR proof to `path`")
					return flagSet
				},
				Run: func([]string) error {
					ran = true
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"proof", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if ran {
		t.Error("Run called for --help")
	}
	output := help.String()
	for _, want := range []string{
		"Print the inclusion proof of one leaf.",
		"Usage:\n  mtree proof [flags]",
		"--out path",
		"# Prove leaf 3",
		"mtree proof MTREE:ab12 3",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q:\n%s", want, output)
		}
	}
}

func TestCommand_Execute_PropagatesRunError(t *testing.T) {
	want := &ExitError{Code: 1}
	command := &Command{
		Name: "check",
		Run:  func([]string) error { return want },
	}

	err := command.Execute(nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("Execute() error = %v, want ExitError code 1", err)
	}
}

func TestJSONOutput(t *testing.T) {
	var output JSONOutput
	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
	output.AddFlags(flagSet)

	var buffer bytes.Buffer
	done, err := output.EmitJSON(&buffer, []string{"a"})
	if done || err != nil || buffer.Len() != 0 {
		t.Fatalf("EmitJSON without --json = (%v, %v), wrote %q", done, err, buffer.String())
	}

	if err := flagSet.Parse([]string{"--json"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var nilSlice []string
	done, err = output.EmitJSON(&buffer, nilSlice)
	if !done || err != nil {
		t.Fatalf("EmitJSON with --json = (%v, %v)", done, err)
	}
	if got := strings.TrimSpace(buffer.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	tests := []struct {
		format   string
		terminal bool
		wantJSON bool
	}{
		{"auto", true, false},
		{"auto", false, true},
		{"text", false, false},
		{"json", true, true},
	}
	for _, test := range tests {
		var buffer bytes.Buffer
		logger := newLogger(&buffer, nil, test.format, test.terminal)
		logger.Info("hello", "leaves", 3)
		isJSON := strings.HasPrefix(buffer.String(), "{")
		if isJSON != test.wantJSON {
			t.Errorf("format=%s terminal=%v: output %q, want JSON=%v",
				test.format, test.terminal, buffer.String(), test.wantJSON)
		}
	}
}
