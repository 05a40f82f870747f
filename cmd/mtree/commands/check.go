// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/objid"
	"github.com/bureau-foundation/ndn/lib/treestore"
)

type checkParams struct {
	globalParams
	cli.JSONOutput
}

func checkCommand(out io.Writer) *cli.Command {
	var params checkParams

	return &cli.Command{
		Name:    "check",
		Summary: "Verify a stored tree end to end",
		Usage:   "mtree check <object-id> [flags]",
		Description: `Verify a stored tree in three stages, stopping at the first failure:

  checksum  the BLAKE3 digest of the stream matches its record
  root      the root rebuilt from the stored leaves matches the id
  nodes     every stored internal node matches its two children

Exits 0 when every stage passes and 1 otherwise.`,
		Examples: []cli.Example{
			{
				Description: "Check a stored tree",
				Command:     "mtree check MTREE:9f2c...",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			params.globalParams.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "mtree check <object-id> [flags]"); err != nil {
				return err
			}
			id, err := objid.Parse(args[0])
			if err != nil {
				return err
			}
			env, err := params.setup("check")
			if err != nil {
				return err
			}
			store, err := env.openStore()
			if err != nil {
				return err
			}
			report, err := store.Check(id)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(out, report); done {
				if err != nil {
					return err
				}
			} else {
				printCheckReport(out, report)
			}

			if !report.OK() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func printCheckReport(out io.Writer, report *treestore.CheckReport) {
	status := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAILED"
	}
	fmt.Fprintf(out, "%s (%d bytes)\n", report.Object, report.StreamSize)
	fmt.Fprintf(out, "  checksum  %s\n", status(report.ChecksumOK))
	fmt.Fprintf(out, "  root      %s\n", status(report.RootOK))
	fmt.Fprintf(out, "  nodes     %s\n", status(report.NodesOK))
	for _, problem := range report.Problems {
		fmt.Fprintf(out, "  problem: %s\n", problem)
	}
}
