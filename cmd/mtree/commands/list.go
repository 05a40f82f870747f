// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/treestore"
)

type listParams struct {
	globalParams
	cli.JSONOutput
}

func listCommand(out io.Writer) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List stored trees",
		Usage:   "mtree list [flags]",
		Description: `List every tree in the store, sorted by object id.

Records that cannot be read are skipped with a warning on stderr; run
"mtree check" on the object to see what is wrong with it.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			params.globalParams.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "mtree list [flags]"); err != nil {
				return err
			}
			env, err := params.setup("list")
			if err != nil {
				return err
			}
			store, err := env.openStore()
			if err != nil {
				return err
			}
			records, err := store.List()
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(out, records); done {
				return err
			}
			return printRecords(out, records)
		},
	}
}

func printRecords(out io.Writer, records []*treestore.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "no trees stored")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OBJECT\tSIZE\tLEAF SIZE\tLEAVES\tHASH\tCREATED")
	for _, record := range records {
		hashAlgorithm := record.Metadata.HashAlgorithm
		if hashAlgorithm == "" {
			hashAlgorithm = "(default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			record.Object.Short(),
			formatSize(record.Metadata.DataSize),
			formatSize(record.Metadata.LeafSize),
			record.LeafCount,
			hashAlgorithm,
			record.Created.Format(time.DateTime),
		)
	}
	return tw.Flush()
}
