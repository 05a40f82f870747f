// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/objid"
)

type infoParams struct {
	globalParams
	cli.JSONOutput
}

// infoResult is the --json output of info.
type infoResult struct {
	Object        objid.ObjectID `json:"object"`
	Source        string         `json:"source"`
	DataSize      uint64         `json:"data_size"`
	LeafSize      uint64         `json:"leaf_size"`
	HashAlgorithm string         `json:"hash_algorithm"`
	LeafCount     uint64         `json:"leaf_count"`
	Depth         uint32         `json:"depth"`
	HeaderSize    int64          `json:"header_size"`
	SlotCount     uint64         `json:"slot_count"`
	CountPerDepth []uint64       `json:"count_per_depth"`
}

func infoCommand(out io.Writer) *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "Show the shape of a tree",
		Usage:   "mtree info <object-id|stream-file> [flags]",
		Description: `Load a tree and print its metadata and geometry: object size, leaf
size, hash algorithm, depth, and the number of node slots stored at
each depth (padding slots included).

Loading rebuilds the root from the stored leaves, so a tree that
prints an object id here is internally consistent at the leaf level.`,
		Examples: []cli.Example{
			{
				Description: "Inspect a stored tree",
				Command:     "mtree info MTREE:9f2c...",
			},
			{
				Description: "Inspect a standalone stream file as JSON",
				Command:     "mtree info disk.img.mtree --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			params.globalParams.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "mtree info <object-id|stream-file> [flags]"); err != nil {
				return err
			}
			env, err := params.setup("info")
			if err != nil {
				return err
			}
			tree, err := env.openTree(args[0])
			if err != nil {
				return err
			}
			defer tree.Close()

			reader := tree.reader
			locator := reader.Locator()
			result := infoResult{
				Object:        reader.ObjectID(),
				Source:        tree.source,
				DataSize:      reader.DataSize(),
				LeafSize:      reader.LeafSize(),
				HashAlgorithm: reader.HashMethod().String(),
				LeafCount:     reader.LeafCount(),
				Depth:         locator.TotalDepth(),
				HeaderSize:    reader.HeaderSize(),
				SlotCount:     locator.SlotCount(),
				CountPerDepth: locator.CountPerDepth(),
			}

			if done, err := params.EmitJSON(out, result); done {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Object:\t%s\n", result.Object)
			fmt.Fprintf(tw, "Source:\t%s\n", result.Source)
			fmt.Fprintf(tw, "Data size:\t%s (%d bytes)\n", formatSize(result.DataSize), result.DataSize)
			fmt.Fprintf(tw, "Leaf size:\t%s (%d bytes)\n", formatSize(result.LeafSize), result.LeafSize)
			fmt.Fprintf(tw, "Hash:\t%s\n", result.HashAlgorithm)
			fmt.Fprintf(tw, "Leaves:\t%d\n", result.LeafCount)
			fmt.Fprintf(tw, "Depth:\t%d\n", result.Depth)
			fmt.Fprintf(tw, "Header:\t%d bytes\n", result.HeaderSize)
			fmt.Fprintf(tw, "Node slots:\t%d\n", result.SlotCount)
			tw.Flush()

			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DEPTH\tSLOTS")
			for depth, count := range result.CountPerDepth {
				fmt.Fprintf(tw, "%d\t%d\n", depth, count)
			}
			return tw.Flush()
		},
	}
}
