// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/codec"
	"github.com/bureau-foundation/ndn/lib/mtree"
)

type proofParams struct {
	globalParams
	cli.JSONOutput
	Out      string
	Diagnose bool
}

func proofCommand(out io.Writer) *cli.Command {
	var params proofParams

	return &cli.Command{
		Name:    "proof",
		Summary: "Produce the inclusion proof of one leaf",
		Usage:   "mtree proof <object-id|stream-file> <leaf-index> [flags]",
		Description: `Read the verification path of one leaf: the sibling digest at every
depth from the leaves up, then the root. Only the slots on the path are
read; the object itself is not needed.

Without flags the proof is printed as a table. --json prints it as
JSON, --out writes it as deterministic CBOR for "mtree verify", and
--diagnose prints the CBOR in RFC 8949 diagnostic notation.`,
		Examples: []cli.Example{
			{
				Description: "Print the path of leaf 3",
				Command:     "mtree proof MTREE:9f2c... 3",
			},
			{
				Description: "Save a portable proof",
				Command:     "mtree proof disk.img.mtree 3 --out leaf3.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("proof", pflag.ContinueOnError)
			params.globalParams.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			flagSet.StringVarP(&params.Out, "out", "o", "", "write the CBOR proof to `path`")
			flagSet.BoolVar(&params.Diagnose, "diagnose", false, "print the CBOR proof in diagnostic notation")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "mtree proof <object-id|stream-file> <leaf-index> [flags]"); err != nil {
				return err
			}
			leafIndex, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid leaf index %q: %w", args[1], err)
			}
			env, err := params.setup("proof")
			if err != nil {
				return err
			}
			tree, err := env.openTree(args[0])
			if err != nil {
				return err
			}
			defer tree.Close()

			proof, err := tree.reader.Prove(leafIndex)
			if err != nil {
				return err
			}

			if params.Out != "" || params.Diagnose {
				encoded, err := mtree.EncodeProof(proof)
				if err != nil {
					return err
				}
				if params.Out != "" {
					if err := os.WriteFile(params.Out, encoded, 0o644); err != nil {
						return fmt.Errorf("writing proof: %w", err)
					}
					env.logger.Info("proof written",
						"object", proof.Object.Short(),
						"leaf", leafIndex,
						"path", params.Out,
						"bytes", len(encoded),
					)
				}
				if params.Diagnose {
					notation, err := codec.Diagnose(encoded)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, notation)
				}
				return nil
			}

			if done, err := params.EmitJSON(out, proof); done {
				return err
			}
			return printProof(out, proof)
		},
	}
}

func printProof(out io.Writer, proof *mtree.Proof) error {
	fmt.Fprintf(out, "Object: %s\n", proof.Object)
	fmt.Fprintf(out, "Leaf:   %d of %d\n", proof.LeafIndex, proof.LeafCount)
	fmt.Fprintf(out, "Digest: %s\n\n", hex.EncodeToString(proof.Leaf))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tSLOT\tHASH")
	for i, node := range proof.Path {
		role := ""
		if i == len(proof.Path)-1 {
			role = " (root)"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s%s\n", node.Depth, node.Slot, hex.EncodeToString(node.Hash), role)
	}
	return tw.Flush()
}
