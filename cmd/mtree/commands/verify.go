// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
)

type verifyParams struct {
	globalParams
	cli.JSONOutput
	Object string
}

// verifyResult is the --json output of verify.
type verifyResult struct {
	Object    objid.ObjectID `json:"object"`
	LeafIndex uint64         `json:"leaf_index"`
	Valid     bool           `json:"valid"`
	Error     string         `json:"error,omitempty"`
}

func verifyCommand(out io.Writer) *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Check a CBOR inclusion proof",
		Usage:   "mtree verify <proof.cbor> [flags]",
		Description: `Verify a proof written by "mtree proof --out". The leaf digest is
folded with the path siblings and the result must equal both the
proof's stored root and the hash in its object id. Neither the object
nor the store is consulted.

With --object, the proof must also be for that object id; otherwise a
valid proof for any tree passes.

Exits 0 for a valid proof and 1 for an invalid one.`,
		Examples: []cli.Example{
			{
				Description: "Verify a proof against the object id you expect",
				Command:     "mtree verify leaf3.cbor --object MTREE:9f2c...",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			params.globalParams.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			flagSet.StringVar(&params.Object, "object", "", "require the proof to be for this object id")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "mtree verify <proof.cbor> [flags]"); err != nil {
				return err
			}
			env, err := params.setup("verify")
			if err != nil {
				return err
			}

			var expected objid.ObjectID
			if params.Object != "" {
				expected, err = objid.Parse(params.Object)
				if err != nil {
					return fmt.Errorf("--object: %w", err)
				}
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading proof: %w", err)
			}
			proof, err := mtree.DecodeProof(data)
			if err != nil {
				return err
			}

			verifyErr := proof.Verify()
			if verifyErr == nil && !expected.IsZero() && !proof.Object.Equal(expected) {
				verifyErr = fmt.Errorf("proof is for %s, not %s", proof.Object, expected)
			}
			result := verifyResult{
				Object:    proof.Object,
				LeafIndex: proof.LeafIndex,
				Valid:     verifyErr == nil,
			}
			if verifyErr != nil {
				result.Error = verifyErr.Error()
				env.logger.Warn("proof rejected", "object", proof.Object.Short(), "leaf", proof.LeafIndex, "error", verifyErr)
			}

			if done, err := params.EmitJSON(out, result); done {
				if err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(out, "OK: leaf %d of %d is in %s\n", proof.LeafIndex, proof.LeafCount, proof.Object)
			} else {
				fmt.Fprintf(out, "FAILED: leaf %d of %s: %s\n", proof.LeafIndex, proof.Object, result.Error)
			}

			if !result.Valid {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
