// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
)

type buildParams struct {
	globalParams
	cli.JSONOutput
	LeafSize      uint64
	HashAlgorithm string
	Out           string
}

// buildResult is the --json output of build.
type buildResult struct {
	Object     objid.ObjectID `json:"object"`
	Metadata   mtree.Metadata `json:"metadata"`
	LeafCount  uint64         `json:"leaf_count"`
	Depth      uint32         `json:"depth"`
	StreamSize int64          `json:"stream_size"`
	Path       string         `json:"path"`
}

func buildCommand(out io.Writer) *cli.Command {
	var params buildParams

	return &cli.Command{
		Name:    "build",
		Summary: "Hash a file into a Merkle tree",
		Usage:   "mtree build <file> [flags]",
		Description: `Hash a file in fixed-size leaves and persist the resulting tree.

By default the tree is committed to the store and the object id
(MTREE:<root-hex>) is printed to stdout. Building the same file twice
with the same leaf size and algorithm yields the same id and stores
the tree once.

With --out, the tree stream is written to the named file instead and
the store is not touched. The stream is self-describing: "mtree info"
and "mtree proof" accept its path in place of an object id.

Leaf size and hash algorithm default to tree.leaf_size and
tree.hash_algorithm from the configuration.`,
		Examples: []cli.Example{
			{
				Description: "Hash into the store with the configured defaults",
				Command:     "mtree build disk.img",
			},
			{
				Description: "Use 1 MiB leaves and SHA-512",
				Command:     "mtree build disk.img --leaf-size 1048576 --hash sha512",
			},
			{
				Description: "Write a standalone stream file",
				Command:     "mtree build disk.img --out disk.img.mtree",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			params.globalParams.AddFlags(flagSet)
			params.JSONOutput.AddFlags(flagSet)
			flagSet.Uint64Var(&params.LeafSize, "leaf-size", 0, "leaf chunk size in bytes (default: tree.leaf_size)")
			flagSet.StringVar(&params.HashAlgorithm, "hash", "", "hash algorithm: sha256 or sha512 (default: tree.hash_algorithm)")
			flagSet.StringVarP(&params.Out, "out", "o", "", "write the tree stream to `path` instead of the store")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "mtree build <file> [flags]"); err != nil {
				return err
			}
			env, err := params.setup("build")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			result, err := runBuild(ctx, env, &params, args[0])
			if err != nil {
				return err
			}
			env.logger.Info("tree built",
				"object", result.Object.Short(),
				"leaves", result.LeafCount,
				"depth", result.Depth,
				"path", result.Path,
			)

			if done, err := params.EmitJSON(out, result); done {
				return err
			}
			fmt.Fprintln(out, result.Object)
			return nil
		},
	}
}

func runBuild(ctx context.Context, env *environment, params *buildParams, path string) (*buildResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	leafSize := params.LeafSize
	if leafSize == 0 {
		leafSize = env.config.Tree.LeafSize
	}
	hashAlgorithm := params.HashAlgorithm
	if hashAlgorithm == "" {
		hashAlgorithm = env.config.Tree.HashAlgorithm
	}
	metadata, err := mtree.NewMetadata(uint64(info.Size()), leafSize, hashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if params.Out != "" {
		return buildToFile(ctx, file, metadata, params.Out)
	}

	store, err := env.openStore()
	if err != nil {
		return nil, err
	}
	record, err := store.Ingest(ctx, file, metadata)
	if err != nil {
		return nil, err
	}
	objectPath, err := store.ObjectPath(record.Object)
	if err != nil {
		return nil, err
	}
	return &buildResult{
		Object:     record.Object,
		Metadata:   record.Metadata,
		LeafCount:  record.LeafCount,
		Depth:      record.Depth,
		StreamSize: record.StreamSize,
		Path:       objectPath,
	}, nil
}

// buildToFile writes the stream to outPath, removing the file again
// if the build fails.
func buildToFile(ctx context.Context, data io.Reader, metadata mtree.Metadata, outPath string) (result *buildResult, err error) {
	sink, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer func() {
		if err != nil {
			sink.Close()
			os.Remove(outPath)
		}
	}()

	writer, err := mtree.WriteObject(ctx, sink, data, metadata)
	if err != nil {
		return nil, err
	}
	id, err := writer.ObjectID()
	if err != nil {
		return nil, err
	}
	size, err := sink.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measuring %s: %w", outPath, err)
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", outPath, err)
	}

	return &buildResult{
		Object:     id,
		Metadata:   metadata,
		LeafCount:  metadata.LeafCount(),
		Depth:      mtree.TreeDepth(metadata.LeafCount()),
		StreamSize: size,
		Path:       outPath,
	}, nil
}
