// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the mtree CLI command tree.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ndn/cmd/mtree/cli"
	"github.com/bureau-foundation/ndn/lib/config"
	"github.com/bureau-foundation/ndn/lib/mtree"
	"github.com/bureau-foundation/ndn/lib/objid"
	"github.com/bureau-foundation/ndn/lib/treestore"
	"github.com/bureau-foundation/ndn/lib/version"
)

// Root builds the complete mtree command tree writing results to
// stdout.
func Root() *cli.Command {
	return newRoot(os.Stdout)
}

func newRoot(out io.Writer) *cli.Command {
	return &cli.Command{
		Name: "mtree",
		Description: `mtree: Merkle hash trees for large objects.

Split an object into fixed-size leaves, hash them into a binary tree,
and persist the tree next to the object so that any single leaf can be
proven against the root hash without re-reading the object.

Trees live in a local store addressed by MTREE:<root-hex> object ids,
or in standalone stream files written with "build --out".`,
		Subcommands: []*cli.Command{
			buildCommand(out),
			infoCommand(out),
			proofCommand(out),
			verifyCommand(out),
			checkCommand(out),
			listCommand(out),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(out, "mtree %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Hash a file into the store and print its object id",
				Command:     "mtree build disk.img",
			},
			{
				Description: "Write a portable proof for leaf 17",
				Command:     "mtree proof MTREE:9f2c... 17 --out leaf17.cbor",
			},
			{
				Description: "Verify a proof without access to the object or the store",
				Command:     "mtree verify leaf17.cbor",
			},
		},
	}
}

// globalParams holds the flags every subcommand accepts.
type globalParams struct {
	ConfigPath string
}

// AddFlags registers --config.
func (g *globalParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.ConfigPath, "config", "",
		"path to mtree.yaml (default: $"+config.EnvironmentVariable+", then built-in defaults)")
}

// environment is what a subcommand needs after flag parsing: the
// resolved configuration and a logger scoped to the command.
type environment struct {
	config *config.Config
	logger *slog.Logger
}

// setup resolves the configuration (--config, then MTREE_CONFIG, then
// the defaults), validates it, and builds the logger.
func (g *globalParams) setup(command string) (*environment, error) {
	var cfg *config.Config
	var err error
	switch {
	case g.ConfigPath != "":
		cfg, err = config.LoadFile(g.ConfigPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.ExpandVariables()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cli.NewCommandLogger(cfg.SlogLevel(), cfg.Log.Format).With("command", command)
	return &environment{config: cfg, logger: logger}, nil
}

func (e *environment) openStore() (*treestore.Store, error) {
	return treestore.New(treestore.Config{
		Root:          e.config.Store.Root,
		NodeCacheSize: e.config.Reader.NodeCacheSize,
		Logger:        e.logger,
	})
}

// openedTree is a loaded tree from either the store or a stream file.
type openedTree struct {
	reader *mtree.Reader
	source string
	closer io.Closer
}

func (t *openedTree) Close() error { return t.closer.Close() }

// openTree resolves target as an object id in the store or, when it
// does not parse as one, as the path of a stream file.
func (e *environment) openTree(target string) (*openedTree, error) {
	if id, err := objid.Parse(target); err == nil && id.Type == objid.TypeMerkleTree {
		store, err := e.openStore()
		if err != nil {
			return nil, err
		}
		path, err := store.ObjectPath(id)
		if err != nil {
			return nil, err
		}
		tree, err := store.Open(id)
		if err != nil {
			return nil, err
		}
		return &openedTree{reader: tree.Reader, source: path, closer: tree}, nil
	}

	file, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("%s is neither an object id nor a readable stream file: %w", target, err)
	}
	reader, err := mtree.Load(file, &mtree.LoadOptions{
		NodeCacheSize: e.config.Reader.NodeCacheSize,
		Logger:        e.logger,
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("loading %s: %w", target, err)
	}
	return &openedTree{reader: reader, source: target, closer: file}, nil
}

// formatSize returns a human-readable byte count.
func formatSize(bytes uint64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// requireArgs fails with a usage hint unless args has exactly n
// entries.
func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d\n\nUsage:\n  %s", n, len(args), usage)
	}
	return nil
}
