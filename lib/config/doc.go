// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the tree
// store and the mtree command.
//
// Configuration is loaded from a single file named either by the
// MTREE_CONFIG environment variable (via [Load]) or by a --config flag
// (via [LoadFile]). There is no search path and no per-field
// environment override. A file only needs the keys it changes; the
// rest come from [Default]:
//
//	store:
//	  root: ${HOME}/.cache/ndn/mtree
//	tree:
//	  leaf_size: 4194304
//	  hash_algorithm: sha256
//	reader:
//	  node_cache_size: 1024
//	log:
//	  level: info
//	  format: auto
//
// ${HOME} and ${VAR:-default} patterns are expanded in store.root.
//
// Key exports:
//
//   - [Config] -- master struct with Store, Tree, Reader, Log
//   - [Default] -- a Config that works without a file
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every problem with errors.Join
package config
