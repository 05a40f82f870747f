// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/ndn/lib/mtree"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "MTREE_CONFIG"

// DefaultLeafSize is the leaf chunk size used when the config does not
// set one: 4 MiB.
const DefaultLeafSize = 4 << 20

// Config is the configuration for the tree store and the mtree CLI.
type Config struct {
	// Store configures the on-disk tree store.
	Store StoreConfig `yaml:"store"`

	// Tree configures how new trees are built.
	Tree TreeConfig `yaml:"tree"`

	// Reader configures how persisted trees are served.
	Reader ReaderConfig `yaml:"reader"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
}

// StoreConfig configures the on-disk tree store.
type StoreConfig struct {
	// Root is the store directory. Holds objects/, records/, and tmp/.
	// Default: ~/.cache/ndn/mtree
	Root string `yaml:"root"`
}

// TreeConfig configures tree construction.
type TreeConfig struct {
	// LeafSize is the chunk size in bytes. Default: 4 MiB.
	LeafSize uint64 `yaml:"leaf_size"`

	// HashAlgorithm is "sha256" or "sha512". An empty value writes
	// streams without an algorithm name, which readers treat as
	// sha256. Default: sha256.
	HashAlgorithm string `yaml:"hash_algorithm"`
}

// ReaderConfig configures tree readers.
type ReaderConfig struct {
	// NodeCacheSize is the number of node digests each open tree keeps
	// in its LRU cache. Zero disables caching. Default: 1024.
	NodeCacheSize int `yaml:"node_cache_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info.
	Level string `yaml:"level"`

	// Format is auto, text, or json. Auto picks text when stderr is a
	// terminal and JSON otherwise. Default: auto.
	Format string `yaml:"format"`
}

// Default returns the default configuration. LoadFile starts from
// these values, so a config file only needs to name what it changes.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Root: filepath.Join(homeDir, ".cache", "ndn", "mtree"),
		},
		Tree: TreeConfig{
			LeafSize:      DefaultLeafSize,
			HashAlgorithm: "sha256",
		},
		Reader: ReaderConfig{
			NodeCacheSize: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by MTREE_CONFIG. It
// fails when the variable is unset; there is no search path.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your mtree.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of [Default] and
// expands ${HOME}, ${MTREE_ROOT}, and ${VAR:-default} in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.ExpandVariables()
	return cfg, nil
}

// ExpandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. LoadFile calls it; callers that build a Config by hand call
// it themselves.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Store.Root = expandVars(c.Store.Root, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Root == "" {
		errs = append(errs, fmt.Errorf("store.root is required"))
	}
	if c.Tree.LeafSize == 0 {
		errs = append(errs, fmt.Errorf("tree.leaf_size must be positive"))
	}
	if c.Tree.HashAlgorithm != "" {
		if _, err := mtree.ParseHashMethod(c.Tree.HashAlgorithm); err != nil {
			errs = append(errs, fmt.Errorf("tree.hash_algorithm: %w", err))
		}
	}
	if c.Reader.NodeCacheSize < 0 {
		errs = append(errs, fmt.Errorf("reader.node_cache_size must not be negative"))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel returns Log.Level as a slog.Level. Unknown values map to
// info; Validate reports them.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
