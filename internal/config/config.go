// Package config loads picgraph.toml and merges it with command-line libraries.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the working directory when no --config is given.
const DefaultFileName = "picgraph.toml"

// ErrInvalidLibrary is returned for a library entry that cannot be used.
var ErrInvalidLibrary = errors.New("invalid library")

// Library is one [[library]] entry. Relative paths are taken relative to the
// config file's directory.
type Library struct {
	Prefix string `toml:"prefix"`
	Path   string `toml:"path"`
}

// Config is the on-disk configuration. Library order is resolution priority.
type Config struct {
	Libraries  []Library `toml:"library"`
	Exclude    []string  `toml:"exclude"`
	BasePrefix string    `toml:"base_prefix"`
	Workers    int       `toml:"workers"`
}

// Load reads and decodes a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, lib := range cfg.Libraries {
		if lib.Path != "" && !filepath.IsAbs(lib.Path) {
			cfg.Libraries[i].Path = filepath.Join(dir, lib.Path)
		}
	}
	return cfg, nil
}

// LoadOptional loads path when given. Otherwise it loads DefaultFileName from
// dir if present and returns an empty config if not.
func LoadOptional(path, dir string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	candidate := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(candidate); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to inspect %s: %w", candidate, err)
	}
	return Load(candidate)
}

// ParseLibrary parses a "prefix=path" argument. A bare path uses its base
// name as the prefix.
func ParseLibrary(arg string) (Library, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Library{}, fmt.Errorf("%w: empty argument", ErrInvalidLibrary)
	}
	if prefix, path, ok := strings.Cut(arg, "="); ok {
		prefix = strings.TrimSpace(prefix)
		path = strings.TrimSpace(path)
		if path == "" {
			return Library{}, fmt.Errorf("%w: %q has no path", ErrInvalidLibrary, arg)
		}
		return Library{Prefix: prefix, Path: path}, nil
	}
	base := filepath.Base(filepath.Clean(arg))
	if base == "." || base == string(filepath.Separator) {
		if abs, err := filepath.Abs(arg); err == nil {
			base = filepath.Base(abs)
		}
	}
	return Library{Prefix: base, Path: arg}, nil
}

// AddLibraries appends command-line libraries after the configured ones.
func (c *Config) AddLibraries(args []string) error {
	for _, arg := range args {
		lib, err := ParseLibrary(arg)
		if err != nil {
			return err
		}
		c.Libraries = append(c.Libraries, lib)
	}
	return nil
}

// Validate checks that every library has a path and a unique prefix. An empty
// prefix is allowed for a single library whose modules are unprefixed.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Libraries))
	for _, lib := range c.Libraries {
		if strings.TrimSpace(lib.Path) == "" {
			return fmt.Errorf("%w: prefix %q has no path", ErrInvalidLibrary, lib.Prefix)
		}
		if strings.ContainsAny(lib.Prefix, " \t/\\") {
			return fmt.Errorf("%w: prefix %q is not a dotted name", ErrInvalidLibrary, lib.Prefix)
		}
		if seen[lib.Prefix] {
			return fmt.Errorf("%w: duplicate prefix %q", ErrInvalidLibrary, lib.Prefix)
		}
		seen[lib.Prefix] = true
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
