// Package config loads syncgen.hcl.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"runtime"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// DefaultFile is the config file looked up in the app root.
const DefaultFile = "syncgen.hcl"

// Config is the root configuration of a sync/generate run.
// All directories are slash-separated and relative to the app root,
// which is the root of the filesystem every component works on.
type Config struct {
	// APIDir is the API project directory; tracked artifacts live below it.
	APIDir string `hcl:"api_dir,optional"`
	// SourceDir holds entity definitions and hand-written sources, relative to APIDir.
	SourceDir string `hcl:"source_dir,optional"`
	// CompiledDir holds compiled model outputs, relative to APIDir.
	CompiledDir string `hcl:"compiled_dir,optional"`
	// ChecksumFile is the checksum store location, relative to APIDir.
	ChecksumFile string `hcl:"checksum_file,optional"`
	// Store selects the checksum store backend: "json" (default) or "sqlite".
	Store string `hcl:"store,optional"`
	// Targets are the build targets receiving generated and synced files.
	Targets []string `hcl:"targets,optional"`
	// Concurrency bounds per-file fan-out. Zero means GOMAXPROCS.
	Concurrency int `hcl:"concurrency,optional"`
	// SharedModules maps import keys that do not belong to an entity to the
	// module they are imported from, e.g. SQLDateTimeString = "sonamu".
	SharedModules map[string]string `hcl:"shared_modules,optional"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.APIDir == "" {
		c.APIDir = "api"
	}
	if c.SourceDir == "" {
		c.SourceDir = "src/application"
	}
	if c.CompiledDir == "" {
		c.CompiledDir = "dist/application"
	}
	if c.ChecksumFile == "" {
		c.ChecksumFile = ".sync-checksum"
	}
	if c.Store == "" {
		c.Store = "json"
	}
	if len(c.Targets) == 0 {
		c.Targets = []string{"web"}
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	if c.SharedModules == nil {
		c.SharedModules = map[string]string{}
	}
	for k, v := range defaultSharedModules {
		if _, ok := c.SharedModules[k]; !ok {
			c.SharedModules[k] = v
		}
	}
}

var defaultSharedModules = map[string]string{
	"ListResult":        "sonamu",
	"SQLDateTimeString": "sonamu",
	"zArrayable":        "sonamu",
	"EnumsLabelKo":      "sonamu",
}

// Load reads the config file at filename. A missing file yields Default().
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}
	var c Config
	if err := hclsimple.DecodeFile(filename, nil, &c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", filename, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Parse decodes configuration from src. filename is used for diagnostics
// and must end in .hcl.
func Parse(filename string, src []byte) (*Config, error) {
	var c Config
	if err := hclsimple.Decode(filename, src, nil, &c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", filename, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Store {
	case "json", "sqlite":
	default:
		return fmt.Errorf("config: unknown store %q (want json or sqlite)", c.Store)
	}
	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t == "" || t == c.APIDir {
			return fmt.Errorf("config: invalid target %q", t)
		}
		if seen[t] {
			return fmt.Errorf("config: duplicate target %q", t)
		}
		seen[t] = true
	}
	return nil
}

// SourceRoot is the entity/source tree, relative to the app root.
func (c *Config) SourceRoot() string { return path.Join(c.APIDir, c.SourceDir) }

// CompiledRoot is the compiled output tree, relative to the app root.
func (c *Config) CompiledRoot() string { return path.Join(c.APIDir, c.CompiledDir) }

// ChecksumPath is the checksum store location, relative to the app root.
func (c *Config) ChecksumPath() string { return path.Join(c.APIDir, c.ChecksumFile) }
