// Package config handles nbrain.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file nbrain looks for.
const FileName = "nbrain.toml"

// DefaultTapeSize is the conventional 30,000-cell tape.
const DefaultTapeSize = 30000

// Config represents an nbrain.toml file.
type Config struct {
	Interpreter Interpreter `toml:"interpreter"`
	Source      Source      `toml:"source"`

	// Dir is the directory containing the nbrain.toml file (set at load time).
	Dir string `toml:"-"`
}

// Interpreter configures the execution pipeline. Optimize and Compress
// are pointers so that an absent key can default to enabled.
type Interpreter struct {
	TapeSize int   `toml:"tape-size"`
	Optimize *bool `toml:"optimize"`
	Compress *bool `toml:"compress"`
}

// Source configures source file handling.
type Source struct {
	Extensions []string `toml:"extensions"`
}

// Default returns the configuration used when no nbrain.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Interpreter.TapeSize == 0 {
		c.Interpreter.TapeSize = DefaultTapeSize
	}
	if len(c.Source.Extensions) == 0 {
		c.Source.Extensions = []string{".bf", ".b"}
	}
}

// OptimizeEnabled reports whether the textual optimizer should run.
func (c *Config) OptimizeEnabled() bool {
	return c.Interpreter.Optimize == nil || *c.Interpreter.Optimize
}

// CompressEnabled reports whether parsing should run-length compress.
func (c *Config) CompressEnabled() bool {
	return c.Interpreter.Compress == nil || *c.Interpreter.Compress
}

// AllowsExtension reports whether ext is an accepted source extension.
func (c *Config) AllowsExtension(ext string) bool {
	for _, e := range c.Source.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Load parses an nbrain.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Interpreter.TapeSize < 0 {
		return nil, fmt.Errorf("%s: tape-size must be positive", path)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find an nbrain.toml file, then
// loads and returns it. Returns nil if no configuration is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", startDir, err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
