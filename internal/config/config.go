// Package config provides YAML configuration file loading and validation.
// It handles environment variable expansion, default value application,
// and ensures the node endpoint and output destination are usable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatHuman = "human" // Decoded, human-readable metadata document
	FormatRaw   = "raw"   // JSON-RPC envelope with the SCALE hex blob
)

// DefaultPath is where the CLI looks for a config file when none is named.
const DefaultPath = "config/node.yaml"

// Config represents the root configuration structure loaded from YAML.
type Config struct {
	Node    Node    `yaml:"node"`    // Node to query
	Output  Output  `yaml:"output"`  // Where and how the metadata is written
	Logging Logging `yaml:"logging"` // Diagnostic output
}

// Node identifies the Substrate node and how long to wait for it.
type Node struct {
	Endpoint         string        `yaml:"endpoint"`          // ws:// or wss:// URL (supports ${VAR} env expansion)
	Timeout          time.Duration `yaml:"timeout"`           // Deadline for the whole run (0 = none)
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // Websocket handshake deadline (0 = none)
}

// Output describes the files a run writes.
type Output struct {
	Path        string `yaml:"path"`         // Metadata document destination
	Format      string `yaml:"format"`       // "human" or "raw"
	Pretty      bool   `yaml:"pretty"`       // Indent the JSON output
	VersionPath string `yaml:"version_path"` // Optional runtime version destination
}

// Logging configures the logger.
type Logging struct {
	Level string `yaml:"level"` // logrus level name: debug, info, warn, error
}

// Default returns the configuration used when no file is present: the
// local development node and meta.json in the working directory.
func Default() *Config {
	return &Config{
		Node: Node{
			Endpoint:         "ws://127.0.0.1:9944",
			HandshakeTimeout: 10 * time.Second,
		},
		Output: Output{
			Path:   "meta.json",
			Format: FormatHuman,
		},
		Logging: Logging{Level: "info"},
	}
}

// Validate applies defaults to unset optional fields and rejects values a run
// cannot work with.
func (c *Config) Validate() error {
	if c.Output.Format == "" {
		c.Output.Format = FormatHuman
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Node.Endpoint == "" {
		return fmt.Errorf("node.endpoint is required")
	}
	u, err := url.Parse(c.Node.Endpoint)
	if err != nil {
		return fmt.Errorf("node.endpoint: invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("node.endpoint: invalid url (missing scheme or host)")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("node.endpoint: invalid url scheme %q (expected ws or wss)", u.Scheme)
	}
	if c.Node.Timeout < 0 {
		return fmt.Errorf("node.timeout must be >= 0")
	}
	if c.Node.HandshakeTimeout < 0 {
		return fmt.Errorf("node.handshake_timeout must be >= 0")
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.Output.Format != FormatHuman && c.Output.Format != FormatRaw {
		return fmt.Errorf("output.format %q is not supported (expected %s or %s)", c.Output.Format, FormatHuman, FormatRaw)
	}
	if c.Output.VersionPath != "" && c.Output.VersionPath == c.Output.Path {
		return fmt.Errorf("output.version_path must differ from output.path")
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if c.Node.Timeout > 0 && c.Node.Timeout < 500*time.Millisecond {
		fmt.Fprintf(os.Stderr, "Warning: node timeout is very low (%s); large metadata may not arrive in time\n", c.Node.Timeout)
	}

	return nil
}

// Load reads and parses a YAML configuration file on top of Default(),
// expanding environment variables and validating the result.
//
// Parameters:
//   - path: File path to the YAML configuration file
//
// Returns:
//   - *Config: Parsed and validated configuration
//   - error: File read, parse, or validation error. A missing file wraps
//     fs.ErrNotExist.
//
// Environment variable expansion:
//
//	Any value can use ${VAR} syntax, expanded with os.ExpandEnv() before the
//	YAML is parsed. Example: endpoint: ${SUBSTRATE_ENDPOINT}
//
// Keys left out of the file keep their Default() values, so a file holding
// only node.endpoint is complete.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Allows endpoint: ${NODE_ENDPOINT}
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default() when the file does not
// exist and the caller did not ask for it explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		return cfg, cfg.Validate()
	}
	return nil, err
}
