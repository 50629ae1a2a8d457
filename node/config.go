// Package node implements the sandboxed per-machine tool server: path
// confinement, command allow-listing, and the six tool endpoints.
package node

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/naoina/toml"
)

// Config is the node's static configuration, loaded once at startup from
// a TOML file and never mutated afterwards.
type Config struct {
	NodeID          string
	RootDir         string
	AllowedCommands []string
	SyncTargets     map[string]string
	Tags            []string
	Description     string
	Listen          string

	TLS struct {
		Cert string
		Key  string
	}
}

// fileConfig mirrors the on-disk TOML shape; field names follow the
// teacher's settings.go capitalization convention.
type fileConfig struct {
	Main struct {
		NodeID      string
		RootDir     string
		Listen      string
		Description string
	}
	Commands struct {
		Allowed []string
	}
	Sync struct {
		Targets map[string]string
	}
	Tags struct {
		Values []string
	}
	TLS struct {
		Cert string
		Key  string
	}
}

// LoadConfigFromTomlFile loads and validates a node configuration file.
func LoadConfigFromTomlFile(filename string) (Config, error) {
	var fc fileConfig
	var cfg Config

	f, err := os.Open(filename)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	buf, err := ioutil.ReadAll(f)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(buf, &fc); err != nil {
		return cfg, fmt.Errorf("parsing node config: %w", err)
	}

	cfg = Config{
		NodeID:          fc.Main.NodeID,
		RootDir:         fc.Main.RootDir,
		AllowedCommands: fc.Commands.Allowed,
		SyncTargets:     fc.Sync.Targets,
		Tags:            fc.Tags.Values,
		Description:     fc.Main.Description,
		Listen:          fc.Main.Listen,
	}
	cfg.TLS.Cert = fc.TLS.Cert
	cfg.TLS.Key = fc.TLS.Key

	return cfg, cfg.Validate()
}

// Validate checks the invariants §3/§6 of the spec require of a node
// configuration before it is used to serve traffic.
func (c Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node config: node_id must not be empty")
	}
	if c.RootDir == "" {
		return fmt.Errorf("node config: root_dir must not be empty")
	}
	if !filepath.IsAbs(c.RootDir) {
		return fmt.Errorf("node config: root_dir must be absolute, got %q", c.RootDir)
	}
	info, err := os.Stat(c.RootDir)
	if err != nil {
		return fmt.Errorf("node config: root_dir %q: %w", c.RootDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("node config: root_dir %q is not a directory", c.RootDir)
	}
	return nil
}

// TLSEnabled reports whether both a certificate and a key were
// configured, matching the teacher's Settings.TLSEnabled() method.
func (c Config) TLSEnabled() bool {
	return c.TLS.Cert != "" && c.TLS.Key != ""
}

// AllowedCommandSet returns the allow-list as a lookup set.
func (c Config) AllowedCommandSet() map[string]bool {
	set := make(map[string]bool, len(c.AllowedCommands))
	for _, name := range c.AllowedCommands {
		set[name] = true
	}
	return set
}
