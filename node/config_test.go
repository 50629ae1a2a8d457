package node

import (
	"io/ioutil"
	"os"
	"testing"
)

func writeTempNodeConfig(t *testing.T, body string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "nacc-node-*.toml")
	if err != nil {
		t.Fatalf("TempFile failed: %v", err)
	}
	if _, err := f.WriteString(body); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadConfigFromTomlFile(t *testing.T) {
	root := t.TempDir()
	path := writeTempNodeConfig(t, `
[Main]
NodeID = "node-a"
RootDir = "`+root+`"
Listen = "127.0.0.1:8080"

[Commands]
Allowed = ["echo", "ls"]
`)

	cfg, err := LoadConfigFromTomlFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromTomlFile failed: %v", err)
	}
	if cfg.NodeID != "node-a" {
		t.Errorf("expected node_id to be loaded, got %q", cfg.NodeID)
	}
	if cfg.RootDir != root {
		t.Errorf("expected root_dir to be loaded, got %q", cfg.RootDir)
	}
	if len(cfg.AllowedCommands) != 2 || cfg.AllowedCommands[0] != "echo" {
		t.Errorf("expected allowed commands to be loaded, got %v", cfg.AllowedCommands)
	}
}

func TestLoadConfigFromTomlFileRejectsMissingRootDir(t *testing.T) {
	path := writeTempNodeConfig(t, `
[Main]
NodeID = "node-a"
RootDir = "/does/not/exist"
`)

	if _, err := LoadConfigFromTomlFile(path); err == nil {
		t.Error("expected an error for a nonexistent root_dir")
	}
}

func TestLoadConfigFromTomlFileRejectsRelativeRootDir(t *testing.T) {
	path := writeTempNodeConfig(t, `
[Main]
NodeID = "node-a"
RootDir = "relative/path"
`)

	if _, err := LoadConfigFromTomlFile(path); err == nil {
		t.Error("expected an error for a relative root_dir")
	}
}

func TestTLSEnabledRequiresBothCertAndKey(t *testing.T) {
	var cfg Config
	if cfg.TLSEnabled() {
		t.Error("empty config should not have TLS enabled")
	}
	cfg.TLS.Cert = "/path/to/cert"
	if cfg.TLSEnabled() {
		t.Error("a cert without a key should not enable TLS")
	}
	cfg.TLS.Key = "/path/to/key"
	if !cfg.TLSEnabled() {
		t.Error("both cert and key should enable TLS")
	}
}

func TestAllowedCommandSetBuildsLookupTable(t *testing.T) {
	cfg := Config{AllowedCommands: []string{"echo", "ls"}}
	set := cfg.AllowedCommandSet()
	if !set["echo"] || !set["ls"] {
		t.Error("expected allowed commands to be present in the lookup set")
	}
	if set["rm"] {
		t.Error("expected an unlisted command to be absent from the lookup set")
	}
}
