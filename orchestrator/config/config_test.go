package config

import (
	"io/ioutil"
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "nacc-orchestrator-*.toml")
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

func TestLoadConfigParsesNodesAndDefaults(t *testing.T) {
	path := writeTempConfig(t, `
[Main]
OrchestratorID = "nacc-test"
Listen = "127.0.0.1:9000"

[[Nodes]]
NodeID = "alpha"
Transport = "http"
BaseURL = "http://alpha.local:8080"

[[Nodes]]
NodeID = "beta"
Transport = "local"
RootDir = "/var/nacc/beta"
`)

	cfg, err := LoadConfigFromTomlFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromTomlFile failed: %v", err)
	}
	if cfg.OrchestratorID != "nacc-test" {
		t.Errorf("expected orchestrator_id to be loaded, got %q", cfg.OrchestratorID)
	}
	if len(cfg.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(cfg.Nodes))
	}
	if cfg.RefreshInterval.Seconds() != 10 {
		t.Errorf("expected default refresh interval of 10s, got %v", cfg.RefreshInterval)
	}
	if string(cfg.Backend.Kind) != "local-heuristic" {
		t.Errorf("expected default backend kind local-heuristic, got %q", cfg.Backend.Kind)
	}
}

func TestLoadConfigRejectsDuplicateNodeID(t *testing.T) {
	path := writeTempConfig(t, `
[[Nodes]]
NodeID = "alpha"
Transport = "http"
BaseURL = "http://alpha.local:8080"

[[Nodes]]
NodeID = "alpha"
Transport = "http"
BaseURL = "http://alpha2.local:8080"
`)

	if _, err := LoadConfigFromTomlFile(path); err == nil {
		t.Error("expected an error for a duplicate node_id")
	}
}

func TestLoadConfigRejectsHTTPNodeMissingBaseURL(t *testing.T) {
	path := writeTempConfig(t, `
[[Nodes]]
NodeID = "alpha"
Transport = "http"
`)

	if _, err := LoadConfigFromTomlFile(path); err == nil {
		t.Error("expected an error for an http node missing base_url")
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

func TestBuildRegistryWiresHTTPAndInProcessTransports(t *testing.T) {
	cfg := Config{Nodes: []NodeEntry{
		{NodeID: "alpha", Transport: "http", BaseURL: "http://alpha.local:8080"},
		{NodeID: "beta", Transport: "local", RootDir: "/var/nacc/beta"},
	}}

	reg, err := cfg.BuildRegistry(nil)
	if err == nil {
		t.Fatal("expected an error since no in-process transport was supplied for 'beta'")
	}
	if reg != nil {
		t.Error("expected a nil registry on error")
	}
}
