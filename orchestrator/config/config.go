// Package config loads the orchestrator's static TOML configuration:
// node definitions and how to reach them, the active LLM backend, audit
// retention, and the health-probe interval. Grounded on the teacher's
// settings.go and original_source's config.py (OrchestratorConfig,
// NodeDefinition, AgentBackendConfig, AuditConfig).
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/naoina/toml"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// NodeTransportKind selects how the orchestrator reaches a node.
type NodeTransportKind string

const (
	TransportHTTP      NodeTransportKind = "http"
	TransportInProcess NodeTransportKind = "local"
)

// NodeEntry is one [[nodes]] table in the orchestrator's TOML file.
type NodeEntry struct {
	NodeID          string
	DisplayName     string
	Tags            []string
	Priority        int
	AllowedCommands []string
	Transport       string
	BaseURL         string
	AuthToken       string
	RootDir         string
}

// Config is the orchestrator's static configuration, loaded once at
// startup and never mutated afterwards.
type Config struct {
	OrchestratorID   string
	Listen           string
	Nodes            []NodeEntry
	Backend          backend.Spec
	AuditPath        string
	AuditMaxEntries  int
	RefreshInterval  time.Duration
	RedisHost        string
	RedisPassword    string
	Telemetry        TelemetryConfig
	OperatorToken    string

	TLS struct {
		Cert string
		Key  string
	}
}

// TelemetryConfig mirrors the teacher's Settings.Influxdb block.
type TelemetryConfig struct {
	Enabled  bool
	Host     string
	Database string
	User     string
	Password string
	Interval time.Duration
}

// fileConfig mirrors the on-disk TOML shape.
type fileConfig struct {
	Main struct {
		OrchestratorID string
		Listen         string
		RedisHost      string
		RedisPassword  string
		OperatorToken  string
	}
	Nodes []struct {
		NodeID          string
		DisplayName     string
		Tags            []string
		Priority        int
		AllowedCommands []string
		Transport       string
		BaseURL         string
		AuthToken       string
		RootDir         string
	}
	Backend struct {
		Kind             string
		Key              string
		Endpoint         string
		APIKey           string
		Model            string
		SystemText       string
		TimeoutSeconds   float64
		Command          []string
		PoolSize         int
	}
	Audit struct {
		Path       string
		MaxEntries int
	}
	Health struct {
		RefreshIntervalSeconds float64
	}
	Influxdb struct {
		Enabled        bool
		Host           string
		Db             string
		User           string
		Password       string
		IntervalSeconds float64
	}
	TLS struct {
		Cert string
		Key  string
	}
}

// LoadConfigFromTomlFile loads and validates an orchestrator
// configuration file.
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
		return cfg, fmt.Errorf("parsing orchestrator config: %w", err)
	}

	cfg = Config{
		OrchestratorID:  fc.Main.OrchestratorID,
		Listen:          fc.Main.Listen,
		RedisHost:       fc.Main.RedisHost,
		RedisPassword:   fc.Main.RedisPassword,
		OperatorToken:   fc.Main.OperatorToken,
		AuditPath:       fc.Audit.Path,
		AuditMaxEntries: fc.Audit.MaxEntries,
		RefreshInterval: durationOrDefault(fc.Health.RefreshIntervalSeconds, 10*time.Second),
		Backend: backend.Spec{
			Kind: backend.Kind(fc.Backend.Kind),
			Key:  fc.Backend.Key,
			HTTPRemote: backend.HTTPRemoteConfig{
				Key:        fc.Backend.Key,
				Endpoint:   fc.Backend.Endpoint,
				APIKey:     fc.Backend.APIKey,
				Model:      fc.Backend.Model,
				SystemText: fc.Backend.SystemText,
				Timeout:    durationOrDefault(fc.Backend.TimeoutSeconds, 90*time.Second),
			},
			Subprocess: backend.SubprocessConfig{
				Key:      fc.Backend.Key,
				Command:  fc.Backend.Command,
				PoolSize: fc.Backend.PoolSize,
				Timeout:  durationOrDefault(fc.Backend.TimeoutSeconds, 90*time.Second),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:  fc.Influxdb.Enabled,
			Host:     fc.Influxdb.Host,
			Database: fc.Influxdb.Db,
			User:     fc.Influxdb.User,
			Password: fc.Influxdb.Password,
			Interval: durationOrDefault(fc.Influxdb.IntervalSeconds, 30*time.Second),
		},
	}
	cfg.TLS.Cert = fc.TLS.Cert
	cfg.TLS.Key = fc.TLS.Key

	for _, n := range fc.Nodes {
		cfg.Nodes = append(cfg.Nodes, NodeEntry{
			NodeID:          n.NodeID,
			DisplayName:     n.DisplayName,
			Tags:            n.Tags,
			Priority:        n.Priority,
			AllowedCommands: n.AllowedCommands,
			Transport:       n.Transport,
			BaseURL:         n.BaseURL,
			AuthToken:       n.AuthToken,
			RootDir:         n.RootDir,
		})
	}

	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = backend.KindLocalHeuristic
	}
	if cfg.OrchestratorID == "" {
		cfg.OrchestratorID = "nacc-orchestrator"
	}

	return cfg, cfg.Validate()
}

// Validate checks the invariants spec.md §5/§6 require of an
// orchestrator configuration: every node_id must be present and unique.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.NodeID == "" {
			return fmt.Errorf("orchestrator config: a node entry is missing node_id")
		}
		if seen[n.NodeID] {
			return fmt.Errorf("orchestrator config: duplicate node_id %q", n.NodeID)
		}
		seen[n.NodeID] = true

		switch NodeTransportKind(n.Transport) {
		case TransportHTTP:
			if n.BaseURL == "" {
				return fmt.Errorf("orchestrator config: node %q: base_url is required for transport=http", n.NodeID)
			}
		case TransportInProcess:
			if n.RootDir == "" {
				return fmt.Errorf("orchestrator config: node %q: root_dir is required for transport=local", n.NodeID)
			}
		default:
			return fmt.Errorf("orchestrator config: node %q: unknown transport %q", n.NodeID, n.Transport)
		}
	}
	return nil
}

// TLSEnabled reports whether both a certificate and key were
// configured, matching the teacher's Settings.TLSEnabled().
func (c Config) TLSEnabled() bool {
	return c.TLS.Cert != "" && c.TLS.Key != ""
}

// BuildRegistry constructs a registry.Registry from the loaded node
// entries, wiring an HTTPTransport or InProcessTransport per entry's
// declared transport kind.
func (c Config) BuildRegistry(localRoots map[string]registry.Transport) (*registry.Registry, error) {
	defs := make([]registry.NodeDefinition, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		def := registry.NodeDefinition{
			NodeID:          n.NodeID,
			DisplayName:     n.DisplayName,
			Tags:            n.Tags,
			Priority:        n.Priority,
			AllowedCommands: n.AllowedCommands,
		}

		switch NodeTransportKind(n.Transport) {
		case TransportHTTP:
			def.Transport = registry.NewHTTPTransport(n.BaseURL, n.AuthToken)
		case TransportInProcess:
			transport, ok := localRoots[n.NodeID]
			if !ok {
				return nil, fmt.Errorf("orchestrator config: node %q declares transport=local but no in-process transport was supplied", n.NodeID)
			}
			def.Transport = transport
		default:
			return nil, fmt.Errorf("orchestrator config: node %q: unknown transport %q", n.NodeID, n.Transport)
		}

		defs = append(defs, def)
	}
	return registry.NewRegistry(defs), nil
}

func durationOrDefault(seconds float64, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}
