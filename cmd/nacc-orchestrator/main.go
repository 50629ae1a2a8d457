// Command nacc-orchestrator runs the node registry, the four-stage
// agent planner, and the Orchestrator HTTP API. Grounded on the
// teacher's main.go flag parsing (-h/-c) and TOML-config-then-gin-Run
// startup shape, generalized to wire the additional orchestrator-side
// components (registry health loop, audit logger + redis mirror,
// backend manager, scheduler, telemetry pusher) the node binary doesn't
// need.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/garyburd/redigo/redis"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/api"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/config"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/schedule"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/telemetry"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
)

func newRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:   80,
		MaxActive: 12000,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
}

// buildLocalTransports constructs an in-process node.RootContext for
// every node entry declared with transport=local, for orchestrators
// co-located with one of their own nodes.
func buildLocalTransports(entries []config.NodeEntry) map[string]registry.Transport {
	locals := make(map[string]registry.Transport)
	for _, n := range entries {
		if config.NodeTransportKind(n.Transport) != config.TransportInProcess {
			continue
		}
		nodeCfg := node.Config{
			NodeID:          n.NodeID,
			RootDir:         n.RootDir,
			AllowedCommands: n.AllowedCommands,
			Tags:            n.Tags,
		}
		locals[n.NodeID] = registry.NewInProcessTransport(node.NewRootContext(nodeCfg))
	}
	return locals
}

func main() {
	var cfgPath string
	var help bool

	flag.BoolVar(&help, "h", false, "Print this help screen")
	flag.StringVar(&cfgPath, "c", "", "Path to config file")
	flag.Parse()

	if help {
		fmt.Println("nacc-orchestrator [options]")
		flag.PrintDefaults()
		return
	}

	if cfgPath == "" {
		fmt.Println("Missing required option -c")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfigFromTomlFile(cfgPath)
	if err != nil {
		fmt.Println("[-] failed to load config:", err)
		os.Exit(1)
	}

	fmt.Printf("[+] orchestrator_id: <%s>\n", cfg.OrchestratorID)
	fmt.Printf("[+] webservice: <%s>\n", cfg.Listen)
	fmt.Printf("[+] nodes configured: %d\n", len(cfg.Nodes))

	reg, err := cfg.BuildRegistry(buildLocalTransports(cfg.Nodes))
	if err != nil {
		fmt.Println("[-] failed to build registry:", err)
		os.Exit(1)
	}

	auditLogger, err := audit.NewLogger(cfg.AuditPath, cfg.AuditMaxEntries)
	if err != nil {
		fmt.Println("[-] failed to open audit log:", err)
		os.Exit(1)
	}
	defer auditLogger.Close()

	var pool *redis.Pool
	if cfg.RedisHost != "" {
		pool = newRedisPool(cfg.RedisHost)
		auditLogger.SetMirror(audit.NewRedisMirror(pool, "audit.events"))
	}

	reg.SetAuditLogger(auditLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.HealthLoop(ctx, cfg.RefreshInterval)

	backends := backend.NewManager()
	if cfg.Backend.Kind != backend.KindLocalHeuristic {
		if err := backends.Switch(ctx, cfg.Backend); err != nil {
			fmt.Println("[-] failed to switch to configured backend, staying on local-heuristic:", err)
		}
	}

	suite := planner.NewSuite(reg, auditLogger, backends)
	apiInterface := api.NewInterface(reg, suite, auditLogger, cfg.OperatorToken)

	if pool != nil {
		scheduler := schedule.NewScheduler(pool, apiInterface)
		apiInterface.SetScheduler(scheduler)
		defer scheduler.Stop()
	}

	if cfg.Telemetry.Enabled {
		pusher, err := telemetry.NewPusher(telemetry.Config{
			Host: cfg.Telemetry.Host, Database: cfg.Telemetry.Database,
			User: cfg.Telemetry.User, Password: cfg.Telemetry.Password,
		}, reg)
		if err != nil {
			fmt.Println("[-] failed to configure telemetry, continuing without it:", err)
		} else {
			go pusher.Run(ctx, cfg.Telemetry.Interval)
		}
	}

	if cfg.TLSEnabled() {
		httpServer := &http.Server{Addr: cfg.Listen, Handler: apiInterface.Router()}
		if err := node.ConfigureTLS(httpServer, cfg.TLS.Cert, cfg.TLS.Key, nil); err != nil {
			fmt.Println("[-] failed to configure TLS:", err)
			os.Exit(1)
		}
		if err := httpServer.ListenAndServeTLS("", ""); err != nil {
			fmt.Println("[-] server exited:", err)
			os.Exit(1)
		}
		return
	}

	if err := apiInterface.Router().Run(cfg.Listen); err != nil {
		fmt.Println("[-] server exited:", err)
		os.Exit(1)
	}
}
