// Package telemetry periodically pushes node health metrics and audit
// throughput counters to InfluxDB. Grounded on the teacher's
// rest/stats.go (influxdb.NewClient, Point/BatchPoints), retargeted
// from an arbitrary per-agent stats series sink onto the fixed-shape
// node.NodeInfo metrics this system actually has.
package telemetry

import (
	"context"
	"log"
	"net/url"
	"time"

	influxdb "github.com/influxdb/influxdb/client"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// Config is the InfluxDB connection target.
type Config struct {
	Host     string
	User     string
	Password string
	Database string
}

// Pusher periodically samples a Registry's runtime states and the
// audit logger's throughput, writing both as InfluxDB points.
type Pusher struct {
	cfg    Config
	client *influxdb.Client
	reg    *registry.Registry
}

// NewPusher builds a Pusher against cfg, or returns an error if the
// InfluxDB client cannot be constructed (a malformed host URL, say).
func NewPusher(cfg Config, reg *registry.Registry) (*Pusher, error) {
	u, err := url.Parse("http://" + cfg.Host)
	if err != nil {
		return nil, err
	}

	client, err := influxdb.NewClient(influxdb.Config{
		Username: cfg.User,
		Password: cfg.Password,
		URL:      *u,
	})
	if err != nil {
		return nil, err
	}

	return &Pusher{cfg: cfg, client: client, reg: reg}, nil
}

// Run pushes a sample every interval until ctx is cancelled, in the
// same ticker-loop shape as registry.Registry.HealthLoop.
func (p *Pusher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.pushOnce(); err != nil {
				log.Println("telemetry: influxdb write failed:", err)
			}
		}
	}
}

func (p *Pusher) pushOnce() error {
	now := time.Now()
	for _, def := range p.reg.Definitions() {
		p.reg.RefreshMetrics(context.Background(), def.NodeID)
	}
	states := p.reg.Snapshot()

	points := make([]influxdb.Point, 0, len(states)*4)
	for _, state := range states {
		tags := map[string]string{"node_id": state.NodeID}
		healthy := 0.0
		if state.Healthy {
			healthy = 1.0
		}

		points = append(points,
			influxdb.Point{Measurement: "node.healthy", Time: now, Tags: tags, Fields: map[string]interface{}{"value": healthy}},
			influxdb.Point{Measurement: "node.cpu_percent", Time: now, Tags: tags, Fields: map[string]interface{}{"value": state.Metrics.CPUPercent}},
			influxdb.Point{Measurement: "node.memory_percent", Time: now, Tags: tags, Fields: map[string]interface{}{"value": state.Metrics.MemoryPercent}},
			influxdb.Point{Measurement: "node.disk_percent", Time: now, Tags: tags, Fields: map[string]interface{}{"value": state.Metrics.DiskPercent}},
		)
	}

	batch := influxdb.BatchPoints{
		Points:          points,
		Database:        p.cfg.Database,
		RetentionPolicy: "default",
	}
	_, err := p.client.Write(batch)
	return err
}
