package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
)

// NodeDefinition is the static configuration of one registered node:
// how to reach it and how to prefer/filter it during planning.
// Grounded on config.py's NodeDefinition dataclass.
type NodeDefinition struct {
	NodeID          string
	DisplayName     string
	Tags            []string
	Priority        int
	AllowedCommands []string
	Transport       Transport
}

// RuntimeState is the last known health snapshot of one node.
// Grounded on nodes.py's NodeStatus dataclass.
type RuntimeState struct {
	NodeID      string
	DisplayName string
	Tags        []string
	Healthy     bool
	LastSeen    time.Time
	Metrics     node.NodeInfo
	Error       string
}

// Registry holds every configured node's definition and last-known
// state behind a single RWMutex, the same read/upgrade-to-write-lock
// idiom as the teacher's agentData: readers (planner stages choosing
// healthy nodes) never block each other, writers (the health loop)
// take an exclusive lock only while updating one entry.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]NodeDefinition
	states      map[string]RuntimeState
	order       []string
	audit       *audit.Logger
}

// NewRegistry builds a Registry from its node definitions, starting
// every node as unhealthy until the first RefreshAll/health loop tick.
func NewRegistry(definitions []NodeDefinition) *Registry {
	r := &Registry{
		definitions: make(map[string]NodeDefinition, len(definitions)),
		states:      make(map[string]RuntimeState, len(definitions)),
	}
	for _, def := range definitions {
		r.definitions[def.NodeID] = def
		r.states[def.NodeID] = RuntimeState{
			NodeID:      def.NodeID,
			DisplayName: def.DisplayName,
			Tags:        def.Tags,
		}
		r.order = append(r.order, def.NodeID)
	}
	return r
}

// SetAuditLogger wires in the audit logger after construction — the
// registry is built and its health loop started before main.go opens
// the audit log, the same post-construction wiring as
// api.Interface.SetScheduler. It also emits one node_register event
// per already-registered node, per spec.md §3's per-action audit
// requirement.
func (r *Registry) SetAuditLogger(logger *audit.Logger) {
	r.mu.Lock()
	r.audit = logger
	order := append([]string(nil), r.order...)
	r.mu.Unlock()

	if logger == nil {
		return
	}
	for _, nodeID := range order {
		logger.Record("system", audit.ActionNodeRegister, nodeID, "", true, "", nil)
	}
}

// Definition returns the static configuration for nodeID.
func (r *Registry) Definition(nodeID string) (NodeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[nodeID]
	return def, ok
}

// Definitions returns every registered node's static configuration, in
// registration order.
func (r *Registry) Definitions() []NodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NodeDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.definitions[id])
	}
	return out
}

// RefreshStatus probes a single node's GetNodeInfo tool and updates its
// runtime state, grounded on nodes.py's NodeRegistry.refresh_status.
func (r *Registry) RefreshStatus(ctx context.Context, nodeID string) RuntimeState {
	r.mu.RLock()
	def, ok := r.definitions[nodeID]
	r.mu.RUnlock()
	if !ok {
		return RuntimeState{NodeID: nodeID, Error: "unknown node_id"}
	}

	err := def.Transport.Healthz(ctx)

	r.mu.Lock()
	state := r.states[nodeID]
	wasHealthy := state.Healthy
	if err != nil {
		state.Healthy = false
		state.Error = err.Error()
	} else {
		state.Healthy = true
		state.Error = ""
		state.LastSeen = time.Now()
	}
	r.states[nodeID] = state
	logger := r.audit
	r.mu.Unlock()

	if logger != nil && wasHealthy != state.Healthy {
		logger.Record("system", audit.ActionHealthTransition, nodeID, "", state.Healthy, state.Error, map[string]any{
			"was_healthy": wasHealthy,
			"now_healthy": state.Healthy,
		})
	}

	return state
}

// RefreshMetrics samples a healthy node's GetNodeInfo (CPU/mem/disk,
// per spec.md §4.1) and stores it on the runtime state, decoupled from
// RefreshStatus's cheap /healthz liveness tick so that metric sampling
// never rides on the 5-second health loop. Callers such as the
// telemetry pusher run this on their own, coarser interval.
func (r *Registry) RefreshMetrics(ctx context.Context, nodeID string) {
	r.mu.RLock()
	def, ok := r.definitions[nodeID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	info, err := def.Transport.GetNodeInfo(ctx)
	if err != nil {
		return
	}

	r.mu.Lock()
	state := r.states[nodeID]
	state.Metrics = info
	r.states[nodeID] = state
	r.mu.Unlock()
}

// RefreshAll probes every registered node and returns the updated
// snapshot, grounded on nodes.py's NodeRegistry.refresh_all.
func (r *Registry) RefreshAll(ctx context.Context) []RuntimeState {
	ids := r.Definitions()
	out := make([]RuntimeState, 0, len(ids))
	for _, def := range ids {
		out = append(out, r.RefreshStatus(ctx, def.NodeID))
	}
	return out
}

// Snapshot returns a defensive copy of every node's current runtime
// state without probing anything, for handlers that just need to read
// the last known status.
func (r *Registry) Snapshot() []RuntimeState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RuntimeState, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.states[id])
	}
	return out
}

// HealthySnapshot returns only the nodes currently marked healthy, the
// planner's required input: it must never route work to a node whose
// last probe failed, which is why this method exists separately from
// Snapshot rather than leaving the filtering to each caller.
func (r *Registry) HealthySnapshot() []RuntimeState {
	all := r.Snapshot()
	healthy := make([]RuntimeState, 0, len(all))
	for _, state := range all {
		if state.Healthy {
			healthy = append(healthy, state)
		}
	}
	return healthy
}

// ChooseNode picks the single best node definition for preferredTags,
// falling back to the full node set if no node carries any of the
// given tags. Ties break on node ID for determinism. Grounded on
// nodes.py's NodeRegistry.choose_node.
func (r *Registry) ChooseNode(preferredTags []string) (NodeDefinition, error) {
	candidates := r.Definitions()
	if len(candidates) == 0 {
		return NodeDefinition{}, fmt.Errorf("no nodes registered")
	}

	if len(preferredTags) > 0 {
		wanted := make(map[string]bool, len(preferredTags))
		for _, tag := range preferredTags {
			wanted[tag] = true
		}
		var filtered []NodeDefinition
		for _, def := range candidates {
			for _, tag := range def.Tags {
				if wanted[tag] {
					filtered = append(filtered, def)
					break
				}
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].NodeID < candidates[j].NodeID
	})
	return candidates[0], nil
}

// HealthLoop runs RefreshAll on a ticker until ctx is cancelled,
// grounded on spec.md §4.2's health-probe-interval design note and the
// teacher's ticker-driven goroutine style elsewhere in the codebase.
func (r *Registry) HealthLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.RefreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}
