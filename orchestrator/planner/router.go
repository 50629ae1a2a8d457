package planner

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// RouterAgent picks which healthy nodes should handle a request and
// produces a human-readable reason. Grounded on agents.py's
// RouterAgent: the backend call produces the reason text (and,
// here, is also allowed to override the node selection if it returns
// a well-formed list), while _choose_by_metrics is the deterministic
// fallback used whenever the backend can't be trusted.
type RouterAgent struct {
	Backend backend.Backend
}

type routerDecisionWire struct {
	SelectedNodeIDs []string `json:"selected_node_ids"`
	RouterReason    string   `json:"router_reason"`
}

// Select returns the ordered node IDs chosen for the request plus the
// reason text, and whether the deterministic fallback had to be used.
func (r RouterAgent) Select(ctx context.Context, candidates []registry.RuntimeState, requiredTags []string, parallelism int) ([]string, string, bool) {
	if parallelism < 1 {
		parallelism = 1
	}

	healthy := make([]registry.RuntimeState, 0, len(candidates))
	for _, c := range candidates {
		if c.Healthy {
			healthy = append(healthy, c)
		}
	}

	pool := filterByTags(healthy, requiredTags)
	if len(pool) == 0 {
		pool = healthy
	}

	fallbackSelected := rankByLoad(pool, parallelism)
	fallbackIDs := nodeIDs(fallbackSelected)
	fallbackReason := composeFallbackReason(fallbackIDs)

	if r.Backend == nil {
		return fallbackIDs, fallbackReason, true
	}

	promptCtx := map[string]any{
		"candidates":    describeStates(healthy),
		"required_tags": requiredTags,
		"parallelism":   parallelism,
	}
	prompt := "You are the Router Agent inside NACC. Given node telemetry and a task description, " +
		"pick an ordered subset of node_ids and explain in one concise sentence why they are a good fit. " +
		"Respond as JSON with keys selected_node_ids (array of strings) and router_reason (string)."

	resp, err := r.Backend.Complete(ctx, backend.CompletionRequest{Prompt: prompt, Context: promptCtx})
	if err != nil {
		return fallbackIDs, fallbackReason, true
	}

	var decision routerDecisionWire
	if err := json.Unmarshal([]byte(resp.Text), &decision); err != nil || len(decision.SelectedNodeIDs) == 0 {
		return fallbackIDs, fallbackReason, true
	}

	validated := validateAgainstHealthy(decision.SelectedNodeIDs, healthy)
	if len(validated) == 0 {
		return fallbackIDs, fallbackReason, true
	}
	reason := decision.RouterReason
	if reason == "" {
		reason = fallbackReason
	}
	return validated, reason, false
}

func filterByTags(states []registry.RuntimeState, requiredTags []string) []registry.RuntimeState {
	if len(requiredTags) == 0 {
		return states
	}
	wanted := make(map[string]bool, len(requiredTags))
	for _, t := range requiredTags {
		wanted[t] = true
	}
	var out []registry.RuntimeState
	for _, s := range states {
		for _, t := range s.Tags {
			if wanted[t] {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// rankByLoad scores candidates by (cpu_percent + memory_percent) / 2
// ascending (lower load first) and returns the top-k, grounded on
// spec.md §4.3.2's Router fallback heuristic.
func rankByLoad(states []registry.RuntimeState, k int) []registry.RuntimeState {
	sorted := make([]registry.RuntimeState, len(states))
	copy(sorted, states)
	sort.SliceStable(sorted, func(i, j int) bool {
		li := (sorted[i].Metrics.CPUPercent + sorted[i].Metrics.MemoryPercent) / 2
		lj := (sorted[j].Metrics.CPUPercent + sorted[j].Metrics.MemoryPercent) / 2
		return li < lj
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

func nodeIDs(states []registry.RuntimeState) []string {
	ids := make([]string, len(states))
	for i, s := range states {
		ids[i] = s.NodeID
	}
	return ids
}

func composeFallbackReason(ids []string) string {
	return "Selected " + strings.Join(ids, ", ") + " based on lowest combined CPU/memory load"
}

func describeStates(states []registry.RuntimeState) []map[string]any {
	out := make([]map[string]any, len(states))
	for i, s := range states {
		out[i] = map[string]any{
			"node_id":        s.NodeID,
			"tags":           s.Tags,
			"cpu_percent":    s.Metrics.CPUPercent,
			"memory_percent": s.Metrics.MemoryPercent,
		}
	}
	return out
}

// validateAgainstHealthy keeps only the backend-proposed node IDs that
// are actually in the healthy snapshot, preserving the backend's
// ordering and rejecting duplicates, per spec.md §3's ExecutionPlan
// invariant.
func validateAgainstHealthy(proposed []string, healthy []registry.RuntimeState) []string {
	allowed := make(map[string]bool, len(healthy))
	for _, s := range healthy {
		allowed[s.NodeID] = true
	}
	seen := make(map[string]bool, len(proposed))
	var out []string
	for _, id := range proposed {
		if allowed[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
