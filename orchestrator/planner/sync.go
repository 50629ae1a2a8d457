package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
)

// SyncAgent produces a SyncPlan for a sync request. Grounded on
// agents.py's SyncAgent.plan; the backend call producing a strategy
// recommendation rather than a fixed default is added per spec.md
// §4.3.2's "Sync stage ... per-target strategy selection if the caller
// did not specify one. Fallback: Mirror."
type SyncAgent struct {
	Backend backend.Backend
}

type syncPlanWire struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

func (s SyncAgent) Plan(ctx context.Context, sourceNode string, targets []string, strategyHint string) (SyncPlan, error) {
	if len(targets) == 0 {
		return SyncPlan{}, fmt.Errorf("at least one sync target must be provided")
	}

	if strategyHint != "" {
		return SyncPlan{
			SourceNode:  sourceNode,
			TargetNodes: targets,
			Strategy:    strategyHint,
			Reason:      composeSyncReason(sourceNode, targets, strategyHint),
		}, nil
	}

	fallback := SyncPlan{
		SourceNode:   sourceNode,
		TargetNodes:  targets,
		Strategy:     "Mirror",
		Reason:       composeSyncReason(sourceNode, targets, "Mirror"),
		SyncFallback: true,
	}

	if s.Backend == nil {
		return fallback, nil
	}

	prompt := "You are the Sync Agent inside NACC. Given a source node and target nodes, choose a sync strategy " +
		"(Mirror, Append, or DryRun) and explain briefly. Respond as JSON with keys strategy and reason."
	resp, err := s.Backend.Complete(ctx, backend.CompletionRequest{
		Prompt:  prompt,
		Context: map[string]any{"source_node": sourceNode, "target_nodes": targets},
	})
	if err != nil {
		return fallback, nil
	}

	var wire syncPlanWire
	if err := json.Unmarshal([]byte(resp.Text), &wire); err != nil || wire.Strategy == "" {
		return fallback, nil
	}

	return SyncPlan{
		SourceNode:  sourceNode,
		TargetNodes: targets,
		Strategy:    wire.Strategy,
		Reason:      wire.Reason,
	}, nil
}

func composeSyncReason(sourceNode string, targets []string, strategy string) string {
	return fmt.Sprintf("Syncing from %s to %s via %s", sourceNode, strings.Join(targets, ", "), strategy)
}
