package planner

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// SecurityAgent decides Allow/Deny for a proposed command against the
// selected nodes' allow-lists as known at registration time. Grounded
// on agents.py's SecurityAgent.authorize, translated from
// raise-PermissionError to a typed SecurityVerdict since spec.md §7
// requires every stage to return a typed decision rather than throw,
// and extended with a backend call per spec.md §4.3.2's "each stage is
// a call to the active LLM backend ... fallback ... produces the
// decision," mirroring RouterAgent/ExecutionAgent/SyncAgent.
type SecurityAgent struct {
	Backend backend.Backend
}

type securityVerdictWire struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

// Authorize returns the security verdict plus whether the deterministic
// fallback was used. The backend may be asked to weigh in, but it is
// never trusted to allow a command the deterministic allow-list check
// would deny — the node remains the ultimate authority per spec.md
// §4.1, so a backend Allow that disagrees with the deterministic check
// is treated as a fallback.
func (s SecurityAgent) Authorize(ctx context.Context, selectedNodeIDs []string, argv []string, reg *registry.Registry) (SecurityVerdict, bool) {
	if len(argv) == 0 {
		return SecurityVerdict{Allow: false, Reason: "empty argv"}, true
	}

	fallback := deterministicSecurityVerdict(selectedNodeIDs, argv, reg)

	if s.Backend == nil {
		return fallback, true
	}

	prompt := "You are the Security Agent inside NACC. Given a proposed command and the allow-lists of the " +
		"selected nodes, decide whether to allow it. Respond as JSON with keys allow (bool) and reason (string)."
	resp, err := s.Backend.Complete(ctx, backend.CompletionRequest{
		Prompt: prompt,
		Context: map[string]any{
			"argv":              argv,
			"selected_node_ids": selectedNodeIDs,
		},
	})
	if err != nil {
		return fallback, true
	}

	var wire securityVerdictWire
	if err := json.Unmarshal([]byte(resp.Text), &wire); err != nil {
		return fallback, true
	}

	if wire.Allow && !fallback.Allow {
		return fallback, true
	}
	reason := wire.Reason
	if reason == "" {
		reason = fallback.Reason
	}
	return SecurityVerdict{Allow: wire.Allow, Reason: reason}, false
}

// deterministicSecurityVerdict implements spec.md §4.3.2's Security
// stage fallback: "deny if argv[0] is absent from the intersection of
// selected nodes' allow-lists, else allow."
func deterministicSecurityVerdict(selectedNodeIDs []string, argv []string, reg *registry.Registry) SecurityVerdict {
	base := filepath.Base(argv[0])

	for _, nodeID := range selectedNodeIDs {
		def, ok := reg.Definition(nodeID)
		if !ok {
			return SecurityVerdict{Allow: false, Reason: "unknown node: " + nodeID}
		}
		if len(def.AllowedCommands) == 0 {
			continue
		}
		if !contains(def.AllowedCommands, base) {
			return SecurityVerdict{Allow: false, Reason: "command '" + base + "' not allowed on node " + nodeID}
		}
	}
	return SecurityVerdict{Allow: true}
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
