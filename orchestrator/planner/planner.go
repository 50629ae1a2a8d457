package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// Suite wires the four stages together behind the operations the
// orchestrator's HTTP API calls, grounded on agents.py's AgentSuite.
type Suite struct {
	Registry *registry.Registry
	Audit    *audit.Logger
	Backends *backend.Manager
}

// NewSuite builds a Suite whose stages read the active backend
// through Backends at call time, per spec.md §4.2's "in-flight calls
// use the reference they captured at call start" — Select/Plan are
// called per-request rather than once at construction, so a backend
// switch mid-run only affects requests issued after the switch.
func NewSuite(reg *registry.Registry, auditLogger *audit.Logger, backends *backend.Manager) *Suite {
	return &Suite{
		Registry: reg,
		Audit:    auditLogger,
		Backends: backends,
	}
}

func (s *Suite) activeBackend() backend.Backend {
	if s.Backends == nil {
		return nil
	}
	return s.Backends.Active()
}

// PlanCommand runs Router -> Security -> Execution for a command
// request, grounded on agents.py's AgentSuite.plan_command but
// reordered to match spec.md §4.3.2's explicit stage order (Router,
// Security, then Execution, instead of the prototype's
// Router-then-Execution-then-Security).
func (s *Suite) PlanCommand(ctx context.Context, req CommandRequest) ExecutionPlan {
	candidates := s.Registry.HealthySnapshot()

	router := RouterAgent{Backend: s.activeBackend()}
	selected, routerReason, routerFallback := router.Select(ctx, candidates, req.PreferredTags, req.Parallelism)

	plan := ExecutionPlan{
		SelectedNodeIDs: selected,
		Parallelism:     req.Parallelism,
		RouterReason:    routerReason,
		RouterFallback:  routerFallback,
	}
	if plan.Parallelism < 1 {
		plan.Parallelism = 1
	}

	security := SecurityAgent{Backend: s.activeBackend()}
	plan.Security, plan.SecurityFallback = security.Authorize(ctx, selected, req.Argv, s.Registry)

	if !plan.Security.Allow {
		plan.SelectedNodeIDs = nil
		s.recordDeny(req, plan)
		return plan
	}

	execution := ExecutionAgent{Backend: s.activeBackend()}
	execProfile, execFallback := execution.Plan(ctx, req.Description, req.TimeoutHint, req.EnvOverrides)
	plan.Exec = execProfile
	plan.ExecFallback = execFallback

	s.recordAllow(req, plan)
	return plan
}

// PlanSync runs the Sync stage for a sync request.
func (s *Suite) PlanSync(ctx context.Context, sourceNode string, targets []string, strategyHint string) (SyncPlan, error) {
	sync := SyncAgent{Backend: s.activeBackend()}
	plan, err := sync.Plan(ctx, sourceNode, targets, strategyHint)
	if err != nil {
		return SyncPlan{}, err
	}

	if s.Audit != nil {
		s.Audit.Record("system", audit.ActionSyncPath, sourceNode, "", true, plan.Reason, map[string]any{
			"targets":  plan.TargetNodes,
			"strategy": plan.Strategy,
		})
	}
	return plan, nil
}

// SelectNode runs just the Router stage, for single-target operations
// like ListFiles that don't need the full command pipeline.
func (s *Suite) SelectNode(ctx context.Context, description string, preferredTags []string) (string, string, bool) {
	candidates := s.Registry.HealthySnapshot()
	router := RouterAgent{Backend: s.activeBackend()}
	selected, reason, fallback := router.Select(ctx, candidates, preferredTags, 1)
	if len(selected) == 0 {
		return "", reason, fallback
	}
	return selected[0], reason, fallback
}

// ProbeBackend forwards a free-form message to the active backend,
// grounded on agents.py's AgentSuite.probe_backend.
func (s *Suite) ProbeBackend(ctx context.Context, message string) (string, error) {
	active := s.activeBackend()
	if active == nil {
		s.recordProbe(message, "", nil)
		return "", nil
	}
	resp, err := active.Complete(ctx, backend.CompletionRequest{
		Prompt:  message,
		Context: map[string]any{"source": "nacc-orchestrator", "kind": "health-check"},
	})
	s.recordProbe(message, resp.Text, err)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (s *Suite) recordProbe(message, completion string, err error) {
	if s.Audit == nil {
		return
	}
	success := err == nil
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	s.Audit.Record("operator", audit.ActionAgentProbe, "*", "", success, errMsg, map[string]any{
		"message":    message,
		"completion": completion,
	})
}

func (s *Suite) recordDeny(req CommandRequest, plan ExecutionPlan) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record("system", audit.ActionExecuteCommand, "*", fingerprint(req.Argv), false, plan.Security.Reason, map[string]any{
		"argv":              req.Argv,
		"router_fallback":   plan.RouterFallback,
		"security_fallback": plan.SecurityFallback,
	})
}

func (s *Suite) recordAllow(req CommandRequest, plan ExecutionPlan) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record("system", audit.ActionExecuteCommand, "*", fingerprint(req.Argv), true, "", map[string]any{
		"argv":              req.Argv,
		"selected_node_ids": plan.SelectedNodeIDs,
		"router_fallback":   plan.RouterFallback,
		"security_fallback": plan.SecurityFallback,
		"exec_fallback":     plan.ExecFallback,
	})
}

func fingerprint(argv []string) string {
	data, err := json.Marshal(argv)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
