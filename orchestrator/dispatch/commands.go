package dispatch

import (
	"context"
	"time"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// ExecuteCommand fans an Allow'd ExecutionPlan's command out to every
// selected node, bounded by plan.Parallelism, with a whole-plan
// deadline of exec_profile.timeout_s + 10 seconds per spec.md §4.3.3.
func ExecuteCommand(ctx context.Context, reg *registry.Registry, plan planner.ExecutionPlan, argv []string, cwd string) []Result[node.CommandResult] {
	timeout := time.Duration(plan.Exec.TimeoutSeconds+10) * time.Second

	return FanOut(ctx, reg, plan.SelectedNodeIDs, plan.Parallelism, timeout, func(callCtx context.Context, transport registry.Transport) (node.CommandResult, error) {
		return transport.ExecuteCommand(callCtx, node.CommandRequest{
			Argv:           argv,
			Cwd:            cwd,
			Env:            plan.Exec.EnvOverrides,
			TimeoutSeconds: plan.Exec.TimeoutSeconds,
		})
	})
}

// ListFiles fans a ListFiles request out to every selected node.
func ListFiles(ctx context.Context, reg *registry.Registry, nodeIDs []string, parallelism int, req node.ListFilesRequest) []Result[node.ListFilesResult] {
	return FanOut(ctx, reg, nodeIDs, parallelism, 30*time.Second, func(callCtx context.Context, transport registry.Transport) (node.ListFilesResult, error) {
		return transport.ListFiles(callCtx, req)
	})
}
