package planner

import (
	"context"
	"testing"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

type fakeTransport struct{ info node.NodeInfo }

func (f *fakeTransport) ListFiles(ctx context.Context, req node.ListFilesRequest) (node.ListFilesResult, error) {
	return node.ListFilesResult{}, nil
}
func (f *fakeTransport) ReadFile(ctx context.Context, req node.ReadFileRequest) (node.ReadFileResult, error) {
	return node.ReadFileResult{}, nil
}
func (f *fakeTransport) WriteFile(ctx context.Context, req node.WriteFileRequest) (node.WriteFileResult, error) {
	return node.WriteFileResult{}, nil
}
func (f *fakeTransport) ExecuteCommand(ctx context.Context, req node.CommandRequest) (node.CommandResult, error) {
	return node.CommandResult{}, nil
}
func (f *fakeTransport) SyncFiles(ctx context.Context, req node.SyncRequest) (node.SyncReport, error) {
	return node.SyncReport{}, nil
}
func (f *fakeTransport) GetNodeInfo(ctx context.Context) (node.NodeInfo, error) {
	return f.info, nil
}
func (f *fakeTransport) Healthz(ctx context.Context) error {
	return nil
}

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry([]registry.NodeDefinition{
		{
			NodeID:          "a",
			Tags:            []string{"gpu"},
			AllowedCommands: []string{"echo"},
			Transport:       &fakeTransport{info: node.NodeInfo{NodeID: "a", CPUPercent: 10, MemoryPercent: 10}},
		},
		{
			NodeID:          "b",
			Tags:            []string{"cpu"},
			AllowedCommands: []string{"echo"},
			Transport:       &fakeTransport{info: node.NodeInfo{NodeID: "b", CPUPercent: 80, MemoryPercent: 80}},
		},
	})
	reg.RefreshAll(context.Background())
	return reg
}

func TestPlanCommandAllowsKnownCommand(t *testing.T) {
	reg := buildRegistry(t)
	suite := NewSuite(reg, nil, backend.NewManager())

	plan := suite.PlanCommand(context.Background(), CommandRequest{
		Description: "say hi",
		Argv:        []string{"echo", "hi"},
		Parallelism: 1,
	})

	if !plan.Security.Allow {
		t.Fatalf("expected command to be allowed, got deny reason %q", plan.Security.Reason)
	}
	if len(plan.SelectedNodeIDs) != 1 {
		t.Fatalf("expected exactly one selected node, got %v", plan.SelectedNodeIDs)
	}
	if plan.SelectedNodeIDs[0] != "a" {
		t.Errorf("expected node 'a' (lower combined load) to be selected first, got %q", plan.SelectedNodeIDs[0])
	}
}

func TestPlanCommandDeniesDisallowedCommand(t *testing.T) {
	reg := buildRegistry(t)
	suite := NewSuite(reg, nil, backend.NewManager())

	plan := suite.PlanCommand(context.Background(), CommandRequest{
		Description: "delete everything",
		Argv:        []string{"rm", "-rf", "/"},
		Parallelism: 2,
	})

	if plan.Security.Allow {
		t.Fatal("expected command to be denied")
	}
	if len(plan.SelectedNodeIDs) != 0 {
		t.Errorf("expected no nodes in a denied plan, got %v", plan.SelectedNodeIDs)
	}
}

func TestPlanCommandWritesExactlyOneAuditRecordOnDeny(t *testing.T) {
	reg := buildRegistry(t)
	path := t.TempDir() + "/audit.jsonl"
	logger, err := audit.NewLogger(path, 0)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	suite := NewSuite(reg, logger, backend.NewManager())

	suite.PlanCommand(context.Background(), CommandRequest{
		Description: "delete everything",
		Argv:        []string{"rm"},
		Parallelism: 1,
	})

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestPlanCommandPrefersRequiredTags(t *testing.T) {
	reg := buildRegistry(t)
	suite := NewSuite(reg, nil, backend.NewManager())

	plan := suite.PlanCommand(context.Background(), CommandRequest{
		Description:   "gpu task",
		Argv:           []string{"echo"},
		PreferredTags:  []string{"gpu"},
		Parallelism:    1,
	})

	if len(plan.SelectedNodeIDs) != 1 || plan.SelectedNodeIDs[0] != "a" {
		t.Errorf("expected node 'a' (tagged gpu) to be selected, got %v", plan.SelectedNodeIDs)
	}
}

func TestPlanSyncFallsBackToMirror(t *testing.T) {
	reg := buildRegistry(t)
	suite := NewSuite(reg, nil, backend.NewManager())

	plan, err := suite.PlanSync(context.Background(), "a", []string{"b"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Strategy != "Mirror" {
		t.Errorf("expected fallback strategy Mirror, got %q", plan.Strategy)
	}
}

func TestPlanSyncRejectsEmptyTargets(t *testing.T) {
	reg := buildRegistry(t)
	suite := NewSuite(reg, nil, backend.NewManager())

	if _, err := suite.PlanSync(context.Background(), "a", nil, ""); err == nil {
		t.Error("expected an error for empty sync targets")
	}
}

func TestSecurityAgentAllowsWhenNoAllowListConfigured(t *testing.T) {
	reg := registry.NewRegistry([]registry.NodeDefinition{
		{NodeID: "open", Transport: &fakeTransport{}},
	})
	verdict, _ := SecurityAgent{}.Authorize(context.Background(), []string{"open"}, []string{"anything"}, reg)
	if !verdict.Allow {
		t.Errorf("expected allow when the node declares no allow-list, got deny: %s", verdict.Reason)
	}
}
