package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

type stubTransport struct{ info node.NodeInfo }

func (s *stubTransport) ListFiles(ctx context.Context, req node.ListFilesRequest) (node.ListFilesResult, error) {
	return node.ListFilesResult{}, nil
}
func (s *stubTransport) ReadFile(ctx context.Context, req node.ReadFileRequest) (node.ReadFileResult, error) {
	return node.ReadFileResult{}, nil
}
func (s *stubTransport) WriteFile(ctx context.Context, req node.WriteFileRequest) (node.WriteFileResult, error) {
	return node.WriteFileResult{}, nil
}
func (s *stubTransport) ExecuteCommand(ctx context.Context, req node.CommandRequest) (node.CommandResult, error) {
	return node.CommandResult{NodeID: s.info.NodeID, Stdout: "hi\n", ExitCode: 0}, nil
}
func (s *stubTransport) SyncFiles(ctx context.Context, req node.SyncRequest) (node.SyncReport, error) {
	return node.SyncReport{}, nil
}
func (s *stubTransport) GetNodeInfo(ctx context.Context) (node.NodeInfo, error) {
	return s.info, nil
}
func (s *stubTransport) Healthz(ctx context.Context) error {
	return nil
}

func buildTestInterface(t *testing.T, operatorToken string) *Interface {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := registry.NewRegistry([]registry.NodeDefinition{
		{NodeID: "a", AllowedCommands: []string{"echo"}, Transport: &stubTransport{info: node.NodeInfo{NodeID: "a"}}},
	})
	reg.RefreshAll(context.Background())

	suite := planner.NewSuite(reg, nil, backend.NewManager())
	return NewInterface(reg, suite, nil, operatorToken)
}

func doRequest(api *Interface, method, path string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	api.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthzReportsOK(t *testing.T) {
	api := buildTestInterface(t, "")
	rec := doRequest(api, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetNodeReturnsNotFoundForUnknownNode(t *testing.T) {
	api := buildTestInterface(t, "")
	rec := doRequest(api, http.MethodGet, "/nodes/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExecuteCommandDenyReturnsCompletePlanWithEmptyResults(t *testing.T) {
	api := buildTestInterface(t, "")
	body, _ := json.Marshal(map[string]any{
		"argv":        []string{"rm", "-rf", "/"},
		"parallelism": 1,
	})
	rec := doRequest(api, http.MethodPost, "/commands/execute", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a deny to still return 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Plan struct {
			Security struct{ Allow bool } `json:"security_verdict"`
		} `json:"plan"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Plan.Security.Allow {
		t.Error("expected the plan to be denied")
	}
}

func TestExecuteCommandAllowsKnownCommand(t *testing.T) {
	api := buildTestInterface(t, "")
	body, _ := json.Marshal(map[string]any{
		"argv":        []string{"echo", "hi"},
		"parallelism": 1,
	})
	rec := doRequest(api, http.MethodPost, "/commands/execute", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExecuteCommandRejectsEmptyArgv(t *testing.T) {
	api := buildTestInterface(t, "")
	body, _ := json.Marshal(map[string]any{"argv": []string{}})
	rec := doRequest(api, http.MethodPost, "/commands/execute", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty argv, got %d", rec.Code)
	}
}

func TestSwitchBackendRequiresOperatorTokenWhenConfigured(t *testing.T) {
	api := buildTestInterface(t, "secret-token")
	body, _ := json.Marshal(map[string]any{"kind": "local-heuristic"})
	rec := doRequest(api, http.MethodPost, "/backends/switch", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without the operator token, got %d", rec.Code)
	}
}

func TestSwitchBackendSucceedsWithCorrectOperatorToken(t *testing.T) {
	api := buildTestInterface(t, "secret-token")
	body, _ := json.Marshal(map[string]any{"kind": "local-heuristic"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/backends/switch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with the correct operator token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListSchedulesReportsUnavailableWithoutScheduler(t *testing.T) {
	api := buildTestInterface(t, "")
	rec := doRequest(api, http.MethodGet, "/schedules", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a configured scheduler, got %d", rec.Code)
	}
}
