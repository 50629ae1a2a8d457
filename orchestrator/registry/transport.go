// Package registry tracks the set of configured nodes, how to reach
// each one, and their last-known health.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
)

// Transport is how the orchestrator reaches a single node's six tools.
// Grounded on nodes.py's NodeClient protocol, translated into a Go
// interface with two implementations instead of Python's duck typing.
type Transport interface {
	ListFiles(ctx context.Context, req node.ListFilesRequest) (node.ListFilesResult, error)
	ReadFile(ctx context.Context, req node.ReadFileRequest) (node.ReadFileResult, error)
	WriteFile(ctx context.Context, req node.WriteFileRequest) (node.WriteFileResult, error)
	ExecuteCommand(ctx context.Context, req node.CommandRequest) (node.CommandResult, error)
	SyncFiles(ctx context.Context, req node.SyncRequest) (node.SyncReport, error)
	GetNodeInfo(ctx context.Context) (node.NodeInfo, error)
	// Healthz is the cheap, no-I/O liveness check the health loop polls
	// every tick, distinct from GetNodeInfo's CPU/mem/disk sampling.
	Healthz(ctx context.Context) error
}

// HTTPTransport talks to a remote node's HTTP tool server. Grounded on
// nodes.py's HTTPNodeClient (bearer-token POST to /tools/<name>).
type HTTPTransport struct {
	BaseURL   string
	AuthToken string
	Client    *http.Client
}

func NewHTTPTransport(baseURL, authToken string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL:   baseURL,
		AuthToken: authToken,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *HTTPTransport) postTool(ctx context.Context, name string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/tools/%s", trimTrailingSlash(t.BaseURL), name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AuthToken)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("tool %s returned status %d: %s", name, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func (t *HTTPTransport) ListFiles(ctx context.Context, req node.ListFilesRequest) (node.ListFilesResult, error) {
	var out node.ListFilesResult
	err := t.postTool(ctx, "list-files", req, &out)
	return out, err
}

func (t *HTTPTransport) ReadFile(ctx context.Context, req node.ReadFileRequest) (node.ReadFileResult, error) {
	var out node.ReadFileResult
	err := t.postTool(ctx, "read-file", req, &out)
	return out, err
}

func (t *HTTPTransport) WriteFile(ctx context.Context, req node.WriteFileRequest) (node.WriteFileResult, error) {
	var out node.WriteFileResult
	err := t.postTool(ctx, "write-file", req, &out)
	return out, err
}

func (t *HTTPTransport) ExecuteCommand(ctx context.Context, req node.CommandRequest) (node.CommandResult, error) {
	var out node.CommandResult
	err := t.postTool(ctx, "execute-command", req, &out)
	return out, err
}

func (t *HTTPTransport) SyncFiles(ctx context.Context, req node.SyncRequest) (node.SyncReport, error) {
	var out node.SyncReport
	err := t.postTool(ctx, "sync-files", req, &out)
	return out, err
}

func (t *HTTPTransport) GetNodeInfo(ctx context.Context) (node.NodeInfo, error) {
	var out node.NodeInfo
	err := t.postTool(ctx, "get-node-info", struct{}{}, &out)
	return out, err
}

// Healthz calls the node's cheap /healthz endpoint, not a /tools/*
// route — no body, no auth header, matching node/server.go's
// unauthenticated handleHealthz.
func (t *HTTPTransport) Healthz(ctx context.Context) error {
	url := fmt.Sprintf("%s/healthz", trimTrailingSlash(t.BaseURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("healthz returned status %d", resp.StatusCode)
	}
	return nil
}

// InProcessTransport calls a node's tools directly in-process, without
// going over HTTP. Grounded on nodes.py's LocalNodeClient, used for
// tests and single-binary deployments that colocate a node with the
// orchestrator.
type InProcessTransport struct {
	Context node.RootContext
}

func NewInProcessTransport(ctx node.RootContext) *InProcessTransport {
	return &InProcessTransport{Context: ctx}
}

func (t *InProcessTransport) ListFiles(ctx context.Context, req node.ListFilesRequest) (node.ListFilesResult, error) {
	return t.Context.ListFiles(req)
}

func (t *InProcessTransport) ReadFile(ctx context.Context, req node.ReadFileRequest) (node.ReadFileResult, error) {
	return t.Context.ReadFile(req)
}

func (t *InProcessTransport) WriteFile(ctx context.Context, req node.WriteFileRequest) (node.WriteFileResult, error) {
	return t.Context.WriteFile(req)
}

func (t *InProcessTransport) ExecuteCommand(ctx context.Context, req node.CommandRequest) (node.CommandResult, error) {
	return t.Context.ExecuteCommand(ctx, req)
}

func (t *InProcessTransport) SyncFiles(ctx context.Context, req node.SyncRequest) (node.SyncReport, error) {
	return t.Context.SyncFiles(req)
}

func (t *InProcessTransport) GetNodeInfo(ctx context.Context) (node.NodeInfo, error) {
	return t.Context.GetNodeInfo(), nil
}

// Healthz is a same-process check: the RootContext exists, so it is
// always live. Mirrors handleHealthz's trivial "ok" response.
func (t *InProcessTransport) Healthz(ctx context.Context) error {
	return nil
}
