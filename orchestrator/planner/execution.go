package planner

import (
	"context"
	"encoding/json"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
)

const (
	defaultExecTimeout = 30.0
	maxExecTimeout      = 600.0
)

// ExecutionAgent produces the exec_profile for an Allow'd plan.
// Grounded on agents.py's ExecutionAgent.plan, extended with an
// optional backend call per spec.md §4.3.2's "each stage is a call to
// the active LLM backend" — the Python prototype computes the timeout
// purely deterministically, but spec.md's stage description applies
// the same backend-call-with-fallback shape uniformly across all
// three always-run stages.
type ExecutionAgent struct {
	Backend backend.Backend
}

type execProfileWire struct {
	TimeoutSeconds float64           `json:"timeout_s"`
	EnvOverrides   map[string]string `json:"env_overrides,omitempty"`
	SandboxHints   []string          `json:"sandbox_hints,omitempty"`
}

// Plan returns the exec_profile plus whether the fallback was used.
func (e ExecutionAgent) Plan(ctx context.Context, description string, timeoutHint float64, envOverrides map[string]string) (ExecProfile, bool) {
	fallback := deterministicExecProfile(timeoutHint, envOverrides)

	if e.Backend == nil {
		return fallback, true
	}

	prompt := "You are the Execution Agent inside NACC. Given a task description and a requested timeout, " +
		"produce an exec_profile as JSON with keys timeout_s (number), env_overrides (object), sandbox_hints (array of strings)."
	resp, err := e.Backend.Complete(ctx, backend.CompletionRequest{
		Prompt: prompt,
		Context: map[string]any{
			"description":  description,
			"timeout_hint": timeoutHint,
			"env_overrides": envOverrides,
		},
	})
	if err != nil {
		return fallback, true
	}

	var wire execProfileWire
	if err := json.Unmarshal([]byte(resp.Text), &wire); err != nil || wire.TimeoutSeconds <= 0 {
		return fallback, true
	}

	timeout := clampTimeout(wire.TimeoutSeconds)
	return ExecProfile{
		TimeoutSeconds: timeout,
		EnvOverrides:   wire.EnvOverrides,
		SandboxHints:   wire.SandboxHints,
	}, false
}

func deterministicExecProfile(timeoutHint float64, envOverrides map[string]string) ExecProfile {
	return ExecProfile{
		TimeoutSeconds: clampTimeout(timeoutHint),
		EnvOverrides:   envOverrides,
	}
}

func clampTimeout(requested float64) float64 {
	if requested <= 0 {
		return defaultExecTimeout
	}
	if requested > maxExecTimeout {
		return maxExecTimeout
	}
	return requested
}
