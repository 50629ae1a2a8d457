package backend

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sort"
)

// HeuristicBackend is the deterministic fallback backend: no network
// call, no subprocess, always available. Grounded on
// LocalHeuristicBackend in agents.py, which produces a JSON summary of
// the prompt hash and sorted context keys rather than an actual
// completion.
type HeuristicBackend struct{}

func NewHeuristicBackend() *HeuristicBackend {
	return &HeuristicBackend{}
}

func (b *HeuristicBackend) Kind() Kind { return KindLocalHeuristic }

func (b *HeuristicBackend) Probe(ctx context.Context) error {
	return nil
}

func (b *HeuristicBackend) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Prompt))

	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	summary := map[string]any{
		"prompt_hash":  h.Sum32(),
		"context_keys": keys,
	}
	payload := map[string]any{
		"summary":     summary,
		"explanation": "Heuristic backend generated plan.",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return CompletionResponse{}, NewBackendError(string(KindLocalHeuristic), ErrMalformed, err)
	}
	return CompletionResponse{Text: string(data)}, nil
}
