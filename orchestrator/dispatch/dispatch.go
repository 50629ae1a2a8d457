// Package dispatch fans a planned operation out to every selected
// node with bounded parallelism, preserving the plan's node order in
// the aggregated result regardless of completion order.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
)

// Result is one node's outcome from a fan-out call. Err is Go-side only
// (callers like ExecuteCommand's tests check it directly); the JSON wire
// shape is produced by MarshalJSON below so a per-node failure survives
// serialization instead of marshaling a bare error interface to `{}`.
type Result[T any] struct {
	NodeID   string
	Value    T
	Err      error
	TimedOut bool
}

type resultWire[T any] struct {
	NodeID       string `json:"node_id"`
	Value        T      `json:"value"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	TimedOut     bool   `json:"timed_out,omitempty"`
}

// MarshalJSON encodes Err as a kind/message pair per spec.md §7's
// per-node Timeout/NodeUnavailable entries, rather than letting an
// unexported-field error type marshal to an indistinguishable `{}`.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	wire := resultWire[T]{NodeID: r.NodeID, Value: r.Value, TimedOut: r.TimedOut}
	if r.Err != nil {
		wire.ErrorMessage = r.Err.Error()
		switch {
		case r.TimedOut:
			wire.ErrorKind = "timeout"
		default:
			wire.ErrorKind = "node_unavailable"
		}
	}
	return json.Marshal(wire)
}

// FanOut calls `call` once per node in nodeIDs, at most `parallelism`
// calls in flight at a time, and returns results in the same order as
// nodeIDs regardless of completion order. Grounded on the teacher
// pack's TaskRunner (SharedCode-sop/taskrunner.go), a thin wrapper
// around errgroup.Group with a concurrency limit — used directly here
// rather than reimplemented, generalized to preserve result order
// per-index instead of just aggregating errors.
func FanOut[T any](ctx context.Context, reg *registry.Registry, nodeIDs []string, parallelism int, timeout time.Duration, call func(ctx context.Context, transport registry.Transport) (T, error)) []Result[T] {
	if parallelism < 1 {
		parallelism = 1
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]Result[T], len(nodeIDs))
	eg, egCtx := errgroup.WithContext(deadlineCtx)
	eg.SetLimit(parallelism)

	for i, nodeID := range nodeIDs {
		index, id := i, nodeID
		eg.Go(func() error {
			results[index] = callOne(egCtx, reg, id, call)
			return nil
		})
	}

	// Errors from individual nodes are captured per-result, never
	// propagated as a group failure: one node's problem must not abort
	// the others, per spec.md §4.3.3.
	_ = eg.Wait()
	return results
}

func callOne[T any](ctx context.Context, reg *registry.Registry, nodeID string, call func(context.Context, registry.Transport) (T, error)) Result[T] {
	def, ok := reg.Definition(nodeID)
	if !ok {
		return Result[T]{NodeID: nodeID, Err: errors.New("unknown node: " + nodeID)}
	}

	value, err := call(ctx, def.Transport)
	if err != nil {
		return Result[T]{NodeID: nodeID, Err: err, TimedOut: ctx.Err() != nil}
	}
	return Result[T]{NodeID: nodeID, Value: value}
}
