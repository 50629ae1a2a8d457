// Package backend provides the pluggable LLM completion contract used by
// the orchestrator's planner stages, plus the concrete implementations
// and the switchable manager sitting in front of them.
package backend

import (
	"context"
	"fmt"
)

// Kind discriminates the backend implementations the manager's
// constructor table knows how to build.
type Kind string

const (
	KindLocalHeuristic Kind = "local-heuristic"
	KindHTTPRemote     Kind = "http-remote"
	KindSubprocess     Kind = "subprocess"
)

// ErrorKind classifies why a backend failed to complete a prompt,
// mirroring the teacher's MessagingBusErrorClassifier split between
// channel errors and malformed-message errors, retargeted from "receive
// a command" to "complete a prompt".
type ErrorKind string

const (
	ErrTimeout     ErrorKind = "timeout"
	ErrUnavailable ErrorKind = "unavailable"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrMalformed   ErrorKind = "malformed_response"
)

// BackendError wraps a backend failure with a classification, the way
// redismb's redisMBError tags an underlying error with its errorType.
type BackendError struct {
	Kind       ErrorKind
	BackendKey string
	Underlying error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.BackendKey, e.Kind, e.Underlying)
}

func (e *BackendError) Unwrap() error { return e.Underlying }

func NewBackendError(backendKey string, kind ErrorKind, underlying error) *BackendError {
	return &BackendError{Kind: kind, BackendKey: backendKey, Underlying: underlying}
}

// CompletionRequest is a single prompt-with-context request against a
// backend, generalizing agents.py's LLMBackend.complete(prompt, context).
type CompletionRequest struct {
	Prompt  string
	Context map[string]any
}

// CompletionResponse carries the raw text a backend produced. Planner
// stages are responsible for parsing it as JSON or plain text as their
// own contract requires.
type CompletionResponse struct {
	Text string
}

// Backend is the narrow interface every LLM completion strategy
// implements, grounded on the teacher's MessagingBus interface: one
// method that does the real work, plus a liveness check and a
// self-identifying kind, instead of one interface per concern.
type Backend interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Probe(ctx context.Context) error
	Kind() Kind
}
