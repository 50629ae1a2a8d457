package backend

import (
	"context"
	"fmt"
	"sync"
)

// Spec is the configuration needed to construct any backend kind. Only
// the fields relevant to Kind are read by the matching constructor.
type Spec struct {
	Kind       Kind
	Key        string
	HTTPRemote HTTPRemoteConfig
	Subprocess SubprocessConfig
}

type constructor func(Spec) (Backend, error)

// Manager holds the single active backend and swaps it atomically.
// Grounded on the teacher's interceptor.go (`map[string]Interceptor`
// keyed by command name) for the constructor-table shape, and on
// backend_manager.py's switch_backend for probe-then-commit swap
// semantics: a candidate backend must answer Probe successfully before
// it replaces the currently active one.
type Manager struct {
	mu           sync.RWMutex
	active       Backend
	activeSpec   Spec
	constructors map[Kind]constructor
}

// NewManager builds a Manager with the built-in backend kinds
// registered and the local heuristic backend active by default, since
// it is the only kind guaranteed to work with zero configuration.
func NewManager() *Manager {
	m := &Manager{
		constructors: map[Kind]constructor{
			KindLocalHeuristic: func(Spec) (Backend, error) {
				return NewHeuristicBackend(), nil
			},
			KindHTTPRemote: func(spec Spec) (Backend, error) {
				return NewHTTPRemoteBackend(spec.HTTPRemote), nil
			},
			KindSubprocess: func(spec Spec) (Backend, error) {
				return NewSubprocessBackend(spec.Subprocess)
			},
		},
	}
	m.active = NewHeuristicBackend()
	m.activeSpec = Spec{Kind: KindLocalHeuristic}
	return m
}

// RegisterConstructor lets a caller add a backend kind beyond the
// three built in, without modifying Manager itself.
func (m *Manager) RegisterConstructor(kind Kind, build constructor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constructors[kind] = build
}

// Active returns the currently active backend.
func (m *Manager) Active() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// ActiveSpec returns the configuration the active backend was built
// from, for status reporting.
func (m *Manager) ActiveSpec() Spec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeSpec
}

// Switch builds the backend described by spec, probes it, and only on
// a successful probe replaces the active backend. The previous backend
// is closed afterward if it owns resources (e.g. a subprocess pool).
func (m *Manager) Switch(ctx context.Context, spec Spec) error {
	m.mu.RLock()
	build, ok := m.constructors[spec.Kind]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown backend kind: %s", spec.Kind)
	}

	candidate, err := build(spec)
	if err != nil {
		return fmt.Errorf("constructing backend %s: %w", spec.Kind, err)
	}

	if err := candidate.Probe(ctx); err != nil {
		if closer, ok := candidate.(interface{ Close() }); ok {
			closer.Close()
		}
		return fmt.Errorf("probing backend %s: %w", spec.Kind, err)
	}

	m.mu.Lock()
	previous := m.active
	m.active = candidate
	m.activeSpec = spec
	m.mu.Unlock()

	if closer, ok := previous.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}
