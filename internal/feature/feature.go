package feature

import (
	"context"
	"fmt"
	"sync"
)

// Feature is one voice-driven capability that can own the display
// while active. OnEnter runs when the user activates it, OnCommand
// receives each passthrough transcript, OnExit runs on stop, back or
// idle timeout. All three are best-effort from the session's point of
// view.
type Feature interface {
	Name() string
	OnEnter(ctx context.Context) error
	OnCommand(ctx context.Context, text string) error
	OnExit(ctx context.Context) error
}

// Registry holds the registered features and dispatches session
// lifecycle calls to them by name. It satisfies the session loop's
// feature runner contract.
type Registry struct {
	mu       sync.RWMutex
	features map[string]Feature
	order    []string
}

// NewRegistry creates an empty feature registry.
func NewRegistry() *Registry {
	return &Registry{features: make(map[string]Feature)}
}

// Register adds a feature under its own name.
func (r *Registry) Register(f Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Name()
	if name == "" {
		return fmt.Errorf("registering feature: empty name")
	}
	if _, ok := r.features[name]; ok {
		return fmt.Errorf("registering %q: %w", name, ErrDuplicateFeature)
	}
	r.features[name] = f
	r.order = append(r.order, name)
	return nil
}

// Names returns the feature names in registration order. This is the
// menu order and the numbering the voice parser resolves ("one",
// "two") against.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Known reports whether a feature is registered under name.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.features[name]
	return ok
}

// Enter activates the named feature.
func (r *Registry) Enter(ctx context.Context, name string) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}
	return f.OnEnter(ctx)
}

// Command forwards a passthrough transcript to the named feature.
func (r *Registry) Command(ctx context.Context, name, text string) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}
	return f.OnCommand(ctx, text)
}

// Exit deactivates the named feature.
func (r *Registry) Exit(ctx context.Context, name string) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}
	return f.OnExit(ctx)
}

func (r *Registry) lookup(name string) (Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.features[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	return f, nil
}
