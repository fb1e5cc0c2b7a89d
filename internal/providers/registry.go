package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
)

// Registry maps provider names to singleton adapter instances. It is
// populated once at process start and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its descriptor name. A duplicate name is a
// startup error, not a silent overwrite.
func (r *Registry) Register(a Adapter) error {
	name := a.Descriptor().Name
	if name == "" {
		return fmt.Errorf("adapter has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("duplicate adapter name %q", name)
	}
	r.adapters[name] = a
	return nil
}

// Get returns the adapter registered under name, or nil.
func (r *Registry) Get(name string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name]
}

// All returns every registered adapter, sorted by name for stable catalogue
// output.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().Name < out[j].Descriptor().Name
	})
	return out
}

// Deps carries the process-wide resources adapters share: one pooled HTTP
// client, the answer cache (for the local adapter) and the logger. The HTTP
// client is shared read-only and never mutated after startup.
type Deps struct {
	HTTP   *http.Client
	Cache  AnswerCache
	Logger *slog.Logger
}

// RegisterBuiltins constructs and registers every concrete adapter. The
// constructor list is deliberately a flat literal rather than reflective
// discovery; adding an adapter means adding a line here.
func RegisterBuiltins(r *Registry, deps Deps) error {
	builtins := []Adapter{
		newEnncy(deps.HTTP),
		newWanneng(deps.HTTP),
		newLike(deps.HTTP),
		newEveryAPI(deps.HTTP),
		newTikuhai(deps.HTTP),
		newLemon(deps.HTTP),
		newAxe(deps.HTTP),
		newZerror(deps.HTTP),
		newZxseek(deps.HTTP),
		newIcodef(deps.HTTP),
		newSiliconFlow(deps.HTTP),
		newLocal(deps.Cache, deps.Logger),
	}
	for _, a := range builtins {
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}
