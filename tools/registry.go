package tools

import (
	"sort"
	"sync"

	"github.com/hubenschmidt/go-reviewgraph/core"
)

// Registry maps tool names to tools. It is safe for concurrent use and is
// shared read-only by every run once populated.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) GetMultiple(names []string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, core.WithContext(core.NewGraphError("registry.get", "", core.ErrToolNotFound), "tool", name)
		}
		result = append(result, t)
	}
	return result, nil
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Infos() []Info {
	tools, _ := r.GetMultiple(r.List())
	return ToInfos(tools)
}

var DefaultRegistry = NewRegistry()

func Register(t Tool) {
	DefaultRegistry.Register(t)
}

func Get(name string) (Tool, bool) {
	return DefaultRegistry.Get(name)
}
