package tool

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/artifactmesh/core"
)

// Registry holds the registered tools and answers planning queries over the
// type-flow graph derived from their IO schemas. Registration order is
// preserved and breaks planner ties deterministically.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
	order []string
}

// NewRegistry returns an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]core.Tool{}}
}

// Register adds a tool. Re-registering a name replaces the tool but keeps its
// original position in the order.
func (r *Registry) Register(t core.Tool) error {
	desc := t.Descriptor()
	if desc.Name == "" {
		return &ToolError{Tool: "?", Message: "descriptor has no name", Code: "VALIDATION_ERROR"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; !exists {
		r.order = append(r.order, desc.Name)
	}
	r.tools[desc.Name] = t
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (core.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, core.ErrNotFound)
	}
	return t, nil
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []core.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor())
	}
	return out
}

// SuggestNext returns the tools whose inputs declare the given artifact type,
// in registration order.
func (r *Registry) SuggestNext(artifactType string) []string {
	consumes, _ := r.buildMaps()
	return consumes[artifactType]
}

// GetProducers returns the tools whose outputs declare the given artifact
// type, in registration order.
func (r *Registry) GetProducers(artifactType string) []string {
	_, produces := r.buildMaps()
	return produces[artifactType]
}

// buildMaps derives {artifact type -> tool names} for consumed and produced
// types. Derived on demand from the schemas so it is never stale; tool order
// inside each slice follows registration order.
func (r *Registry) buildMaps() (consumes, produces map[string][]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	consumes = map[string][]string{}
	produces = map[string][]string{}
	for _, name := range r.order {
		desc := r.tools[name].Descriptor()
		for _, t := range dedupe(desc.ConsumedTypes()) {
			consumes[t] = append(consumes[t], name)
		}
		for _, t := range dedupe(desc.ProducedTypes()) {
			produces[t] = append(produces[t], name)
		}
	}
	return consumes, produces
}

func dedupe(types []string) []string {
	sort.Strings(types)
	out := types[:0]
	for i, t := range types {
		if i == 0 || types[i-1] != t {
			out = append(out, t)
		}
	}
	return out
}

// PlanPath finds a tool chain transforming startType into goalType with a
// breadth-first search over the type-flow graph, guaranteeing a shortest
// tool-count path. Ties break toward the first-registered tool. An identical
// start and goal yields an empty plan, as does an unreachable goal; absence
// of a path is a normal result, not an error.
func (r *Registry) PlanPath(startType, goalType string) []string {
	if startType == goalType {
		return []string{}
	}

	consumes, _ := r.buildMaps()

	r.mu.RLock()
	toolOutputs := make(map[string][]string, len(r.order))
	for _, name := range r.order {
		toolOutputs[name] = dedupe(r.tools[name].Descriptor().ProducedTypes())
	}
	r.mu.RUnlock()

	type node struct {
		artifactType string
		plan         []string
	}
	visited := map[string]bool{startType: true}
	queue := []node{{artifactType: startType}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, toolName := range consumes[cur.artifactType] {
			for _, out := range toolOutputs[toolName] {
				if out == goalType {
					return append(append([]string{}, cur.plan...), toolName)
				}
				if !visited[out] {
					visited[out] = true
					queue = append(queue, node{
						artifactType: out,
						plan:         append(append([]string{}, cur.plan...), toolName),
					})
				}
			}
		}
	}
	return []string{}
}

// Describe renders a human-readable one-tool summary for catalogues.
func (r *Registry) Describe(name string) string {
	t, err := r.Get(name)
	if err != nil {
		return fmt.Sprintf("tool %q not found", name)
	}
	desc := t.Descriptor()
	ins := strings.Join(dedupe(desc.ConsumedTypes()), ", ")
	outs := strings.Join(dedupe(desc.ProducedTypes()), ", ")
	if ins == "" {
		ins = "none"
	}
	if outs == "" {
		outs = "none"
	}
	return fmt.Sprintf("%s (%s) - %s\nConsumes: %s\nProduces: %s",
		desc.Name, desc.Category, desc.Description, ins, outs)
}
