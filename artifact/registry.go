package artifact

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/artifactmesh/core"
)

// Registry is the in-process core.ArtifactStore: packages keyed by name plus
// a single active-package pointer used as the default scope. Construct one
// per process (or per test); never share through ambient global state.
type Registry struct {
	mu       sync.RWMutex
	packages map[string]*core.Package
	active   string
}

// Compile-time interface assertion.
var _ core.ArtifactStore = (*Registry)(nil)

// NewRegistry returns an empty registry with no active package.
func NewRegistry() *Registry {
	return &Registry{packages: map[string]*core.Package{}}
}

// CreatePackage creates a named package and makes it active if none is.
func (r *Registry) CreatePackage(name string) (*core.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[name]; ok {
		return nil, fmt.Errorf("package %q: %w", name, core.ErrAlreadyExists)
	}
	pkg := core.NewPackage(name)
	r.packages[name] = pkg
	if r.active == "" {
		r.active = name
	}
	return pkg, nil
}

// GetPackage returns a package by name.
func (r *Registry) GetPackage(name string) (*core.Package, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[name]
	return pkg, ok
}

// UsePackage sets the default scope for calls that omit an explicit package.
func (r *Registry) UsePackage(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[name]; !ok {
		return fmt.Errorf("package %q: %w", name, core.ErrNotFound)
	}
	r.active = name
	return nil
}

// ActivePackage returns the current default package name ("" if unset).
func (r *Registry) ActivePackage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// PackageNames lists the known package names, sorted.
func (r *Registry) PackageNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.packages))
	for n := range r.packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) pkg(name string) (*core.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[name]
	if !ok {
		return nil, fmt.Errorf("package %q: %w", name, core.ErrNotFound)
	}
	return pkg, nil
}

// AddArtifact creates an artifact inside pkg, applying timestamps and the
// name-uniqueness rule.
func (r *Registry) AddArtifact(pkg, artifactType string, content any, metadata map[string]any) (*core.Artifact, error) {
	p, err := r.pkg(pkg)
	if err != nil {
		return nil, err
	}
	return p.Add(core.NewArtifact(artifactType, content, metadata)), nil
}

// GetByID returns the artifact with the given id.
func (r *Registry) GetByID(pkg, id string) (*core.Artifact, error) {
	p, err := r.pkg(pkg)
	if err != nil {
		return nil, err
	}
	a, ok := p.GetByID(id)
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", id, core.ErrNotFound)
	}
	return a, nil
}

// GetByName returns the most recent artifact carrying the name.
func (r *Registry) GetByName(pkg, name string) (*core.Artifact, error) {
	p, err := r.pkg(pkg)
	if err != nil {
		return nil, err
	}
	a, ok := p.GetByName(name)
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", name, core.ErrNotFound)
	}
	return a, nil
}

// GetLatestByType returns the most recently created artifact of a type.
func (r *Registry) GetLatestByType(pkg, artifactType string) (*core.Artifact, error) {
	p, err := r.pkg(pkg)
	if err != nil {
		return nil, err
	}
	a, ok := p.LatestByType(artifactType)
	if !ok {
		return nil, fmt.Errorf("artifact of type %q: %w", artifactType, core.ErrNotFound)
	}
	return a, nil
}

// Rename assigns a name to the most recent artifact of the given type,
// recording a fresh announcement.
func (r *Registry) Rename(pkg, artifactType, newName string) (*core.Artifact, error) {
	p, err := r.pkg(pkg)
	if err != nil {
		return nil, err
	}
	a, ok := p.LatestByType(artifactType)
	if !ok {
		return nil, fmt.Errorf("artifact of type %q: %w", artifactType, core.ErrNotFound)
	}
	a.SetName(newName)
	a.UpdatedAt = time.Now().UTC()
	a.Announce = fmt.Sprintf("Name %q assigned to artifact id=%q type=%q in package %q",
		newName, a.ShortID(), a.Type, pkg)
	return a, nil
}

// AddPipeline appends a recorded history snapshot to the package.
func (r *Registry) AddPipeline(pkg string, steps []core.HistoryRecord) error {
	p, err := r.pkg(pkg)
	if err != nil {
		return err
	}
	p.AddPipeline(steps)
	return nil
}
