package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MetadataName is the reserved metadata key holding an artifact's logical name.
const MetadataName = "name"

// Artifact is a typed unit of content owned by exactly one Package for its
// lifetime. The id is generated on creation and never changes; content and
// metadata may be mutated in place by the tool that created the artifact (or
// by a rename), which bumps UpdatedAt.
type Artifact struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Content   any            `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Announce is the human-readable creation notice, consumed at most once
	// by the dispatcher's announcement pass. Never serialized.
	Announce string `json:"-"`
}

// NewArtifact creates an artifact with a fresh id. Timestamps are stamped by
// Package.Add, not here, so that imported artifacts keep their history.
func NewArtifact(artifactType string, content any, metadata map[string]any) *Artifact {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Artifact{
		ID:       NewID(),
		Type:     artifactType,
		Content:  content,
		Metadata: metadata,
	}
}

// NewID generates a unique identifier for artifacts, sessions and history
// records.
func NewID() string { return uuid.NewString() }

// Name returns the logical name stored in metadata, or "" if anonymous.
func (a *Artifact) Name() string {
	if a.Metadata == nil {
		return ""
	}
	if n, ok := a.Metadata[MetadataName].(string); ok {
		return n
	}
	return ""
}

// SetName stores (or clears, when name is empty) the logical name in metadata.
func (a *Artifact) SetName(name string) {
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if name == "" {
		delete(a.Metadata, MetadataName)
		return
	}
	a.Metadata[MetadataName] = name
}

// ShortID returns the first eight characters of the id for display.
func (a *Artifact) ShortID() string {
	if len(a.ID) > 8 {
		return a.ID[:8]
	}
	return a.ID
}

// HistoryRecord is one entry of the dispatcher's append-only execution log.
// Insertion order equals call order; records are replayable by re-invoking
// the dispatcher per record.
type HistoryRecord struct {
	Tool      string         `json:"tool"`
	Package   string         `json:"package"`
	Input     map[string]any `json:"input"`
	Output    *Result        `json:"output"`
	Timestamp time.Time      `json:"timestamp"`
}

// Package is a named collection of artifacts plus an append-only list of
// recorded pipelines. Artifact insertion order is irrelevant; lookups go by
// id, name or creation time. Safe for concurrent access.
type Package struct {
	Name string

	mu        sync.RWMutex
	artifacts map[string]*Artifact
	pipelines [][]HistoryRecord
}

// NewPackage creates an empty package.
func NewPackage(name string) *Package {
	return &Package{Name: name, artifacts: map[string]*Artifact{}}
}

// uniqueName disambiguates desired against the names already present by
// appending " (n)" for the smallest unused n >= 2. Caller holds the lock.
func (p *Package) uniqueName(desired string) string {
	if desired == "" {
		return desired
	}
	existing := map[string]bool{}
	for _, a := range p.artifacts {
		if n := a.Name(); n != "" {
			existing[n] = true
		}
	}
	if !existing[desired] {
		return desired
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", desired, n)
		if !existing[candidate] {
			return candidate
		}
	}
}

// Add registers the artifact, stamping timestamps, enforcing per-package name
// uniqueness and recording the creation announcement.
func (p *Package) Add(a *Artifact) *Artifact {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if name := a.Name(); name != "" {
		a.SetName(p.uniqueName(name))
	}
	p.artifacts[a.ID] = a

	if name := a.Name(); name != "" {
		a.Announce = fmt.Sprintf("Artifact created: name=%q id=%q type=%q in package %q",
			name, a.ShortID(), a.Type, p.Name)
	} else {
		a.Announce = fmt.Sprintf("Artifact created: id=%q type=%q in package %q",
			a.ShortID(), a.Type, p.Name)
	}
	return a
}

// GetByID returns the artifact with the given id.
func (p *Package) GetByID(id string) (*Artifact, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.artifacts[id]
	return a, ok
}

// GetByName returns the most recently created artifact carrying the name.
func (p *Package) GetByName(name string) (*Artifact, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var match *Artifact
	for _, a := range p.artifacts {
		if a.Name() != name {
			continue
		}
		if match == nil || a.CreatedAt.After(match.CreatedAt) {
			match = a
		}
	}
	return match, match != nil
}

// LatestByType returns the most recently created artifact of the given type.
func (p *Package) LatestByType(artifactType string) (*Artifact, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var latest *Artifact
	for _, a := range p.artifacts {
		if a.Type != artifactType {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	return latest, latest != nil
}

// List returns the artifacts, optionally filtered by type, newest first.
func (p *Package) List(typeFilter string) []*Artifact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Artifact, 0, len(p.artifacts))
	for _, a := range p.artifacts {
		if typeFilter != "" && a.Type != typeFilter {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len reports the number of artifacts in the package.
func (p *Package) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.artifacts)
}

// AddPipeline appends a recorded pipeline snapshot for later replay.
func (p *Package) AddPipeline(steps []HistoryRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]HistoryRecord, len(steps))
	copy(cp, steps)
	p.pipelines = append(p.pipelines, cp)
}

// Pipelines returns a snapshot of the recorded pipelines.
func (p *Package) Pipelines() [][]HistoryRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([][]HistoryRecord, len(p.pipelines))
	copy(out, p.pipelines)
	return out
}
