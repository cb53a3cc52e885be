// Package workspace manages the per-package workspace record: a single
// reserved artifact holding named artifact bindings, typed memory slots,
// one-shot context injections, active guided sessions and the pending contract
// switch. The record is the durable state the dispatcher and session engine
// share; it lives inside the artifact store so exports carry it along.
package workspace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/governance"
)

// Reserved identity of the workspace artifact inside every package.
const (
	ArtifactName = "_workspace_store"
	ArtifactType = "workspace"
)

// ArtifactRef is a named binding from a logical name to a concrete artifact.
type ArtifactRef struct {
	ArtifactID string `json:"artifact_id"`
	Type       string `json:"type"`
	UpdatedAt  string `json:"updated_at"`
}

// MemoryEntry is one typed memory slot with provenance.
type MemoryEntry struct {
	Type           string `json:"type"`
	Value          any    `json:"value"`
	UpdatedAt      string `json:"updated_at"`
	OriginArtifact string `json:"origin_artifact,omitempty"`
}

// PendingSwitch records a contract change awaiting user confirmation
// ("ask" autoswitch mode).
type PendingSwitch struct {
	Mode        string `json:"mode"`
	SessionType string `json:"session_type,omitempty"`
}

// Record is the workspace document stored as the reserved artifact's content.
// Sessions are kept as raw JSON so the workspace stays agnostic of the
// session engine's types.
type Record struct {
	Artifacts      map[string]ArtifactRef     `json:"artifacts"`
	Memory         map[string]MemoryEntry     `json:"memory"`
	InjectionsOnce map[string]string          `json:"injections_once"`
	Sessions       map[string]json.RawMessage `json:"sessions"`
	PendingSID     string                     `json:"pending_session_sid,omitempty"`
	PendingSwitch  *PendingSwitch             `json:"pending_switch,omitempty"`
}

func newRecord() *Record {
	return &Record{
		Artifacts:      map[string]ArtifactRef{},
		Memory:         map[string]MemoryEntry{},
		InjectionsOnce: map[string]string{},
		Sessions:       map[string]json.RawMessage{},
	}
}

func (r *Record) normalize() {
	if r.Artifacts == nil {
		r.Artifacts = map[string]ArtifactRef{}
	}
	if r.Memory == nil {
		r.Memory = map[string]MemoryEntry{}
	}
	if r.InjectionsOnce == nil {
		r.InjectionsOnce = map[string]string{}
	}
	if r.Sessions == nil {
		r.Sessions = map[string]json.RawMessage{}
	}
}

// NowISO returns the UTC timestamp format used in workspace records.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// Load returns the package's workspace record, lazily creating the reserved
// artifact on first access. At most one workspace artifact exists per package.
func Load(store core.ArtifactStore, pkg string) (*Record, error) {
	art, err := store.GetByName(pkg, ArtifactName)
	if err != nil {
		rec := newRecord()
		if _, err := store.AddArtifact(pkg, ArtifactType, rec, map[string]any{
			core.MetadataName: ArtifactName,
		}); err != nil {
			return nil, fmt.Errorf("create workspace record for package %q: %w", pkg, err)
		}
		return rec, nil
	}
	switch content := art.Content.(type) {
	case *Record:
		content.normalize()
		return content, nil
	default:
		// Content arrived as a decoded map (e.g. after an archive import);
		// remarshal into the typed record.
		data, err := json.Marshal(content)
		if err != nil {
			return nil, fmt.Errorf("workspace record in package %q is unreadable: %w", pkg, err)
		}
		rec := newRecord()
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("workspace record in package %q is unreadable: %w", pkg, err)
		}
		rec.normalize()
		return rec, nil
	}
}

// Save writes the record back into the reserved artifact.
func Save(store core.ArtifactStore, pkg string, rec *Record) error {
	art, err := store.GetByName(pkg, ArtifactName)
	if err != nil {
		if _, err := store.AddArtifact(pkg, ArtifactType, rec, map[string]any{
			core.MetadataName: ArtifactName,
		}); err != nil {
			return fmt.Errorf("save workspace record for package %q: %w", pkg, err)
		}
		return nil
	}
	art.Content = rec
	art.UpdatedAt = time.Now().UTC()
	return nil
}

// BindArtifact records name -> artifact binding in the workspace, overwriting
// any previous binding of the same name.
func BindArtifact(store core.ArtifactStore, pkg, name, artifactID, artifactType string) error {
	rec, err := Load(store, pkg)
	if err != nil {
		return err
	}
	rec.Artifacts[name] = ArtifactRef{
		ArtifactID: artifactID,
		Type:       artifactType,
		UpdatedAt:  NowISO(),
	}
	return Save(store, pkg, rec)
}

// PutMemory stores a typed value in the workspace memory surface after the
// governance gate passes. tokenLimit <= 0 selects the default budget.
func PutMemory(store core.ArtifactStore, pkg, key, valueType string, value any, origin string, tokenLimit int) error {
	if err := governance.Check(key, value, tokenLimit); err != nil {
		return err
	}
	rec, err := Load(store, pkg)
	if err != nil {
		return err
	}
	rec.Memory[key] = MemoryEntry{
		Type:           valueType,
		Value:          value,
		UpdatedAt:      NowISO(),
		OriginArtifact: origin,
	}
	return Save(store, pkg, rec)
}

// PutInjection stores a one-shot context injection after the governance gate
// passes. The dispatcher consumes and clears it on the next chat turn.
func PutInjection(store core.ArtifactStore, pkg, key string, value string, tokenLimit int) error {
	if err := governance.Check(key, value, tokenLimit); err != nil {
		return err
	}
	rec, err := Load(store, pkg)
	if err != nil {
		return err
	}
	rec.InjectionsOnce[key] = value
	return Save(store, pkg, rec)
}

// TakeInjections removes and returns all pending one-shot injections.
func TakeInjections(store core.ArtifactStore, pkg string) (map[string]string, error) {
	rec, err := Load(store, pkg)
	if err != nil {
		return nil, err
	}
	if len(rec.InjectionsOnce) == 0 {
		return nil, nil
	}
	out := rec.InjectionsOnce
	rec.InjectionsOnce = map[string]string{}
	if err := Save(store, pkg, rec); err != nil {
		return nil, err
	}
	return out, nil
}
