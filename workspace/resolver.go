package workspace

import (
	"strings"

	"github.com/hupe1980/artifactmesh/core"
)

// ResolveNames walks an input payload and replaces workspace binding names
// with concrete artifact ids. String values may carry an "@" prefix to mark a
// binding reference; lookups consult only the record's artifacts map, never
// artifact metadata names, so a literal input that merely coincides with an
// artifact's name is left alone. Unmatched strings pass through unchanged
// (prefix included), which makes resolution idempotent: resolving an
// already-resolved input is a no-op.
func ResolveNames(store core.ArtifactStore, pkg string, input map[string]any) map[string]any {
	rec, err := Load(store, pkg)
	if err != nil {
		rec = newRecord()
	}
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = resolveValue(rec, v)
	}
	return out
}

func resolveValue(rec *Record, v any) any {
	switch val := v.(type) {
	case string:
		return resolveString(rec, val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(rec, item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(rec, item)
		}
		return out
	default:
		return v
	}
}

func resolveString(rec *Record, s string) string {
	name := strings.TrimPrefix(s, "@")
	if ref, ok := rec.Artifacts[name]; ok {
		return ref.ArtifactID
	}
	return s
}
