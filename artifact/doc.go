// Package artifact contains the in-memory implementation of
// core.ArtifactStore plus the zip archive codec for package export/import.
//
// The canonical ArtifactStore interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. Callers should depend
// on the interface rather than the concrete Registry so they can substitute
// alternative persistence layers in tests or production.
package artifact
