// Package core contains the canonical domain contracts shared by every other
// package: Artifact and Package types, the ArtifactStore and MemoryStore
// interfaces, the Tool contract (Descriptor, IOSchema, Result) and the error
// taxonomy. Implementation packages (artifact, memory, tool, engine) depend on
// core rather than on each other, keeping the dependency graph acyclic and the
// domain contracts central.
package core
