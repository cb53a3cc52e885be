package core

// ArtifactStore is the interface over the package/artifact registry. It is
// passed explicitly into every tool invocation (never reached through global
// state) so tests can construct a fresh instance per test. Implementations
// must be safe for concurrent use, though the dispatch contract only requires
// mutual exclusion at per-package granularity.
type ArtifactStore interface {
	// CreatePackage creates a named package; ErrAlreadyExists if the name is taken.
	CreatePackage(name string) (*Package, error)

	// GetPackage returns a package by name.
	GetPackage(name string) (*Package, bool)

	// UsePackage marks the package as the default scope for calls that omit
	// an explicit one; ErrNotFound if it does not exist.
	UsePackage(name string) error

	// ActivePackage returns the current default package name ("" if unset).
	ActivePackage() string

	// PackageNames lists the known package names.
	PackageNames() []string

	// AddArtifact creates an artifact inside pkg, stamping timestamps and
	// applying the name-uniqueness rule.
	AddArtifact(pkg, artifactType string, content any, metadata map[string]any) (*Artifact, error)

	GetByID(pkg, id string) (*Artifact, error)
	GetByName(pkg, name string) (*Artifact, error)
	GetLatestByType(pkg, artifactType string) (*Artifact, error)

	// Rename assigns a name to the most recent artifact of the given type.
	Rename(pkg, artifactType, newName string) (*Artifact, error)

	// AddPipeline appends a recorded history snapshot to the package.
	AddPipeline(pkg string, steps []HistoryRecord) error
}

// MemoryStore is the per-package conversational memory side-channel: an
// append-only list of remembered artifact ids plus compact provenance notes.
type MemoryStore interface {
	Remember(pkg, artifactID, note string) error
	Remembered(pkg string) []string
	Notes(pkg string) []string
}
