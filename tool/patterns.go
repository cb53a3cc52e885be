package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/artifactmesh/core"
)

// The pattern constructors below give concrete tools the default
// post-processing of their category while keeping a single Run contract.
// Concrete tools opt into a wrapper instead of inheriting behavior.

// outputKey picks the declared output name the created artifact id is
// reported under: the first output (by name) matching artifactType, else the
// first declared output, else "artifact_id".
func outputKey(desc core.Descriptor, artifactType string) string {
	names := make([]string, 0, len(desc.IO.Outputs))
	for n := range desc.IO.Outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if desc.IO.Outputs[n].Type == artifactType {
			return n
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return "artifact_id"
}

// LoadFunc produces external data as (content, metadata) for an import tool.
type LoadFunc func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (any, map[string]any, error)

type importTool struct {
	desc         core.Descriptor
	artifactType string
	load         LoadFunc
}

// NewImportTool wraps load with the import default: a successful load creates
// exactly one artifact of artifactType.
func NewImportTool(desc core.Descriptor, artifactType string, load LoadFunc) core.Tool {
	return &importTool{desc: desc, artifactType: artifactType, load: load}
}

func (t *importTool) Descriptor() core.Descriptor { return t.desc }

func (t *importTool) Run(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
	if err := ValidateInput(t.desc, input); err != nil {
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: "VALIDATION_ERROR", Details: err}
	}
	content, metadata, err := t.load(ctx, input, store, pkg)
	if err != nil {
		return nil, err
	}
	art, err := store.AddArtifact(pkg, t.artifactType, content, metadata)
	if err != nil {
		return nil, err
	}
	return &core.Result{
		Message:     fmt.Sprintf("Loaded data via %q into artifact %s.", t.desc.Name, art.ShortID()),
		ArtifactIDs: map[string]string{outputKey(t.desc, t.artifactType): art.ID},
	}, nil
}

// TransformFunc derives new (content, metadata) from existing artifacts.
type TransformFunc func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (any, map[string]any, error)

type transformTool struct {
	desc         core.Descriptor
	artifactType string
	transform    TransformFunc
}

// NewTransformTool wraps transform with the transform default: create one new
// artifact from the derived content, optionally naming it when the input or
// metadata carries a "name".
func NewTransformTool(desc core.Descriptor, artifactType string, transform TransformFunc) core.Tool {
	return &transformTool{desc: desc, artifactType: artifactType, transform: transform}
}

func (t *transformTool) Descriptor() core.Descriptor { return t.desc }

func (t *transformTool) Run(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
	if err := ValidateInput(t.desc, input); err != nil {
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: "VALIDATION_ERROR", Details: err}
	}
	content, metadata, err := t.transform(ctx, input, store, pkg)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata[core.MetadataName]; !ok {
		if name := StringInput(input, "name"); name != "" {
			metadata[core.MetadataName] = name
		}
	}
	art, err := store.AddArtifact(pkg, t.artifactType, content, metadata)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Transformed artifact via %q.", t.desc.Name)
	if summary, ok := metadata["ui_summary"].(string); ok && summary != "" {
		msg = summary
	}
	return &core.Result{
		Message:     msg,
		ArtifactIDs: map[string]string{outputKey(t.desc, t.artifactType): art.ID},
	}, nil
}

// GenerateFunc produces content algorithmically or via an LLM call. The
// returned createArtifact flag selects between artifact creation and
// display-only output.
type GenerateFunc func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (content any, metadata map[string]any, createArtifact bool, err error)

type generateTool struct {
	desc         core.Descriptor
	artifactType string
	generate     GenerateFunc
}

// NewGenerateTool wraps generate with the generate default: artifact creation
// is optional; display-only generation returns the content as a preview.
func NewGenerateTool(desc core.Descriptor, artifactType string, generate GenerateFunc) core.Tool {
	return &generateTool{desc: desc, artifactType: artifactType, generate: generate}
}

func (t *generateTool) Descriptor() core.Descriptor { return t.desc }

func (t *generateTool) Run(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
	if err := ValidateInput(t.desc, input); err != nil {
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: "VALIDATION_ERROR", Details: err}
	}
	content, metadata, createArtifact, err := t.generate(ctx, input, store, pkg)
	if err != nil {
		return nil, err
	}
	if !createArtifact {
		return &core.Result{
			Message: fmt.Sprintf("Generated content via %q (no artifact created).", t.desc.Name),
			Content: content,
		}, nil
	}
	art, err := store.AddArtifact(pkg, t.artifactType, content, metadata)
	if err != nil {
		return nil, err
	}
	return &core.Result{
		Message:     fmt.Sprintf("Generated artifact via %q.", t.desc.Name),
		ArtifactIDs: map[string]string{outputKey(t.desc, t.artifactType): art.ID},
	}, nil
}

// ExportFunc performs a side effect external to the store, returning a short
// detail string (e.g. the written path).
type ExportFunc func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (string, error)

type exportTool struct {
	desc   core.Descriptor
	export ExportFunc
}

// NewExportTool wraps export with the export default: no artifact is created.
func NewExportTool(desc core.Descriptor, export ExportFunc) core.Tool {
	return &exportTool{desc: desc, export: export}
}

func (t *exportTool) Descriptor() core.Descriptor { return t.desc }

func (t *exportTool) Run(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
	if err := ValidateInput(t.desc, input); err != nil {
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: "VALIDATION_ERROR", Details: err}
	}
	detail, err := t.export(ctx, input, store, pkg)
	if err != nil {
		return nil, err
	}
	return &core.Result{
		Message: fmt.Sprintf("Export completed via %q.", t.desc.Name),
		Content: detail,
	}, nil
}

// RenderFunc builds a render payload from existing artifacts.
type RenderFunc func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error)

type displayTool struct {
	desc   core.Descriptor
	render RenderFunc
}

// NewDisplayTool wraps render with the display default: the result is passed
// through untouched and no artifact is created.
func NewDisplayTool(desc core.Descriptor, render RenderFunc) core.Tool {
	return &displayTool{desc: desc, render: render}
}

func (t *displayTool) Descriptor() core.Descriptor { return t.desc }

func (t *displayTool) Run(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
	if err := ValidateInput(t.desc, input); err != nil {
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: "VALIDATION_ERROR", Details: err}
	}
	return t.render(ctx, input, store, pkg)
}
