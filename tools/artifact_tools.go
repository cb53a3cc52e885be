package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/tool"
)

// NewCreateArtifact returns the generic artifact-creation tool. It is the one
// non-chat tool allowed inside guided sessions.
func NewCreateArtifact() core.Tool {
	desc := core.Descriptor{
		Name:        "create_artifact",
		Category:    core.CategoryGenerate,
		Description: "Create a single artifact from explicit type, content and an optional name.",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"type":    {Type: "string", Required: true, Description: "artifact type tag"},
				"content": {Type: "any", Required: true, Description: "artifact content"},
				"name":    {Type: "string", Description: "optional logical name"},
			},
			Outputs: map[string]core.OutputSpec{
				"artifact_id": {Remember: true, Description: "id of the created artifact"},
			},
		},
	}
	return tool.NewFunctionTool(desc, func(_ context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
		artifactType := tool.StringInput(input, "type")
		metadata := map[string]any{}
		if name := tool.StringInput(input, "name"); name != "" {
			metadata[core.MetadataName] = name
		}
		art, err := store.AddArtifact(pkg, artifactType, input["content"], metadata)
		if err != nil {
			return nil, err
		}
		return &core.Result{
			Message:     fmt.Sprintf("Created artifact %s (type: %s).", displayName(art), art.Type),
			ArtifactIDs: map[string]string{"artifact_id": art.ID},
		}, nil
	})
}

// NewNameArtifact returns the tool assigning a name to the most recent
// artifact of a type.
func NewNameArtifact() core.Tool {
	desc := core.Descriptor{
		Name:        "name_artifact",
		Category:    core.CategoryControl,
		Description: "Assign a logical name to the most recent artifact of the given type.",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"type": {Type: "string", Required: true, Description: "artifact type to rename"},
				"name": {Type: "string", Required: true, Description: "new logical name"},
			},
			Outputs: map[string]core.OutputSpec{
				"artifact_id": {Description: "id of the renamed artifact"},
			},
		},
	}
	return tool.NewFunctionTool(desc, func(_ context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
		art, err := store.Rename(pkg, tool.StringInput(input, "type"), tool.StringInput(input, "name"))
		if err != nil {
			return nil, err
		}
		return &core.Result{
			Message:     fmt.Sprintf("Name %q assigned to artifact id=%q type=%q.", art.Name(), art.ShortID(), art.Type),
			ArtifactIDs: map[string]string{"artifact_id": art.ID},
		}, nil
	})
}

// NewListArtifacts returns the display tool rendering the package's artifact
// inventory, optionally filtered by type.
func NewListArtifacts() core.Tool {
	desc := core.Descriptor{
		Name:        "list_artifacts",
		Category:    core.CategoryDisplay,
		Description: "List the artifacts in the package, newest first.",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"type": {Type: "string", Description: "optional type filter"},
			},
			Outputs: map[string]core.OutputSpec{},
		},
	}
	return tool.NewDisplayTool(desc, func(_ context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
		p, ok := store.GetPackage(pkg)
		if !ok {
			return nil, fmt.Errorf("package %q: %w", pkg, core.ErrNotFound)
		}
		arts := p.List(tool.StringInput(input, "type"))
		if len(arts) == 0 {
			return &core.Result{Message: "(no artifacts)"}, nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Artifacts in package %q:\n", pkg)
		for _, a := range arts {
			fmt.Fprintf(&b, "- %s | %s | %s | %s\n",
				displayName(a), a.Type, a.ShortID(), a.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return &core.Result{UI: b.String()}, nil
	})
}

func displayName(a *core.Artifact) string {
	if n := a.Name(); n != "" {
		return n
	}
	return a.ShortID()
}
