package tools

import (
	"context"
	"fmt"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/tool"
)

// packageExporter is satisfied by the artifact registry's archive support.
type packageExporter interface {
	ExportPackage(pkg, path string) (string, error)
}

// NewExportPackage returns the export tool writing a whole package (artifacts
// plus recorded pipelines) to a zip archive.
func NewExportPackage() core.Tool {
	desc := core.Descriptor{
		Name:        "export_package",
		Category:    core.CategoryExport,
		Description: "Export the package's artifacts and pipelines to a zip archive.",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"path": {Type: "path", Required: true, Description: "archive path (a .zip suffix is appended when missing)"},
			},
			Outputs: map[string]core.OutputSpec{},
		},
	}
	return tool.NewExportTool(desc, func(_ context.Context, input map[string]any, store core.ArtifactStore, pkg string) (string, error) {
		exporter, ok := store.(packageExporter)
		if !ok {
			return "", fmt.Errorf("artifact store does not support package export")
		}
		written, err := exporter.ExportPackage(pkg, tool.StringInput(input, "path"))
		if err != nil {
			return "", err
		}
		return written, nil
	})
}
