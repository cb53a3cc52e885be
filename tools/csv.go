package tools

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/tool"
)

// NewReadCSV returns the CSV import tool: reads a file into a "table"
// artifact with headers and row maps.
func NewReadCSV() core.Tool {
	desc := core.Descriptor{
		Name:        "read_csv",
		Category:    core.CategoryImport,
		Description: "Load a CSV file into a table artifact.",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"path": {Type: "path", Required: true, Description: "CSV file to load"},
				"name": {Type: "string", Description: "optional artifact name (defaults to the file stem)"},
			},
			Outputs: map[string]core.OutputSpec{
				"table_artifact_id": {Type: "table", Remember: true, Description: "the loaded table"},
			},
		},
	}
	return tool.NewImportTool(desc, "table", func(_ context.Context, input map[string]any, _ core.ArtifactStore, _ string) (any, map[string]any, error) {
		path := tool.StringInput(input, "path")
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv %q: %w", path, err)
		}
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("parse csv %q: %w", path, err)
		}
		if len(records) == 0 {
			return nil, nil, fmt.Errorf("csv %q is empty", path)
		}

		headers := records[0]
		rows := make([]map[string]any, 0, len(records)-1)
		for _, rec := range records[1:] {
			row := make(map[string]any, len(headers))
			for i, h := range headers {
				if i < len(rec) {
					row[h] = rec[i]
				}
			}
			rows = append(rows, row)
		}

		name := tool.StringInput(input, "name")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		content := map[string]any{"headers": headers, "rows": rows}
		metadata := map[string]any{core.MetadataName: name, "source": path}
		return content, metadata, nil
	})
}
