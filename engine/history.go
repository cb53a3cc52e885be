package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
)

// History returns a snapshot of the execution log, insertion order equal to
// call order.
func (e *Engine) History() []core.HistoryRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.HistoryRecord, len(e.history))
	copy(out, e.history)
	return out
}

// ExportPipeline writes the execution history as a JSON pipeline file. When
// pkg names an existing package the pipeline is also recorded inside it.
func (e *Engine) ExportPipeline(path, pkg string) (string, error) {
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	records := e.History()
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize pipeline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	if pkg != "" {
		if _, ok := e.store.GetPackage(pkg); ok {
			if err := e.store.AddPipeline(pkg, records); err != nil {
				return "", err
			}
		}
	}
	return path, nil
}

// ImportPipeline loads a pipeline JSON file and replays it record by record
// through the normal Run path. When pkg names an existing package the loaded
// pipeline is recorded inside it first.
func (e *Engine) ImportPipeline(ctx context.Context, path, pkg string) ([]*core.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []core.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse pipeline %q: %w", path, err)
	}
	if pkg != "" {
		if _, ok := e.store.GetPackage(pkg); ok {
			if err := e.store.AddPipeline(pkg, records); err != nil {
				return nil, err
			}
		}
	}
	return e.Replay(ctx, records)
}

// Replay re-invokes the dispatcher for each record in order.
func (e *Engine) Replay(ctx context.Context, records []core.HistoryRecord) ([]*core.Result, error) {
	results := make([]*core.Result, 0, len(records))
	for _, rec := range records {
		res, err := e.Run(ctx, rec.Tool, rec.Package, rec.Input)
		if err != nil {
			return results, fmt.Errorf("replay %q: %w", rec.Tool, err)
		}
		results = append(results, res)
	}
	return results, nil
}
