package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/artifactmesh/core"
)

// RunFunc is the implementation signature wrapped by FunctionTool. The input
// map arrives with symbolic names already resolved to artifact ids.
type RunFunc func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// tool. It validates required inputs against the declared IO schema before
// execution and normalizes failures into *ToolError with consistent codes:
//
//	VALIDATION_ERROR -> a required input is missing
//	EXECUTION_ERROR  -> the wrapped function returned a non-ToolError error
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use.
type FunctionTool struct {
	desc core.Descriptor
	fn   RunFunc
}

// Compile-time interface assertion.
var _ core.Tool = (*FunctionTool)(nil)

// NewFunctionTool constructs a FunctionTool from an explicit descriptor and
// implementation.
func NewFunctionTool(desc core.Descriptor, fn RunFunc) *FunctionTool {
	return &FunctionTool{desc: desc, fn: fn}
}

// Descriptor returns the registered metadata.
func (t *FunctionTool) Descriptor() core.Descriptor { return t.desc }

// Run validates required inputs then invokes the wrapped function.
func (t *FunctionTool) Run(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
	if err := ValidateInput(t.desc, input); err != nil {
		return nil, &ToolError{
			Tool:    t.desc.Name,
			Message: err.Error(),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}
	res, err := t.fn(ctx, input, store, pkg)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: t.desc.Name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	return res, nil
}

// ValidateInput checks that every input flagged required is present and
// non-nil. Extra fields are allowed.
func ValidateInput(desc core.Descriptor, input map[string]any) error {
	for name, spec := range desc.IO.Inputs {
		if !spec.Required {
			continue
		}
		v, ok := input[name]
		if !ok || v == nil {
			return &core.ValidationError{
				Field:   name,
				Message: fmt.Sprintf("required input is missing for tool %q", desc.Name),
			}
		}
	}
	return nil
}

// StringInput fetches a string-typed input field, trimmed of surrounding
// whitespace via fmt when it is not already a string.
func StringInput(input map[string]any, key string) string {
	v, ok := input[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// StringSliceInput fetches a list-of-strings input, tolerating []any payloads
// produced by JSON decoding.
func StringSliceInput(input map[string]any, key string) []string {
	switch v := input[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// MapInput fetches a map-typed input field.
func MapInput(input map[string]any, key string) map[string]any {
	if m, ok := input[key].(map[string]any); ok {
		return m
	}
	return nil
}
