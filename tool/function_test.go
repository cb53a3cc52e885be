package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/artifactmesh/artifact"
	"github.com/hupe1980/artifactmesh/core"
)

func echoDescriptor() core.Descriptor {
	return core.Descriptor{
		Name:     "echo",
		Category: core.CategoryTransform,
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"value": {Type: "string", Required: true},
				"hint":  {Type: "string"},
			},
			Outputs: map[string]core.OutputSpec{},
		},
	}
}

func TestFunctionTool_MissingRequiredInput(t *testing.T) {
	ft := NewFunctionTool(echoDescriptor(), func(_ context.Context, input map[string]any, _ core.ArtifactStore, _ string) (*core.Result, error) {
		return &core.Result{Message: StringInput(input, "value")}, nil
	})

	store := artifact.NewRegistry()
	_, err := ft.Run(context.Background(), map[string]any{"hint": "x"}, store, "p")
	require.Error(t, err)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "echo", toolErr.Tool)
}

func TestFunctionTool_WrapsPlainErrors(t *testing.T) {
	ft := NewFunctionTool(echoDescriptor(), func(context.Context, map[string]any, core.ArtifactStore, string) (*core.Result, error) {
		return nil, errors.New("boom")
	})

	_, err := ft.Run(context.Background(), map[string]any{"value": "x"}, artifact.NewRegistry(), "p")
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "boom")
}

func TestFunctionTool_PassesThroughToolErrors(t *testing.T) {
	orig := NewToolError("echo", "custom", "VALIDATION_ERROR")
	ft := NewFunctionTool(echoDescriptor(), func(context.Context, map[string]any, core.ArtifactStore, string) (*core.Result, error) {
		return nil, orig
	})

	_, err := ft.Run(context.Background(), map[string]any{"value": "x"}, artifact.NewRegistry(), "p")
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Same(t, orig, toolErr)
}

func TestInputHelpers(t *testing.T) {
	input := map[string]any{
		"s":    "text",
		"n":    42,
		"list": []any{"a", "b", 3},
		"m":    map[string]any{"k": "v"},
	}
	assert.Equal(t, "text", StringInput(input, "s"))
	assert.Equal(t, "42", StringInput(input, "n"))
	assert.Equal(t, "", StringInput(input, "missing"))
	assert.Equal(t, []string{"a", "b"}, StringSliceInput(input, "list"))
	assert.Nil(t, StringSliceInput(input, "s"))
	assert.Equal(t, map[string]any{"k": "v"}, MapInput(input, "m"))
	assert.Nil(t, MapInput(input, "s"))
}
