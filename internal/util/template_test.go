package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	state := map[string]any{
		"title":   "",
		"answers": map[string]any{"part": "gear", "qty": 3},
		"tags":    []any{"a", "b"},
	}

	out, err := RenderTemplate("no markers here", state)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)

	out, err = RenderTemplate(`Interview {{default "Result" .title}}`, state)
	require.NoError(t, err)
	assert.Equal(t, "Interview Result", out)

	out, err = RenderTemplate("{{tojson .answers}}", state)
	require.NoError(t, err)
	assert.Contains(t, out, `"part":"gear"`)

	out, err = RenderTemplate(`{{join ", " .tags}} / {{upper "go"}}`, state)
	require.NoError(t, err)
	assert.Equal(t, "a, b / GO", out)

	_, err = RenderTemplate("{{.broken", state)
	assert.Error(t, err)
}
