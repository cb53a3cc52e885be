package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/artifactmesh/artifact"
	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/session"
	"github.com/hupe1980/artifactmesh/tool"
)

func newStore(t *testing.T) *artifact.Registry {
	t.Helper()
	r := artifact.NewRegistry()
	_, err := r.CreatePackage("p")
	require.NoError(t, err)
	return r
}

func TestRegister_Order(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, Register(reg, model.NewMockChat(), session.NewManager(nil)))
	assert.Equal(t, []string{
		"create_artifact",
		"llm_chat",
		"start_session",
		"name_artifact",
		"list_artifacts",
		"read_csv",
		"export_package",
	}, reg.Names())
}

func TestCreateArtifact(t *testing.T) {
	store := newStore(t)
	ct := NewCreateArtifact()

	res, err := ct.Run(context.Background(), map[string]any{
		"type": "note", "content": "remember the milk", "name": "Groceries",
	}, store, "p")
	require.NoError(t, err)
	assert.Equal(t, "Created artifact Groceries (type: note).", res.Message)

	art, err := store.GetByID("p", res.ArtifactIDs["artifact_id"])
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", art.Content)
	assert.Equal(t, "Groceries", art.Name())

	// anonymous when no name given
	res, err = ct.Run(context.Background(), map[string]any{"type": "note", "content": "x"}, store, "p")
	require.NoError(t, err)
	art, err = store.GetByID("p", res.ArtifactIDs["artifact_id"])
	require.NoError(t, err)
	assert.Empty(t, art.Name())

	// missing required input
	_, err = ct.Run(context.Background(), map[string]any{"type": "note"}, store, "p")
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestNameArtifact(t *testing.T) {
	store := newStore(t)
	_, err := store.AddArtifact("p", "table", nil, nil)
	require.NoError(t, err)

	nt := NewNameArtifact()
	res, err := nt.Run(context.Background(), map[string]any{"type": "table", "name": "BOM"}, store, "p")
	require.NoError(t, err)
	assert.Contains(t, res.Message, `Name "BOM" assigned`)

	art, err := store.GetByName("p", "BOM")
	require.NoError(t, err)
	assert.Equal(t, art.ID, res.ArtifactIDs["artifact_id"])

	_, err = nt.Run(context.Background(), map[string]any{"type": "ghost", "name": "X"}, store, "p")
	assert.Error(t, err)
}

func TestListArtifacts(t *testing.T) {
	store := newStore(t)
	lt := NewListArtifacts()

	res, err := lt.Run(context.Background(), nil, store, "p")
	require.NoError(t, err)
	assert.Equal(t, "(no artifacts)", res.Message)

	_, err = store.AddArtifact("p", "note", "a", map[string]any{core.MetadataName: "Memo"})
	require.NoError(t, err)
	_, err = store.AddArtifact("p", "table", "b", nil)
	require.NoError(t, err)

	res, err = lt.Run(context.Background(), nil, store, "p")
	require.NoError(t, err)
	assert.Contains(t, res.UI, "Memo")
	assert.Contains(t, res.UI, "table")

	res, err = lt.Run(context.Background(), map[string]any{"type": "note"}, store, "p")
	require.NoError(t, err)
	assert.Contains(t, res.UI, "Memo")
	assert.NotContains(t, res.UI, "table |")
}

func TestLLMChat(t *testing.T) {
	store := newStore(t)
	chat := model.NewMockChat()
	chat.AddResponse("ping", "pong")

	ct := NewLLMChat(chat)
	res, err := ct.Run(context.Background(), map[string]any{"prompt": "ping"}, store, "p")
	require.NoError(t, err)
	assert.Equal(t, "pong", res.UI)

	art, err := store.GetByID("p", res.ArtifactIDs["conversation_artifact_id"])
	require.NoError(t, err)
	assert.Equal(t, "conversation", art.Type)
	content := art.Content.(map[string]any)
	assert.Equal(t, "ping", content["prompt"])
	assert.Equal(t, "pong", content["response"])
}

func TestLLMChat_NoModel(t *testing.T) {
	store := newStore(t)
	ct := NewLLMChat(nil)

	_, err := ct.Run(context.Background(), map[string]any{"prompt": "hi"}, store, "p")
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestReadCSV(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "parts.csv")
	require.NoError(t, os.WriteFile(path, []byte("sku,qty\nA-1,3\nB-2,7\n"), 0o644))

	rt := NewReadCSV()
	res, err := rt.Run(context.Background(), map[string]any{"path": path}, store, "p")
	require.NoError(t, err)

	art, err := store.GetByID("p", res.ArtifactIDs["table_artifact_id"])
	require.NoError(t, err)
	assert.Equal(t, "table", art.Type)
	assert.Equal(t, "parts", art.Name(), "name defaults to the file stem")

	content := art.Content.(map[string]any)
	assert.Equal(t, []string{"sku", "qty"}, content["headers"])
	rows := content["rows"].([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1", rows[0]["sku"])
	assert.Equal(t, "7", rows[1]["qty"])

	_, err = rt.Run(context.Background(), map[string]any{"path": filepath.Join(t.TempDir(), "missing.csv")}, store, "p")
	assert.Error(t, err)
}

func TestStartSession_ScriptedVsFreeform(t *testing.T) {
	store := newStore(t)
	sessions := session.NewManager(nil)
	st := NewStartSession(sessions)

	scriptYAML := "title: Intake\nsession:\n  type: interview\n  steps:\n    - key: part\n      ask: Which part?\n"
	_, err := store.AddArtifact("p", "prompt", scriptYAML, map[string]any{core.MetadataName: "Intake Prompt"})
	require.NoError(t, err)
	_, err = store.AddArtifact("p", "prompt", "Brainstorm the roadmap with me.", map[string]any{core.MetadataName: "Roadmap Prompt"})
	require.NoError(t, err)

	res, err := st.Run(context.Background(), map[string]any{"prompt_name": "Intake Prompt"}, store, "p")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "scripted")
	assert.Equal(t, "SESSION", res.SwitchContract)
	assert.Equal(t, "interview", res.SessionType)

	sess, err := sessions.Load(store, "p", res.ArtifactIDs["session_id"])
	require.NoError(t, err)
	assert.False(t, sess.LLMMode)
	assert.Equal(t, 1, sess.Total())

	// a prompt that is not a script starts a freeform session; lookup is
	// case-insensitive
	res, err = st.Run(context.Background(), map[string]any{"prompt_name": "roadmap prompt"}, store, "p")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "freeform")
	assert.Equal(t, "freeform", res.SessionType)

	sess, err = sessions.Load(store, "p", res.ArtifactIDs["session_id"])
	require.NoError(t, err)
	assert.True(t, sess.LLMMode)
	assert.Equal(t, "Brainstorm the roadmap with me.", sess.LLMSeed)

	_, err = st.Run(context.Background(), map[string]any{"prompt_name": "nope"}, store, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestStartSession_Attachments(t *testing.T) {
	store := newStore(t)
	sessions := session.NewManager(nil)
	st := NewStartSession(sessions)

	_, err := store.AddArtifact("p", "prompt", "Talk about the table.", map[string]any{core.MetadataName: "P"})
	require.NoError(t, err)
	_, err = store.AddArtifact("p", "table", map[string]any{"rows": 1}, map[string]any{core.MetadataName: "BOM"})
	require.NoError(t, err)

	res, err := st.Run(context.Background(), map[string]any{
		"prompt_name":      "P",
		"attachments":      []any{"BOM"},
		"attachment_types": []any{"missing_type"},
	}, store, "p")
	require.NoError(t, err)

	sess, err := sessions.Load(store, "p", res.ArtifactIDs["session_id"])
	require.NoError(t, err)
	require.Contains(t, sess.Attachments, "BOM")
	assert.Equal(t, "table", sess.Attachments["BOM"].Type)
}

func TestExportPackage(t *testing.T) {
	store := newStore(t)
	_, err := store.AddArtifact("p", "note", "x", nil)
	require.NoError(t, err)

	et := NewExportPackage()
	path := filepath.Join(t.TempDir(), "backup")
	res, err := et.Run(context.Background(), map[string]any{"path": path}, store, "p")
	require.NoError(t, err)

	written, ok := res.Content.(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(written, ".zip"))
	_, err = os.Stat(written)
	assert.NoError(t, err)
}
