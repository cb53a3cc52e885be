package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/artifactmesh/artifact"
	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/workspace"
)

func testStore(t *testing.T) *artifact.Registry {
	t.Helper()
	r := artifact.NewRegistry()
	_, err := r.CreatePackage("p")
	require.NoError(t, err)
	return r
}

func twoStepScript() *Script {
	return &Script{
		Title: "Test",
		Session: &ScriptSession{
			Type: "interview",
			Steps: []Step{
				{Key: "a", Ask: "Give me an int.", Type: "int"},
				{Key: "b", Ask: "Give me text.", Type: "text"},
			},
		},
	}
}

func TestScriptedFlow(t *testing.T) {
	m := NewManager(nil)
	store := testStore(t)
	sess, err := m.Start(store, "p", twoStepScript(), "test-prompt", nil)
	require.NoError(t, err)

	prompt, ok := m.NextPrompt(sess)
	require.True(t, ok)
	assert.Equal(t, "Give me an int.", prompt, "first prompt before any advance")

	// answering before any advance validates against the first step
	errText := m.RecordAndAdvance(sess, "notanint")
	assert.NotEmpty(t, errText)
	assert.Empty(t, sess.Answers)

	m.Advance(sess)
	errText = m.RecordAndAdvance(sess, "5")
	assert.Empty(t, errText)
	assert.Equal(t, 5, sess.Answers["a"], "typed int stored")

	m.Advance(sess)
	assert.Empty(t, m.RecordAndAdvance(sess, "hello"))
	assert.Equal(t, "hello", sess.Answers["b"])
	assert.True(t, m.Finished(sess))
	_, ok = m.NextPrompt(sess)
	assert.False(t, ok)
}

func TestCoercionAndValidation(t *testing.T) {
	m := NewManager(nil)
	sess := &Session{
		Spec: &Script{Session: &ScriptSession{
			Steps: []Step{
				{Key: "ratio", Type: "float"},
				{Key: "ok", Type: "bool"},
				{Key: "tags", Type: "list"},
				{Key: "color", Type: "text"},
				{Key: "code", Type: "text"},
			},
			Validate: map[string]Validation{
				"color": {Enum: []any{"red", "green"}},
				"code":  {Regex: `[A-Z]{3}-\d+`},
			},
		}},
		Answers: map[string]any{},
	}

	sess.Step = 1
	assert.Empty(t, m.RecordAndAdvance(sess, "2.5"))
	assert.Equal(t, 2.5, sess.Answers["ratio"])

	sess.Step = 2
	assert.Empty(t, m.RecordAndAdvance(sess, "Yes"))
	assert.Equal(t, true, sess.Answers["ok"])

	sess.Step = 3
	assert.Empty(t, m.RecordAndAdvance(sess, "a, b , ,c"))
	assert.Equal(t, []any{"a", "b", "c"}, sess.Answers["tags"])

	sess.Step = 4
	errText := m.RecordAndAdvance(sess, "blue")
	assert.Contains(t, errText, "must be one of")
	_, recorded := sess.Answers["color"]
	assert.False(t, recorded)
	assert.Empty(t, m.RecordAndAdvance(sess, "green"))

	sess.Step = 5
	errText = m.RecordAndAdvance(sess, "abc")
	assert.Contains(t, errText, "pattern")
	assert.Empty(t, m.RecordAndAdvance(sess, "ABC-42"))
}

func TestNormalize_V1Vars(t *testing.T) {
	s := &Script{Title: "Intake", Vars: []string{"owner", "deadline"}}
	norm := s.Normalize()

	require.NotNil(t, norm.Session)
	assert.Equal(t, "interview", norm.Session.Type)
	require.Len(t, norm.Session.Steps, 2)
	assert.Equal(t, "owner", norm.Session.Steps[0].Key)
	assert.Equal(t, "Provide a value for 'owner'.", norm.Session.Steps[0].Ask)
	assert.Equal(t, "text", norm.Session.Steps[0].Type)
	require.NotNil(t, norm.Artifact)
	assert.Equal(t, "interview_result", norm.Artifact.Type)
}

func TestParseScript(t *testing.T) {
	script, err := ParseScript("title: T\nsession:\n  type: form\n  steps:\n    - key: x\n      ask: X?\n")
	require.NoError(t, err)
	assert.Equal(t, "form", script.Session.Type)

	_, err = ParseScript("just a plain prompt, not a script")
	assert.Error(t, err)

	_, err = ParseScript("# freeform markdown prompt\nTalk to me about stakeholders.")
	assert.Error(t, err)
}

func TestPersistence_StartStoreLoadCancel(t *testing.T) {
	m := NewManager(nil)
	store := testStore(t)

	att, err := store.AddArtifact("p", "table", map[string]any{"rows": 3}, map[string]any{core.MetadataName: "BOM"})
	require.NoError(t, err)

	sess, err := m.Start(store, "p", twoStepScript(), "test-prompt", []*core.Artifact{att})
	require.NoError(t, err)

	rec, err := workspace.Load(store, "p")
	require.NoError(t, err)
	assert.Equal(t, sess.SID, rec.PendingSID)
	assert.Contains(t, rec.Sessions, sess.SID)
	assert.Contains(t, rec.Memory, "BOM", "attachment mirrored into workspace memory")
	assert.Equal(t, "table", sess.Attachments["BOM"].Type)

	sess.Step = 1
	sess.Answers["a"] = 5
	require.NoError(t, m.Store(store, "p", sess))

	loaded, err := m.Load(store, "p", sess.SID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Step)
	assert.EqualValues(t, 5, loaded.Answers["a"])

	pending, err := m.Pending(store, "p")
	require.NoError(t, err)
	assert.Equal(t, sess.SID, pending.SID)

	require.NoError(t, m.Cancel(store, "p", sess.SID))
	_, err = m.Load(store, "p", sess.SID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = m.Pending(store, "p")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSynthesize(t *testing.T) {
	m := NewManager(nil)
	sess := &Session{
		Type: "interview",
		Spec: &Script{
			Title: "Intake",
			Artifact: &ArtifactTemplate{
				Type:            "intake_result",
				NameTemplate:    "Intake {{.title}}",
				ContentTemplate: "component={{.answers.component}}",
			},
		},
		Answers: map[string]any{"component": "gateway"},
	}

	artifactType, name, content, err := m.Synthesize(sess)
	require.NoError(t, err)
	assert.Equal(t, "intake_result", artifactType)
	assert.Equal(t, "Intake Intake", name)
	assert.Equal(t, "component=gateway", content)

	// defaults when no template block is present
	sess.Spec.Artifact = nil
	artifactType, _, content, err = m.Synthesize(sess)
	require.NoError(t, err)
	assert.Equal(t, "interview_result", artifactType)
	assert.Contains(t, content, "gateway")
}
