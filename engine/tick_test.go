package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/session"
	"github.com/hupe1980/artifactmesh/workspace"
)

// scriptChat replies with a fixed sequence, for steering facilitator turns.
type scriptChat struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (s *scriptChat) Chat(_ context.Context, _ string, _ []model.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "ok", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptChat) Info() model.Info { return model.Info{Name: "script", Provider: "test"} }

func startScripted(t *testing.T, e *Engine) *session.Session {
	t.Helper()
	script := &session.Script{
		Title: "Intake",
		Session: &session.ScriptSession{
			Type: "interview",
			Steps: []session.Step{
				{Key: "count", Ask: "How many?", Type: "int"},
				{Key: "notes", Ask: "Any notes?", Type: "text"},
			},
		},
	}
	sess, err := e.Sessions().Start(e.Store(), "p", script, "intake-prompt", nil)
	require.NoError(t, err)
	e.SwitchContract(ModeSession, sess.Type)
	return sess
}

func TestSessionTick_ScriptedFlow(t *testing.T) {
	e := newTestEngine(t)
	startScripted(t, e)

	// first tick asks the first question without recording anything
	res, err := e.HandleUserMessage(context.Background(), "begin")
	require.NoError(t, err)
	assert.Equal(t, "How many?", res.UI)

	// a bad answer re-asks the same step
	res, err = e.HandleUserMessage(context.Background(), "lots")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Expected int")
	assert.Contains(t, res.UI, "How many?")

	res, err = e.HandleUserMessage(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, "Any notes?", res.UI)

	// final answer synthesizes the concluding artifact and exits SESSION mode
	res, err = e.HandleUserMessage(context.Background(), "none")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Session complete")
	id := res.ArtifactIDs["session_artifact_id"]
	require.NotEmpty(t, id)
	art, err := e.Store().GetByID("p", id)
	require.NoError(t, err)
	assert.Equal(t, "interview_result", art.Type)
	assert.Contains(t, art.Content.(string), "12")
	assert.Equal(t, ModeDefault, e.ContractMode())

	// the session is gone
	_, err = e.Sessions().Pending(e.Store(), "p")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSessionTick_Abort(t *testing.T) {
	e := newTestEngine(t)
	startScripted(t, e)

	res, err := e.HandleUserMessage(context.Background(), "cancel")
	require.NoError(t, err)
	assert.Equal(t, "Session canceled.", res.Message)
	assert.Equal(t, ModeDefault, e.ContractMode())
	_, err = e.Sessions().Pending(e.Store(), "p")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSessionTick_NoPendingSession(t *testing.T) {
	e := newTestEngine(t)
	e.SwitchContract(ModeSession, "interview")

	res, err := e.HandleUserMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "(No active session.)", res.Message)
	assert.Equal(t, ModeDefault, e.ContractMode(), "stale SESSION mode self-heals")
}

func startFreeform(t *testing.T, e *Engine, seed string) *session.Session {
	t.Helper()
	script := &session.Script{Title: "Brainstorm", Session: &session.ScriptSession{Type: "freeform"}}
	sess, err := e.Sessions().Start(e.Store(), "p", script, "brainstorm-prompt", nil)
	require.NoError(t, err)
	sess.LLMMode = true
	sess.LLMSeed = seed
	require.NoError(t, e.Sessions().Store(e.Store(), "p", sess))
	e.SwitchContract(ModeSession, sess.Type)
	return sess
}

func TestFreeformTick_OpeningEchoesSeed(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.Chat = &scriptChat{}
	})
	startFreeform(t, e, "Design the ingest path.")

	res, err := e.HandleUserMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Contains(t, res.UI, "Design the ingest path.")
	assert.Contains(t, res.UI, "```markdown")
	assert.Contains(t, res.UI, "Type `finish`")
}

func TestFreeformTick_OpeningTruncatesOnRuneBoundary(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.Chat = &scriptChat{}
	})
	startFreeform(t, e, strings.Repeat("é", 900))

	res, err := e.HandleUserMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(res.UI), "truncation must not split a rune")
	assert.Contains(t, res.UI, strings.Repeat("é", 800)+"…")
	assert.NotContains(t, res.UI, strings.Repeat("é", 801))
}

func TestFreeformTick_PlainAndPlannedTurns(t *testing.T) {
	chat := &scriptChat{replies: []string{
		"What constraints matter most?",
		`{"actions":[{"tool":"create_artifact","input":{"type":"note","content":"ingest plan","name":"Plan"}}]}`,
	}}
	e := newTestEngine(t, func(o *Options) {
		o.Chat = chat
	})
	registerFunc(t, e, core.Descriptor{
		Name:     "create_artifact",
		Category: core.CategoryGenerate,
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"type":    {Type: "string", Required: true},
				"content": {Type: "string", Required: true},
			},
		},
	}, func(_ context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
		art, err := store.AddArtifact(pkg, input["type"].(string), input["content"], map[string]any{core.MetadataName: input["name"]})
		if err != nil {
			return nil, err
		}
		return &core.Result{Message: "Created " + art.Name()}, nil
	})
	startFreeform(t, e, "seed")

	_, err := e.HandleUserMessage(context.Background(), "hi") // opening
	require.NoError(t, err)

	res, err := e.HandleUserMessage(context.Background(), "let's plan ingestion")
	require.NoError(t, err)
	assert.Equal(t, "What constraints matter most?", res.UI)

	res, err = e.HandleUserMessage(context.Background(), "latency, then cost")
	require.NoError(t, err)
	assert.Contains(t, res.UI, "Created Plan", "planned actions run through the dispatcher")
	_, err = e.Store().GetByName("p", "Plan")
	require.NoError(t, err)

	// both turns landed in the persisted transcript
	sess, err := e.Sessions().Pending(e.Store(), "p")
	require.NoError(t, err)
	var userTurns int
	for _, turn := range sess.Transcript {
		if turn.Role == "user" {
			userTurns++
		}
	}
	assert.Equal(t, 2, userTurns)
}

func TestFreeformTick_NoChatModelFallsBack(t *testing.T) {
	e := newTestEngine(t)
	startFreeform(t, e, "seed")

	_, err := e.HandleUserMessage(context.Background(), "hi") // opening
	require.NoError(t, err)
	res, err := e.HandleUserMessage(context.Background(), "anyone there?")
	require.NoError(t, err)
	assert.Equal(t, "Could you repeat that? I was distracted.", res.UI)
}

func TestFinishSession_SummaryArtifact(t *testing.T) {
	chat := &scriptChat{replies: []string{
		"Sure, tell me more.",
		"Context\n- Seed: seed\n\nKey Points\n- latency first",
	}}
	e := newTestEngine(t, func(o *Options) {
		o.Chat = chat
	})
	startFreeform(t, e, "seed")

	_, err := e.HandleUserMessage(context.Background(), "hi") // opening
	require.NoError(t, err)
	_, err = e.HandleUserMessage(context.Background(), "latency matters")
	require.NoError(t, err)

	res, err := e.HandleUserMessage(context.Background(), "finish")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Session complete")

	art, err := e.Store().GetByID("p", res.ArtifactIDs["session_artifact_id"])
	require.NoError(t, err)
	assert.Equal(t, "session_summary", art.Type)
	assert.Equal(t, "Session Summary: Brainstorm", art.Name())
	assert.Contains(t, art.Content.(string), "latency first")
	assert.Equal(t, ModeDefault, e.ContractMode())
}

func TestFinishSession_SummarizerFailureFallback(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.Chat = &scriptChat{err: errors.New("model down")}
	})
	startFreeform(t, e, "roadmap seed")

	res, err := e.HandleUserMessage(context.Background(), "finish")
	require.NoError(t, err)

	art, err := e.Store().GetByID("p", res.ArtifactIDs["session_artifact_id"])
	require.NoError(t, err)
	content := art.Content.(string)
	assert.Contains(t, content, "Seed: roadmap seed")
	assert.Contains(t, content, "Key Points")
}

func TestNormalChatFlow_InjectionsConsumed(t *testing.T) {
	e := newTestEngine(t)
	var seenContext string
	registerFunc(t, e, core.Descriptor{
		Name:     "llm_chat",
		Category: core.CategoryChat,
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{"prompt": {Type: "string", Required: true}, "context": {Type: "string"}},
		},
	}, func(_ context.Context, input map[string]any, _ core.ArtifactStore, _ string) (*core.Result, error) {
		seenContext, _ = input["context"].(string)
		return &core.Result{UI: "reply"}, nil
	})

	require.NoError(t, workspace.PutInjection(e.Store(), "p", "hint", "Confirm the switch.", 0))
	res, err := e.HandleUserMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply", res.UI)
	assert.Contains(t, seenContext, "You have access to the following tools")
	assert.Contains(t, seenContext, "Confirm the switch.")

	// one-shot: a second turn no longer carries the injection
	_, err = e.HandleUserMessage(context.Background(), "again")
	require.NoError(t, err)
	assert.NotContains(t, seenContext, "Confirm the switch.")
}
