package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/session"
	"github.com/hupe1980/artifactmesh/workspace"
)

var (
	finishWords = map[string]bool{"finish session": true, "finish": true, "conclude": true, "__finish__": true}
	abortWords  = map[string]bool{"cancel": true, "abort": true}
)

const fallbackReply = "Could you repeat that? I was distracted."

const facilitatorSystemPrompt = `You are in GUIDED SESSION MODE as a concise facilitator.

BEHAVIOR RULES:
- You are primarily a conversational facilitator: ask one clarifying question at a time,
  or offer a short actionable suggestion (1-3 sentences).
- Do NOT plan or use any tools except a single generic tool named ` + "`create_artifact`" + `.
- All other tools are DISABLED in this mode, even if you see them listed in your context.
- Only when the user has converged on content worth saving may you propose using ` + "`create_artifact`" + `.

HOW TO PLAN create_artifact:
- When you decide it is appropriate to create an artifact, respond ONLY with a single JSON object
  using this pattern:
  {"actions":[{"tool":"create_artifact","input":{"name":"...","type":"...","content":...}}]}
- No extra commentary, no markdown, just that JSON when you are planning ` + "`create_artifact`" + `.

On all OTHER turns (most of the time), respond in plain natural language only (no JSON).`

const summarizerSystemPrompt = "You are summarizing a technical working session. " +
	"Deliver a compact summary with sections: Context, Key Points, Decisions, Open Questions, Next Steps. " +
	"Prefer bullet lists; avoid fluff."

// actionPlan is the strict facilitator reply shape executed through Run.
type actionPlan struct {
	Actions []struct {
		Tool  string         `json:"tool"`
		Input map[string]any `json:"input"`
	} `json:"actions"`
}

// sessionTick advances the pending session with one turn of user text.
func (e *Engine) sessionTick(ctx context.Context, pkg, userText string) (*core.Result, error) {
	sess, err := e.sessions.Pending(e.store, pkg)
	if err != nil {
		e.SwitchContract(ModeDefault, "")
		return &core.Result{Message: "(No active session.)"}, nil
	}

	t := strings.ToLower(strings.TrimSpace(userText))
	if finishWords[t] {
		return e.finishSession(ctx, pkg, sess)
	}
	if abortWords[t] {
		if err := e.sessions.Cancel(e.store, pkg, sess.SID); err != nil {
			return nil, err
		}
		e.SwitchContract(ModeDefault, "")
		return &core.Result{Message: "Session canceled."}, nil
	}

	if sess.LLMMode && sess.LLMStyle == "freeform" {
		return e.freeformTick(ctx, pkg, sess, userText)
	}
	return e.scriptedTick(ctx, pkg, sess, userText)
}

// scriptedTick drives the scripted question loop: record the answer to the
// previously asked step, then either re-ask on a validation error, ask the
// next step, or synthesize the concluding artifact.
func (e *Engine) scriptedTick(_ context.Context, pkg string, sess *session.Session, userText string) (*core.Result, error) {
	if sess.Step > 0 {
		if errText := e.sessions.RecordAndAdvance(sess, userText); errText != "" {
			prompt, _ := e.currentPrompt(sess)
			return &core.Result{Message: errText, UI: fmt.Sprintf("%s\n\n%s", errText, prompt)}, nil
		}
	}

	if prompt, ok := e.sessions.NextPrompt(sess); ok {
		e.sessions.Advance(sess)
		if err := e.sessions.Store(e.store, pkg, sess); err != nil {
			return nil, err
		}
		return &core.Result{UI: prompt}, nil
	}

	// All steps answered: synthesize, clean up and fall back to DEFAULT.
	artifactType, name, content, err := e.sessions.Synthesize(sess)
	if err != nil {
		return nil, err
	}
	art, err := e.store.AddArtifact(pkg, artifactType, content, map[string]any{core.MetadataName: name})
	if err != nil {
		return nil, err
	}
	if err := e.sessions.Cancel(e.store, pkg, sess.SID); err != nil {
		return nil, err
	}
	e.SwitchContract(ModeDefault, "")
	return &core.Result{
		Message:     fmt.Sprintf("Session complete. Created artifact '%s'.", art.Name()),
		UI:          fmt.Sprintf("**Created**: %s (type: %s)", art.Name(), art.Type),
		ArtifactIDs: map[string]string{"session_artifact_id": art.ID},
	}, nil
}

// currentPrompt re-renders the prompt for the step the user just failed, so a
// validation error can re-ask it.
func (e *Engine) currentPrompt(sess *session.Session) (string, bool) {
	idx := sess.Step - 1
	if idx < 0 {
		idx = 0
	}
	steps := sess.Steps()
	if idx >= len(steps) {
		return "", false
	}
	if steps[idx].Ask != "" {
		return steps[idx].Ask, true
	}
	return fmt.Sprintf("Provide a value for '%s'.", steps[idx].Key), true
}

// freeformTick runs one facilitator turn: a deterministic opening echoing the
// seed on turn one, then facilitator replies that are either plain text or a
// strict actions plan executed through the normal Run path.
func (e *Engine) freeformTick(ctx context.Context, pkg string, sess *session.Session, userText string) (*core.Result, error) {
	if len(sess.Transcript) == 0 {
		kick := facilitatorOpening(sess)
		sess.Transcript = append(sess.Transcript, session.Turn{Role: "assistant", Text: kick})
		if err := e.sessions.Store(e.store, pkg, sess); err != nil {
			return nil, err
		}
		return &core.Result{
			UI: kick + "\n\nType `finish` to synthesize a summary artifact or `cancel` to abort.",
		}, nil
	}

	text := strings.TrimSpace(userText)
	if text != "" {
		sess.Transcript = append(sess.Transcript, session.Turn{Role: "user", Text: text})
	}

	rawReply := strings.TrimSpace(e.facilitatorReply(ctx, pkg, sess, text))
	finalUI := rawReply

	if strings.HasPrefix(rawReply, "{") && strings.Contains(rawReply, "actions") {
		var plan actionPlan
		if err := json.Unmarshal([]byte(rawReply), &plan); err == nil && len(plan.Actions) > 0 {
			var chunks []string
			for _, act := range plan.Actions {
				if act.Tool == "" {
					continue
				}
				res, err := e.Run(ctx, act.Tool, pkg, act.Input)
				if err != nil {
					chunks = append(chunks, fmt.Sprintf("`%s` failed: %v", act.Tool, err))
					continue
				}
				if out := res.Text(); out != "" {
					chunks = append(chunks, out)
				}
			}
			if len(chunks) > 0 {
				finalUI = strings.Join(chunks, "\n\n")
			} else {
				finalUI = "(no tool output)"
			}
		}
	}

	replyForTranscript := finalUI
	if replyForTranscript == "" {
		replyForTranscript = rawReply
	}
	if replyForTranscript != "" {
		sess.Transcript = append(sess.Transcript, session.Turn{Role: "assistant", Text: replyForTranscript})
	}
	if err := e.sessions.Store(e.store, pkg, sess); err != nil {
		return nil, err
	}
	if finalUI == "" {
		finalUI = "(no reply)"
	}
	return &core.Result{UI: finalUI}, nil
}

// facilitatorOpening is the deterministic first assistant message: it echoes
// the seed so the user sees the context guiding the session. No LLM call.
func facilitatorOpening(sess *session.Session) string {
	seed := strings.TrimSpace(sess.LLMSeed)
	if seed == "" {
		return "Where would you like to start?"
	}
	if runes := []rune(seed); len(runes) > 800 {
		seed = string(runes[:800]) + "…"
	}
	return "Here's the prompt/context you selected to guide this session:\n\n```markdown\n" +
		seed + "\n```\n\nWhat would you like to refine or add first?"
}

// facilitatorReply asks the chat model for the next facilitation turn. Any
// failure degrades to a fixed fallback string; a raise never propagates.
func (e *Engine) facilitatorReply(ctx context.Context, pkg string, sess *session.Session, userText string) string {
	if e.chat == nil {
		return fallbackReply
	}

	rec, err := workspace.Load(e.store, pkg)
	if err != nil {
		rec = nil
	}
	var memLines []string
	if rec != nil {
		for k, v := range rec.Memory {
			memLines = append(memLines, fmt.Sprintf("- %s: %T", k, v.Value))
		}
	}
	memBlock := "(none)"
	if len(memLines) > 0 {
		memBlock = strings.Join(memLines, "\n")
	}

	const lastK = 6
	history := sess.Transcript
	if len(history) > lastK {
		history = history[len(history)-lastK:]
	}
	var turns []string
	for _, t := range history {
		turns = append(turns, fmt.Sprintf("%s: %s", t.Role, t.Text))
	}

	user := fmt.Sprintf(
		"Seed/context:\n%s\n\nAttachments (keys/types):\n%s\n\nRecent turns (role: text):\n%s\n\nUser now says:\n%s\n\n"+
			"Decide what to do next:\n"+
			"- If the conversation is still exploring, reply with a short facilitator response in plain language.\n"+
			"- If the conversation has produced content that should be saved as an artifact, respond ONLY with\n"+
			"  a single JSON object describing a `create_artifact` action as described above.",
		sess.LLMSeed, memBlock, strings.Join(turns, "\n"), userText,
	)

	reply, err := e.chat.Chat(ctx, facilitatorSystemPrompt, []model.Message{{Role: "user", Content: user}})
	if err != nil {
		e.logger.Warn("facilitator call failed", "package", pkg, "sid", sess.SID, "error", err)
		return fallbackReply
	}
	return reply
}

// finishSession concludes the session: summarize the transcript, create the
// summary artifact, remove the session and return to DEFAULT.
func (e *Engine) finishSession(ctx context.Context, pkg string, sess *session.Session) (*core.Result, error) {
	content := e.summarizeSession(ctx, pkg, sess)
	if content == "" {
		content = "(no content)"
	}

	title := ""
	if sess.Spec != nil {
		title = sess.Spec.Title
	}
	if title == "" {
		title = sess.PromptName
	}
	if title == "" {
		title = "Session"
	}
	artifactType := "session_summary"
	if sess.Spec != nil && sess.Spec.Artifact != nil && sess.Spec.Artifact.Type != "" {
		artifactType = sess.Spec.Artifact.Type
	}

	art, err := e.store.AddArtifact(pkg, artifactType, content, map[string]any{
		core.MetadataName: "Session Summary: " + title,
	})
	if err != nil {
		return nil, err
	}
	if err := e.sessions.Cancel(e.store, pkg, sess.SID); err != nil {
		return nil, err
	}
	e.SwitchContract(ModeDefault, "")
	return &core.Result{
		Message:     fmt.Sprintf("Session complete. Created artifact '%s'.", art.Name()),
		UI:          fmt.Sprintf("**Created**: %s (type: %s)", art.Name(), art.Type),
		ArtifactIDs: map[string]string{"session_artifact_id": art.ID},
	}, nil
}

// summarizeSession produces the five-section conclusion summary, falling back
// to a deterministic minimal summary so conclusion never fails silently.
func (e *Engine) summarizeSession(ctx context.Context, pkg string, sess *session.Session) string {
	memKeys := "none"
	if rec, err := workspace.Load(e.store, pkg); err == nil && len(rec.Memory) > 0 {
		keys := make([]string, 0, len(rec.Memory))
		for k := range rec.Memory {
			keys = append(keys, k)
		}
		memKeys = strings.Join(keys, ", ")
	}

	if e.chat != nil {
		var convo []string
		for _, t := range sess.Transcript {
			convo = append(convo, fmt.Sprintf("%s: %s", strings.ToUpper(t.Role), t.Text))
		}
		transcript := strings.Join(convo, "\n")
		if transcript == "" {
			transcript = "(no transcript)"
		}
		user := fmt.Sprintf("Seed/context:\n%s\n\nAttachments present: %s\n\nTranscript:\n%s",
			sess.LLMSeed, memKeys, transcript)
		if txt, err := e.chat.Chat(ctx, summarizerSystemPrompt, []model.Message{{Role: "user", Content: user}}); err == nil {
			if txt = strings.TrimSpace(txt); txt != "" {
				return txt
			}
		} else {
			e.logger.Warn("summarizer call failed", "package", pkg, "sid", sess.SID, "error", err)
		}
	}

	seed := sess.LLMSeed
	if seed == "" {
		seed = "(none)"
	}
	return fmt.Sprintf(
		"Context\n- Seed: %s\n- Attachments: %s\n\nKey Points\n- (Summary call failed; please re-run summary later.)",
		seed, memKeys,
	)
}
