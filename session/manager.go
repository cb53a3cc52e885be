package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/internal/util"
	"github.com/hupe1980/artifactmesh/logging"
	"github.com/hupe1980/artifactmesh/workspace"
)

// Manager runs the guided-session lifecycle. All durable state lives in the
// workspace record; the manager itself is stateless apart from its logger.
type Manager struct {
	logger logging.Logger
}

// NewManager creates a session manager.
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Manager{logger: logger}
}

// Start normalizes the script, creates a session and persists it as the
// package's single pending session. Attachment artifacts are snapshotted into
// the session and into workspace memory.
func (m *Manager) Start(store core.ArtifactStore, pkg string, script *Script, promptName string, attachments []*core.Artifact) (*Session, error) {
	spec := script.Normalize()
	sessionType := "interview"
	if spec.Session != nil && spec.Session.Type != "" {
		sessionType = spec.Session.Type
	}
	sess := &Session{
		SID:         core.NewID(),
		Spec:        spec,
		Type:        sessionType,
		Answers:     map[string]any{},
		PromptName:  promptName,
		Attachments: map[string]Attachment{},
		LLMStyle:    "freeform",
	}

	rec, err := workspace.Load(store, pkg)
	if err != nil {
		return nil, err
	}
	for i, art := range attachments {
		if art == nil {
			continue
		}
		key := art.Name()
		if key == "" {
			key = fmt.Sprintf("attach_%d", i+1)
		}
		sess.Attachments[key] = Attachment{Type: art.Type, Origin: art.Name(), Value: art.Content}
		rec.Memory[key] = workspace.MemoryEntry{
			Type:           art.Type,
			Value:          art.Content,
			UpdatedAt:      workspace.NowISO(),
			OriginArtifact: art.Name(),
		}
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("serialize session %s: %w", sess.SID, err)
	}
	rec.Sessions[sess.SID] = data
	rec.PendingSID = sess.SID
	if err := workspace.Save(store, pkg, rec); err != nil {
		return nil, err
	}
	m.logger.Info("session started", "sid", sess.SID, "package", pkg, "type", sess.Type)
	return sess, nil
}

// Load returns the persisted session with the given id.
func (m *Manager) Load(store core.ArtifactStore, pkg, sid string) (*Session, error) {
	rec, err := workspace.Load(store, pkg)
	if err != nil {
		return nil, err
	}
	raw, ok := rec.Sessions[sid]
	if !ok {
		return nil, fmt.Errorf("session %q in package %q: %w", sid, pkg, core.ErrNotFound)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", sid, err)
	}
	if sess.Answers == nil {
		sess.Answers = map[string]any{}
	}
	if sess.Attachments == nil {
		sess.Attachments = map[string]Attachment{}
	}
	return &sess, nil
}

// Pending returns the package's pending session, or ErrNotFound when none.
func (m *Manager) Pending(store core.ArtifactStore, pkg string) (*Session, error) {
	rec, err := workspace.Load(store, pkg)
	if err != nil {
		return nil, err
	}
	if rec.PendingSID == "" {
		return nil, fmt.Errorf("no pending session in package %q: %w", pkg, core.ErrNotFound)
	}
	return m.Load(store, pkg, rec.PendingSID)
}

// Store persists the session back into the workspace record.
func (m *Manager) Store(store core.ArtifactStore, pkg string, sess *Session) error {
	rec, err := workspace.Load(store, pkg)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("serialize session %s: %w", sess.SID, err)
	}
	rec.Sessions[sess.SID] = data
	return workspace.Save(store, pkg, rec)
}

// Cancel removes the session from the workspace without creating an artifact.
func (m *Manager) Cancel(store core.ArtifactStore, pkg, sid string) error {
	rec, err := workspace.Load(store, pkg)
	if err != nil {
		return err
	}
	delete(rec.Sessions, sid)
	if rec.PendingSID == sid {
		rec.PendingSID = ""
	}
	if err := workspace.Save(store, pkg, rec); err != nil {
		return err
	}
	m.logger.Info("session cancelled", "sid", sid, "package", pkg)
	return nil
}

// NextPrompt returns the ask text for the step at the cursor; ok is false when
// the session is finished.
func (m *Manager) NextPrompt(sess *Session) (string, bool) {
	if sess.Step >= sess.Total() {
		return "", false
	}
	step := sess.Steps()[sess.Step]
	if step.Ask != "" {
		return step.Ask, true
	}
	key := step.Key
	if key == "" {
		key = "q"
	}
	return fmt.Sprintf("Provide a value for '%s'.", key), true
}

// RecordAndAdvance coerces and validates the answer to the most recently asked
// step, storing it under the step's key. It returns an error text on a failed
// coercion or constraint (leaving the cursor and answers untouched); the
// caller advances the cursor separately via Advance.
func (m *Manager) RecordAndAdvance(sess *Session, userAnswer string) string {
	steps := sess.Steps()
	if len(steps) == 0 {
		return ""
	}
	idx := sess.Step - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(steps) {
		return ""
	}
	step := steps[idx]
	key := step.Key
	if key == "" {
		key = fmt.Sprintf("q%d", idx+1)
	}
	typ := strings.ToLower(step.Type)
	if typ == "" {
		typ = "text"
	}

	val, err := coerce(typ, strings.TrimSpace(userAnswer))
	if err != nil {
		return fmt.Sprintf("Expected %s. Try again.", typ)
	}
	if sess.Spec != nil && sess.Spec.Session != nil {
		if v, ok := sess.Spec.Session.Validate[key]; ok {
			if errText := checkConstraint(v, val); errText != "" {
				return errText
			}
		}
	}
	if sess.Answers == nil {
		sess.Answers = map[string]any{}
	}
	sess.Answers[key] = val
	return ""
}

// Advance moves the cursor to the next step.
func (m *Manager) Advance(sess *Session) {
	if sess.Step < sess.Total() {
		sess.Step++
	}
}

// Finished reports whether every scripted step has been asked.
func (m *Manager) Finished(sess *Session) bool { return sess.Step >= sess.Total() }

func coerce(typ, ans string) (any, error) {
	switch typ {
	case "int":
		return strconv.Atoi(ans)
	case "float":
		return strconv.ParseFloat(ans, 64)
	case "bool":
		switch strings.ToLower(ans) {
		case "y", "yes", "true", "1":
			return true, nil
		default:
			return false, nil
		}
	case "list":
		parts := strings.Split(ans, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return ans, nil
	}
}

func checkConstraint(v Validation, val any) string {
	if len(v.Enum) > 0 {
		found := false
		for _, e := range v.Enum {
			if fmt.Sprint(e) == fmt.Sprint(val) {
				found = true
				break
			}
		}
		if !found {
			opts := make([]string, len(v.Enum))
			for i, e := range v.Enum {
				opts[i] = fmt.Sprint(e)
			}
			return fmt.Sprintf("Value must be one of: %s", strings.Join(opts, ", "))
		}
	}
	if v.Regex != "" {
		if s, ok := val.(string); ok {
			// Match at the start of the value, like the prompt authors expect.
			re, err := regexp.Compile("^(?:" + v.Regex + ")")
			if err != nil || !re.MatchString(s) {
				return fmt.Sprintf("Does not match pattern: %s", v.Regex)
			}
		}
	}
	return ""
}

// Synthesize renders the concluding artifact's type, name and content from
// the artifact template and the collected answers.
func (m *Manager) Synthesize(sess *Session) (artifactType, name, content string, err error) {
	var tmpl ArtifactTemplate
	if sess.Spec != nil && sess.Spec.Artifact != nil {
		tmpl = *sess.Spec.Artifact
	}
	ctx := map[string]any{
		"answers": sess.Answers,
		"title":   "",
		"now":     workspace.NowISO(),
	}
	if sess.Spec != nil {
		ctx["title"] = sess.Spec.Title
	}

	artifactType = tmpl.Type
	if artifactType == "" {
		artifactType = sess.Type + "_result"
	}
	nameTmpl := tmpl.NameTemplate
	if nameTmpl == "" {
		nameTmpl = "Session Result {{.now}}"
	}
	contentTmpl := tmpl.ContentTemplate
	if contentTmpl == "" {
		contentTmpl = "{{tojson .answers}}"
	}

	name, err = util.RenderTemplate(nameTmpl, ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("render artifact name: %w", err)
	}
	content, err = util.RenderTemplate(contentTmpl, ctx)
	if err != nil {
		return "", "", "", fmt.Errorf("render artifact content: %w", err)
	}
	return artifactType, name, content, nil
}
