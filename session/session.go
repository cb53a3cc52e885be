// Package session implements the guided-session subsystem: script parsing and
// normalization, the session state (cursor, typed answers, attachments,
// transcript) and the manager that persists sessions inside the package's
// workspace record.
package session

// Turn is one transcript entry of a freeform session.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Attachment is a snapshot of a referenced artifact's value, taken at session
// start so later edits to the source artifact do not change the session's view.
type Attachment struct {
	Type   string `json:"type"`
	Origin string `json:"origin"`
	Value  any    `json:"value"`
}

// Session is the state of one guided session. It is serialized as JSON into
// the workspace record after every mutation; at most one session per package
// is pending at a time.
type Session struct {
	SID        string         `json:"sid"`
	Spec       *Script        `json:"spec"`
	Type       string         `json:"type"` // interview | checklist | form | triage | review | freeform
	Step       int            `json:"step"` // 0-based cursor into the steps
	Answers    map[string]any `json:"answers"`
	PromptName string         `json:"prompt_name"`

	Attachments map[string]Attachment `json:"attachments"`

	// Freeform facilitator config.
	LLMMode  bool   `json:"llm_mode"`
	LLMSeed  string `json:"llm_seed"`
	LLMStyle string `json:"llm_style"`

	Transcript []Turn `json:"transcript"`
}

// Steps returns the normalized step list, never nil.
func (s *Session) Steps() []Step {
	if s.Spec == nil || s.Spec.Session == nil {
		return nil
	}
	return s.Spec.Session.Steps
}

// Total is the number of scripted steps.
func (s *Session) Total() int { return len(s.Steps()) }
