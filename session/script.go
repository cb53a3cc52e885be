package session

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Validation constrains an answer keyed by its step key.
type Validation struct {
	Enum  []any  `json:"enum,omitempty" yaml:"enum"`
	Regex string `json:"regex,omitempty" yaml:"regex"`
}

// Step is one scripted question.
type Step struct {
	Key  string `json:"key" yaml:"key"`
	Ask  string `json:"ask,omitempty" yaml:"ask"`
	Type string `json:"type,omitempty" yaml:"type"` // int | float | bool | list | text
}

// ScriptSession is the session block of a v2 script.
type ScriptSession struct {
	Type     string                `json:"type,omitempty" yaml:"type"`
	Steps    []Step                `json:"steps" yaml:"steps"`
	Validate map[string]Validation `json:"validate,omitempty" yaml:"validate"`
}

// ArtifactTemplate declares how the concluding artifact is synthesized from
// the collected answers.
type ArtifactTemplate struct {
	Type            string `json:"type,omitempty" yaml:"type"`
	NameTemplate    string `json:"name_template,omitempty" yaml:"name_template"`
	ContentTemplate string `json:"content_template,omitempty" yaml:"content_template"`
}

// Script is a session script in either shape: v2 carries a session block with
// explicit steps; v1 carries only a flat vars list and is normalized into an
// interview.
type Script struct {
	Title    string            `json:"title,omitempty" yaml:"title"`
	Vars     []string          `json:"vars,omitempty" yaml:"vars"`
	Session  *ScriptSession    `json:"session,omitempty" yaml:"session"`
	Artifact *ArtifactTemplate `json:"artifact,omitempty" yaml:"artifact"`
}

// ParseScript decodes a YAML (or JSON) script. A document carrying neither a
// session block nor a vars list is not a script.
func ParseScript(text string) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("parse session script: %w", err)
	}
	if s.Session == nil && len(s.Vars) == 0 {
		return nil, fmt.Errorf("document is not a session script: no session block or vars list")
	}
	return &s, nil
}

// Normalize returns the canonical v2 shape. A v1 vars-only script is wrapped
// into an interview whose steps ask for each variable as text.
func (s *Script) Normalize() *Script {
	if s.Session != nil {
		if s.Session.Type == "" {
			s.Session.Type = "interview"
		}
		return s
	}
	steps := make([]Step, 0, len(s.Vars))
	for _, v := range s.Vars {
		steps = append(steps, Step{
			Key:  v,
			Ask:  fmt.Sprintf("Provide a value for '%s'.", v),
			Type: "text",
		})
	}
	return &Script{
		Title:   s.Title,
		Session: &ScriptSession{Type: "interview", Steps: steps},
		Artifact: &ArtifactTemplate{
			Type:            "interview_result",
			NameTemplate:    "Interview {{default \"Result\" .title}} {{.now}}",
			ContentTemplate: "{{tojson .answers}}",
		},
	}
}
