package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/session"
	"github.com/hupe1980/artifactmesh/tool"
)

// NewStartSession returns the session-kickoff tool. It loads the named prompt
// artifact, decides between a scripted and a freeform session from its
// content, snapshots any referenced attachments and requests the contract
// switch; the dispatcher's autoswitch policy decides whether the switch is
// immediate or confirmed.
func NewStartSession(sessions *session.Manager) core.Tool {
	desc := core.Descriptor{
		Name:        "start_session",
		Category:    core.CategoryControl,
		Description: "Start a guided session from a prompt artifact (scripted when the prompt parses as a session script, freeform otherwise).",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"prompt_name":      {Type: "string", Required: true, Description: "name of the prompt artifact"},
				"attachments":      {Type: "list", Description: "artifact names to snapshot into the session"},
				"attachment_types": {Type: "list", Description: "artifact types whose latest instance to snapshot"},
			},
			Outputs: map[string]core.OutputSpec{
				"session_id": {Description: "id of the started session"},
			},
		},
	}
	return tool.NewFunctionTool(desc, func(_ context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
		promptName := tool.StringInput(input, "prompt_name")
		promptArt, err := findPromptArtifact(store, pkg, promptName)
		if err != nil {
			return nil, err
		}
		seed := contentAsString(promptArt.Content)

		var attachments []*core.Artifact
		for _, name := range tool.StringSliceInput(input, "attachments") {
			if art, err := store.GetByName(pkg, name); err == nil {
				attachments = append(attachments, art)
			}
		}
		for _, typ := range tool.StringSliceInput(input, "attachment_types") {
			if art, err := store.GetLatestByType(pkg, typ); err == nil {
				attachments = append(attachments, art)
			}
		}

		script, parseErr := session.ParseScript(seed)
		freeform := parseErr != nil
		if freeform {
			script = &session.Script{
				Title:   promptName,
				Session: &session.ScriptSession{Type: "freeform"},
			}
		}

		sess, err := sessions.Start(store, pkg, script, promptName, attachments)
		if err != nil {
			return nil, err
		}
		if freeform {
			sess.LLMMode = true
			sess.LLMSeed = seed
			if err := sessions.Store(store, pkg, sess); err != nil {
				return nil, err
			}
		}

		mode := "scripted"
		if freeform {
			mode = "freeform"
		}
		return &core.Result{
			Message:        fmt.Sprintf("Guided session ready (%s, prompt %q).", mode, promptName),
			ArtifactIDs:    map[string]string{"session_id": sess.SID},
			SwitchContract: "SESSION",
			SessionType:    sess.Type,
		}, nil
	})
}

// findPromptArtifact looks the prompt up by exact name first, then
// case-insensitively across the package.
func findPromptArtifact(store core.ArtifactStore, pkg, name string) (*core.Artifact, error) {
	if art, err := store.GetByName(pkg, name); err == nil {
		return art, nil
	}
	p, ok := store.GetPackage(pkg)
	if !ok {
		return nil, fmt.Errorf("package %q: %w", pkg, core.ErrNotFound)
	}
	lower := strings.ToLower(name)
	for _, a := range p.List("") {
		if strings.ToLower(a.Name()) == lower {
			return a, nil
		}
	}
	return nil, fmt.Errorf("prompt artifact %q: %w", name, core.ErrNotFound)
}

func contentAsString(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	return fmt.Sprint(content)
}
