// Package tools provides the built-in capability set: generic artifact
// creation and naming, tool-aware chat, guided-session kickoff, CSV import,
// artifact listing and package export.
package tools

import (
	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/session"
	"github.com/hupe1980/artifactmesh/tool"
)

// Register adds every built-in tool to the registry. chat may be nil when no
// model is configured; the chat tool then fails with an execution error
// instead of being absent, so plans referencing it degrade gracefully.
func Register(reg *tool.Registry, chat model.ChatModel, sessions *session.Manager) error {
	builtins := []core.Tool{
		NewCreateArtifact(),
		NewLLMChat(chat),
		NewStartSession(sessions),
		NewNameArtifact(),
		NewListArtifacts(),
		NewReadCSV(),
		NewExportPackage(),
	}
	for _, t := range builtins {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
