package tools

import (
	"context"
	"fmt"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/tool"
)

// NewLLMChat returns the chat tool: one prompt/response exchange against the
// configured model, captured as a "conversation" artifact.
func NewLLMChat(chat model.ChatModel) core.Tool {
	desc := core.Descriptor{
		Name:        "llm_chat",
		Category:    core.CategoryChat,
		Description: "Send a prompt to the language model and record the exchange.",
		IO: core.IOSchema{
			Inputs: map[string]core.InputSpec{
				"prompt":  {Type: "string", Required: true, Description: "user prompt"},
				"context": {Type: "string", Description: "system context for this turn"},
			},
			Outputs: map[string]core.OutputSpec{
				"conversation_artifact_id": {Type: "conversation", Remember: true, Description: "recorded exchange"},
			},
		},
	}
	return tool.NewFunctionTool(desc, func(ctx context.Context, input map[string]any, store core.ArtifactStore, pkg string) (*core.Result, error) {
		if chat == nil {
			return nil, tool.NewToolError("llm_chat", "no chat model configured", "EXECUTION_ERROR")
		}
		prompt := tool.StringInput(input, "prompt")
		system := tool.StringInput(input, "context")

		response, err := chat.Chat(ctx, system, []model.Message{{Role: "user", Content: prompt}})
		if err != nil {
			return nil, fmt.Errorf("chat call failed: %w", err)
		}

		art, err := store.AddArtifact(pkg, "conversation", map[string]any{
			"prompt":   prompt,
			"response": response,
		}, nil)
		if err != nil {
			return nil, err
		}
		return &core.Result{
			UI:          response,
			Content:     response,
			ArtifactIDs: map[string]string{"conversation_artifact_id": art.ID},
		}, nil
	})
}
