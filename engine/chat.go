package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/workspace"
)

var (
	confirmWords = map[string]bool{"yes": true, "y": true, "start": true, "start session": true}
	declineWords = map[string]bool{"no": true, "n": true, "cancel": true}
)

// HandleUserMessage routes free user text: a pending contract-switch
// confirmation is resolved first; in SESSION mode the text feeds the session
// tick; otherwise it goes through the default chat flow.
func (e *Engine) HandleUserMessage(ctx context.Context, text string) (*core.Result, error) {
	pkg := e.store.ActivePackage()
	if pkg == "" {
		return nil, fmt.Errorf("no active package: %w", core.ErrNotFound)
	}

	rec, err := workspace.Load(e.store, pkg)
	if err != nil {
		return nil, err
	}
	if rec.PendingSwitch != nil {
		t := strings.ToLower(strings.TrimSpace(text))
		if confirmWords[t] {
			pending := rec.PendingSwitch
			rec.PendingSwitch = nil
			if err := workspace.Save(e.store, pkg, rec); err != nil {
				return nil, err
			}
			e.SwitchContract(pending.Mode, pending.SessionType)
			label := e.SessionType()
			if label == "" {
				label = "Session"
			}
			return &core.Result{UI: fmt.Sprintf("**%s mode enabled.**", label)}, nil
		}
		if declineWords[t] {
			rec.PendingSwitch = nil
			if err := workspace.Save(e.store, pkg, rec); err != nil {
				return nil, err
			}
			return &core.Result{Message: "Okay, staying in default mode."}, nil
		}
	}

	if e.ContractMode() == ModeSession {
		return e.sessionTick(ctx, pkg, text)
	}
	return e.normalChatFlow(ctx, pkg, text)
}

// normalChatFlow is the default behavior outside SESSION mode: route the text
// through the chat tool with tool-aware context and any pending one-shot
// injections, capturing the exchange as a run artifact.
func (e *Engine) normalChatFlow(ctx context.Context, pkg, text string) (*core.Result, error) {
	context_ := e.buildEnrichedContext(pkg)
	if injections, err := workspace.TakeInjections(e.store, pkg); err == nil && len(injections) > 0 {
		keys := make([]string, 0, len(injections))
		for k := range injections {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			b.WriteString("\n\n")
			b.WriteString(injections[k])
		}
		context_ += b.String()
	}
	return e.RunCaptured(ctx, "llm_chat", pkg, map[string]any{
		"prompt":  text,
		"context": context_,
	})
}

// buildEnrichedContext composes the chat system context: the interaction
// contract, per-tool action hints and a compact artifact-state summary.
func (e *Engine) buildEnrichedContext(pkg string) string {
	contract := []string{
		"You are an assistant with access to tools.",
		"When actions can be taken, reply ONLY with a JSON object containing an 'actions' list, no other text.",
		"Each action must be of the form: {\"tool\": <tool_name>, \"input\": {<fields>}}",
		"Include only input fields defined in the tool's IO schema; never invent fields and omit empty values.",
		"Satisfy all required inputs; if one is missing, first add an action that creates or fetches it.",
		"Chain actions using the tools' declared outputs; prefer minimal correct sequences.",
		"If no tool applies, respond naturally.",
	}

	var toolLines []string
	for _, desc := range e.tools.Descriptors() {
		toolLines = append(toolLines, fmt.Sprintf("- %s\n%s", desc.Name, actionHint(desc)))
	}
	toolsBlock := strings.Join(toolLines, "\n")
	if toolsBlock == "" {
		toolsBlock = "- (no tools registered)"
	}

	parts := []string{
		strings.Join(contract, "\n"),
		"You have access to the following tools:",
		toolsBlock,
	}
	if state := e.artifactStateLine(pkg); state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, "\n\n")
}

// actionHint renders a per-tool usage block: category, required and optional
// inputs, a JSON action template and the declared outputs.
func actionHint(desc core.Descriptor) string {
	var lines []string
	when := strings.TrimSpace(desc.Description)
	if when != "" {
		lines = append(lines, fmt.Sprintf("When to use: [%s] %s", desc.Category, when))
	} else {
		lines = append(lines, fmt.Sprintf("When to use: [%s]", desc.Category))
	}

	inputNames := make([]string, 0, len(desc.IO.Inputs))
	for name := range desc.IO.Inputs {
		inputNames = append(inputNames, name)
	}
	sort.Strings(inputNames)

	var required, optional, templateKeys []string
	for _, name := range inputNames {
		spec := desc.IO.Inputs[name]
		line := fmt.Sprintf("%q: %s", name, orDefault(spec.Type, "string"))
		if spec.Description != "" {
			line += "  # " + spec.Description
		}
		if spec.Required {
			required = append(required, line)
			templateKeys = append(templateKeys, name)
		} else {
			optional = append(optional, line)
		}
	}
	// At most two optional keys in the template to keep it short.
	optCount := 0
	for _, name := range inputNames {
		if !desc.IO.Inputs[name].Required && optCount < 2 {
			templateKeys = append(templateKeys, name)
			optCount++
		}
	}

	if len(required) > 0 {
		lines = append(lines, "Requires:")
		for _, r := range required {
			lines = append(lines, "  - "+r)
		}
	}
	if len(optional) > 0 {
		lines = append(lines, "Optional:")
		for _, o := range optional {
			lines = append(lines, "  - "+o)
		}
	}

	fields := make([]string, len(templateKeys))
	for i, k := range templateKeys {
		fields[i] = fmt.Sprintf("%q: <%s>", k, k)
	}
	lines = append(lines, "Action template:")
	lines = append(lines, fmt.Sprintf("  {\"tool\":%q,\"input\":{%s}}", desc.Name, strings.Join(fields, ", ")))

	outputNames := make([]string, 0, len(desc.IO.Outputs))
	for name := range desc.IO.Outputs {
		outputNames = append(outputNames, name)
	}
	sort.Strings(outputNames)
	if len(outputNames) > 0 {
		lines = append(lines, "Produces:")
		for _, name := range outputNames {
			spec := desc.IO.Outputs[name]
			suffix := ""
			if spec.Remember {
				suffix = " remember"
			}
			lines = append(lines, fmt.Sprintf("  - %q: %s%s", name, spec.Type, suffix))
		}
	}
	return strings.Join(lines, "\n")
}

// artifactStateLine summarizes the package's artifact counts by type.
func (e *Engine) artifactStateLine(pkg string) string {
	p, ok := e.store.GetPackage(pkg)
	if !ok || p.Len() == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, a := range p.List("") {
		if a.Type == workspace.ArtifactType {
			continue
		}
		counts[a.Type]++
	}
	if len(counts) == 0 {
		return ""
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s×%d", t, counts[t])
	}
	return "[State] Artifacts in memory: " + strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
