package core

import "context"

// Category classifies a tool by its default post-processing behavior. The set
// is open; these are the conventional values.
type Category string

// Conventional tool categories.
const (
	CategoryImport    Category = "import"
	CategoryTransform Category = "transform"
	CategoryGenerate  Category = "generate"
	CategoryExport    Category = "export"
	CategoryDisplay   Category = "display"
	CategoryControl   Category = "control"
	CategoryChat      Category = "chat"
	CategoryAnalysis  Category = "analysis"
)

// InputSpec declares one named tool input.
type InputSpec struct {
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// OutputSpec declares one named tool output. Remember is a contract: a
// successful run producing that output must report the created artifact id
// under the output name in Result.ArtifactIDs.
type OutputSpec struct {
	Type        string `json:"type"`
	Remember    bool   `json:"remember"`
	Description string `json:"description,omitempty"`
}

// IOSchema is the declared input/output contract of a tool. The capability
// registry derives the type-flow graph used for planning from it.
type IOSchema struct {
	Inputs  map[string]InputSpec  `json:"inputs"`
	Outputs map[string]OutputSpec `json:"outputs"`
}

// Descriptor is the registered metadata of a tool.
type Descriptor struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	IO          IOSchema `json:"io_schema"`
}

// ConsumedTypes returns the artifact types declared by the inputs.
func (d Descriptor) ConsumedTypes() []string {
	out := make([]string, 0, len(d.IO.Inputs))
	for _, spec := range d.IO.Inputs {
		if spec.Type != "" {
			out = append(out, spec.Type)
		}
	}
	return out
}

// ProducedTypes returns the artifact types declared by the outputs.
func (d Descriptor) ProducedTypes() []string {
	out := make([]string, 0, len(d.IO.Outputs))
	for _, spec := range d.IO.Outputs {
		if spec.Type != "" {
			out = append(out, spec.Type)
		}
	}
	return out
}

// Tool is the single capability contract. A tool only ever sees the package
// passed as scope and an input map whose symbolic names have already been
// resolved to concrete artifact ids by the dispatcher.
//
// A tool may return an error; the dispatcher converts it (and any panic) into
// a structured error Result at its boundary, so a faulty tool can never crash
// a session.
type Tool interface {
	Descriptor() Descriptor
	Run(ctx context.Context, input map[string]any, store ArtifactStore, pkg string) (*Result, error)
}

// Result is the tagged outcome of a tool invocation. All fields are optional;
// the dispatcher branches on which are present rather than on an open map.
type Result struct {
	// Message is a short human-readable status line.
	Message string `json:"message,omitempty"`
	// UI and HTML are render hints, opaque to the core.
	UI   string `json:"ui,omitempty"`
	HTML string `json:"html,omitempty"`
	// Content carries an arbitrary payload (previews, raw values).
	Content any `json:"content,omitempty"`
	// ArtifactIDs maps declared output names to created artifact ids.
	// Required for every output flagged remember=true.
	ArtifactIDs map[string]string `json:"artifact_ids,omitempty"`
	// SwitchContract / SessionType signal the contract-mode state machine.
	SwitchContract string `json:"switch_contract,omitempty"`
	SessionType    string `json:"session_type,omitempty"`
	// InjectOnce is a one-shot context string surfaced on the next chat turn.
	InjectOnce string `json:"inject_once,omitempty"`
	// ArtifactMessage is the one-shot artifact announcement attached by the
	// dispatcher, never by tools.
	ArtifactMessage string `json:"artifact_message,omitempty"`
	// Err and Diagnostic describe a failed invocation (set by the dispatcher
	// boundary when a tool returns an error or panics).
	Err        string `json:"error,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Text returns the most suitable display text: UI, then Message, then Err.
func (r *Result) Text() string {
	switch {
	case r == nil:
		return ""
	case r.UI != "":
		return r.UI
	case r.Message != "":
		return r.Message
	default:
		return r.Err
	}
}

// Failed reports whether the result represents a failed invocation.
func (r *Result) Failed() bool { return r != nil && r.Err != "" }
