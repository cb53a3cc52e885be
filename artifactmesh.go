// Package artifactmesh provides a high-level façade over the core engine and
// service abstractions (artifacts, tools, sessions, memory & logging) for
// building artifact-centric orchestration hosts. Most applications interact
// with this package by:
//  1. Creating an ArtifactMesh via New() (optionally overriding the default
//     in-memory services and registering a chat model)
//  2. Registering additional tools on Tools()
//  3. Running tools (Run) or routing free user text (HandleUserMessage)
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a real chat model and a
// structured logger.
package artifactmesh

import (
	"context"

	"github.com/hupe1980/artifactmesh/artifact"
	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/engine"
	"github.com/hupe1980/artifactmesh/logging"
	"github.com/hupe1980/artifactmesh/memory"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/tool"
	"github.com/hupe1980/artifactmesh/tools"
)

// Options configures the ArtifactMesh instance.
type Options struct {
	// Engine configuration (autoswitch policy, injection budget).
	EngineConfig engine.Config

	// Stores (default to in-memory implementations if not provided).
	ArtifactStore core.ArtifactStore
	MemoryStore   core.MemoryStore

	// ToolRegistry defaults to a fresh registry populated with the built-in
	// tool set.
	ToolRegistry *tool.Registry

	// ChatModel drives llm_chat and the session facilitator. Optional; chat
	// features degrade to deterministic fallbacks when nil.
	ChatModel model.ChatModel

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// ArtifactMesh is the high-level façade aggregating the underlying engine and
// services.
type ArtifactMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new ArtifactMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation, and the built-in
// tools are registered.
func New(optFns ...func(o *Options)) (*ArtifactMesh, error) {
	opts := Options{
		EngineConfig:  engine.Config{SessionAutoswitch: "on"},
		ArtifactStore: artifact.NewRegistry(),
		MemoryStore:   memory.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.ArtifactStore
		o.Tools = opts.ToolRegistry
		o.Memory = opts.MemoryStore
		o.Chat = opts.ChatModel
		o.Logger = opts.Logger
	})

	if opts.ToolRegistry == nil {
		if err := tools.Register(e.Tools(), opts.ChatModel, e.Sessions()); err != nil {
			return nil, err
		}
	}
	e.ScanContracts()

	return &ArtifactMesh{opts: opts, engine: e}, nil
}

// Engine exposes the underlying dispatcher.
func (m *ArtifactMesh) Engine() *engine.Engine { return m.engine }

// Store exposes the artifact store.
func (m *ArtifactMesh) Store() core.ArtifactStore { return m.engine.Store() }

// Tools exposes the capability registry for registering additional tools.
func (m *ArtifactMesh) Tools() *tool.Registry { return m.engine.Tools() }

// CreatePackage creates a named artifact package.
func (m *ArtifactMesh) CreatePackage(name string) (*core.Package, error) {
	return m.engine.Store().CreatePackage(name)
}

// UsePackage marks the package as the default scope.
func (m *ArtifactMesh) UsePackage(name string) error {
	return m.engine.Store().UsePackage(name)
}

// Run dispatches a tool against a package ("" for the active package).
func (m *ArtifactMesh) Run(ctx context.Context, toolName, pkg string, input map[string]any) (*core.Result, error) {
	return m.engine.Run(ctx, toolName, pkg, input)
}

// HandleUserMessage routes free user text through the contract-mode state
// machine: pending switch confirmation, session tick or default chat.
func (m *ArtifactMesh) HandleUserMessage(ctx context.Context, text string) (*core.Result, error) {
	return m.engine.HandleUserMessage(ctx, text)
}

// PlanPath finds a shortest tool chain transforming startType into goalType.
func (m *ArtifactMesh) PlanPath(startType, goalType string) []string {
	return m.engine.Tools().PlanPath(startType, goalType)
}

// History returns the execution log.
func (m *ArtifactMesh) History() []core.HistoryRecord { return m.engine.History() }
