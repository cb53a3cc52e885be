// Package engine implements the execution dispatcher: tool invocation with
// package scoping and name resolution, the append-only history log, memory
// policy enforcement, one-shot artifact announcements and the contract-mode
// state machine routing user text between default chat and guided sessions.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/artifactmesh/artifact"
	"github.com/hupe1980/artifactmesh/core"
	"github.com/hupe1980/artifactmesh/governance"
	"github.com/hupe1980/artifactmesh/logging"
	"github.com/hupe1980/artifactmesh/memory"
	"github.com/hupe1980/artifactmesh/model"
	"github.com/hupe1980/artifactmesh/session"
	"github.com/hupe1980/artifactmesh/tool"
	"github.com/hupe1980/artifactmesh/workspace"
)

// Contract modes.
const (
	ModeDefault = "DEFAULT"
	ModeSession = "SESSION"
)

// sessionAllowList names the only tools runnable while in SESSION mode.
var sessionAllowList = map[string]bool{
	"create_artifact": true,
	"llm_chat":        true,
	"start_session":   true,
}

// Config carries the dispatcher's tunables.
type Config struct {
	// SessionAutoswitch controls how a tool-requested contract switch is
	// honored: "on" (immediate), "ask" (confirm first) or "off" (ignore).
	SessionAutoswitch string
	// InjectTokenLimit caps governed memory/injection writes; zero selects
	// the default budget.
	InjectTokenLimit int
}

// Options configures New.
type Options struct {
	Config Config
	Store  core.ArtifactStore
	Tools  *tool.Registry
	Memory core.MemoryStore
	Chat   model.ChatModel
	Logger logging.Logger
}

// Engine is the dispatcher. One Run call (or one session tick) executes to
// completion before the next is accepted for the same package; a per-package
// mutex enforces that boundary for multi-goroutine hosts.
type Engine struct {
	cfg      Config
	store    core.ArtifactStore
	tools    *tool.Registry
	memory   core.MemoryStore
	chat     model.ChatModel
	logger   logging.Logger
	sessions *session.Manager

	mu            sync.Mutex
	contractMode  string
	sessionType   string
	history       []core.HistoryRecord
	lastAnnounced map[string]string

	lockMu   sync.Mutex
	pkgLocks map[string]*sync.Mutex
}

// New constructs an engine with defaults: an empty in-process artifact
// registry, an empty tool registry, in-memory conversational memory and slog
// logging.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: Config{SessionAutoswitch: "on"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = artifact.NewRegistry()
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultSlogLogger()
	}
	if opts.Config.SessionAutoswitch == "" {
		opts.Config.SessionAutoswitch = "on"
	}
	if opts.Config.InjectTokenLimit <= 0 {
		opts.Config.InjectTokenLimit = governance.DefaultInjectTokenLimit
	}
	return &Engine{
		cfg:           opts.Config,
		store:         opts.Store,
		tools:         opts.Tools,
		memory:        opts.Memory,
		chat:          opts.Chat,
		logger:        opts.Logger,
		sessions:      session.NewManager(opts.Logger),
		contractMode:  ModeDefault,
		lastAnnounced: map[string]string{},
		pkgLocks:      map[string]*sync.Mutex{},
	}
}

// Store returns the artifact store the engine dispatches against.
func (e *Engine) Store() core.ArtifactStore { return e.store }

// Tools returns the capability registry.
func (e *Engine) Tools() *tool.Registry { return e.tools }

// Memory returns the conversational memory store.
func (e *Engine) Memory() core.MemoryStore { return e.memory }

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// ContractMode returns the current contract mode.
func (e *Engine) ContractMode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contractMode
}

// SessionType returns the session type while in SESSION mode, "" otherwise.
func (e *Engine) SessionType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionType
}

// SwitchContract forces a contract mode. Exposed so explicit host affordances
// can switch even when autoswitch is "off".
func (e *Engine) SwitchContract(mode, sessionType string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mode == "" {
		mode = ModeDefault
	}
	e.contractMode = mode
	if mode == ModeDefault {
		e.sessionType = ""
	} else {
		e.sessionType = sessionType
	}
}

func (e *Engine) pkgLock(pkg string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	l, ok := e.pkgLocks[pkg]
	if !ok {
		l = &sync.Mutex{}
		e.pkgLocks[pkg] = l
	}
	return l
}

// Run dispatches a tool against a package. pkg may be empty to use the active
// package. NotFound for the tool or package aborts the call with an error;
// every failure inside the tool itself is converted into a structured error
// Result instead.
func (e *Engine) Run(ctx context.Context, toolName, pkg string, input map[string]any) (*core.Result, error) {
	return e.run(ctx, toolName, pkg, input, false)
}

// RunCaptured is Run plus a snapshot of the raw Result as a "run:<tool>"
// artifact in the package.
func (e *Engine) RunCaptured(ctx context.Context, toolName, pkg string, input map[string]any) (*core.Result, error) {
	return e.run(ctx, toolName, pkg, input, true)
}

func (e *Engine) run(ctx context.Context, toolName, pkg string, input map[string]any, capture bool) (*core.Result, error) {
	if e.ContractMode() == ModeSession && !sessionAllowList[toolName] {
		return &core.Result{
			Message: "Tools are disabled during guided session mode. Type `finish session` to conclude.",
		}, nil
	}

	t, err := e.tools.Get(toolName)
	if err != nil {
		return nil, err
	}

	if pkg == "" {
		pkg = e.store.ActivePackage()
	}
	if pkg == "" {
		return nil, fmt.Errorf("no package scope: %w", core.ErrNotFound)
	}
	if _, ok := e.store.GetPackage(pkg); !ok {
		return nil, fmt.Errorf("package %q: %w", pkg, core.ErrNotFound)
	}

	lock := e.pkgLock(pkg)
	lock.Lock()
	defer lock.Unlock()

	resolved := workspace.ResolveNames(e.store, pkg, input)
	result := e.invoke(ctx, t, toolName, resolved, pkg)

	e.mu.Lock()
	e.history = append(e.history, core.HistoryRecord{
		Tool:      toolName,
		Package:   pkg,
		Input:     input,
		Output:    result,
		Timestamp: time.Now().UTC(),
	})
	e.mu.Unlock()

	// Failed runs are captured too; the snapshot is the audit trail.
	if capture {
		if _, err := e.store.AddArtifact(pkg, "run:"+toolName, result, map[string]any{
			"from_tool": true,
			"snapshot":  true,
		}); err != nil {
			e.logger.Warn("run snapshot not captured", "tool", toolName, "package", pkg, "error", err)
		}
	}

	e.enforceMemoryPolicy(toolName, t.Descriptor(), result, pkg)

	if ann := e.latestAnnouncement(pkg); ann != "" && result.ArtifactMessage == "" {
		result.ArtifactMessage = ann
	}

	if result.SwitchContract != "" {
		e.handleToolSwitch(pkg, result)
	}
	return result, nil
}

// invoke is the single intentional non-propagating boundary: a tool error or
// panic becomes a structured error Result so a faulty tool can never crash
// the session.
func (e *Engine) invoke(ctx context.Context, t core.Tool, toolName string, input map[string]any, pkg string) (result *core.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked", "tool", toolName, "package", pkg, "panic", r)
			result = &core.Result{
				Err:        fmt.Sprintf("panic: %v", r),
				Message:    fmt.Sprintf("`%s` failed: %v", toolName, r),
				Diagnostic: string(debug.Stack()),
			}
		}
	}()

	res, err := t.Run(ctx, input, e.store, pkg)
	if err != nil {
		e.logger.Warn("tool failed", "tool", toolName, "package", pkg, "error", err)
		return &core.Result{
			Err:     err.Error(),
			Message: fmt.Sprintf("`%s` failed: %v", toolName, err),
		}
	}
	if res == nil {
		res = &core.Result{}
	}
	return res
}

// enforceMemoryPolicy applies the remember contract of the tool's declared
// outputs. The contract binds successful runs only; failures here are logged,
// never fatal to the call.
func (e *Engine) enforceMemoryPolicy(toolName string, desc core.Descriptor, result *core.Result, pkg string) {
	if result.Failed() {
		return
	}
	var missing []string
	for outName, spec := range desc.IO.Outputs {
		if !spec.Remember {
			continue
		}
		id := ""
		if result.ArtifactIDs != nil {
			id = result.ArtifactIDs[outName]
		}
		if id == "" {
			missing = append(missing, outName)
			continue
		}
		art, err := e.store.GetByID(pkg, id)
		if err != nil {
			missing = append(missing, outName)
			continue
		}
		if art.Metadata == nil {
			art.Metadata = map[string]any{}
		}
		art.Metadata["remembered"] = true
		note := fmt.Sprintf("%s.%s → %s (%s)", toolName, outName, art.Type, art.ShortID())
		if err := e.memory.Remember(pkg, id, note); err != nil {
			e.logger.Warn("memory write failed", "tool", toolName, "package", pkg, "error", err)
		}
	}
	if len(missing) > 0 {
		e.logger.Warn("remember contract violated",
			"tool", toolName, "package", pkg, "outputs", missing)
	}
}

// latestAnnouncement returns the one-shot creation notice of the most recent
// non-conversation artifact, deduplicated by artifact id per package.
func (e *Engine) latestAnnouncement(pkg string) string {
	p, ok := e.store.GetPackage(pkg)
	if !ok {
		return ""
	}
	var latest *core.Artifact
	for _, a := range p.List("") {
		if a.Type == "conversation" || a.Type == workspace.ArtifactType {
			continue
		}
		latest = a
		break
	}
	if latest == nil {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastAnnounced[pkg] == latest.ID {
		return ""
	}
	ann := latest.Announce
	if ann == "" {
		ann = fmt.Sprintf("Artifact created: id=%q type=%q in package %q",
			latest.ShortID(), latest.Type, pkg)
	}
	e.lastAnnounced[pkg] = latest.ID
	latest.Announce = ""
	return ann
}

// handleToolSwitch honors a contract-switch request per the autoswitch config.
func (e *Engine) handleToolSwitch(pkg string, result *core.Result) {
	if result.SwitchContract != ModeSession {
		return
	}
	sessionType := result.SessionType
	if sessionType == "" {
		sessionType = "interview"
	}
	switch e.cfg.SessionAutoswitch {
	case "on":
		e.SwitchContract(ModeSession, sessionType)
	case "ask":
		rec, err := workspace.Load(e.store, pkg)
		if err != nil {
			e.logger.Warn("pending switch not recorded", "package", pkg, "error", err)
			return
		}
		rec.PendingSwitch = &workspace.PendingSwitch{Mode: ModeSession, SessionType: sessionType}
		if err := workspace.Save(e.store, pkg, rec); err != nil {
			e.logger.Warn("pending switch not recorded", "package", pkg, "error", err)
			return
		}
		if result.UI == "" {
			result.UI = "**Switch to guided session mode?** Reply `start session` or `cancel`."
		}
		if result.InjectOnce == "" {
			result.InjectOnce = "Confirm contract switch to SESSION (yes/no)."
		}
	}
	// "off": ignore; explicit host affordances may still call SwitchContract.
}

// ScanContracts logs every tool declaring remember outputs, as a startup
// reminder that such tools must report artifact ids on success.
func (e *Engine) ScanContracts() {
	for _, desc := range e.tools.Descriptors() {
		var keys []string
		for name, spec := range desc.IO.Outputs {
			if spec.Remember {
				keys = append(keys, name)
			}
		}
		if len(keys) > 0 {
			e.logger.Info("tool declares remember outputs; it must return artifact ids on success",
				"tool", desc.Name, "outputs", keys)
		}
	}
}
