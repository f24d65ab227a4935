package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/assetmesh/logging"
)

// ProtocolVersion identifies the tool-call protocol revision spoken by the
// registry's initialize handshake.
const ProtocolVersion = "2024-11-05"

// Descriptor is the listable shape of a registered tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ServerInfo names the serving implementation during the handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities advertises what the server supports.
type Capabilities struct {
	Tools bool `json:"tools"`
}

// InitializeResult is the response to the initialize handshake.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocol_version"`
	ServerInfo      ServerInfo   `json:"server_info"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Result is the uniform envelope returned by CallTool. A failed call carries
// the error text instead of raising; clients always get a well-formed
// response.
type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger  logging.Logger
	Name    string
	Version string
}

// Registry holds the registered tools and implements the tool-call protocol:
// initialize, list and call.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger logging.Logger
	info   ServerInfo
}

// NewRegistry creates an empty tool registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Logger:  logging.NoOpLogger{},
		Name:    "assetmesh",
		Version: "1.0.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: opts.Logger,
		info:   ServerInfo{Name: opts.Name, Version: opts.Version},
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Initialize performs the protocol handshake.
func (r *Registry) Initialize() InitializeResult {
	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      r.info,
		Capabilities:    Capabilities{Tools: true},
	}
}

// ListTools returns the descriptors of all registered tools sorted by name.
func (r *Registry) ListTools() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CallTool dispatches a call by name. It never panics and never returns a Go
// error; every outcome is folded into the Result envelope, including unknown
// tool names.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool call panicked", "tool", name, "panic", rec)
			result = Result{Success: false, Error: fmt.Sprintf("tool %s panicked: %v", name, rec)}
		}
	}()

	t, ok := r.Get(name)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("Unknown tool: %s", name)}
	}

	r.logger.Debug("tool call", "tool", name)
	out, err := t.Call(ctx, args)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Result: out}
}
