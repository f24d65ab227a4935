// Package assetmesh provides a high-level façade over the agent observation
// and coordination layer. Most applications interact with this package by:
//  1. Creating an AssetMesh via New() with a configuration and one
//     FacilitySpec per site
//  2. Running observation rounds through the coordinator
//  3. Exposing the built-in tools over MCP via tool.NewServer
//
// The façade wires the Break Room bus, one facility agent per site (each
// with its five domain analyzers), the enterprise coordinator and the tool
// registry. All defaults are safe for local development; production
// deployments typically supply a structured logger and a real model
// provider.
package assetmesh

import (
	"context"
	"time"

	"github.com/hupe1980/assetmesh/agent"
	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/config"
	"github.com/hupe1980/assetmesh/core"
	"github.com/hupe1980/assetmesh/logging"
	"github.com/hupe1980/assetmesh/model"
	"github.com/hupe1980/assetmesh/model/anthropic"
	"github.com/hupe1980/assetmesh/model/openai"
	"github.com/hupe1980/assetmesh/tool"
)

// FacilitySpec names one site and its asset inventory.
type FacilitySpec struct {
	Name    string
	Code    string
	Context *core.AssetContext
}

// Options configures the AssetMesh instance.
type Options struct {
	// Config carries the protocol constants; nil means config.Default().
	Config *config.Config

	// Provider overrides the reasoning backend selected by Config.Provider.
	Provider model.Provider

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AssetMesh aggregates the bus, the facility agents, the coordinator and the
// tool registry.
type AssetMesh struct {
	cfg         *config.Config
	room        *bus.BreakRoom
	coordinator *agent.CoordinatorAgent
	registry    *tool.Registry
}

// New wires a complete observation layer for the given facilities. Facility
// agents and their domain analyzers register on the bus immediately.
func New(facilities []FacilitySpec, optFns ...func(o *Options)) (*AssetMesh, error) {
	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := opts.Provider
	if provider == nil {
		provider = providerFromConfig(cfg.Provider)
	}

	room := bus.New(func(o *bus.Options) {
		o.Name = cfg.Bus.Name
		o.MaxMessages = cfg.Bus.MaxMessages
		o.MaxKnowledge = cfg.Bus.MaxKnowledge
		o.MaxObservations = cfg.Bus.MaxObservations
		o.Logger = opts.Logger
	})

	agentOpts := func(o *agent.Options) {
		o.Provider = provider
		o.Logger = opts.Logger
		o.Weights = cfg.HealthWeights
		o.Thresholds = cfg.HealthThresholds
		o.Settings = core.Settings{
			AutoRespond: cfg.AutoRespond,
			PostLimit:   cfg.PostLimit,
		}
	}

	coordinator := agent.NewCoordinatorAgent(room, func(o *agent.CoordinatorOptions) {
		agentOpts(&o.Options)
		o.EscalationWindow = cfg.Coordinator.EscalationWindow
		o.ConflictWindow = cfg.Coordinator.ConflictWindow
		o.SentimentThreshold = cfg.SentimentThreshold
	})

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Logger = opts.Logger
	})

	m := &AssetMesh{
		cfg:         cfg,
		room:        room,
		coordinator: coordinator,
		registry:    registry,
	}

	for _, spec := range facilities {
		f := agent.NewFacilityAgent(spec.Name, spec.Code, room, agentOpts)
		if spec.Context != nil {
			f.UpdateContext(spec.Context)
		}
		coordinator.RegisterFacility(f)
		if err := tool.RegisterFacilityTools(registry, f); err != nil {
			return nil, err
		}
	}
	if err := tool.RegisterEnterpriseTools(registry, coordinator); err != nil {
		return nil, err
	}

	return m, nil
}

// Room returns the shared Break Room bus.
func (m *AssetMesh) Room() *bus.BreakRoom { return m.room }

// Coordinator returns the enterprise coordinator.
func (m *AssetMesh) Coordinator() *agent.CoordinatorAgent { return m.coordinator }

// Registry returns the tool registry with all built-ins registered.
func (m *AssetMesh) Registry() *tool.Registry { return m.registry }

// Config returns the effective configuration.
func (m *AssetMesh) Config() *config.Config { return m.cfg }

// RunRound triggers one synchronized observation round across all
// facilities.
func (m *AssetMesh) RunRound(ctx context.Context) (agent.RoundResult, error) {
	return m.coordinator.StartObservationRound(ctx)
}

// ExecutiveSummary builds the enterprise summary over a trailing window.
func (m *AssetMesh) ExecutiveSummary(window time.Duration) agent.ExecutiveSummary {
	since := time.Time{}
	if window > 0 {
		since = time.Now().UTC().Add(-window)
	}
	return m.coordinator.GenerateExecutiveSummary(since)
}

func providerFromConfig(cfg config.ProviderConfig) model.Provider {
	switch cfg.Kind {
	case "anthropic":
		optFns := []func(o *anthropic.Options){func(o *anthropic.Options) {
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		}}
		if cfg.Model != "" {
			optFns = append(optFns, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(optFns...)
	case "openai":
		return openai.New(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
		})
	case "mock":
		return model.NewMockProvider()
	default:
		return nil
	}
}
