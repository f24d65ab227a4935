package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

const (
	fanOutHigh           = 10
	subnetShareMedium    = 0.50
	blastRadiusShareHigh = 0.30
	// concentration checks need a minimally sized population to mean anything
	concentrationMinAssets = 5
)

// DependencyAgent analyzes failure propagation: controller fan-out, network
// segment concentration, single points of failure and blast radius.
type DependencyAgent struct {
	BaseAgent
}

// NewDependencyAgent constructs a dependency analyzer for one facility.
func NewDependencyAgent(facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) *DependencyAgent {
	a := &DependencyAgent{
		BaseAgent: NewBaseAgent(facility+" Dependency", core.RoleDependency, facility, facilityCode, room, optFns...),
	}
	a.setRelevantTopics(core.TopicDependency)
	a.setRoutes(RoutingTable{
		{Keywords: []string{"single point", "spof", "redundan"}, Handle: a.answerSPOF},
		{Keywords: []string{"blast radius", "impact", "propagat"}, Handle: a.answerBlastRadius},
		{Keywords: []string{"fan-out", "fanout", "controller load"}, Handle: a.answerFanOut},
	})
	return a
}

// Observe runs the dependency passes, replacing the prior observation set
// and posting the top findings to the bus.
func (a *DependencyAgent) Observe(_ context.Context) []core.Observation {
	assetCtx := a.Context()
	if assetCtx == nil || len(assetCtx.Assets) == 0 {
		a.SetObservations(nil)
		return nil
	}

	var obs []core.Observation
	obs = append(obs, a.checkFanOut(assetCtx)...)
	obs = append(obs, a.checkSubnetConcentration(assetCtx)...)
	obs = append(obs, a.checkSinglePointsOfFailure(assetCtx)...)
	obs = append(obs, a.checkBlastRadius(assetCtx)...)
	obs = append(obs, a.checkStrengths(assetCtx)...)

	a.SetObservations(obs)
	a.publishFindings(obs, core.TopicDependency)
	return obs
}

func (a *DependencyAgent) controllers(assetCtx *core.AssetContext) []core.Asset {
	var out []core.Asset
	for _, asset := range assetCtx.Assets {
		if asset.IsController() {
			out = append(out, asset)
		}
	}
	return out
}

func (a *DependencyAgent) checkFanOut(assetCtx *core.AssetContext) []core.Observation {
	var obs []core.Observation
	for _, ctrl := range a.controllers(assetCtx) {
		deps := assetCtx.Dependents(ctrl.Tag)
		if len(deps) <= fanOutHigh {
			continue
		}
		o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityHigh,
			core.Subject{Facility: assetCtx.Facility, Unit: ctrl.Unit, Asset: ctrl.Tag},
			fmt.Sprintf("Controller %s serves %d downstream assets", ctrl.Tag, len(deps))).
			WithConfidence(0.85).
			WithEvidence(core.NewEvidence("asset", ctrl.Tag, "controller fan-out", map[string]any{
				"dependents": len(deps),
				"tags":       assetTags(deps),
			})).
			WithRecommendations(fmt.Sprintf("Split the load on controller %s across additional controllers", ctrl.Tag))
		obs = append(obs, o)
	}
	return obs
}

func (a *DependencyAgent) checkSubnetConcentration(assetCtx *core.AssetContext) []core.Observation {
	if len(assetCtx.Assets) < concentrationMinAssets {
		return nil
	}
	bySubnet := make(map[string]int)
	for _, asset := range assetCtx.Assets {
		if asset.Subnet != "" {
			bySubnet[asset.Subnet]++
		}
	}
	var worst string
	var worstCount int
	for subnet, count := range bySubnet {
		if count > worstCount || (count == worstCount && subnet < worst) {
			worst, worstCount = subnet, count
		}
	}
	share := float64(worstCount) / float64(len(assetCtx.Assets))
	if worst == "" || share <= subnetShareMedium {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityMedium,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%.0f%% of assets share subnet %s; a segment fault affects most of the facility", share*100, worst)).
		WithConfidence(0.8).
		WithEvidence(core.NewEvidence("metric", "subnet_concentration", "asset concentration per subnet", map[string]any{
			"subnet": worst,
			"count":  worstCount,
			"share":  share,
		})).
		WithRecommendations("Segment the flat network into per-unit subnets")
	return []core.Observation{o}
}

// checkSinglePointsOfFailure flags controllers without a redundant peer. A
// safety-rated controller is always critical, even with no dependents wired
// up yet; other controllers count only when something depends on them.
func (a *DependencyAgent) checkSinglePointsOfFailure(assetCtx *core.AssetContext) []core.Observation {
	var obs []core.Observation
	for _, ctrl := range a.controllers(assetCtx) {
		if ctrl.RedundantPeer != "" {
			continue
		}
		deps := assetCtx.Dependents(ctrl.Tag)
		if !ctrl.SafetyRated && len(deps) == 0 {
			continue
		}
		severity := core.SeverityHigh
		if ctrl.SafetyRated {
			severity = core.SeverityCritical
		}
		o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity,
			core.Subject{Facility: assetCtx.Facility, Unit: ctrl.Unit, Asset: ctrl.Tag},
			fmt.Sprintf("Controller %s is a single point of failure with no redundant peer", ctrl.Tag)).
			WithConfidence(0.9).
			WithEvidence(core.NewEvidence("asset", ctrl.Tag, "single point of failure", map[string]any{
				"safety_rated": ctrl.SafetyRated,
				"dependents":   len(deps),
			})).
			WithRecommendations(fmt.Sprintf("Install a redundant peer for controller %s", ctrl.Tag))
		obs = append(obs, o)
	}
	return obs
}

func (a *DependencyAgent) checkBlastRadius(assetCtx *core.AssetContext) []core.Observation {
	total := len(assetCtx.Assets)
	var worst core.Asset
	var worstRadius int
	for _, ctrl := range a.controllers(assetCtx) {
		radius := len(assetCtx.Dependents(ctrl.Tag))
		if radius > worstRadius {
			worst, worstRadius = ctrl, radius
		}
	}
	if worstRadius == 0 {
		return nil
	}
	share := float64(worstRadius) / float64(total)
	if share <= blastRadiusShareHigh {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationPattern, core.SeverityHigh,
		core.Subject{Facility: assetCtx.Facility, Unit: worst.Unit, Asset: worst.Tag},
		fmt.Sprintf("Failure of %s would impact %d assets (%.0f%% of the facility)", worst.Tag, worstRadius, share*100)).
		WithConfidence(0.8).
		WithEvidence(core.NewEvidence("asset", worst.Tag, "estimated blast radius", map[string]any{
			"radius": worstRadius,
			"share":  share,
		})).
		WithRecommendations(fmt.Sprintf("Reduce the blast radius of %s through redundancy or load splitting", worst.Tag))
	return []core.Observation{o}
}

func (a *DependencyAgent) checkStrengths(assetCtx *core.AssetContext) []core.Observation {
	controllers := a.controllers(assetCtx)
	if len(controllers) == 0 {
		return nil
	}
	for _, ctrl := range controllers {
		if ctrl.RedundantPeer == "" {
			return nil
		}
	}
	o := core.NewObservation(a.Info().ID, core.ObservationStrength, core.SeverityPositive,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("All %d controllers have redundant peers", len(controllers))).
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "controller_redundancy", "controllers with redundant peers", map[string]any{
			"controllers": len(controllers),
		}))
	return []core.Observation{o}
}

func (a *DependencyAgent) answerSPOF(string) string {
	for _, o := range a.Weaknesses() {
		if containsFold(o.Description, "single point of failure") {
			return o.Description
		}
	}
	return "No single points of failure detected among controllers."
}

func (a *DependencyAgent) answerBlastRadius(string) string {
	for _, o := range a.Observations() {
		if o.Type == core.ObservationPattern {
			return o.Description
		}
	}
	return "No controller failure would impact a major share of the facility."
}

func (a *DependencyAgent) answerFanOut(string) string {
	for _, o := range a.Weaknesses() {
		if containsFold(o.Description, "downstream") {
			return o.Description
		}
	}
	return "Controller fan-out is within limits."
}
