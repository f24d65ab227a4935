package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/assetmesh/bus"
	"github.com/hupe1980/assetmesh/core"
)

const (
	blindSpotShareHigh = 0.30
	coverageGoodRate   = 0.90
)

// GapAgent analyzes coverage: blind spots against the baseline register,
// orphaned discoveries, and functional gaps against the industry template.
type GapAgent struct {
	BaseAgent
}

// NewGapAgent constructs a gap analyzer for one facility.
func NewGapAgent(facility, facilityCode string, room *bus.BreakRoom, optFns ...func(o *Options)) *GapAgent {
	a := &GapAgent{
		BaseAgent: NewBaseAgent(facility+" Gap", core.RoleGap, facility, facilityCode, room, optFns...),
	}
	a.setRelevantTopics(core.TopicGap, core.TopicCoverage)
	a.setRoutes(RoutingTable{
		{Keywords: []string{"blind spot", "blind", "missing", "unmatched"}, Handle: a.answerBlindSpots},
		{Keywords: []string{"orphan", "unknown asset", "undocumented"}, Handle: a.answerOrphans},
		{Keywords: []string{"coverage", "match rate", "template", "function"}, Handle: a.answerCoverage},
	})
	return a
}

// Observe runs the coverage passes. Missing baseline or discovery data is a
// low-severity informational observation, not an error.
func (a *GapAgent) Observe(_ context.Context) []core.Observation {
	assetCtx := a.Context()
	if assetCtx == nil || (len(assetCtx.Assets) == 0 && len(assetCtx.Baseline) == 0) {
		a.SetObservations(nil)
		return nil
	}

	if len(assetCtx.Assets) == 0 || len(assetCtx.Baseline) == 0 {
		o := core.NewObservation(a.Info().ID, core.ObservationImprovement, core.SeverityInfo,
			core.Subject{Facility: assetCtx.Facility},
			"Gap analysis needs both a baseline register and discovery data; only one side is available").
			WithConfidence(1).
			WithRecommendations("Provide both baseline and discovery datasets to enable coverage analysis")
		obs := []core.Observation{o}
		a.SetObservations(obs)
		return obs
	}

	var obs []core.Observation
	obs = append(obs, a.checkBlindSpots(assetCtx)...)
	obs = append(obs, a.checkOrphans(assetCtx)...)
	obs = append(obs, a.checkFunctionalGaps(assetCtx)...)
	obs = append(obs, a.checkStrengths(assetCtx)...)

	a.SetObservations(obs)
	a.publishFindings(obs, core.TopicGap)
	return obs
}

func (a *GapAgent) checkBlindSpots(assetCtx *core.AssetContext) []core.Observation {
	var blind []string
	for _, b := range assetCtx.Baseline {
		if !b.Matched {
			blind = append(blind, b.Tag)
		}
	}
	if len(blind) == 0 {
		return nil
	}
	share := float64(len(blind)) / float64(len(assetCtx.Baseline))
	severity := core.SeverityMedium
	if share > blindSpotShareHigh {
		severity = core.SeverityHigh
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, severity,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%d baseline assets were not found by discovery (%.0f%% blind spot)", len(blind), share*100)).
		WithConfidence(0.85).
		WithEvidence(core.NewEvidence("gap", "blind_spots", "baseline records without a discovery match", map[string]any{
			"count": len(blind),
			"tags":  blind,
		})).
		WithRecommendations("Extend discovery coverage to the unmatched baseline assets")
	return []core.Observation{o}
}

func (a *GapAgent) checkOrphans(assetCtx *core.AssetContext) []core.Observation {
	var orphans []string
	for _, asset := range assetCtx.Assets {
		if !asset.Matched {
			orphans = append(orphans, asset.Tag)
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationAnomaly, core.SeverityMedium,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("%d discovered assets have no baseline record", len(orphans))).
		WithConfidence(0.8).
		WithEvidence(core.NewEvidence("gap", "orphans", "discovered assets absent from the baseline", map[string]any{
			"count": len(orphans),
			"tags":  orphans,
		})).
		WithRecommendations("Reconcile undocumented assets into the baseline register")
	return []core.Observation{o}
}

func (a *GapAgent) checkFunctionalGaps(assetCtx *core.AssetContext) []core.Observation {
	if assetCtx.Template == nil || len(assetCtx.Template.ExpectedFunctions) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for _, b := range assetCtx.Baseline {
		if b.Function != "" {
			present[strings.ToLower(b.Function)] = true
		}
	}
	var missing []string
	for _, fn := range assetCtx.Template.ExpectedFunctions {
		if !present[strings.ToLower(fn)] {
			missing = append(missing, fn)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationWeakness, core.SeverityMedium,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("Industry template for %s expects functions not present: %s",
			assetCtx.Template.Industry, strings.Join(missing, ", "))).
		WithConfidence(0.7).
		WithEvidence(core.NewEvidence("gap", "functional_gaps", "expected functions missing from the register", map[string]any{
			"missing": missing,
		})).
		WithRecommendations("Verify whether the missing functions are untracked or genuinely absent")
	return []core.Observation{o}
}

func (a *GapAgent) checkStrengths(assetCtx *core.AssetContext) []core.Observation {
	rate := assetCtx.MatchRate()
	if rate < coverageGoodRate {
		return nil
	}
	o := core.NewObservation(a.Info().ID, core.ObservationStrength, core.SeverityPositive,
		core.Subject{Facility: assetCtx.Facility},
		fmt.Sprintf("Discovery matched %.0f%% of the baseline register", rate*100)).
		WithConfidence(0.9).
		WithEvidence(core.NewEvidence("metric", "match_rate", "baseline match rate", map[string]any{"rate": rate}))
	return []core.Observation{o}
}

func (a *GapAgent) answerBlindSpots(string) string {
	for _, o := range a.Weaknesses() {
		if containsFold(o.Description, "blind spot") {
			return o.Description
		}
	}
	return "No blind spots against the baseline register."
}

func (a *GapAgent) answerOrphans(string) string {
	for _, o := range a.Observations() {
		if o.Type == core.ObservationAnomaly {
			return o.Description
		}
	}
	return "No undocumented assets detected."
}

func (a *GapAgent) answerCoverage(string) string {
	assetCtx := a.Context()
	if assetCtx == nil || len(assetCtx.Baseline) == 0 {
		return "Coverage is unknown without a baseline register."
	}
	return fmt.Sprintf("Discovery matches %.0f%% of the baseline register.", assetCtx.MatchRate()*100)
}
